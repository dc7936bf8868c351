package models

import "fmt"

// TargetKind tags which content table a reaction points at.
type TargetKind string

const (
	TargetNews        TargetKind = "news"
	TargetNewsComment TargetKind = "news_comment"
	TargetThread      TargetKind = "thread"
	TargetPost        TargetKind = "post"
)

// targetTables maps each kind to the table holding its rows.
var targetTables = map[TargetKind]string{
	TargetNews:        "news",
	TargetNewsComment: "news_comments",
	TargetThread:      "threads",
	TargetPost:        "thread_posts",
}

// ParseTargetKind maps a URL tag to a kind. Unknown tags are an error.
func ParseTargetKind(s string) (TargetKind, error) {
	k := TargetKind(s)
	if _, ok := targetTables[k]; !ok {
		return "", fmt.Errorf("unknown reaction target %q", s)
	}
	return k, nil
}

// Table returns the table backing the kind, or "" for an unknown kind.
func (k TargetKind) Table() string {
	return targetTables[k]
}

// ReactionValue is +1 for a like and -1 for a dislike.
type ReactionValue int

const (
	Like    ReactionValue = 1
	Dislike ReactionValue = -1
)

// ParseReactionValue accepts only "1" and "-1".
func ParseReactionValue(s string) (ReactionValue, error) {
	switch s {
	case "1":
		return Like, nil
	case "-1":
		return Dislike, nil
	}
	return 0, fmt.Errorf("invalid reaction value %q", s)
}

type Reaction struct {
	ID         int64
	AccountID  int64
	TargetKind TargetKind
	TargetID   int64
	Value      ReactionValue
}

// ReactionOutcome describes what a SetReaction call did to the stored row.
type ReactionOutcome int

const (
	ReactionCreated ReactionOutcome = iota + 1
	ReactionUpdated
	ReactionRemoved
)

func (o ReactionOutcome) String() string {
	switch o {
	case ReactionCreated:
		return "created"
	case ReactionUpdated:
		return "updated"
	case ReactionRemoved:
		return "removed"
	}
	return "unknown"
}
