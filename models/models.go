// agora/models/models.go
package models

import (
	"database/sql"
	"time"
)

// --- Identity ---

// Role is derived from an account's flags and group membership, never stored.
type Role int

const (
	RoleRegular Role = iota
	RoleModerator
	RoleSuperuser
)

func (r Role) String() string {
	switch r {
	case RoleSuperuser:
		return "superuser"
	case RoleModerator:
		return "moderator"
	default:
		return "regular"
	}
}

type Account struct {
	ID          int64
	Username    string
	Email       string
	AvatarPath  string
	IsSuperuser bool
	IsModerator bool // member of the Moderators group
	IsBanned    bool
	DateJoined  time.Time
}

// Role returns the single role used by every permission check.
func (a *Account) Role() Role {
	switch {
	case a == nil:
		return RoleRegular
	case a.IsSuperuser:
		return RoleSuperuser
	case a.IsModerator:
		return RoleModerator
	default:
		return RoleRegular
	}
}

// IsStaff reports whether the account is a moderator or superuser.
func (a *Account) IsStaff() bool {
	return a.Role() != RoleRegular
}

type Session struct {
	Token     string
	AccountID int64
	ExpiresAt time.Time
}

// --- News ---

type News struct {
	ID        int64
	Title     string
	Content   string
	AuthorID  int64
	Author    string
	CreatedAt time.Time
	Likes     int
	Dislikes  int
}

type NewsComment struct {
	ID        int64
	NewsID    int64
	ParentID  sql.NullInt64
	AuthorID  int64
	Author    string
	Avatar    string
	Content   string
	CreatedAt time.Time
	Likes     int
	Dislikes  int
	Replies   []*NewsComment
}

// --- Forum ---

type Category struct {
	ID          int64
	Name        string
	Description string
	IsAdminOnly bool
	IsFeedback  bool
	ThreadCount int
}

type Thread struct {
	ID         int64
	CategoryID int64
	Title      string
	Content    string
	AuthorID   int64
	Author     string
	CreatedAt  time.Time
	IsClosed   bool
	PostCount  int
	Likes      int
	Dislikes   int
}

type ThreadPost struct {
	ID        int64
	ThreadID  int64
	ParentID  sql.NullInt64
	AuthorID  int64
	Author    string
	Avatar    string
	Content   string
	CreatedAt time.Time
	Likes     int
	Dislikes  int
}

// NavCategory is the short form used by the navigation bar.
type NavCategory struct {
	ID   int64
	Name string
}

// --- Chat ---

type ChatMessage struct {
	ID        int64
	AuthorID  int64
	Author    string
	Avatar    string
	Content   string
	CreatedAt time.Time
}

// --- Moderation & System Models ---

type ModAction struct {
	ID          int64
	Timestamp   time.Time
	ModeratorID int64
	Moderator   string
	Action      string
	TargetID    sql.NullInt64
	Details     sql.NullString
}

// FormInput keeps submitted values so a rejected form can be re-rendered.
type FormInput struct {
	Title       string
	Content     string
	Username    string
	Email       string
	Name        string
	Description string
	IsAdminOnly bool
	IsFeedback  bool
}

// StorageService stores uploaded files and returns their public path.
type StorageService interface {
	SaveFile(filename string, data []byte, contentType string) (string, error)
	DeleteFile(path string) error
}
