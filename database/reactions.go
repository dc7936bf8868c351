package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agora/models"
)

// TargetExists reports whether the content row a reaction points at exists.
func (ds *DatabaseService) TargetExists(ctx context.Context, kind models.TargetKind, targetID int64) (bool, error) {
	table := kind.Table()
	if table == "" {
		return false, fmt.Errorf("unknown target kind %q", kind)
	}
	var exists bool
	if err := ds.DB.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = ?)", targetID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s %d: %w", kind, targetID, err)
	}
	return exists, nil
}

// SetReaction toggles an account's reaction on a piece of content.
// No reaction creates one, the same value removes it and the opposite value flips it.
// A concurrent insert for the same key is resolved as an update and never surfaced.
func (ds *DatabaseService) SetReaction(ctx context.Context, accountID int64, kind models.TargetKind, targetID int64, value models.ReactionValue) (models.ReactionOutcome, error) {
	if value != models.Like && value != models.Dislike {
		return 0, fmt.Errorf("invalid reaction value %d", value)
	}
	exists, err := ds.TargetExists(ctx, kind, targetID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%s %d: %w", kind, targetID, ErrNotFound)
	}
	return ds.toggleReaction(ctx, accountID, kind, targetID, value)
}

// insertReaction is the create step of the toggle. Tests swap it to force a
// conflicting row in between the read and the insert.
var insertReaction = func(ctx context.Context, tx *sql.Tx, accountID int64, kind models.TargetKind, targetID int64, value models.ReactionValue) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO reactions (user_id, target_type, target_id, value) VALUES (?, ?, ?, ?)",
		accountID, string(kind), targetID, int(value))
	return err
}

func readReaction(ctx context.Context, tx *sql.Tx, accountID int64, kind models.TargetKind, targetID int64) (models.ReactionValue, bool, error) {
	var existing models.ReactionValue
	err := tx.QueryRowContext(ctx,
		"SELECT value FROM reactions WHERE user_id = ? AND target_type = ? AND target_id = ?",
		accountID, string(kind), targetID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read reaction: %w", err)
	}
	return existing, true, nil
}

func (ds *DatabaseService) toggleReaction(ctx context.Context, accountID int64, kind models.TargetKind, targetID int64, value models.ReactionValue) (models.ReactionOutcome, error) {
	var outcome models.ReactionOutcome
	err := WithTx(ctx, ds.DB, func(tx *sql.Tx) error {
		existing, found, err := readReaction(ctx, tx, accountID, kind, targetID)
		if err != nil {
			return err
		}

		if !found {
			err := insertReaction(ctx, tx, accountID, kind, targetID, value)
			if err == nil {
				outcome = models.ReactionCreated
				return nil
			}
			if !isUniqueViolation(err) {
				return fmt.Errorf("failed to insert reaction: %w", err)
			}
			// A failed statement leaves the transaction open, so toggle
			// against the row that won.
			ds.logger.Warn("Reaction insert conflicted, applying as update", "account_id", accountID, "kind", kind, "target_id", targetID)
			existing, found, err = readReaction(ctx, tx, accountID, kind, targetID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("reaction missing after unique violation on %s %d", kind, targetID)
			}
		}

		if existing == value {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM reactions WHERE user_id = ? AND target_type = ? AND target_id = ?",
				accountID, string(kind), targetID); err != nil {
				return fmt.Errorf("failed to remove reaction: %w", err)
			}
			outcome = models.ReactionRemoved
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE reactions SET value = ? WHERE user_id = ? AND target_type = ? AND target_id = ?",
			int(value), accountID, string(kind), targetID); err != nil {
			return fmt.Errorf("failed to update reaction: %w", err)
		}
		outcome = models.ReactionUpdated
		return nil
	})
	return outcome, err
}

// GetReaction returns the account's current reaction on a target, or nil.
func (ds *DatabaseService) GetReaction(ctx context.Context, accountID int64, kind models.TargetKind, targetID int64) (*models.Reaction, error) {
	r := models.Reaction{AccountID: accountID, TargetKind: kind, TargetID: targetID}
	err := ds.DB.QueryRowContext(ctx,
		"SELECT id, value FROM reactions WHERE user_id = ? AND target_type = ? AND target_id = ?",
		accountID, string(kind), targetID).Scan(&r.ID, &r.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reaction: %w", err)
	}
	return &r, nil
}

func (ds *DatabaseService) countReactions(ctx context.Context, kind models.TargetKind, targetID int64, value models.ReactionValue) (int, error) {
	var n int
	err := ds.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reactions WHERE target_type = ? AND target_id = ? AND value = ?",
		string(kind), targetID, int(value)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count reactions on %s %d: %w", kind, targetID, err)
	}
	return n, nil
}

// LikeCount returns the number of likes on a target.
func (ds *DatabaseService) LikeCount(ctx context.Context, kind models.TargetKind, targetID int64) (int, error) {
	return ds.countReactions(ctx, kind, targetID, models.Like)
}

// DislikeCount returns the number of dislikes on a target.
func (ds *DatabaseService) DislikeCount(ctx context.Context, kind models.TargetKind, targetID int64) (int, error) {
	return ds.countReactions(ctx, kind, targetID, models.Dislike)
}

// reactionCountsSQL is appended to content queries so list pages get counts
// in the same round trip. The caller binds the target kind twice.
const reactionCountsSQL = `
	(SELECT COUNT(*) FROM reactions r WHERE r.target_type = ? AND r.target_id = %[1]s.id AND r.value = 1),
	(SELECT COUNT(*) FROM reactions r WHERE r.target_type = ? AND r.target_id = %[1]s.id AND r.value = -1)`
