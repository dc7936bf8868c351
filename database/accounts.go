package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agora/config"
	"agora/models"
	"agora/utils"

	"github.com/google/uuid"
)

// accountColumns selects an account together with its derived moderator flag.
const accountColumns = `
	u.id, u.username, u.email, u.avatar_path, u.is_superuser, u.is_banned, u.date_joined,
	EXISTS (SELECT 1 FROM group_members ug JOIN auth_groups g ON g.id = ug.group_id
	        WHERE ug.user_id = u.id AND g.name = '` + config.ModeratorsGroup + `')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.AvatarPath, &a.IsSuperuser, &a.IsBanned, &a.DateJoined, &a.IsModerator); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount inserts a new account with an already hashed password.
func (ds *DatabaseService) CreateAccount(ctx context.Context, username, email, passwordHash, avatarPath string, superuser bool) (int64, error) {
	res, err := ds.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, avatar_path, is_superuser, date_joined) VALUES (?, ?, ?, ?, ?, ?)",
		username, email, passwordHash, avatarPath, superuser, utils.GetSQLTime())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("failed to insert account %q: %w", username, err)
	}
	return res.LastInsertId()
}

// GetAccount fetches an account by id.
func (ds *DatabaseService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	a, err := scanAccount(ds.DB.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM users u WHERE u.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("db error getting account %d: %w", id, err)
	}
	return a, nil
}

// Authenticate checks a username/password pair and returns the account.
func (ds *DatabaseService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	var id int64
	var hash string
	err := ds.DB.QueryRowContext(ctx, "SELECT id, password_hash FROM users WHERE username = ?", username).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("db error authenticating %q: %w", username, err)
	}
	if err := utils.CheckPassword(hash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return ds.GetAccount(ctx, id)
}

// EnsureSuperuser creates the bootstrap superuser unless the name is already taken.
func (ds *DatabaseService) EnsureSuperuser(ctx context.Context, username, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := ds.CreateAccount(ctx, username, "", hash, "", true); err != nil && !errors.Is(err, ErrUsernameTaken) {
		return err
	}
	return nil
}

// --- Sessions ---

// CreateSession opens a new login session and returns its token.
func (ds *DatabaseService) CreateSession(ctx context.Context, accountID int64, ttl time.Duration) (*models.Session, error) {
	s := &models.Session{
		Token:     uuid.New().String(),
		AccountID: accountID,
		ExpiresAt: utils.GetSQLTime().Add(ttl),
	}
	if _, err := ds.DB.ExecContext(ctx, "INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)", s.Token, s.AccountID, s.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// GetAccountBySession resolves a session token. Expired sessions are removed.
func (ds *DatabaseService) GetAccountBySession(ctx context.Context, token string) (*models.Account, error) {
	var accountID int64
	var expiresAt time.Time
	err := ds.DB.QueryRowContext(ctx, "SELECT user_id, expires_at FROM sessions WHERE token = ?", token).Scan(&accountID, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("db error reading session: %w", err)
	}
	if utils.GetSQLTime().After(expiresAt) {
		if err := ds.DeleteSession(ctx, token); err != nil {
			ds.logger.Error("Failed to delete expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}
	return ds.GetAccount(ctx, accountID)
}

// DeleteSession ends a login session.
func (ds *DatabaseService) DeleteSession(ctx context.Context, token string) error {
	if _, err := ds.DB.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// --- Moderation of accounts ---

// ListBannableAccounts returns every non-staff account, newest first.
func (ds *DatabaseService) ListBannableAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := ds.DB.QueryContext(ctx, "SELECT "+accountColumns+" FROM users u WHERE u.is_superuser = 0 ORDER BY u.date_joined DESC, u.id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in ListBannableAccounts", "error", err)
		}
	}()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		if a.IsModerator {
			continue
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// ToggleBan flips the banned flag of a regular account and logs the action.
// Staff targets are left untouched and changed is false.
func (ds *DatabaseService) ToggleBan(ctx context.Context, moderatorID, targetID int64) (changed bool, banned bool, err error) {
	target, err := ds.GetAccount(ctx, targetID)
	if err != nil {
		return false, false, err
	}
	if !models.CanBeBanned(target) {
		return false, target.IsBanned, nil
	}

	banned = !target.IsBanned
	err = WithTx(ctx, ds.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE users SET is_banned = ? WHERE id = ?", banned, targetID); err != nil {
			return fmt.Errorf("failed to update ban flag: %w", err)
		}
		action := "unban"
		if banned {
			action = "ban"
		}
		return LogModAction(tx, moderatorID, action, targetID, target.Username)
	})
	if err != nil {
		return false, target.IsBanned, err
	}
	return true, banned, nil
}

// ToggleModerator adds the target to the Moderators group or removes it.
// Superusers are left untouched.
func (ds *DatabaseService) ToggleModerator(ctx context.Context, superuserID, targetID int64) (isModerator bool, err error) {
	target, err := ds.GetAccount(ctx, targetID)
	if err != nil {
		return false, err
	}
	if target.IsSuperuser {
		return target.IsModerator, nil
	}

	err = WithTx(ctx, ds.DB, func(tx *sql.Tx) error {
		var groupID int64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM auth_groups WHERE name = ?", config.ModeratorsGroup).Scan(&groupID); err != nil {
			return fmt.Errorf("moderators group missing: %w", err)
		}
		var err error
		action := "grant_moderator"
		if target.IsModerator {
			action = "revoke_moderator"
			_, err = tx.ExecContext(ctx, "DELETE FROM group_members WHERE user_id = ? AND group_id = ?", targetID, groupID)
		} else {
			_, err = tx.ExecContext(ctx, "INSERT OR IGNORE INTO group_members (user_id, group_id) VALUES (?, ?)", targetID, groupID)
		}
		if err != nil {
			return fmt.Errorf("failed to update group membership: %w", err)
		}
		return LogModAction(tx, superuserID, action, targetID, target.Username)
	})
	if err != nil {
		return target.IsModerator, err
	}
	return !target.IsModerator, nil
}

// ListModerators returns the members of the Moderators group.
func (ds *DatabaseService) ListModerators(ctx context.Context) ([]models.Account, error) {
	rows, err := ds.DB.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM users u
		JOIN group_members ug ON ug.user_id = u.id
		JOIN auth_groups g ON g.id = ug.group_id
		WHERE g.name = ? ORDER BY u.username`, config.ModeratorsGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to list moderators: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan moderator row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}
