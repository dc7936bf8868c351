// agora/database/database.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"agora/utils"

	_ "github.com/mattn/go-sqlite3"
)

// DatabaseService is the central struct for all database operations.
type DatabaseService struct {
	DB     *sql.DB
	logger *slog.Logger
	dsn    string
}

// defaultCategories seeds an empty forum with one section of each kind.
var defaultCategories = []struct {
	name, description     string
	adminOnly, isFeedback bool
}{
	{"General", "Anything that fits nowhere else.", false, false},
	{"Announcements", "Notices from the site staff.", true, false},
	{"Contact the Staff", "Questions and feedback for moderators.", true, true},
}

// InitDB connects to the database, runs migrations, and seeds default data.
func InitDB(dataSourceName string, logger *slog.Logger) (*DatabaseService, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Run the base schema to ensure all tables exist.
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to execute base schema: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	var categoryCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&categoryCount); err == nil && categoryCount == 0 {
		for i, c := range defaultCategories {
			if _, err := db.Exec("INSERT INTO categories (name, description, is_admin_only, is_feedback, sort_order) VALUES (?, ?, ?, ?, ?)",
				c.name, c.description, c.adminOnly, c.isFeedback, i); err != nil {
				return nil, fmt.Errorf("failed to seed categories: %w", err)
			}
		}
	}

	logger.Info("Database initialized.")

	return &DatabaseService{
		DB:     db,
		logger: logger,
		dsn:    dataSourceName,
	}, nil
}

// BackupDatabase performs an online backup of the live SQLite database using VACUUM INTO.
func (ds *DatabaseService) BackupDatabase() (string, error) {
	if utils.BackupDir == "" {
		return "", fmt.Errorf("backup directory is not configured")
	}
	if err := os.MkdirAll(utils.BackupDir, 0755); err != nil {
		return "", fmt.Errorf("could not create backup directory %s: %w", utils.BackupDir, err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02_15-04-05")
	backupPath := filepath.Join(utils.BackupDir, fmt.Sprintf("agora_backup_%s.db", timestamp))

	ds.logger.Info("Starting database backup", "destination", backupPath)

	if _, err := ds.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
		if removeErr := os.Remove(backupPath); removeErr != nil && !os.IsNotExist(removeErr) {
			ds.logger.Error("Failed to remove incomplete backup file", "path", backupPath, "error", removeErr)
		}
		return "", fmt.Errorf("VACUUM INTO command failed: %w", err)
	}

	return backupPath, nil
}

// runMigrations applies all un-applied migrations.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	var latestVersion uint
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&latestVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("could not get db version: %w", err)
	}

	logger.Info("Current database schema version", "version", latestVersion)

	for _, m := range allMigrations {
		if m.Version <= latestVersion {
			continue
		}
		logger.Info("Applying migration", "version", m.Version)
		err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Query); err != nil {
				return fmt.Errorf("failed to apply migration v%d: %w", m.Version, err)
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, utils.GetSQLTime()); err != nil {
				return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		logger.Info("Successfully applied migration", "version", m.Version)
	}
	return nil
}

// LogModAction records a moderator's action inside the caller's transaction.
func LogModAction(tx *sql.Tx, moderatorID int64, action string, targetID int64, details string) error {
	var target sql.NullInt64
	if targetID != 0 {
		target = sql.NullInt64{Int64: targetID, Valid: true}
	}
	_, err := tx.Exec("INSERT INTO mod_actions (timestamp, moderator_id, action, target_id, details) VALUES (?, ?, ?, ?, ?)",
		utils.GetSQLTime(), moderatorID, action, target, details)
	if err != nil {
		return fmt.Errorf("failed to log mod action %q: %w", action, err)
	}
	return nil
}
