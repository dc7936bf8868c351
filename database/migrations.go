// agora/database/migrations.go
package database

// migration represents a single database schema migration.
type migration struct {
	Version uint
	Query   string
}

// allMigrations holds all schema changes in order.
var allMigrations = []migration{
	{
		Version: 1,
		Query: `
-- Moderator role is membership of this group
INSERT OR IGNORE INTO auth_groups (name) VALUES ('Moderators');
		`,
	},
	{
		Version: 2,
		Query: `
-- Manual ordering of forum sections
ALTER TABLE categories ADD COLUMN sort_order INTEGER NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS idx_categories_sort ON categories(is_admin_only, sort_order, name);
		`,
	},
}
