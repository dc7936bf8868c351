package database

const schema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE COLLATE NOCASE,
	email TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	avatar_path TEXT NOT NULL DEFAULT '',
	is_superuser BOOLEAN NOT NULL DEFAULT 0,
	is_banned BOOLEAN NOT NULL DEFAULT 0,
	date_joined DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS auth_groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS group_members (
	user_id INTEGER NOT NULL,
	group_id INTEGER NOT NULL,
	PRIMARY KEY (user_id, group_id),
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (group_id) REFERENCES auth_groups(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	expires_at DATETIME NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS news (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	author_id INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS news_comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	news_id INTEGER NOT NULL,
	parent_id INTEGER,
	author_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (news_id) REFERENCES news(id) ON DELETE CASCADE,
	FOREIGN KEY (parent_id) REFERENCES news_comments(id) ON DELETE CASCADE,
	FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_admin_only BOOLEAN NOT NULL DEFAULT 0,
	is_feedback BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS threads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	author_id INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	is_closed BOOLEAN NOT NULL DEFAULT 0,
	FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE,
	FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS thread_posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id INTEGER NOT NULL,
	parent_id INTEGER,
	author_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (thread_id) REFERENCES threads(id) ON DELETE CASCADE,
	FOREIGN KEY (parent_id) REFERENCES thread_posts(id) ON DELETE CASCADE,
	FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
);
-- One table references all four content kinds through (target_type, target_id).
CREATE TABLE IF NOT EXISTS reactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	target_type TEXT NOT NULL,
	target_id INTEGER NOT NULL,
	value INTEGER NOT NULL CHECK (value IN (1, -1)),
	UNIQUE (user_id, target_type, target_id),
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	author_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS mod_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	moderator_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	target_id INTEGER,
	details TEXT
);

-- Reactions have no foreign key to their target, so removal is done here.
CREATE TRIGGER IF NOT EXISTS news_reactions_ad AFTER DELETE ON news BEGIN
	DELETE FROM reactions WHERE target_type = 'news' AND target_id = old.id;
END;
CREATE TRIGGER IF NOT EXISTS news_comments_reactions_ad AFTER DELETE ON news_comments BEGIN
	DELETE FROM reactions WHERE target_type = 'news_comment' AND target_id = old.id;
END;
CREATE TRIGGER IF NOT EXISTS threads_reactions_ad AFTER DELETE ON threads BEGIN
	DELETE FROM reactions WHERE target_type = 'thread' AND target_id = old.id;
END;
CREATE TRIGGER IF NOT EXISTS thread_posts_reactions_ad AFTER DELETE ON thread_posts BEGIN
	DELETE FROM reactions WHERE target_type = 'post' AND target_id = old.id;
END;

-- --- INDEXES ---
CREATE INDEX IF NOT EXISTS idx_news_created ON news(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_news_comments_news ON news_comments(news_id);
CREATE INDEX IF NOT EXISTS idx_threads_category ON threads(category_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_thread_posts_thread ON thread_posts(thread_id, created_at);
CREATE INDEX IF NOT EXISTS idx_reactions_target ON reactions(target_type, target_id, value);
CREATE INDEX IF NOT EXISTS idx_chat_created ON chat_messages(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_mod_actions_time ON mod_actions(timestamp DESC);
`
