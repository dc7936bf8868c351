package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agora/models"
	"agora/utils"
)

// resolveParent returns parentID when it names a row of table inside the same
// container, and a NULL parent otherwise.
func resolveParent(ctx context.Context, tx *sql.Tx, table, containerColumn string, containerID, parentID int64) (sql.NullInt64, error) {
	if parentID <= 0 {
		return sql.NullInt64{}, nil
	}
	var owner int64
	err := tx.QueryRowContext(ctx, "SELECT "+containerColumn+" FROM "+table+" WHERE id = ?", parentID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != containerID) {
		return sql.NullInt64{}, nil
	}
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("failed to resolve parent %d: %w", parentID, err)
	}
	return sql.NullInt64{Int64: parentID, Valid: true}, nil
}

func countsFor(alias string) string {
	return fmt.Sprintf(reactionCountsSQL, alias)
}

// --- News ---

// ListNews returns all news items, newest first.
func (ds *DatabaseService) ListNews(ctx context.Context) ([]models.News, error) {
	rows, err := ds.DB.QueryContext(ctx, `
		SELECT n.id, n.title, n.content, n.author_id, u.username, n.created_at,`+countsFor("n")+`
		FROM news n JOIN users u ON u.id = n.author_id
		ORDER BY n.created_at DESC, n.id DESC`, string(models.TargetNews), string(models.TargetNews))
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	defer rows.Close()

	var items []models.News
	for rows.Next() {
		var n models.News
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.AuthorID, &n.Author, &n.CreatedAt, &n.Likes, &n.Dislikes); err != nil {
			return nil, fmt.Errorf("failed to scan news row: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// GetNews fetches a single news item.
func (ds *DatabaseService) GetNews(ctx context.Context, id int64) (*models.News, error) {
	var n models.News
	err := ds.DB.QueryRowContext(ctx, `
		SELECT n.id, n.title, n.content, n.author_id, u.username, n.created_at,`+countsFor("n")+`
		FROM news n JOIN users u ON u.id = n.author_id WHERE n.id = ?`,
		string(models.TargetNews), string(models.TargetNews), id).
		Scan(&n.ID, &n.Title, &n.Content, &n.AuthorID, &n.Author, &n.CreatedAt, &n.Likes, &n.Dislikes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("news %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("db error getting news %d: %w", id, err)
	}
	return &n, nil
}

// CreateNews publishes a news item.
func (ds *DatabaseService) CreateNews(ctx context.Context, authorID int64, title, content string) (int64, error) {
	res, err := ds.DB.ExecContext(ctx, "INSERT INTO news (title, content, author_id, created_at) VALUES (?, ?, ?, ?)",
		title, content, authorID, utils.GetSQLTime())
	if err != nil {
		return 0, fmt.Errorf("failed to insert news: %w", err)
	}
	return res.LastInsertId()
}

// GetNewsComments returns the comment tree of a news item. Roots come newest
// first and replies under each root oldest first.
func (ds *DatabaseService) GetNewsComments(ctx context.Context, newsID int64) ([]*models.NewsComment, error) {
	rows, err := ds.DB.QueryContext(ctx, `
		SELECT c.id, c.news_id, c.parent_id, c.author_id, u.username, u.avatar_path, c.content, c.created_at,`+countsFor("c")+`
		FROM news_comments c JOIN users u ON u.id = c.author_id
		WHERE c.news_id = ? ORDER BY c.created_at ASC, c.id ASC`,
		string(models.TargetNewsComment), string(models.TargetNewsComment), newsID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for news %d: %w", newsID, err)
	}
	defer rows.Close()

	var all []*models.NewsComment
	byID := make(map[int64]*models.NewsComment)
	for rows.Next() {
		c := &models.NewsComment{}
		if err := rows.Scan(&c.ID, &c.NewsID, &c.ParentID, &c.AuthorID, &c.Author, &c.Avatar, &c.Content, &c.CreatedAt, &c.Likes, &c.Dislikes); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		all = append(all, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var roots []*models.NewsComment
	for _, c := range all {
		if parent, ok := byID[c.ParentID.Int64]; c.ParentID.Valid && ok {
			parent.Replies = append(parent.Replies, c)
			continue
		}
		roots = append(roots, c)
	}
	for i, j := 0, len(roots)-1; i < j; i, j = i+1, j-1 {
		roots[i], roots[j] = roots[j], roots[i]
	}
	return roots, nil
}

// CreateNewsComment adds a comment. A parent outside this news item is dropped.
func (ds *DatabaseService) CreateNewsComment(ctx context.Context, newsID, authorID, parentID int64, content string) (int64, error) {
	var id int64
	err := WithTx(ctx, ds.DB, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM news WHERE id = ?)", newsID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check news %d: %w", newsID, err)
		}
		if !exists {
			return fmt.Errorf("news %d: %w", newsID, ErrNotFound)
		}
		parent, err := resolveParent(ctx, tx, "news_comments", "news_id", newsID, parentID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "INSERT INTO news_comments (news_id, parent_id, author_id, content, created_at) VALUES (?, ?, ?, ?, ?)",
			newsID, parent, authorID, content, utils.GetSQLTime())
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// --- Categories ---

const categoryColumns = `c.id, c.name, c.description, c.is_admin_only, c.is_feedback,
	(SELECT COUNT(*) FROM threads t WHERE t.category_id = c.id)`

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsAdminOnly, &c.IsFeedback, &c.ThreadCount); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns every category in display order.
func (ds *DatabaseService) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := ds.DB.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories c ORDER BY c.sort_order, c.name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// ListNavCategories returns the id and name of every category for the nav bar.
func (ds *DatabaseService) ListNavCategories(ctx context.Context) ([]models.NavCategory, error) {
	rows, err := ds.DB.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY is_admin_only, sort_order, name")
	if err != nil {
		return nil, fmt.Errorf("failed to list nav categories: %w", err)
	}
	defer rows.Close()

	var nav []models.NavCategory
	for rows.Next() {
		var c models.NavCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		nav = append(nav, c)
	}
	return nav, rows.Err()
}

// GetCategory fetches a category by id.
func (ds *DatabaseService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(ds.DB.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories c WHERE c.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("db error getting category %d: %w", id, err)
	}
	return c, nil
}

// CreateCategory adds a forum section. The feedback flag is stored only for
// admin-only sections.
func (ds *DatabaseService) CreateCategory(ctx context.Context, moderatorID int64, name, description string, adminOnly, feedback bool) (int64, error) {
	feedback = feedback && adminOnly
	var id int64
	err := WithTx(ctx, ds.DB, func(tx *sql.Tx) error {
		var nextOrder int
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(sort_order), -1) + 1 FROM categories").Scan(&nextOrder); err != nil {
			return fmt.Errorf("failed to compute sort order: %w", err)
		}
		res, err := tx.ExecContext(ctx, "INSERT INTO categories (name, description, is_admin_only, is_feedback, sort_order) VALUES (?, ?, ?, ?, ?)",
			name, description, adminOnly, feedback, nextOrder)
		if err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return LogModAction(tx, moderatorID, "create_category", id, name)
	})
	return id, err
}

// --- Threads & Posts ---

const threadColumns = `t.id, t.category_id, t.title, t.content, t.author_id, u.username, t.created_at, t.is_closed,
	(SELECT COUNT(*) FROM thread_posts p WHERE p.thread_id = t.id),`

func scanThread(row rowScanner) (*models.Thread, error) {
	var t models.Thread
	if err := row.Scan(&t.ID, &t.CategoryID, &t.Title, &t.Content, &t.AuthorID, &t.Author, &t.CreatedAt, &t.IsClosed, &t.PostCount, &t.Likes, &t.Dislikes); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListThreads returns the threads of a category, newest first.
func (ds *DatabaseService) ListThreads(ctx context.Context, categoryID int64) ([]models.Thread, error) {
	rows, err := ds.DB.QueryContext(ctx, `
		SELECT `+threadColumns+countsFor("t")+`
		FROM threads t JOIN users u ON u.id = t.author_id
		WHERE t.category_id = ? ORDER BY t.created_at DESC, t.id DESC`,
		string(models.TargetThread), string(models.TargetThread), categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads for category %d: %w", categoryID, err)
	}
	defer rows.Close()

	var threads []models.Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread row: %w", err)
		}
		threads = append(threads, *t)
	}
	return threads, rows.Err()
}

// GetThread fetches a thread by id.
func (ds *DatabaseService) GetThread(ctx context.Context, id int64) (*models.Thread, error) {
	t, err := scanThread(ds.DB.QueryRowContext(ctx, `
		SELECT `+threadColumns+countsFor("t")+`
		FROM threads t JOIN users u ON u.id = t.author_id WHERE t.id = ?`,
		string(models.TargetThread), string(models.TargetThread), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("thread %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("db error getting thread %d: %w", id, err)
	}
	return t, nil
}

// CreateThread opens a new thread in a category.
func (ds *DatabaseService) CreateThread(ctx context.Context, categoryID, authorID int64, title, content string) (int64, error) {
	res, err := ds.DB.ExecContext(ctx, "INSERT INTO threads (category_id, title, content, author_id, created_at) VALUES (?, ?, ?, ?, ?)",
		categoryID, title, content, authorID, utils.GetSQLTime())
	if err != nil {
		return 0, fmt.Errorf("failed to insert thread: %w", err)
	}
	return res.LastInsertId()
}

// GetThreadPosts returns the replies of a thread in chronological order.
func (ds *DatabaseService) GetThreadPosts(ctx context.Context, threadID int64) ([]models.ThreadPost, error) {
	rows, err := ds.DB.QueryContext(ctx, `
		SELECT p.id, p.thread_id, p.parent_id, p.author_id, u.username, u.avatar_path, p.content, p.created_at,`+countsFor("p")+`
		FROM thread_posts p JOIN users u ON u.id = p.author_id
		WHERE p.thread_id = ? ORDER BY p.created_at ASC, p.id ASC`,
		string(models.TargetPost), string(models.TargetPost), threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts for thread %d: %w", threadID, err)
	}
	defer rows.Close()

	var posts []models.ThreadPost
	for rows.Next() {
		var p models.ThreadPost
		if err := rows.Scan(&p.ID, &p.ThreadID, &p.ParentID, &p.AuthorID, &p.Author, &p.Avatar, &p.Content, &p.CreatedAt, &p.Likes, &p.Dislikes); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreateThreadPost adds a reply. A parent outside this thread is dropped.
func (ds *DatabaseService) CreateThreadPost(ctx context.Context, threadID, authorID, parentID int64, content string) (int64, error) {
	var id int64
	err := WithTx(ctx, ds.DB, func(tx *sql.Tx) error {
		parent, err := resolveParent(ctx, tx, "thread_posts", "thread_id", threadID, parentID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "INSERT INTO thread_posts (thread_id, parent_id, author_id, content, created_at) VALUES (?, ?, ?, ?, ?)",
			threadID, parent, authorID, content, utils.GetSQLTime())
		if err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ToggleThreadClosed opens or closes a thread and returns the new state.
func (ds *DatabaseService) ToggleThreadClosed(ctx context.Context, moderatorID, threadID int64) (bool, error) {
	var closed bool
	err := WithTx(ctx, ds.DB, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, "SELECT is_closed FROM threads WHERE id = ?", threadID).Scan(&closed); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("thread %d: %w", threadID, ErrNotFound)
			}
			return err
		}
		closed = !closed
		if _, err := tx.ExecContext(ctx, "UPDATE threads SET is_closed = ? WHERE id = ?", closed, threadID); err != nil {
			return fmt.Errorf("failed to update thread: %w", err)
		}
		action := "reopen_thread"
		if closed {
			action = "close_thread"
		}
		return LogModAction(tx, moderatorID, action, threadID, "")
	})
	return closed, err
}

// DeleteContent removes a piece of content. Child rows and reactions go with it.
func (ds *DatabaseService) DeleteContent(ctx context.Context, moderatorID int64, kind models.TargetKind, id int64) error {
	table := kind.Table()
	if table == "" {
		return fmt.Errorf("unknown content kind %q", kind)
	}
	return WithTx(ctx, ds.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
		}
		return LogModAction(tx, moderatorID, "delete_"+string(kind), id, "")
	})
}

// --- Moderation log ---

// GetModLog returns the most recent moderation actions, newest first.
func (ds *DatabaseService) GetModLog(ctx context.Context, limit int) ([]models.ModAction, error) {
	rows, err := ds.DB.QueryContext(ctx, `
		SELECT m.id, m.timestamp, m.moderator_id, COALESCE(u.username, ''), m.action, m.target_id, m.details
		FROM mod_actions m LEFT JOIN users u ON u.id = m.moderator_id
		ORDER BY m.timestamp DESC, m.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read mod log: %w", err)
	}
	defer rows.Close()

	var actions []models.ModAction
	for rows.Next() {
		var a models.ModAction
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.ModeratorID, &a.Moderator, &a.Action, &a.TargetID, &a.Details); err != nil {
			return nil, fmt.Errorf("failed to scan mod action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
