// agora/database/database_test.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"agora/models"
	"agora/utils"
)

// setupTestDB creates a new temp-file SQLite database for testing.
func setupTestDB(t *testing.T) *DatabaseService {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	dir, err := os.MkdirTemp("", "agora_test_db")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dir, "test.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")

	ds, err := InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	t.Cleanup(func() {
		ds.DB.Close()
		os.RemoveAll(dir)
	})

	return ds
}

// createTestAccount inserts an account with the given role flags.
func createTestAccount(t *testing.T, ds *DatabaseService, username string, superuser, moderator bool) *models.Account {
	t.Helper()
	ctx := context.Background()
	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	id, err := ds.CreateAccount(ctx, username, username+"@example.com", hash, "", superuser)
	if err != nil {
		t.Fatalf("Failed to create account %s: %v", username, err)
	}
	if moderator {
		if _, err := ds.DB.Exec("INSERT INTO group_members (user_id, group_id) SELECT ?, id FROM auth_groups WHERE name = 'Moderators'", id); err != nil {
			t.Fatalf("Failed to add %s to Moderators: %v", username, err)
		}
	}
	a, err := ds.GetAccount(ctx, id)
	if err != nil {
		t.Fatalf("Failed to reload account %s: %v", username, err)
	}
	return a
}

func countReactionRows(t *testing.T, ds *DatabaseService, accountID int64, kind models.TargetKind, targetID int64) int {
	t.Helper()
	var n int
	err := ds.DB.QueryRow("SELECT COUNT(*) FROM reactions WHERE user_id = ? AND target_type = ? AND target_id = ?",
		accountID, string(kind), targetID).Scan(&n)
	if err != nil {
		t.Fatalf("Failed to count reactions: %v", err)
	}
	return n
}

// TestInitDB checks if the database is seeded with default data correctly.
func TestInitDB(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()

	categories, err := ds.ListCategories(ctx)
	if err != nil {
		t.Fatalf("Failed to list categories: %v", err)
	}
	if len(categories) != len(defaultCategories) {
		t.Fatalf("Expected %d seeded categories, got %d", len(defaultCategories), len(categories))
	}
	var sawFeedback bool
	for _, c := range categories {
		if c.IsFeedback && !c.IsAdminOnly {
			t.Errorf("Category %q is feedback without being admin-only", c.Name)
		}
		sawFeedback = sawFeedback || c.IsFeedback
	}
	if !sawFeedback {
		t.Error("Expected a feedback category to be seeded")
	}

	var groupCount int
	if err := ds.DB.QueryRow("SELECT COUNT(*) FROM auth_groups WHERE name = 'Moderators'").Scan(&groupCount); err != nil {
		t.Fatalf("Failed to query groups: %v", err)
	}
	if groupCount != 1 {
		t.Errorf("Expected the Moderators group to exist once, got %d", groupCount)
	}
}

// TestMigrations verifies that our schema migrations run successfully.
func TestMigrations(t *testing.T) {
	ds := setupTestDB(t)

	rows, err := ds.DB.Query("SELECT sort_order FROM categories LIMIT 1")
	if err != nil {
		t.Fatalf("Could not query the sort_order column added by migration 2: %v", err)
	}
	rows.Close()

	var latest int
	if err := ds.DB.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&latest); err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if latest != len(allMigrations) {
		t.Errorf("Expected schema version %d, got %d", len(allMigrations), latest)
	}

	// Re-running must be a no-op.
	if err := runMigrations(ds.DB, ds.logger); err != nil {
		t.Errorf("Re-running migrations failed: %v", err)
	}
}

func TestAccountsAndSessions(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	alice := createTestAccount(t, ds, "alice", false, false)

	if _, err := ds.CreateAccount(ctx, "ALICE", "", "x", "", false); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken for case-insensitive duplicate, got %v", err)
	}

	if _, err := ds.Authenticate(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for a bad password, got %v", err)
	}
	if _, err := ds.Authenticate(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for an unknown user, got %v", err)
	}
	got, err := ds.Authenticate(ctx, "alice", "password123")
	if err != nil || got.ID != alice.ID {
		t.Fatalf("Expected to authenticate alice, got %v / %v", got, err)
	}

	session, err := ds.CreateSession(ctx, alice.ID, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	viewer, err := ds.GetAccountBySession(ctx, session.Token)
	if err != nil || viewer.Username != "alice" {
		t.Fatalf("Expected session to resolve to alice, got %v / %v", viewer, err)
	}

	expired, err := ds.CreateSession(ctx, alice.ID, -time.Minute)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := ds.GetAccountBySession(ctx, expired.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}

	if err := ds.DeleteSession(ctx, session.Token); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := ds.GetAccountBySession(ctx, session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected deleted session to be gone, got %v", err)
	}

	if err := ds.EnsureSuperuser(ctx, "root", "rootpassword"); err != nil {
		t.Fatalf("EnsureSuperuser failed: %v", err)
	}
	if err := ds.EnsureSuperuser(ctx, "root", "rootpassword"); err != nil {
		t.Errorf("EnsureSuperuser should be idempotent, got %v", err)
	}
	root, err := ds.Authenticate(ctx, "root", "rootpassword")
	if err != nil || root.Role() != models.RoleSuperuser {
		t.Errorf("Expected root to be a superuser, got %v / %v", root, err)
	}
}

// TestReactionToggle covers idempotence and the like/dislike flip.
func TestReactionToggle(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	author := createTestAccount(t, ds, "author", true, false)
	reader := createTestAccount(t, ds, "reader", false, false)

	newsID, err := ds.CreateNews(ctx, author.ID, "Hello", "World")
	if err != nil {
		t.Fatalf("CreateNews failed: %v", err)
	}

	steps := []struct {
		value    models.ReactionValue
		outcome  models.ReactionOutcome
		likes    int
		dislikes int
	}{
		{models.Like, models.ReactionCreated, 1, 0},
		{models.Like, models.ReactionRemoved, 0, 0},
		{models.Like, models.ReactionCreated, 1, 0},
		{models.Dislike, models.ReactionUpdated, 0, 1},
		{models.Dislike, models.ReactionRemoved, 0, 0},
	}
	for i, step := range steps {
		outcome, err := ds.SetReaction(ctx, reader.ID, models.TargetNews, newsID, step.value)
		if err != nil {
			t.Fatalf("step %d: SetReaction failed: %v", i, err)
		}
		if outcome != step.outcome {
			t.Errorf("step %d: expected outcome %v, got %v", i, step.outcome, outcome)
		}
		likes, _ := ds.LikeCount(ctx, models.TargetNews, newsID)
		dislikes, _ := ds.DislikeCount(ctx, models.TargetNews, newsID)
		if likes != step.likes || dislikes != step.dislikes {
			t.Errorf("step %d: expected %d/%d, got %d/%d", i, step.likes, step.dislikes, likes, dislikes)
		}
		if n := countReactionRows(t, ds, reader.ID, models.TargetNews, newsID); n > 1 {
			t.Errorf("step %d: expected at most one reaction row, got %d", i, n)
		}
	}
}

// TestReactionOnComment likes then dislikes a comment and expects a single -1 row.
func TestReactionOnComment(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	author := createTestAccount(t, ds, "author", true, false)
	reader := createTestAccount(t, ds, "reader", false, false)

	newsID, _ := ds.CreateNews(ctx, author.ID, "Title", "Body")
	var commentID int64
	for i := 0; i < 5; i++ {
		id, err := ds.CreateNewsComment(ctx, newsID, author.ID, 0, fmt.Sprintf("comment %d", i))
		if err != nil {
			t.Fatalf("CreateNewsComment failed: %v", err)
		}
		commentID = id
	}

	if _, err := ds.SetReaction(ctx, reader.ID, models.TargetNewsComment, commentID, models.Like); err != nil {
		t.Fatalf("Like failed: %v", err)
	}
	if _, err := ds.SetReaction(ctx, reader.ID, models.TargetNewsComment, commentID, models.Dislike); err != nil {
		t.Fatalf("Dislike failed: %v", err)
	}

	r, err := ds.GetReaction(ctx, reader.ID, models.TargetNewsComment, commentID)
	if err != nil || r == nil {
		t.Fatalf("Expected a stored reaction, got %v / %v", r, err)
	}
	if r.Value != models.Dislike {
		t.Errorf("Expected value -1, got %d", r.Value)
	}
	if n := countReactionRows(t, ds, reader.ID, models.TargetNewsComment, commentID); n != 1 {
		t.Errorf("Expected exactly one row, got %d", n)
	}
}

func TestReactionMissingTarget(t *testing.T) {
	ds := setupTestDB(t)
	reader := createTestAccount(t, ds, "reader", false, false)

	_, err := ds.SetReaction(context.Background(), reader.ID, models.TargetThread, 9999, models.Like)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing target, got %v", err)
	}
	if _, err := ds.SetReaction(context.Background(), reader.ID, models.TargetKind("user"), 1, models.Like); err == nil {
		t.Error("Expected an unknown kind to be rejected")
	}
}

// TestReactionConcurrent fires identical likes at once and expects a single row.
func TestReactionConcurrent(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	author := createTestAccount(t, ds, "author", true, false)
	reader := createTestAccount(t, ds, "reader", false, false)
	newsID, _ := ds.CreateNews(ctx, author.ID, "Race", "Body")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ds.SetReaction(ctx, reader.ID, models.TargetNews, newsID, models.Like); err != nil {
				t.Errorf("Concurrent SetReaction failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// Four toggles of the same value cancel out.
	if n := countReactionRows(t, ds, reader.ID, models.TargetNews, newsID); n != 0 {
		t.Errorf("Expected no reaction row after an even number of toggles, got %d", n)
	}
}

// TestReactionInsertConflict lands a competing row between the read and the
// insert and checks the toggle resolves against it.
func TestReactionInsertConflict(t *testing.T) {
	testCases := []struct {
		name       string
		competing  models.ReactionValue
		want       models.ReactionOutcome
		wantRows   int
		wantStored models.ReactionValue
	}{
		{"Same value removes", models.Like, models.ReactionRemoved, 0, 0},
		{"Opposite value updates", models.Dislike, models.ReactionUpdated, 1, models.Like},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ds := setupTestDB(t)
			ctx := context.Background()
			author := createTestAccount(t, ds, "author", true, false)
			reader := createTestAccount(t, ds, "reader", false, false)
			newsID, _ := ds.CreateNews(ctx, author.ID, "Race", "Body")

			original := insertReaction
			t.Cleanup(func() { insertReaction = original })
			calls := 0
			insertReaction = func(ctx context.Context, tx *sql.Tx, accountID int64, kind models.TargetKind, targetID int64, value models.ReactionValue) error {
				calls++
				if err := original(ctx, tx, accountID, kind, targetID, tc.competing); err != nil {
					t.Fatalf("Failed to insert competing reaction: %v", err)
				}
				return original(ctx, tx, accountID, kind, targetID, value)
			}

			outcome, err := ds.SetReaction(ctx, reader.ID, models.TargetNews, newsID, models.Like)
			if err != nil {
				t.Fatalf("Expected the conflict to be absorbed, got %v", err)
			}
			if calls != 1 {
				t.Errorf("Expected one insert attempt, got %d", calls)
			}
			if outcome != tc.want {
				t.Errorf("Expected outcome %s, got %s", tc.want, outcome)
			}
			if n := countReactionRows(t, ds, reader.ID, models.TargetNews, newsID); n != tc.wantRows {
				t.Fatalf("Expected %d rows, got %d", tc.wantRows, n)
			}
			if tc.wantRows == 1 {
				r, err := ds.GetReaction(ctx, reader.ID, models.TargetNews, newsID)
				if err != nil || r == nil || r.Value != tc.wantStored {
					t.Errorf("Expected stored value %d, got %+v (err %v)", tc.wantStored, r, err)
				}
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	ds := setupTestDB(t)
	createTestAccount(t, ds, "dup", false, false)

	_, err := ds.DB.Exec("INSERT INTO users (username, password_hash, date_joined) VALUES ('dup', 'x', ?)", time.Now())
	if !isUniqueViolation(err) {
		t.Errorf("Expected a unique violation, got %v", err)
	}
	if isUniqueViolation(errors.New("other")) {
		t.Error("Expected a plain error not to be a unique violation")
	}
}

// TestDeleteCascadesReactions checks that removing content removes its reactions.
func TestDeleteCascadesReactions(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	mod := createTestAccount(t, ds, "mod", false, true)
	reader := createTestAccount(t, ds, "reader", false, false)

	threadID, _ := ds.CreateThread(ctx, 1, reader.ID, "Thread", "Body")
	postID, _ := ds.CreateThreadPost(ctx, threadID, reader.ID, 0, "Reply")
	ds.SetReaction(ctx, mod.ID, models.TargetThread, threadID, models.Like)
	ds.SetReaction(ctx, mod.ID, models.TargetPost, postID, models.Dislike)

	if err := ds.DeleteContent(ctx, mod.ID, models.TargetThread, threadID); err != nil {
		t.Fatalf("DeleteContent failed: %v", err)
	}

	var remaining int
	ds.DB.QueryRow("SELECT COUNT(*) FROM reactions").Scan(&remaining)
	if remaining != 0 {
		t.Errorf("Expected reactions to be removed with their targets, %d remain", remaining)
	}
	var posts int
	ds.DB.QueryRow("SELECT COUNT(*) FROM thread_posts WHERE thread_id = ?", threadID).Scan(&posts)
	if posts != 0 {
		t.Errorf("Expected posts to be removed with their thread, %d remain", posts)
	}

	if err := ds.DeleteContent(ctx, mod.ID, models.TargetThread, threadID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a second delete, got %v", err)
	}

	log, err := ds.GetModLog(ctx, 10)
	if err != nil || len(log) != 1 || log[0].Action != "delete_thread" {
		t.Errorf("Expected one delete_thread log entry, got %+v / %v", log, err)
	}
}

// TestParentValidation drops parents that are missing or belong elsewhere.
func TestParentValidation(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	author := createTestAccount(t, ds, "author", true, false)

	newsA, _ := ds.CreateNews(ctx, author.ID, "A", "A")
	newsB, _ := ds.CreateNews(ctx, author.ID, "B", "B")
	rootA, _ := ds.CreateNewsComment(ctx, newsA, author.ID, 0, "root in A")
	rootB, _ := ds.CreateNewsComment(ctx, newsB, author.ID, 0, "root in B")

	testCases := []struct {
		name      string
		parentID  int64
		wantValid bool
	}{
		{"Same news", rootA, true},
		{"Other news", rootB, false},
		{"Missing", 424242, false},
		{"None", 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ds.CreateNewsComment(ctx, newsA, author.ID, tc.parentID, "reply")
			if err != nil {
				t.Fatalf("CreateNewsComment failed: %v", err)
			}
			var parent sql.NullInt64
			ds.DB.QueryRow("SELECT parent_id FROM news_comments WHERE id = ?", id).Scan(&parent)
			if parent.Valid != tc.wantValid {
				t.Errorf("Expected parent valid=%v, got %+v", tc.wantValid, parent)
			}
		})
	}

	tree, err := ds.GetNewsComments(ctx, newsA)
	if err != nil {
		t.Fatalf("GetNewsComments failed: %v", err)
	}
	// rootA with one reply, plus three replies saved without a parent.
	if len(tree) != 4 {
		t.Fatalf("Expected 4 root comments, got %d", len(tree))
	}
	// Roots are newest first, so the oldest is last.
	if last := tree[len(tree)-1]; last.ID != rootA || len(last.Replies) != 1 {
		t.Errorf("Expected last root to be %d with one reply, got %d with %d", rootA, last.ID, len(last.Replies))
	}
	for i := 1; i < len(tree); i++ {
		if tree[i-1].ID < tree[i].ID {
			t.Errorf("Expected roots newest first, got %d before %d", tree[i-1].ID, tree[i].ID)
		}
	}

	if _, err := ds.CreateNewsComment(ctx, 9999, author.ID, 0, "orphan"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a comment on missing news, got %v", err)
	}

	threadA, _ := ds.CreateThread(ctx, 1, author.ID, "A", "A")
	threadB, _ := ds.CreateThread(ctx, 1, author.ID, "B", "B")
	postB, _ := ds.CreateThreadPost(ctx, threadB, author.ID, 0, "in B")
	replyID, _ := ds.CreateThreadPost(ctx, threadA, author.ID, postB, "cross-thread")
	var parent sql.NullInt64
	ds.DB.QueryRow("SELECT parent_id FROM thread_posts WHERE id = ?", replyID).Scan(&parent)
	if parent.Valid {
		t.Error("Expected a cross-thread parent to be dropped")
	}
}

// TestChatWindow sends 60 messages and expects the newest 50, oldest first.
func TestChatWindow(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	user := createTestAccount(t, ds, "chatter", false, false)

	for i := 0; i < 60; i++ {
		if _, err := ds.SendChat(ctx, user.ID, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("SendChat failed: %v", err)
		}
	}

	messages, err := ds.RecentChat(ctx, 50)
	if err != nil {
		t.Fatalf("RecentChat failed: %v", err)
	}
	if len(messages) != 50 {
		t.Fatalf("Expected 50 messages, got %d", len(messages))
	}
	if messages[0].Content != "m10" || messages[49].Content != "m59" {
		t.Errorf("Expected m10..m59, got %s..%s", messages[0].Content, messages[49].Content)
	}
	for _, m := range messages {
		if m.Author != "chatter" {
			t.Errorf("Expected author chatter, got %q", m.Author)
		}
	}
}

// TestToggleBan verifies ban toggling and the staff no-op.
func TestToggleBan(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	mod := createTestAccount(t, ds, "mod", false, true)
	other := createTestAccount(t, ds, "othermod", false, true)
	root := createTestAccount(t, ds, "root", true, false)
	user := createTestAccount(t, ds, "user", false, false)

	changed, banned, err := ds.ToggleBan(ctx, mod.ID, user.ID)
	if err != nil || !changed || !banned {
		t.Fatalf("Expected user to be banned, got changed=%v banned=%v err=%v", changed, banned, err)
	}
	changed, banned, err = ds.ToggleBan(ctx, mod.ID, user.ID)
	if err != nil || !changed || banned {
		t.Fatalf("Expected user to be unbanned, got changed=%v banned=%v err=%v", changed, banned, err)
	}

	for _, target := range []*models.Account{other, root} {
		changed, banned, err := ds.ToggleBan(ctx, mod.ID, target.ID)
		if err != nil || changed || banned {
			t.Errorf("Expected ban toggle on %s to be a no-op, got changed=%v banned=%v err=%v", target.Username, changed, banned, err)
		}
	}

	if _, _, err := ds.ToggleBan(ctx, mod.ID, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing account, got %v", err)
	}

	accounts, err := ds.ListBannableAccounts(ctx)
	if err != nil {
		t.Fatalf("ListBannableAccounts failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID != user.ID {
		t.Errorf("Expected only the regular user to be listed, got %+v", accounts)
	}

	log, _ := ds.GetModLog(ctx, 10)
	if len(log) != 2 {
		t.Errorf("Expected 2 mod log entries, got %d", len(log))
	}
}

// TestListBannableAccountsScanError checks that a row that cannot be read
// fails the listing instead of being skipped.
func TestListBannableAccountsScanError(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	createTestAccount(t, ds, "good", false, false)
	bad := createTestAccount(t, ds, "bad", false, false)

	if _, err := ds.DB.Exec("UPDATE users SET is_banned = 'not a bool' WHERE id = ?", bad.ID); err != nil {
		t.Fatalf("Failed to corrupt row: %v", err)
	}

	accounts, err := ds.ListBannableAccounts(ctx)
	if err == nil {
		t.Fatalf("Expected a scan error, got %d accounts", len(accounts))
	}
	if !strings.Contains(err.Error(), "failed to scan account row") {
		t.Errorf("Expected wrapped scan error, got %v", err)
	}
	if accounts != nil {
		t.Errorf("Expected no partial result, got %+v", accounts)
	}
}

func TestToggleModerator(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	root := createTestAccount(t, ds, "root", true, false)
	user := createTestAccount(t, ds, "user", false, false)

	isMod, err := ds.ToggleModerator(ctx, root.ID, user.ID)
	if err != nil || !isMod {
		t.Fatalf("Expected user to become a moderator, got %v / %v", isMod, err)
	}
	reloaded, _ := ds.GetAccount(ctx, user.ID)
	if reloaded.Role() != models.RoleModerator {
		t.Errorf("Expected moderator role, got %v", reloaded.Role())
	}
	mods, _ := ds.ListModerators(ctx)
	if len(mods) != 1 {
		t.Errorf("Expected one moderator, got %d", len(mods))
	}

	isMod, err = ds.ToggleModerator(ctx, root.ID, user.ID)
	if err != nil || isMod {
		t.Fatalf("Expected moderator to be revoked, got %v / %v", isMod, err)
	}
}

func TestForumQueries(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	mod := createTestAccount(t, ds, "mod", false, true)

	catID, err := ds.CreateCategory(ctx, mod.ID, "Help", "Ask here", false, true)
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	cat, err := ds.GetCategory(ctx, catID)
	if err != nil {
		t.Fatalf("GetCategory failed: %v", err)
	}
	if cat.IsFeedback {
		t.Error("Expected feedback flag to be dropped on a non admin-only category")
	}

	first, _ := ds.CreateThread(ctx, catID, mod.ID, "First", "Body")
	second, _ := ds.CreateThread(ctx, catID, mod.ID, "Second", "Body")
	ds.CreateThreadPost(ctx, first, mod.ID, 0, "reply")

	threads, err := ds.ListThreads(ctx, catID)
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 2 || threads[0].ID != second {
		t.Fatalf("Expected newest thread first, got %+v", threads)
	}
	if threads[1].PostCount != 1 {
		t.Errorf("Expected first thread to have 1 post, got %d", threads[1].PostCount)
	}

	closed, err := ds.ToggleThreadClosed(ctx, mod.ID, first)
	if err != nil || !closed {
		t.Fatalf("Expected thread to close, got %v / %v", closed, err)
	}
	thread, _ := ds.GetThread(ctx, first)
	if !thread.IsClosed {
		t.Error("Expected GetThread to report the thread closed")
	}

	if _, err := ds.GetThread(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := ds.GetCategory(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	nav, _ := ds.ListNavCategories(ctx)
	if len(nav) != len(defaultCategories)+1 {
		t.Errorf("Expected %d nav entries, got %d", len(defaultCategories)+1, len(nav))
	}
}

// TestBackupDatabase verifies the VACUUM INTO backup method.
func TestBackupDatabase(t *testing.T) {
	ds := setupTestDB(t)
	createTestAccount(t, ds, "backup_user", false, false)

	backupDir, err := os.MkdirTemp("", "agora_test_backup_dest")
	if err != nil {
		t.Fatalf("Failed to create temp backup dir: %v", err)
	}
	defer os.RemoveAll(backupDir)
	utils.BackupDir = backupDir

	backupPath, err := ds.BackupDatabase()
	if err != nil {
		t.Fatalf("BackupDatabase failed: %v", err)
	}

	info, err := os.Stat(backupPath)
	if os.IsNotExist(err) {
		t.Fatalf("Backup file was not created at the expected path: %s", backupPath)
	}
	if info.Size() == 0 {
		t.Error("Backup file was created but is empty.")
	}

	destDB, err := sql.Open("sqlite3", backupPath)
	if err != nil {
		t.Fatalf("Could not open the created backup file as a database: %v", err)
	}
	defer destDB.Close()

	var username string
	if err := destDB.QueryRow("SELECT username FROM users WHERE username = 'backup_user'").Scan(&username); err != nil {
		t.Errorf("Could not read test data from backup database: %v", err)
	}
}
