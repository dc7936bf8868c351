package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agora/database"
	"agora/models"
	"agora/utils"
)

// MockApplication holds dependencies for handler tests.
type MockApplication struct {
	db         *database.DatabaseService
	uploadDir  string
	bannerFile string
	storage    models.StorageService
	logger     *slog.Logger
}

func (a *MockApplication) DB() *database.DatabaseService  { return a.db }
func (a *MockApplication) Logger() *slog.Logger           { return a.logger }
func (a *MockApplication) UploadDir() string              { return a.uploadDir }
func (a *MockApplication) BannerFile() string             { return a.bannerFile }
func (a *MockApplication) Storage() models.StorageService { return a.storage }
func (a *MockApplication) SessionTTL() time.Duration      { return time.Hour }

// setupTestApp creates a full application stack with a test database for integration testing.
func setupTestApp(t *testing.T) *MockApplication {
	if err := os.Chdir(".."); err != nil {
		t.Fatalf("Failed to change directory to project root: %v", err)
	}
	if err := LoadTemplates(); err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}
	if err := os.Chdir("handlers"); err != nil {
		t.Fatalf("Failed to change back to handlers directory: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dbDir, err := os.MkdirTemp("", "agora_test_db_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dbDir, "test.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	uploadDir, err := os.MkdirTemp("", "agora_test_uploads_*")
	if err != nil {
		t.Fatalf("Failed to create temp upload dir: %v", err)
	}

	app := &MockApplication{
		db:         dbService,
		uploadDir:  uploadDir,
		bannerFile: filepath.Join(dbDir, "banner.txt"),
		storage:    &utils.LocalStorage{UploadDir: uploadDir},
		logger:     logger,
	}
	ClearNavCategoryCache()

	t.Cleanup(func() {
		app.db.DB.Close()
		os.RemoveAll(dbDir)
		os.RemoveAll(uploadDir)
		ClearNavCategoryCache()
	})

	return app
}

// setupServer wraps the router in the same middleware chain as main.
func setupServer(t *testing.T, app *MockApplication) *httptest.Server {
	server := httptest.NewServer(CSRFMiddleware(NewSecurityHeadersMiddleware("")(SetupRouter(app))))
	t.Cleanup(server.Close)
	return server
}

// testClient is a cookie-keeping client that does not follow redirects.
type testClient struct {
	*http.Client
	t         *testing.T
	serverURL string
	csrf      string
}

// newClient creates a client and picks up a CSRF cookie from a first request.
func newClient(t *testing.T, serverURL string) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(serverURL + "/rules/")
	if err != nil {
		t.Fatalf("Failed to make initial request for CSRF token: %v", err)
	}
	resp.Body.Close()

	u, _ := url.Parse(serverURL)
	for _, cookie := range jar.Cookies(u) {
		if cookie.Name == "csrf_token" {
			return &testClient{Client: client, t: t, serverURL: serverURL, csrf: cookie.Value}
		}
	}
	t.Fatal("CSRF token cookie not found in jar")
	return nil
}

// loginAs opens a session for account and stores its cookie in the client.
func (c *testClient) loginAs(app *MockApplication, account *models.Account) {
	c.t.Helper()
	session, err := app.DB().CreateSession(context.Background(), account.ID, time.Hour)
	if err != nil {
		c.t.Fatalf("Failed to create session: %v", err)
	}
	u, _ := url.Parse(c.serverURL)
	c.Jar.SetCookies(u, []*http.Cookie{{Name: SessionCookieName, Value: session.Token, Path: "/"}})
}

func (c *testClient) get(path string) *http.Response {
	c.t.Helper()
	resp, err := c.Get(c.serverURL + path)
	if err != nil {
		c.t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

func (c *testClient) postForm(path string, values url.Values) *http.Response {
	c.t.Helper()
	if values == nil {
		values = url.Values{}
	}
	values.Set("csrf_token", c.csrf)
	resp, err := c.PostForm(c.serverURL+path, values)
	if err != nil {
		c.t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func (c *testClient) postJSON(path, body string) *http.Response {
	c.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, c.serverURL+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", c.csrf)
	resp, err := c.Do(req)
	if err != nil {
		c.t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(b)
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body := readBody(t, resp)
		t.Fatalf("Expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
	resp.Body.Close()
}

// createAccount inserts an account with the given flags.
func createAccount(t *testing.T, app *MockApplication, username string, superuser, moderator, banned bool) *models.Account {
	t.Helper()
	ctx := context.Background()
	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	id, err := app.DB().CreateAccount(ctx, username, username+"@example.com", hash, "", superuser)
	if err != nil {
		t.Fatalf("Failed to create account %s: %v", username, err)
	}
	if moderator {
		if _, err := app.DB().DB.Exec("INSERT INTO group_members (user_id, group_id) SELECT ?, id FROM auth_groups WHERE name = 'Moderators'", id); err != nil {
			t.Fatalf("Failed to add %s to Moderators: %v", username, err)
		}
	}
	if banned {
		if _, err := app.DB().DB.Exec("UPDATE users SET is_banned = 1 WHERE id = ?", id); err != nil {
			t.Fatalf("Failed to ban %s: %v", username, err)
		}
	}
	account, err := app.DB().GetAccount(ctx, id)
	if err != nil {
		t.Fatalf("Failed to reload %s: %v", username, err)
	}
	return account
}
