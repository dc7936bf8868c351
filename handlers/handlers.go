// agora/handlers/handlers.go

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"agora/database"
	"agora/models"

	"github.com/go-chi/chi/v5"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	DB() *database.DatabaseService
	Logger() *slog.Logger
	UploadDir() string
	BannerFile() string
	Storage() models.StorageService
	SessionTTL() time.Duration
}

// --- Category Nav Cache ---
var (
	navCategoryCache []models.NavCategory
	cacheLock        sync.RWMutex
)

// getNavCategories is a cached lookup of the categories shown in the nav bar.
func getNavCategories(app App) []models.NavCategory {
	cacheLock.RLock()
	if navCategoryCache != nil {
		cacheLock.RUnlock()
		return navCategoryCache
	}
	cacheLock.RUnlock()

	cacheLock.Lock()
	defer cacheLock.Unlock()

	if navCategoryCache != nil {
		return navCategoryCache
	}

	nav, err := app.DB().ListNavCategories(context.Background())
	if err != nil {
		app.Logger().Error("Failed to query category list for nav bar", "error", err)
		return nil
	}
	if nav == nil {
		nav = []models.NavCategory{}
	}
	navCategoryCache = nav
	return nav
}

// ClearNavCategoryCache invalidates the nav bar category cache.
func ClearNavCategoryCache() {
	cacheLock.Lock()
	defer cacheLock.Unlock()
	navCategoryCache = nil
}

// respondJSON sends a JSON response with a given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, app App) {
	response, err := json.Marshal(payload)
	if err != nil {
		app.Logger().Error("Failed to marshal JSON payload", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte(`{"status":"error"}`)); werr != nil {
			app.Logger().Error("Failed to write internal server error response", "error", werr)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		app.Logger().Error("Failed to write JSON response", "error", err)
	}
}

// MakeHandler adapts an App-aware handler to http.HandlerFunc.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}

// --- Request helpers ---

// idParam parses a positive numeric URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formID parses an optional positive id from a form field. Anything else is 0.
func formID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(name)), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// loginURL returns the login page address that comes back to r afterwards.
func loginURL(r *http.Request) string {
	return "/users/login/?next=" + url.QueryEscape(r.URL.RequestURI())
}

// denyAccess sends anonymous visitors to the login page and everyone else a 403.
func denyAccess(w http.ResponseWriter, r *http.Request, app App, message string) {
	if currentAccount(r) == nil {
		http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
		return
	}
	renderError(w, r, app, http.StatusForbidden, message)
}

// handleDBError maps database errors to error pages.
func handleDBError(w http.ResponseWriter, r *http.Request, app App, logger *slog.Logger, err error, what string) {
	if errors.Is(err, database.ErrNotFound) {
		renderError(w, r, app, http.StatusNotFound, what+" not found.")
		return
	}
	logger.Error("Database error", "what", what, "error", err)
	renderError(w, r, app, http.StatusInternalServerError, "Database error.")
}

// validateText trims s and checks it is non-empty and at most max runes.
func validateText(label, s string, max int) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return s, label + " cannot be empty."
	}
	if utf8.RuneCountInString(s) > max {
		return s, label + " is too long (max " + strconv.Itoa(max) + " characters)."
	}
	return s, ""
}

// --- Static pages ---

// HandleRules serves the static rules page.
func HandleRules(w http.ResponseWriter, r *http.Request, app App) {
	render(w, r, app, http.StatusOK, "rules.html", map[string]interface{}{
		"Title": "Rules",
	})
}

// HandleNotFound renders the 404 page for unknown routes.
func HandleNotFound(w http.ResponseWriter, r *http.Request, app App) {
	renderError(w, r, app, http.StatusNotFound, "Page not found.")
}
