package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"agora/config"
	"agora/database"
	"agora/models"
	"agora/utils"

	"github.com/go-chi/chi/v5"
)

const modLogLimit = 200

// HandleManageCategories lists categories and creates new ones.
func HandleManageCategories(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleManageCategories")
	ctx := r.Context()
	status := http.StatusOK
	data := map[string]interface{}{"Title": "Categories"}

	if r.Method == http.MethodPost {
		input := &models.FormInput{
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
			IsAdminOnly: r.FormValue("is_admin_only") == "on",
			IsFeedback:  r.FormValue("is_feedback") == "on",
		}
		name, msg := validateText("Name", input.Name, config.MaxCategoryName)
		if msg == "" && len([]rune(input.Description)) > config.MaxCategoryDesc {
			msg = fmt.Sprintf("Description is too long (max %d characters).", config.MaxCategoryDesc)
		}
		if msg == "" {
			id, err := app.DB().CreateCategory(ctx, currentAccount(r).ID, name, input.Description, input.IsAdminOnly, input.IsFeedback)
			if err != nil {
				handleDBError(w, r, app, logger, err, "Category")
				return
			}
			ClearNavCategoryCache()
			logger.Info("Category created", "category_id", id, "name", name)
			http.Redirect(w, r, "/staff/categories/", http.StatusSeeOther)
			return
		}
		data["Error"] = msg
		data["FormInput"] = input
		status = http.StatusBadRequest
	}

	categories, err := app.DB().ListCategories(ctx)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Categories")
		return
	}
	data["Categories"] = categories
	render(w, r, app, status, "staff_categories.html", data)
}

// HandleToggleClosed opens or closes a thread.
func HandleToggleClosed(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleToggleClosed")
	threadID, ok := idParam(r, "id")
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "Thread not found.")
		return
	}
	closed, err := app.DB().ToggleThreadClosed(r.Context(), currentAccount(r).ID, threadID)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Thread")
		return
	}
	logger.Info("Thread close toggled", "thread_id", threadID, "closed", closed)
	http.Redirect(w, r, fmt.Sprintf("/forum/thread/%d/", threadID), http.StatusSeeOther)
}

// HandleDeleteContent removes news, comments, threads or posts.
func HandleDeleteContent(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleDeleteContent")
	kind, err := models.ParseTargetKind(chi.URLParam(r, "type"))
	if err != nil {
		renderError(w, r, app, http.StatusNotFound, "Unknown content type.")
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "Content not found.")
		return
	}
	if err := app.DB().DeleteContent(r.Context(), currentAccount(r).ID, kind, id); err != nil {
		handleDBError(w, r, app, logger, err, "Content")
		return
	}
	logger.Info("Content deleted", "kind", kind, "id", id)
	http.Redirect(w, r, utils.SafeRedirect(r.FormValue("next"), "/"), http.StatusSeeOther)
}

// HandleModLog shows the most recent moderation actions.
func HandleModLog(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleModLog")
	logs, err := app.DB().GetModLog(r.Context(), modLogLimit)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Moderation log")
		return
	}
	render(w, r, app, http.StatusOK, "mod_log.html", map[string]interface{}{
		"Title": "Moderation Log",
		"Logs":  logs,
	})
}

// logStaffAction records a moderation action that has no row of its own.
func logStaffAction(ctx context.Context, app App, moderatorID int64, action, details string) error {
	return database.WithTx(ctx, app.DB().DB, func(tx *sql.Tx) error {
		return database.LogModAction(tx, moderatorID, action, 0, details)
	})
}

// HandleBanner edits the site-wide notice.
func HandleBanner(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleBanner")
	if r.Method == http.MethodPost {
		content := r.FormValue("banner_content")
		if err := utils.WriteBanner(app.BannerFile(), content); err != nil {
			logger.Error("Failed to write banner file", "error", err)
			renderError(w, r, app, http.StatusInternalServerError, "Failed to write banner file.")
			return
		}
		if err := logStaffAction(r.Context(), app, currentAccount(r).ID, "update_banner", content); err != nil {
			logger.Error("Failed to log banner update", "error", err)
			renderError(w, r, app, http.StatusInternalServerError, "Database error.")
			return
		}
		http.Redirect(w, r, "/staff/banner/", http.StatusSeeOther)
		return
	}
	render(w, r, app, http.StatusOK, "banner.html", map[string]interface{}{
		"Title":         "Site Banner",
		"BannerContent": utils.ReadBanner(app.BannerFile()),
	})
}

// HandleDatabaseBackup writes an online copy of the database.
func HandleDatabaseBackup(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleDatabaseBackup")
	backupPath, err := app.DB().BackupDatabase()
	if err != nil {
		logger.Error("Failed to create database backup", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Failed to create database backup.")
		return
	}
	logger.Info("Database backup created successfully", "path", backupPath)
	if err := logStaffAction(r.Context(), app, currentAccount(r).ID, "database_backup", backupPath); err != nil {
		logger.Error("Failed to log backup", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Database error logging action.")
		return
	}
	http.Redirect(w, r, "/staff/log/", http.StatusSeeOther)
}
