package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"agora/config"
	"agora/database"
	"agora/models"
	"agora/utils"

	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// validateRegistration checks the registration form and returns the first problem.
func validateRegistration(username, email, password, confirm string) string {
	switch {
	case username == "":
		return "Username is required."
	case utf8.RuneCountInString(username) > config.MaxUsernameLen:
		return fmt.Sprintf("Username is too long (max %d characters).", config.MaxUsernameLen)
	case !usernamePattern.MatchString(username):
		return "Username may contain only letters, digits and @ . + - _ characters."
	case len(email) > config.MaxEmailLen:
		return "Email address is too long."
	case utf8.RuneCountInString(password) < config.MinPasswordLen:
		return fmt.Sprintf("Password must be at least %d characters.", config.MinPasswordLen)
	case password != confirm:
		return "Passwords do not match."
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return "Enter a valid email address."
		}
	}
	return ""
}

// saveAvatar processes an optional "avatar" upload and stores it.
// It returns "" when no file was sent.
func saveAvatar(r *http.Request, app App, logger *slog.Logger) (string, error) {
	file, _, err := r.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", fmt.Errorf("could not read uploaded file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Error("Failed to close upload file", "error", err)
		}
	}()

	limitedReader := &io.LimitedReader{R: file, N: config.MaxAvatarSize + 1}
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", fmt.Errorf("could not read file data: %w", err)
	}
	avatar, err := utils.ProcessAvatar(data, utils.AvatarLimits{
		MaxBytes:  config.MaxAvatarSize,
		MaxWidth:  config.MaxAvatarWidth,
		MaxHeight: config.MaxAvatarHeight,
		Size:      config.AvatarSize,
	})
	if err != nil {
		return "", err
	}
	return app.Storage().SaveFile("avatar_"+uuid.New().String()+".png", avatar, "image/png")
}

// HandleRegister creates an account and logs it in.
func HandleRegister(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleRegister")
	if currentAccount(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := map[string]interface{}{"Title": "Register"}
	if r.Method != http.MethodPost {
		render(w, r, app, http.StatusOK, "register.html", data)
		return
	}

	input := &models.FormInput{
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.TrimSpace(r.FormValue("email")),
	}
	data["FormInput"] = input
	password := r.FormValue("password")

	fail := func(msg string) {
		data["Error"] = msg
		render(w, r, app, http.StatusBadRequest, "register.html", data)
	}

	if msg := validateRegistration(input.Username, input.Email, password, r.FormValue("password2")); msg != "" {
		fail(msg)
		return
	}

	avatarPath, err := saveAvatar(r, app, logger)
	if err != nil {
		logger.Warn("Rejected avatar upload", "error", err)
		fail("Avatar rejected: " + err.Error())
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Could not create account.")
		return
	}

	id, err := app.DB().CreateAccount(r.Context(), input.Username, input.Email, hash, avatarPath, false)
	if err != nil {
		if avatarPath != "" {
			if delErr := app.Storage().DeleteFile(avatarPath); delErr != nil {
				logger.Error("Failed to remove orphaned avatar", "path", avatarPath, "error", delErr)
			}
		}
		if errors.Is(err, database.ErrUsernameTaken) {
			fail("That username is already taken.")
			return
		}
		logger.Error("Failed to create account", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Could not create account.")
		return
	}
	logger.Info("Account registered", "account_id", id)

	session, err := app.DB().CreateSession(r.Context(), id, app.SessionTTL())
	if err != nil {
		logger.Error("Failed to open session after registration", "error", err)
		http.Redirect(w, r, "/users/login/", http.StatusSeeOther)
		return
	}
	setSessionCookie(w, r, session)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogin checks credentials and opens a session.
func HandleLogin(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleLogin")
	next := utils.SafeRedirect(r.FormValue("next"), "/")
	data := map[string]interface{}{
		"Title": "Log in",
		"Next":  next,
	}
	if r.Method != http.MethodPost {
		render(w, r, app, http.StatusOK, "login.html", data)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	data["FormInput"] = &models.FormInput{Username: username}

	account, err := app.DB().Authenticate(r.Context(), username, r.FormValue("password"))
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			data["Error"] = "Invalid username or password."
			render(w, r, app, http.StatusUnauthorized, "login.html", data)
			return
		}
		handleDBError(w, r, app, logger, err, "Account")
		return
	}

	session, err := app.DB().CreateSession(r.Context(), account.ID, app.SessionTTL())
	if err != nil {
		handleDBError(w, r, app, logger, err, "Session")
		return
	}
	setSessionCookie(w, r, session)
	logger.Info("Account logged in", "account_id", account.ID)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleLogout ends the current session.
func HandleLogout(w http.ResponseWriter, r *http.Request, app App) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := app.DB().DeleteSession(r.Context(), cookie.Value); err != nil {
			app.Logger().Error("Failed to delete session on logout", "error", err)
		}
	}
	clearSessionCookie(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleStaffUsers lists accounts that can be banned, plus moderators for superusers.
func HandleStaffUsers(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleStaffUsers")
	accounts, err := app.DB().ListBannableAccounts(r.Context())
	if err != nil {
		handleDBError(w, r, app, logger, err, "Accounts")
		return
	}
	data := map[string]interface{}{
		"Title":    "Users",
		"Accounts": accounts,
	}
	if models.CanManageModerators(currentAccount(r)) {
		moderators, err := app.DB().ListModerators(r.Context())
		if err != nil {
			handleDBError(w, r, app, logger, err, "Moderators")
			return
		}
		data["Moderators"] = moderators
	}
	render(w, r, app, http.StatusOK, "staff_users.html", data)
}

// HandleToggleBan bans or unbans a regular account.
func HandleToggleBan(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleToggleBan")
	targetID, ok := idParam(r, "id")
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "Account not found.")
		return
	}
	moderator := currentAccount(r)
	changed, banned, err := app.DB().ToggleBan(r.Context(), moderator.ID, targetID)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Account")
		return
	}
	if changed {
		logger.Info("Ban toggled", "moderator_id", moderator.ID, "target_id", targetID, "banned", banned)
	} else {
		logger.Warn("Ban toggle on staff account ignored", "moderator_id", moderator.ID, "target_id", targetID)
	}
	http.Redirect(w, r, "/users/staff/", http.StatusSeeOther)
}

// HandleToggleModerator adds or removes an account from the Moderators group.
func HandleToggleModerator(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleToggleModerator")
	targetID, ok := idParam(r, "id")
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "Account not found.")
		return
	}
	superuser := currentAccount(r)
	isModerator, err := app.DB().ToggleModerator(r.Context(), superuser.ID, targetID)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Account")
		return
	}
	logger.Info("Moderator membership toggled", "superuser_id", superuser.ID, "target_id", targetID, "moderator", isModerator)
	http.Redirect(w, r, "/users/staff/", http.StatusSeeOther)
}
