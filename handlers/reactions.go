package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"agora/database"
	"agora/models"
	"agora/utils"

	"github.com/go-chi/chi/v5"
)

// HandleReaction toggles the viewer's like or dislike on a piece of content
// and sends them back where they came from.
func HandleReaction(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleReaction")
	account := currentAccount(r)
	if !models.CanInteract(account) {
		denyAccess(w, r, app, "You are not allowed to react.")
		return
	}

	kind, err := models.ParseTargetKind(chi.URLParam(r, "type"))
	if err != nil {
		renderError(w, r, app, http.StatusNotFound, "Unknown content type.")
		return
	}
	targetID, ok := idParam(r, "id")
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "Content not found.")
		return
	}
	value, err := models.ParseReactionValue(chi.URLParam(r, "value"))
	if err != nil {
		renderError(w, r, app, http.StatusBadRequest, "Invalid reaction.")
		return
	}

	outcome, err := app.DB().SetReaction(r.Context(), account.ID, kind, targetID, value)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			renderError(w, r, app, http.StatusNotFound, "Content not found.")
			return
		}
		logger.Error("Failed to set reaction", "kind", kind, "target_id", targetID, "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Database error.")
		return
	}
	logger.Debug("Reaction toggled", "account_id", account.ID, "kind", kind, "target_id", targetID, "outcome", outcome.String())
	http.Redirect(w, r, utils.RefererPath(r, "/"), http.StatusSeeOther)
}

// viewerReaction returns the account's own reaction on a target, or 0 when
// there is none. Lookup errors are logged and treated as no reaction.
func viewerReaction(ctx context.Context, app App, logger *slog.Logger, account *models.Account, kind models.TargetKind, targetID int64) models.ReactionValue {
	if account == nil {
		return 0
	}
	reaction, err := app.DB().GetReaction(ctx, account.ID, kind, targetID)
	if err != nil {
		logger.Warn("Failed to load viewer reaction", "kind", kind, "target_id", targetID, "error", err)
		return 0
	}
	if reaction == nil {
		return 0
	}
	return reaction.Value
}
