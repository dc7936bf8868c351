package handlers

import (
	"fmt"
	"net/http"

	"agora/config"
	"agora/models"
)

// HandleHome lists all news, newest first.
func HandleHome(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleHome")
	news, err := app.DB().ListNews(r.Context())
	if err != nil {
		handleDBError(w, r, app, logger, err, "News")
		return
	}
	render(w, r, app, http.StatusOK, "home.html", map[string]interface{}{
		"Title": "News",
		"News":  news,
	})
}

// HandleCreateNews shows and accepts the news form for staff.
func HandleCreateNews(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleCreateNews")
	account := currentAccount(r)
	if !models.CanCreateNews(account) {
		denyAccess(w, r, app, "You are not allowed to publish news.")
		return
	}

	data := map[string]interface{}{"Title": "Publish News"}
	if r.Method != http.MethodPost {
		render(w, r, app, http.StatusOK, "create_news.html", data)
		return
	}

	input := &models.FormInput{Title: r.FormValue("title"), Content: r.FormValue("content")}
	data["FormInput"] = input
	title, msg := validateText("Title", input.Title, config.MaxTitleLen)
	if msg == "" {
		input.Content, msg = validateText("Body", input.Content, config.MaxBodyLen)
	}
	if msg != "" {
		data["Error"] = msg
		render(w, r, app, http.StatusBadRequest, "create_news.html", data)
		return
	}

	id, err := app.DB().CreateNews(r.Context(), account.ID, title, input.Content)
	if err != nil {
		handleDBError(w, r, app, logger, err, "News")
		return
	}
	logger.Info("News published", "news_id", id, "author_id", account.ID)
	http.Redirect(w, r, fmt.Sprintf("/news/%d/", id), http.StatusSeeOther)
}

// HandleNewsDetail shows a news item with its comment tree and accepts comments.
func HandleNewsDetail(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleNewsDetail")
	id, ok := idParam(r, "id")
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "News not found.")
		return
	}
	ctx := r.Context()
	account := currentAccount(r)

	news, err := app.DB().GetNews(ctx, id)
	if err != nil {
		handleDBError(w, r, app, logger, err, "News")
		return
	}

	status := http.StatusOK
	data := map[string]interface{}{
		"Title":       news.Title,
		"News":        news,
		"CanInteract": models.CanInteract(account),
	}

	if r.Method == http.MethodPost {
		if !models.CanInteract(account) {
			denyAccess(w, r, app, "You are not allowed to comment.")
			return
		}
		content, msg := validateText("Comment", r.FormValue("content"), config.MaxCommentLen)
		if msg == "" {
			commentID, err := app.DB().CreateNewsComment(ctx, news.ID, account.ID, formID(r, "parent_id"), content)
			if err != nil {
				handleDBError(w, r, app, logger, err, "News")
				return
			}
			logger.Info("Comment added", "news_id", news.ID, "comment_id", commentID, "author_id", account.ID)
			http.Redirect(w, r, fmt.Sprintf("/news/%d/#c%d", news.ID, commentID), http.StatusSeeOther)
			return
		}
		data["Error"] = msg
		data["FormInput"] = &models.FormInput{Content: r.FormValue("content")}
		status = http.StatusBadRequest
	}

	comments, err := app.DB().GetNewsComments(ctx, news.ID)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Comments")
		return
	}
	data["Comments"] = comments
	data["MyReaction"] = viewerReaction(ctx, app, logger, account, models.TargetNews, news.ID)
	render(w, r, app, status, "news_detail.html", data)
}
