package handlers

import (
	"fmt"
	"net/http"

	"agora/config"
	"agora/models"
)

// HandleForumIndex lists categories, split into staff sections and general ones.
func HandleForumIndex(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleForumIndex")
	categories, err := app.DB().ListCategories(r.Context())
	if err != nil {
		handleDBError(w, r, app, logger, err, "Categories")
		return
	}

	var adminOnly, general []models.Category
	for _, c := range categories {
		if c.IsAdminOnly {
			adminOnly = append(adminOnly, c)
		} else {
			general = append(general, c)
		}
	}
	render(w, r, app, http.StatusOK, "forum_index.html", map[string]interface{}{
		"Title":     "Forum",
		"AdminOnly": adminOnly,
		"General":   general,
	})
}

// HandleCategory lists the threads of a category, newest first.
func HandleCategory(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleCategory")
	id, ok := idParam(r, "id")
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "Category not found.")
		return
	}
	category, err := app.DB().GetCategory(r.Context(), id)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Category")
		return
	}
	threads, err := app.DB().ListThreads(r.Context(), category.ID)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Threads")
		return
	}
	render(w, r, app, http.StatusOK, "category.html", map[string]interface{}{
		"Title":    category.Name,
		"Category": category,
		"Threads":  threads,
		"CanPost":  models.CanPost(currentAccount(r), category),
	})
}

// HandleCreateThread shows and accepts the new thread form.
func HandleCreateThread(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleCreateThread")
	id, ok := idParam(r, "id")
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "Category not found.")
		return
	}
	category, err := app.DB().GetCategory(r.Context(), id)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Category")
		return
	}
	account := currentAccount(r)
	if !models.CanPost(account, category) {
		denyAccess(w, r, app, "You are not allowed to post in this category.")
		return
	}

	data := map[string]interface{}{
		"Title":    "New thread in " + category.Name,
		"Category": category,
	}
	if r.Method != http.MethodPost {
		render(w, r, app, http.StatusOK, "create_thread.html", data)
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
		render(w, r, app, http.StatusBadRequest, "create_thread.html", data)
		return
	}

	threadID, err := app.DB().CreateThread(r.Context(), category.ID, account.ID, title, input.Content)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Thread")
		return
	}
	logger.Info("Thread created", "thread_id", threadID, "category_id", category.ID, "author_id", account.ID)
	http.Redirect(w, r, fmt.Sprintf("/forum/thread/%d/", threadID), http.StatusSeeOther)
}

// HandleThread shows a thread with its posts and accepts replies.
func HandleThread(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleThread")
	id, ok := idParam(r, "id")
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "Thread not found.")
		return
	}
	ctx := r.Context()
	thread, err := app.DB().GetThread(ctx, id)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Thread")
		return
	}
	category, err := app.DB().GetCategory(ctx, thread.CategoryID)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Category")
		return
	}
	account := currentAccount(r)
	canReply := models.CanReply(account, thread, category)

	status := http.StatusOK
	data := map[string]interface{}{
		"Title":    thread.Title,
		"Thread":   thread,
		"Category": category,
		"CanReply": canReply,
	}

	if r.Method == http.MethodPost {
		if !canReply {
			if thread.IsClosed && account != nil {
				renderError(w, r, app, http.StatusForbidden, "This thread is closed.")
				return
			}
			denyAccess(w, r, app, "You are not allowed to reply in this thread.")
			return
		}
		content, msg := validateText("Reply", r.FormValue("content"), config.MaxBodyLen)
		if msg == "" {
			postID, err := app.DB().CreateThreadPost(ctx, thread.ID, account.ID, formID(r, "parent_id"), content)
			if err != nil {
				handleDBError(w, r, app, logger, err, "Thread")
				return
			}
			logger.Info("Reply added", "thread_id", thread.ID, "post_id", postID, "author_id", account.ID)
			http.Redirect(w, r, fmt.Sprintf("/forum/thread/%d/#p%d", thread.ID, postID), http.StatusSeeOther)
			return
		}
		data["Error"] = msg
		data["FormInput"] = &models.FormInput{Content: r.FormValue("content")}
		status = http.StatusBadRequest
	}

	posts, err := app.DB().GetThreadPosts(ctx, thread.ID)
	if err != nil {
		handleDBError(w, r, app, logger, err, "Posts")
		return
	}
	data["Posts"] = posts
	data["MyReaction"] = viewerReaction(ctx, app, logger, account, models.TargetThread, thread.ID)
	render(w, r, app, status, "thread.html", data)
}
