package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"agora/config"
	"agora/models"
	"agora/utils"
)

// chatMessageJSON is one entry of the chat feed.
type chatMessageJSON struct {
	Author    string  `json:"author"`
	Avatar    *string `json:"avatar"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"created_at"`
	IsMe      bool    `json:"is_me"`
}

type chatSendRequest struct {
	Message *string `json:"message"`
}

var (
	chatOK    = map[string]string{"status": "ok"}
	chatError = map[string]string{"status": "error"}
)

// HandleChatGet returns the chat window, oldest first.
func HandleChatGet(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleChatGet")
	messages, err := app.DB().RecentChat(r.Context(), config.ChatWindow)
	if err != nil {
		logger.Error("Failed to read chat", "error", err)
		respondJSON(w, http.StatusInternalServerError, chatError, app)
		return
	}

	viewer := currentAccount(r)
	out := make([]chatMessageJSON, 0, len(messages))
	for _, m := range messages {
		entry := chatMessageJSON{
			Author:    m.Author,
			Content:   m.Content,
			CreatedAt: utils.ClockTime(m.CreatedAt),
			IsMe:      viewer != nil && viewer.ID == m.AuthorID,
		}
		if m.Avatar != "" {
			avatar := m.Avatar
			entry.Avatar = &avatar
		}
		out = append(out, entry)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": out}, app)
}

// HandleChatSend appends a message from a JSON body {"message": "..."}.
func HandleChatSend(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleChatSend")
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondJSON(w, http.StatusMethodNotAllowed, chatError, app)
		return
	}

	account := currentAccount(r)
	if account == nil {
		respondJSON(w, http.StatusUnauthorized, chatError, app)
		return
	}
	if !models.CanInteract(account) {
		respondJSON(w, http.StatusForbidden, chatError, app)
		return
	}

	var req chatSendRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 16*1024))
	if err := dec.Decode(&req); err != nil || req.Message == nil {
		respondJSON(w, http.StatusBadRequest, chatError, app)
		return
	}
	// Exactly one JSON value.
	if _, err := dec.Token(); err != io.EOF {
		respondJSON(w, http.StatusBadRequest, chatError, app)
		return
	}
	message := strings.TrimSpace(*req.Message)
	if message == "" || utf8.RuneCountInString(message) > config.MaxChatMessageLen {
		respondJSON(w, http.StatusBadRequest, chatError, app)
		return
	}

	if _, err := app.DB().SendChat(r.Context(), account.ID, message); err != nil {
		logger.Error("Failed to store chat message", "error", err)
		respondJSON(w, http.StatusInternalServerError, chatError, app)
		return
	}
	respondJSON(w, http.StatusOK, chatOK, app)
}
