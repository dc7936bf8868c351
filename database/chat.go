package database

import (
	"context"
	"fmt"

	"agora/models"
	"agora/utils"
)

// SendChat appends a message to the chat feed.
func (ds *DatabaseService) SendChat(ctx context.Context, authorID int64, content string) (int64, error) {
	res, err := ds.DB.ExecContext(ctx, "INSERT INTO chat_messages (author_id, content, created_at) VALUES (?, ?, ?)",
		authorID, content, utils.GetSQLTime())
	if err != nil {
		return 0, fmt.Errorf("failed to insert chat message: %w", err)
	}
	return res.LastInsertId()
}

// RecentChat returns the last limit messages, oldest first.
func (ds *DatabaseService) RecentChat(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	rows, err := ds.DB.QueryContext(ctx, `
		SELECT m.id, m.author_id, u.username, u.avatar_path, m.content, m.created_at
		FROM chat_messages m JOIN users u ON u.id = m.author_id
		ORDER BY m.created_at DESC, m.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.AuthorID, &m.Author, &m.Avatar, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
