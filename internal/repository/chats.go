package repository

import (
	"context"
	"fmt"
	"time"

	"lingualink/internal/database"
	"lingualink/pkg/types"
)

const defaultHistoryLimit = 50

type ChatStore struct {
	db *database.Manager
}

func NewChatStore(db *database.Manager) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) Save(ctx context.Context, m *types.ChatMessage) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Kind == "" {
		m.Kind = types.ChatText
	}
	id, err := s.db.Insert(ctx,
		"INSERT INTO chat_messages (sender_id, receiver_id, content, message_type, created_at, is_read) VALUES (?, ?, ?, ?, ?, ?)",
		m.SenderID, m.ReceiverID, m.Content, m.Kind, m.CreatedAt.UTC(), m.Read)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chat message: %w", err)
	}
	m.ID = id
	return id, nil
}

// History pages backwards from the newest message: offset skips the most
// recent rows, limit bounds the page. The page is returned oldest first.
func (s *ChatStore) History(ctx context.Context, a, b int64, limit, offset int) ([]types.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.sender_id, m.receiver_id, u.username, m.content, m.message_type, m.created_at, m.is_read
		FROM chat_messages m JOIN users u ON u.id = m.sender_id
		WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?`,
		a, b, b, a, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.ChatMessage
	for rows.Next() {
		var m types.ChatMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Sender, &m.Content, &m.Kind, &m.CreatedAt, &m.Read); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *ChatStore) MarkRead(ctx context.Context, receiverID, senderID int64) error {
	_, err := s.db.Exec(ctx,
		"UPDATE chat_messages SET is_read = ? WHERE receiver_id = ? AND sender_id = ? AND is_read = ?",
		true, receiverID, senderID, false)
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// Recent returns one entry per conversation partner, most recent first.
func (s *ChatStore) Recent(ctx context.Context, userID int64) ([]types.Conversation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT CASE WHEN m.sender_id = ? THEN m.receiver_id ELSE m.sender_id END AS other_id,
		       u.username, m.content, m.created_at
		FROM chat_messages m
		JOIN users u ON u.id = CASE WHEN m.sender_id = ? THEN m.receiver_id ELSE m.sender_id END
		WHERE m.sender_id = ? OR m.receiver_id = ?
		ORDER BY m.created_at DESC, m.id DESC`,
		userID, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[int64]bool)
	var out []types.Conversation
	for rows.Next() {
		var c types.Conversation
		if err := rows.Scan(&c.OtherID, &c.OtherUsername, &c.LastMessage, &c.LastAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if seen[c.OtherID] {
			continue
		}
		seen[c.OtherID] = true
		out = append(out, c)
	}
	return out, rows.Err()
}
