package repository

import (
	"context"
	"fmt"

	"lingualink/internal/database"
	"lingualink/pkg/types"
)

// SessionStore mirrors live sessions into server_sessions.
type SessionStore struct {
	db *database.Manager
}

func NewSessionStore(db *database.Manager) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Save(ctx context.Context, rec types.SessionRecord) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO server_sessions (token, user_id, role, connection_id, created_at) VALUES (?, ?, ?, ?, ?)",
		rec.Token, rec.UserID, string(rec.Role), int64(rec.ConnectionID), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to mirror session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM server_sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session mirror: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM server_sessions"); err != nil {
		return fmt.Errorf("failed to clear session mirror: %w", err)
	}
	return nil
}

// Count returns the number of mirrored sessions.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM server_sessions").Scan(&n)
	return n, err
}
