package repository

import (
	"context"
	"fmt"
	"time"

	"lingualink/internal/database"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

type UserStore struct {
	db *database.Manager
}

func NewUserStore(db *database.Manager) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, username, password string, role types.Role) (int64, error) {
	id, err := s.db.Insert(ctx,
		"INSERT INTO users (username, password, role, created_at) VALUES (?, ?, ?, ?)",
		username, password, string(role), time.Now().UTC())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, fmt.Errorf("user %q: %w", username, interfaces.ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*types.User, error) {
	return s.scan(s.db.QueryRow(ctx,
		"SELECT id, username, password, role, created_at FROM users WHERE username = ?", username), username)
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (*types.User, error) {
	return s.scan(s.db.QueryRow(ctx,
		"SELECT id, username, password, role, created_at FROM users WHERE id = ?", id), fmt.Sprintf("id %d", id))
}

func (s *UserStore) scan(row interface{ Scan(...any) error }, what string) (*types.User, error) {
	var u types.User
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &role, &u.CreatedAt); err != nil {
		return nil, notFound(err, "user "+what)
	}
	u.Role = types.Role(role)
	return &u, nil
}
