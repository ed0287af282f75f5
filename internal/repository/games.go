package repository

import (
	"context"
	"fmt"
	"time"

	"lingualink/internal/cache"
	"lingualink/internal/database"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

type GameStore struct {
	db    *database.Manager
	cache cache.Cacher[types.GameItem]
	ttl   time.Duration
}

func NewGameStore(db *database.Manager, c cache.Cacher[types.GameItem], ttl time.Duration) *GameStore {
	return &GameStore{db: db, cache: c, ttl: ttl}
}

const gameColumns = "id, type, level, question_json, created_at"

func (s *GameStore) Types(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, "SELECT DISTINCT type FROM game_items ORDER BY type")
	if err != nil {
		return nil, fmt.Errorf("failed to query game types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *GameStore) Levels(ctx context.Context, gameType string) ([]types.GameItem, error) {
	rows, err := s.db.Query(ctx, "SELECT "+gameColumns+" FROM game_items WHERE type = ? ORDER BY id", gameType)
	if err != nil {
		return nil, fmt.Errorf("failed to query game levels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.GameItem
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *GameStore) Get(ctx context.Context, id int64) (*types.GameItem, error) {
	g, err := s.cache.GetOrFetch(ctx, cache.Key("game", id), s.ttl, func(ctx context.Context) (types.GameItem, error) {
		g, err := scanGame(s.db.QueryRow(ctx, "SELECT "+gameColumns+" FROM game_items WHERE id = ?", id))
		if err != nil {
			return types.GameItem{}, notFound(err, fmt.Sprintf("game %d", id))
		}
		return *g, nil
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GameStore) Create(ctx context.Context, g *types.GameItem) (int64, error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	id, err := s.db.Insert(ctx,
		"INSERT INTO game_items (type, level, question_json, created_at) VALUES (?, ?, ?, ?)",
		g.Type, g.Level, g.QuestionJSON, g.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert game: %w", err)
	}
	g.ID = id
	return id, nil
}

func (s *GameStore) Update(ctx context.Context, g *types.GameItem) error {
	n, err := s.db.Exec(ctx,
		"UPDATE game_items SET type = ?, level = ?, question_json = ? WHERE id = ?",
		g.Type, g.Level, g.QuestionJSON, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("game %d: %w", g.ID, interfaces.ErrNotFound)
	}
	return s.cache.Delete(ctx, cache.Key("game", g.ID))
}

func (s *GameStore) Delete(ctx context.Context, id int64) error {
	n, err := s.db.Exec(ctx, "DELETE FROM game_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("game %d: %w", id, interfaces.ErrNotFound)
	}
	return s.cache.Delete(ctx, cache.Key("game", id))
}

func scanGame(row interface{ Scan(...any) error }) (*types.GameItem, error) {
	var g types.GameItem
	if err := row.Scan(&g.ID, &g.Type, &g.Level, &g.QuestionJSON, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
