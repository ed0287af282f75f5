package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"lingualink/internal/database"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

type ResultStore struct {
	db *database.Manager
}

func NewResultStore(db *database.Manager) *ResultStore {
	return &ResultStore{db: db}
}

const resultColumns = "id, user_id, target_type, target_id, score, user_answer, feedback, grading_details, status, submitted_at, graded_at"

func (s *ResultStore) Insert(ctx context.Context, r *types.Result) (int64, error) {
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	id, err := s.db.Insert(ctx,
		"INSERT INTO results (user_id, target_type, target_id, score, user_answer, feedback, grading_details, status, submitted_at, graded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.UserID, r.TargetType, r.TargetID, r.Score, r.UserAnswer, r.Feedback, r.GradingDetails,
		r.Status, r.SubmittedAt.UTC(), nullTime(r.GradedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert result: %w", err)
	}
	r.ID = id
	return id, nil
}

func (s *ResultStore) Get(ctx context.Context, id int64) (*types.Result, error) {
	r, err := scanResult(s.db.QueryRow(ctx, "SELECT "+resultColumns+" FROM results WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("result %d", id))
	}
	return r, nil
}

func (s *ResultStore) HasResult(ctx context.Context, userID int64, targetType string, targetID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM results WHERE user_id = ? AND target_type = ? AND target_id = ?",
		userID, targetType, targetID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count results: %w", err)
	}
	return n > 0, nil
}

func (s *ResultStore) ListByUser(ctx context.Context, userID int64, targetType string) ([]types.Result, error) {
	query := "SELECT " + resultColumns + " FROM results WHERE user_id = ?"
	args := []any{userID}
	if targetType != "" {
		query += " AND target_type = ?"
		args = append(args, targetType)
	}
	return s.list(ctx, query, args...)
}

func (s *ResultStore) Attempts(ctx context.Context, userID int64, targetType string, targetID int64) ([]types.Result, error) {
	return s.list(ctx,
		"SELECT "+resultColumns+" FROM results WHERE user_id = ? AND target_type = ? AND target_id = ?",
		userID, targetType, targetID)
}

func (s *ResultStore) list(ctx context.Context, query string, args ...any) ([]types.Result, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortNewestFirst(out)
	return out, nil
}

func (s *ResultStore) Grade(ctx context.Context, id int64, score float64, feedback, details string, gradedAt time.Time) error {
	n, err := s.db.Exec(ctx,
		"UPDATE results SET score = ?, feedback = ?, grading_details = ?, status = ?, graded_at = ? WHERE id = ?",
		score, feedback, details, types.StatusGraded, gradedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to grade result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("result %d: %w", id, interfaces.ErrNotFound)
	}
	return nil
}

// AppendFeedback adds text as a new line of the feedback column.
func (s *ResultStore) AppendFeedback(ctx context.Context, id int64, text string) error {
	n, err := s.db.Exec(ctx,
		"UPDATE results SET feedback = CASE WHEN feedback = '' THEN ? ELSE feedback || ? END WHERE id = ?",
		text, "\n"+text, id)
	if err != nil {
		return fmt.Errorf("failed to append feedback: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("result %d: %w", id, interfaces.ErrNotFound)
	}
	return nil
}

func (s *ResultStore) Submissions(ctx context.Context, status string) ([]types.Submission, error) {
	query := "SELECT r.id, r.user_id, r.target_type, r.target_id, r.score, r.user_answer, r.feedback, r.grading_details, r.status, r.submitted_at, r.graded_at, u.username FROM results r JOIN users u ON u.id = r.user_id"
	var args []any
	if status != "" {
		query += " WHERE r.status = ?"
		args = append(args, status)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Submission
	for rows.Next() {
		var sub types.Submission
		var gradedAt sql.NullTime
		r := &sub.Result
		if err := rows.Scan(&r.ID, &r.UserID, &r.TargetType, &r.TargetID, &r.Score, &r.UserAnswer,
			&r.Feedback, &r.GradingDetails, &r.Status, &r.SubmittedAt, &gradedAt, &sub.Username); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		r.GradedAt = timePtr(gradedAt)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Result, out[j].Result) })
	return out, nil
}

func (s *ResultStore) CompletedTargets(ctx context.Context, userID int64, targetType string) (map[int64]bool, error) {
	rows, err := s.db.Query(ctx,
		"SELECT DISTINCT target_id FROM results WHERE user_id = ? AND target_type = ?", userID, targetType)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed targets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	done := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = true
	}
	return done, rows.Err()
}

func scanResult(row interface{ Scan(...any) error }) (*types.Result, error) {
	var r types.Result
	var gradedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.UserID, &r.TargetType, &r.TargetID, &r.Score, &r.UserAnswer,
		&r.Feedback, &r.GradingDetails, &r.Status, &r.SubmittedAt, &gradedAt); err != nil {
		return nil, err
	}
	r.GradedAt = timePtr(gradedAt)
	return &r, nil
}

// newer orders by submission time, then by id for rows sharing an instant.
func newer(a, b types.Result) bool {
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.After(b.SubmittedAt)
	}
	return a.ID > b.ID
}

// SortNewestFirst sorts results by submittedAt descending, then id descending.
func SortNewestFirst(results []types.Result) {
	sort.SliceStable(results, func(i, j int) bool { return newer(results[i], results[j]) })
}

// LatestPerTarget keeps the authoritative row of each (targetType, targetId)
// pair, newest first.
func LatestPerTarget(results []types.Result) []types.Result {
	sorted := make([]types.Result, len(results))
	copy(sorted, results)
	SortNewestFirst(sorted)

	type key struct {
		targetType string
		targetID   int64
	}
	seen := make(map[key]bool, len(sorted))
	out := sorted[:0]
	for _, r := range sorted {
		k := key{r.TargetType, r.TargetID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
