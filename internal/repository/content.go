package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lingualink/internal/cache"
	"lingualink/internal/database"
	"lingualink/pkg/types"
)

type LessonStore struct {
	db    *database.Manager
	cache cache.Cacher[types.Lesson]
	ttl   time.Duration
}

func NewLessonStore(db *database.Manager, c cache.Cacher[types.Lesson], ttl time.Duration) *LessonStore {
	return &LessonStore{db: db, cache: c, ttl: ttl}
}

const lessonColumns = "id, title, topic, level, video_url, audio_url, text_content, vocabulary, grammar"

// List matches topic and level case-insensitively; empty filters match all.
func (s *LessonStore) List(ctx context.Context, topic, level string) ([]types.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lessons WHERE 1=1"
	var args []any
	if topic != "" {
		query += " AND LOWER(topic) = LOWER(?)"
		args = append(args, topic)
	}
	if level != "" {
		query += " AND LOWER(level) = LOWER(?)"
		args = append(args, level)
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lessons []types.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, *l)
	}
	return lessons, rows.Err()
}

func (s *LessonStore) Get(ctx context.Context, id int64) (*types.Lesson, error) {
	l, err := s.cache.GetOrFetch(ctx, cache.Key("lesson", id), s.ttl, func(ctx context.Context) (types.Lesson, error) {
		l, err := scanLesson(s.db.QueryRow(ctx, "SELECT "+lessonColumns+" FROM lessons WHERE id = ?", id))
		if err != nil {
			return types.Lesson{}, notFound(err, fmt.Sprintf("lesson %d", id))
		}
		return *l, nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanLesson(row interface{ Scan(...any) error }) (*types.Lesson, error) {
	var l types.Lesson
	var vocab, grammar string
	if err := row.Scan(&l.ID, &l.Title, &l.Topic, &l.Level, &l.VideoURL, &l.AudioURL, &l.Text, &vocab, &grammar); err != nil {
		return nil, err
	}
	var err error
	if l.Vocabulary, err = decodeList(vocab); err != nil {
		return nil, fmt.Errorf("lesson %d vocabulary: %w", l.ID, err)
	}
	if l.Grammar, err = decodeList(grammar); err != nil {
		return nil, fmt.Errorf("lesson %d grammar: %w", l.ID, err)
	}
	return &l, nil
}

func decodeList(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []string
	err := json.Unmarshal([]byte(raw), &out)
	return out, err
}

// contentRow is the shared shape of the exercises and exams tables.
type contentRow struct {
	ID        int64
	LessonID  int64
	Title     string
	Type      string
	Level     string
	Questions []types.Question
}

// contentTable queries either exercises or exams.
type contentTable struct {
	db    *database.Manager
	table string
}

const contentColumns = "id, COALESCE(lesson_id, 0), title, type, level, questions"

func (t contentTable) list(ctx context.Context, f types.ContentFilter) ([]contentRow, error) {
	query := "SELECT " + contentColumns + " FROM " + t.table + " WHERE 1=1"
	var args []any
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.Level != "" {
		query += " AND LOWER(level) = LOWER(?)"
		args = append(args, f.Level)
	}
	if f.LessonID > 0 {
		query += " AND lesson_id = ?"
		args = append(args, f.LessonID)
	}
	query += " ORDER BY id"

	rows, err := t.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []contentRow
	for rows.Next() {
		r, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t contentTable) get(ctx context.Context, id int64) (contentRow, error) {
	r, err := scanContent(t.db.QueryRow(ctx, "SELECT "+contentColumns+" FROM "+t.table+" WHERE id = ?", id))
	if err != nil {
		return r, notFound(err, fmt.Sprintf("%s %d", strings.TrimSuffix(t.table, "s"), id))
	}
	return r, nil
}

func scanContent(row interface{ Scan(...any) error }) (contentRow, error) {
	var r contentRow
	var questions string
	if err := row.Scan(&r.ID, &r.LessonID, &r.Title, &r.Type, &r.Level, &questions); err != nil {
		return r, err
	}
	if strings.TrimSpace(questions) != "" {
		if err := json.Unmarshal([]byte(questions), &r.Questions); err != nil {
			return r, fmt.Errorf("content %d questions: %w", r.ID, err)
		}
	}
	return r, nil
}

type ExerciseStore struct {
	table contentTable
	cache cache.Cacher[types.Exercise]
	ttl   time.Duration
}

func NewExerciseStore(db *database.Manager, c cache.Cacher[types.Exercise], ttl time.Duration) *ExerciseStore {
	return &ExerciseStore{table: contentTable{db: db, table: "exercises"}, cache: c, ttl: ttl}
}

func (s *ExerciseStore) List(ctx context.Context, f types.ContentFilter) ([]types.Exercise, error) {
	rows, err := s.table.list(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]types.Exercise, len(rows))
	for i, r := range rows {
		out[i] = types.Exercise(r)
	}
	return out, nil
}

func (s *ExerciseStore) Get(ctx context.Context, id int64) (*types.Exercise, error) {
	e, err := s.cache.GetOrFetch(ctx, cache.Key("exercise", id), s.ttl, func(ctx context.Context) (types.Exercise, error) {
		r, err := s.table.get(ctx, id)
		return types.Exercise(r), err
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type ExamStore struct {
	table contentTable
	cache cache.Cacher[types.Exam]
	ttl   time.Duration
}

func NewExamStore(db *database.Manager, c cache.Cacher[types.Exam], ttl time.Duration) *ExamStore {
	return &ExamStore{table: contentTable{db: db, table: "exams"}, cache: c, ttl: ttl}
}

func (s *ExamStore) List(ctx context.Context, f types.ContentFilter) ([]types.Exam, error) {
	rows, err := s.table.list(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]types.Exam, len(rows))
	for i, r := range rows {
		out[i] = types.Exam(r)
	}
	return out, nil
}

func (s *ExamStore) Get(ctx context.Context, id int64) (*types.Exam, error) {
	e, err := s.cache.GetOrFetch(ctx, cache.Key("exam", id), s.ttl, func(ctx context.Context) (types.Exam, error) {
		r, err := s.table.get(ctx, id)
		return types.Exam(r), err
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}
