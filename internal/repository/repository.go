// Package repository implements the pkg/interfaces stores on top of the
// database Manager. Catalogue reads go through a read-through cache;
// results, chats and sessions always hit the database.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lingualink/internal/cache"
	"lingualink/internal/database"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

// Repositories bundles every store the controllers depend on.
type Repositories struct {
	Users     interfaces.UserRepository
	Lessons   interfaces.LessonRepository
	Exercises interfaces.ExerciseRepository
	Exams     interfaces.ExamRepository
	Results   interfaces.ResultRepository
	Chats     interfaces.ChatRepository
	Games     interfaces.GameRepository
	Sessions  interfaces.SessionMirror
}

// New wires all stores against db. opts selects the catalogue cache backend.
func New(db *database.Manager, opts cache.Options) (*Repositories, error) {
	lessons, err := cache.New[types.Lesson](opts)
	if err != nil {
		return nil, err
	}
	exercises, err := cache.New[types.Exercise](opts)
	if err != nil {
		return nil, err
	}
	exams, err := cache.New[types.Exam](opts)
	if err != nil {
		return nil, err
	}
	games, err := cache.New[types.GameItem](opts)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Users:     NewUserStore(db),
		Lessons:   NewLessonStore(db, lessons, opts.TTL),
		Exercises: NewExerciseStore(db, exercises, opts.TTL),
		Exams:     NewExamStore(db, exams, opts.TTL),
		Results:   NewResultStore(db),
		Chats:     NewChatStore(db),
		Games:     NewGameStore(db, games, opts.TTL),
		Sessions:  NewSessionStore(db),
	}, nil
}

// notFound maps sql.ErrNoRows onto the shared sentinel.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, interfaces.ErrNotFound)
	}
	return err
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
