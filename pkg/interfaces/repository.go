package interfaces

import (
	"context"
	"time"

	"lingualink/pkg/types"
)

// UserRepository wraps the users table.
type UserRepository interface {
	// Create inserts a user and returns its id. ErrDuplicate when the
	// username is taken.
	Create(ctx context.Context, username, password string, role types.Role) (int64, error)
	FindByUsername(ctx context.Context, username string) (*types.User, error)
	FindByID(ctx context.Context, id int64) (*types.User, error)
}

type LessonRepository interface {
	List(ctx context.Context, topic, level string) ([]types.Lesson, error)
	Get(ctx context.Context, id int64) (*types.Lesson, error)
}

type ExerciseRepository interface {
	List(ctx context.Context, filter types.ContentFilter) ([]types.Exercise, error)
	Get(ctx context.Context, id int64) (*types.Exercise, error)
}

type ExamRepository interface {
	List(ctx context.Context, filter types.ContentFilter) ([]types.Exam, error)
	Get(ctx context.Context, id int64) (*types.Exam, error)
}

// ResultRepository stores one row per submission. Rows are never updated
// by resubmission; grading and feedback update in place.
type ResultRepository interface {
	Insert(ctx context.Context, r *types.Result) (int64, error)
	Get(ctx context.Context, id int64) (*types.Result, error)
	HasResult(ctx context.Context, userID int64, targetType string, targetID int64) (bool, error)
	// ListByUser returns every row of the user, newest first (submitted_at, then id).
	ListByUser(ctx context.Context, userID int64, targetType string) ([]types.Result, error)
	// Attempts returns the rows for one target, newest first.
	Attempts(ctx context.Context, userID int64, targetType string, targetID int64) ([]types.Result, error)
	Grade(ctx context.Context, id int64, score float64, feedback, details string, gradedAt time.Time) error
	AppendFeedback(ctx context.Context, id int64, text string) error
	// Submissions lists results joined with usernames; empty status lists all.
	Submissions(ctx context.Context, status string) ([]types.Submission, error)
	CompletedTargets(ctx context.Context, userID int64, targetType string) (map[int64]bool, error)
}

type ChatRepository interface {
	Save(ctx context.Context, m *types.ChatMessage) (int64, error)
	// History returns messages between a and b oldest first.
	History(ctx context.Context, a, b int64, limit, offset int) ([]types.ChatMessage, error)
	MarkRead(ctx context.Context, receiverID, senderID int64) error
	Recent(ctx context.Context, userID int64) ([]types.Conversation, error)
}

type GameRepository interface {
	Types(ctx context.Context) ([]string, error)
	Levels(ctx context.Context, gameType string) ([]types.GameItem, error)
	Get(ctx context.Context, id int64) (*types.GameItem, error)
	Create(ctx context.Context, g *types.GameItem) (int64, error)
	Update(ctx context.Context, g *types.GameItem) error
	Delete(ctx context.Context, id int64) error
}

// SessionMirror persists in-memory sessions for observability. It is
// never read back to authenticate.
type SessionMirror interface {
	Save(ctx context.Context, rec types.SessionRecord) error
	Delete(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
