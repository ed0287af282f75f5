package types

import (
	"time"
)

// Role is one of the three actor kinds.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Exercise and question kinds. The first three are graded automatically.
const (
	ExerciseMultipleChoice  = "multiple_choice"
	ExerciseFillIn          = "fill_in"
	ExerciseSentenceOrder   = "sentence_order"
	ExerciseRewriteSentence = "rewrite_sentence"
	ExerciseWriteParagraph  = "write_paragraph"
	ExerciseSpeakingTopic   = "speaking_topic"
)

// Result target kinds. Games use "<gameType>_game".
const (
	TargetExercise = "exercise"
	TargetExam     = "exam"
	GameSuffix     = "_game"
)

const (
	StatusPending = "pending"
	StatusGraded  = "graded"
)

// Chat message kinds. SYSTEM rows record call events.
const (
	ChatText   = "TEXT"
	ChatAudio  = "AUDIO"
	ChatSystem = "SYSTEM"
)

const (
	GameSentenceMatch = "sentence_match"
	GameWordMatch     = "word_match"
	GameImageMatch    = "image_match"
)

// Lesson kinds accepted by STUDY_LESSON.
const (
	LessonVideo      = "video"
	LessonAudio      = "audio"
	LessonText       = "text"
	LessonVocabulary = "vocabulary"
	LessonGrammar    = "grammar"
	LessonFull       = "full"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Lesson struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Topic      string   `json:"topic"`
	Level      string   `json:"level"`
	VideoURL   string   `json:"video_url"`
	AudioURL   string   `json:"audio_url"`
	Text       string   `json:"text"`
	Vocabulary []string `json:"vocabulary"`
	Grammar    []string `json:"grammar"`
}

// Question is one item of an exercise or exam. Answer is never sent to
// students; Type is empty for exercise questions, which inherit the
// exercise type.
type Question struct {
	Type        string   `json:"type,omitempty"`
	Text        string   `json:"text"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

type Exercise struct {
	ID        int64      `json:"id"`
	LessonID  int64      `json:"lesson_id"`
	Title     string     `json:"title"`
	Type      string     `json:"type"`
	Level     string     `json:"level"`
	Questions []Question `json:"questions"`
}

type Exam struct {
	ID        int64      `json:"id"`
	LessonID  int64      `json:"lesson_id"`
	Title     string     `json:"title"`
	Type      string     `json:"type"`
	Level     string     `json:"level"`
	Questions []Question `json:"questions"`
}

// ContentFilter narrows exercise and exam listings. Empty fields match all.
type ContentFilter struct {
	Type     string
	Level    string
	LessonID int64
}

type Result struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	TargetType     string     `json:"target_type"`
	TargetID       int64      `json:"target_id"`
	Score          float64    `json:"score"`
	UserAnswer     string     `json:"user_answer"`
	Feedback       string     `json:"feedback"`
	GradingDetails string     `json:"grading_details"`
	Status         string     `json:"status"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	GradedAt       *time.Time `json:"graded_at,omitempty"`
}

// Submission is a result joined with its author, as shown to teachers.
type Submission struct {
	Result
	Username string `json:"username"`
}

type ChatMessage struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Sender     string    `json:"sender"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
	Read       bool      `json:"read"`
}

// Conversation is the latest message exchanged with one partner.
type Conversation struct {
	OtherID       int64     `json:"other_id"`
	OtherUsername string    `json:"other_username"`
	LastMessage   string    `json:"last_message"`
	LastAt        time.Time `json:"last_at"`
}

type GameItem struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	Level        string    `json:"level"`
	QuestionJSON string    `json:"question_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionRecord is the persisted mirror of an in-memory session.
type SessionRecord struct {
	Token        string    `json:"token"`
	UserID       int64     `json:"user_id"`
	Role         Role      `json:"role"`
	ConnectionID uint32    `json:"connection_id"`
	CreatedAt    time.Time `json:"created_at"`
}
