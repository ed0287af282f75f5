package types

import (
	"encoding/json"
	"strings"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 4
)

// ValidateCredentials applies the registration rules. Delimiters are
// rejected in usernames because they travel inside positional payloads.
func ValidateCredentials(username, password string) error {
	if len(username) < MinUsernameLength {
		return ErrUsernameTooShort
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if strings.ContainsAny(username, ";|,^~: \t\r\n") {
		return ErrUsernameInvalid
	}
	return nil
}

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// IsExerciseType reports whether t names one of the six exercise kinds.
func IsExerciseType(t string) bool {
	switch t {
	case ExerciseMultipleChoice, ExerciseFillIn, ExerciseSentenceOrder,
		ExerciseRewriteSentence, ExerciseWriteParagraph, ExerciseSpeakingTopic:
		return true
	}
	return false
}

// IsAutoGraded reports whether answers of kind t can be scored by string
// comparison. Free-form kinds wait for a teacher.
func IsAutoGraded(t string) bool {
	switch t {
	case ExerciseMultipleChoice, ExerciseFillIn, ExerciseSentenceOrder:
		return true
	}
	return false
}

func IsGameType(t string) bool {
	switch t {
	case GameSentenceMatch, GameWordMatch, GameImageMatch:
		return true
	}
	return false
}

// GameTarget is the result target type recorded for a game submission.
func GameTarget(gameType string) string {
	return gameType + GameSuffix
}

func IsLessonKind(k string) bool {
	switch k {
	case LessonVideo, LessonAudio, LessonText, LessonVocabulary, LessonGrammar, LessonFull:
		return true
	}
	return false
}

func IsChatKind(k string) bool {
	return k == ChatText || k == ChatAudio
}

// Validate checks a game item before it is stored.
func (g *GameItem) Validate() error {
	if !IsGameType(g.Type) {
		return ErrUnknownGameType
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(g.QuestionJSON), &items); err != nil {
		return ErrInvalidGameJSON
	}
	return nil
}

// QuestionType resolves the kind of question i, falling back to the
// owning exercise or exam type.
func QuestionType(q Question, fallback string) string {
	if q.Type != "" {
		return q.Type
	}
	return fallback
}
