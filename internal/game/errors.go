package game

import "errors"

var (
	ErrUnknownType      = errors.New("unknown game type")
	ErrInvalidQuestions = errors.New("game questions are not a JSON array")
	ErrInvalidAnswers   = errors.New("answers must be a JSON array or an object with an answers array")
)
