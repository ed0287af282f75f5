package types

import "errors"

var (
	ErrUsernameTooShort = errors.New("Username must be at least 3 characters")
	ErrPasswordTooShort = errors.New("Password must be at least 4 characters")
	ErrUsernameInvalid  = errors.New("Username may not contain protocol delimiters")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUnknownGameType  = errors.New("unknown game type")
	ErrInvalidGameJSON  = errors.New("question data must be a JSON array")
	ErrInvalidChatKind  = errors.New("message kind must be TEXT or AUDIO")
)
