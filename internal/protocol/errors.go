package protocol

import "errors"

var (
	// ErrTooShort means fewer than 6 bytes are buffered.
	ErrTooShort = errors.New("protocol: frame header incomplete")
	// ErrNeedMore means the header is complete but the body is not.
	ErrNeedMore = errors.New("protocol: frame body incomplete")
	// ErrMalformed means the declared length cannot hold an opcode.
	ErrMalformed = errors.New("protocol: malformed frame")
	// ErrTooLarge means the declared length exceeds the frame cap.
	ErrTooLarge = errors.New("protocol: frame exceeds maximum length")
)

// Incomplete reports whether err only asks for more bytes.
func Incomplete(err error) bool {
	return errors.Is(err, ErrTooShort) || errors.Is(err, ErrNeedMore)
}
