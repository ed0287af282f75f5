package client

import (
	"errors"
	"fmt"

	"lingualink/internal/protocol"
)

var (
	ErrClosed      = errors.New("connection closed")
	ErrTimeout     = errors.New("request timed out")
	ErrNotLoggedIn = errors.New("not logged in")
)

// ReplyError is a failure reply from the server.
type ReplyError struct {
	Opcode protocol.Opcode
	Reason string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Opcode, e.Reason)
}
