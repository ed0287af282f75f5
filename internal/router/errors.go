package router

import "errors"

var (
	// ErrReplyFailed wraps a write failure on the requesting connection.
	// The connection is closed when a handler returns it.
	ErrReplyFailed = errors.New("reply could not be written")
	ErrNilHandler  = errors.New("nil handler")
)
