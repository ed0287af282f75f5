package interfaces

import "errors"

// Errors shared by repositories and their callers.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrNotOwner  = errors.New("record belongs to another user")
	ErrClosed    = errors.New("store is closed")
)
