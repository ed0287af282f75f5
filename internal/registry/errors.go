package registry

import "errors"

var (
	ErrNilHandle     = errors.New("handle cannot be nil")
	ErrUnknownHandle = errors.New("connection is not registered")
)
