package gateway

import "errors"

var (
	ErrAlreadyRunning = errors.New("gateway is already running")
	ErrNotRunning     = errors.New("gateway is not running")
	ErrClosed         = errors.New("websocket connection closed")
)
