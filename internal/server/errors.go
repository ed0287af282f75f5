package server

import "errors"

var (
	ErrAlreadyRunning   = errors.New("server is already running")
	ErrNotRunning       = errors.New("server is not running")
	ErrConnectionClosed = errors.New("connection closed")
)
