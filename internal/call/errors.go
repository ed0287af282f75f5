package call

import "errors"

var (
	ErrSelfCall       = errors.New("cannot call yourself")
	ErrBusy           = errors.New("busy")
	ErrAlreadyRinging = errors.New("already ringing")
	ErrNoPendingCall  = errors.New("no pending call")
	ErrNotInCall      = errors.New("not in a call")
)
