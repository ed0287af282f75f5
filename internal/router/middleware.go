package router

import (
	"context"

	"lingualink/internal/protocol"
)

// Decision is a middleware verdict. A denial carries the opcode and the
// reason sent back to the client.
type Decision struct {
	Allowed bool
	Failure protocol.Opcode
	Reason  string
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(failure protocol.Opcode, reason string) Decision {
	return Decision{Failure: failure, Reason: reason}
}

// Middleware inspects a request before dispatch. Middlewares run in
// registration order and the first denial stops the chain.
type Middleware interface {
	Name() string
	Handle(ctx context.Context, req *Request) Decision
}
