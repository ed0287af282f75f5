package router

import (
	"context"
	"fmt"

	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/session"
)

// Request is one decoded frame on its way through the middleware chain to
// a handler. Session is nil when the connection is not logged in or its
// session has expired.
type Request struct {
	Conn    registry.Handle
	Frame   protocol.Frame
	Session *session.Session

	replied    bool
	closeAfter bool
}

// Handler serves one opcode. A returned error that is not ErrReplyFailed
// is logged and, if nothing was replied yet, answered with the family
// failure "Internal error".
type Handler func(ctx context.Context, req *Request) error

func (r *Request) ConnID() uint32 { return r.Conn.ID() }

func (r *Request) Opcode() protocol.Opcode { return r.Frame.Opcode }

func (r *Request) Payload() string { return string(r.Frame.Payload) }

// UserID is the logged-in user, or 0.
func (r *Request) UserID() int64 {
	if r.Session == nil {
		return 0
	}
	return r.Session.UserID
}

// Reply writes one frame back to the requesting connection.
func (r *Request) Reply(op protocol.Opcode, body string) error {
	r.replied = true
	if err := r.Conn.Send(op, []byte(body)); err != nil {
		return fmt.Errorf("%w: %s on connection %d: %v", ErrReplyFailed, op, r.ConnID(), err)
	}
	return nil
}

// Succeed replies with the success opcode of the request's family.
func (r *Request) Succeed(body string) error {
	return r.Reply(protocol.SuccessFor(r.Frame.Opcode), body)
}

// Fail replies with the failure opcode of the request's family.
func (r *Request) Fail(reason string) error {
	return r.Reply(protocol.FailureFor(r.Frame.Opcode), reason)
}

// CloseAfterReply asks the server to close the connection once the
// handler returns.
func (r *Request) CloseAfterReply() { r.closeAfter = true }

func (r *Request) Replied() bool { return r.replied }
