// Package router dispatches decoded frames through the middleware chain
// to the handler registered for their opcode.
package router

import (
	"context"
	"errors"
	"sort"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/session"
)

// SessionLookup resolves the session bound to a connection.
type SessionLookup interface {
	LookupByConnection(connID uint32) (session.Session, bool)
	Validate(token string) bool
}

// Router owns the opcode table. Routes and middlewares are registered
// during startup, before the first Dispatch.
type Router struct {
	sessions    SessionLookup
	middlewares []Middleware
	handlers    map[protocol.Opcode]Handler
	logger      logger.Logger
}

func New(sessions SessionLookup, log logger.Logger) *Router {
	return &Router{
		sessions: sessions,
		handlers: make(map[protocol.Opcode]Handler),
		logger:   log.With(logger.Component("router")),
	}
}

// Use appends middlewares to the chain.
func (r *Router) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

// Handle registers h for op, replacing any previous handler.
func (r *Router) Handle(op protocol.Opcode, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	r.handlers[op] = h
	return nil
}

// Routes lists the registered opcodes in ascending order.
func (r *Router) Routes() []protocol.Opcode {
	ops := make([]protocol.Opcode, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Dispatch handles one frame to completion. It reports whether the
// connection should be closed afterwards.
func (r *Router) Dispatch(ctx context.Context, conn registry.Handle, frame protocol.Frame) bool {
	req := &Request{Conn: conn, Frame: frame}
	if s, ok := r.sessions.LookupByConnection(conn.ID()); ok && r.sessions.Validate(s.Token) {
		req.Session = &s
	}

	for _, mw := range r.middlewares {
		d := mw.Handle(ctx, req)
		if d.Allowed {
			continue
		}
		r.logger.Warn("request rejected",
			logger.String("middleware", mw.Name()),
			logger.String("opcode", frame.Opcode.String()),
			logger.Uint32("conn_id", conn.ID()),
			logger.String("reason", d.Reason))
		return r.replyOrClose(req, d.Failure, d.Reason)
	}

	h, ok := r.handlers[frame.Opcode]
	if !ok {
		return r.replyOrClose(req, protocol.UnknownCommandFailure, "Unknown command: "+frame.Opcode.String())
	}

	err := h(ctx, req)
	switch {
	case err == nil:
		return req.closeAfter
	case errors.Is(err, ErrReplyFailed):
		r.logger.Warn("reply failed, closing connection",
			logger.String("opcode", frame.Opcode.String()),
			logger.Uint32("conn_id", conn.ID()),
			logger.Err(err))
		return true
	}

	r.logger.Error("handler failed",
		logger.String("opcode", frame.Opcode.String()),
		logger.Uint32("conn_id", conn.ID()),
		logger.Int64("user_id", req.UserID()),
		logger.Err(err))
	if !req.replied {
		return r.replyOrClose(req, protocol.FailureFor(frame.Opcode), "Internal error")
	}
	return req.closeAfter
}

func (r *Router) replyOrClose(req *Request, op protocol.Opcode, body string) bool {
	if err := req.Reply(op, body); err != nil {
		r.logger.Warn("reply failed, closing connection", logger.Uint32("conn_id", req.ConnID()), logger.Err(err))
		return true
	}
	return req.closeAfter
}
