package router

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/session"
	"lingualink/pkg/types"
)

type fakeConn struct {
	id     uint32
	mu     sync.Mutex
	frames []protocol.Frame
	fail   bool
}

func (c *fakeConn) ID() uint32 { return c.id }

func (c *fakeConn) RemoteAddr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000} }

func (c *fakeConn) Send(op protocol.Opcode, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection reset")
	}
	c.frames = append(c.frames, protocol.Frame{Opcode: op, Payload: payload})
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) last(t *testing.T) protocol.Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.frames)
	return c.frames[len(c.frames)-1]
}

type denyAll struct{ op protocol.Opcode }

func (d denyAll) Name() string { return "deny" }

func (d denyAll) Handle(context.Context, *Request) Decision { return Deny(d.op, "nope") }

type recorder struct {
	mu    sync.Mutex
	names []string
	name  string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Handle(context.Context, *Request) Decision {
	r.mu.Lock()
	r.names = append(r.names, r.name)
	r.mu.Unlock()
	return Allow()
}

func newTestRouter(t *testing.T) (*Router, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(30*time.Second, nil, logger.Nop())
	return New(sessions, logger.Nop()), sessions
}

func TestDispatch_RoutesToHandler(t *testing.T) {
	r, _ := newTestRouter(t)
	require.NoError(t, r.Handle(protocol.LessonListRequest, func(ctx context.Context, req *Request) error {
		return req.Succeed("0")
	}))
	conn := &fakeConn{id: 1}

	closeConn := r.Dispatch(context.Background(), conn, protocol.NewFrame(protocol.LessonListRequest, "tok"))
	assert.False(t, closeConn)
	f := conn.last(t)
	assert.Equal(t, protocol.LessonListSuccess, f.Opcode)
	assert.Equal(t, "0", string(f.Payload))
}

func TestDispatch_UnknownOpcode(t *testing.T) {
	r, _ := newTestRouter(t)
	conn := &fakeConn{id: 1}

	r.Dispatch(context.Background(), conn, protocol.NewFrame(protocol.Opcode(777), ""))
	f := conn.last(t)
	assert.Equal(t, protocol.UnknownCommandFailure, f.Opcode)
	assert.Contains(t, string(f.Payload), "777")
}

func TestDispatch_MiddlewareOrderAndDenial(t *testing.T) {
	r, _ := newTestRouter(t)
	first, second := &recorder{name: "first"}, &recorder{name: "second"}
	r.Use(first, denyAll{op: protocol.GeneralFailure}, second)
	called := false
	require.NoError(t, r.Handle(protocol.LessonListRequest, func(context.Context, *Request) error {
		called = true
		return nil
	}))
	conn := &fakeConn{id: 1}

	r.Dispatch(context.Background(), conn, protocol.NewFrame(protocol.LessonListRequest, ""))
	assert.False(t, called)
	assert.Equal(t, []string{"first"}, first.names)
	assert.Empty(t, second.names)
	f := conn.last(t)
	assert.Equal(t, protocol.GeneralFailure, f.Opcode)
	assert.Equal(t, "nope", string(f.Payload))
}

func TestDispatch_AttachesLiveSession(t *testing.T) {
	r, sessions := newTestRouter(t)
	token, err := sessions.Create(context.Background(), 5, "alice", types.RoleStudent, 1)
	require.NoError(t, err)

	var seen *session.Session
	require.NoError(t, r.Handle(protocol.ResultListRequest, func(ctx context.Context, req *Request) error {
		seen = req.Session
		return req.Succeed("0")
	}))

	r.Dispatch(context.Background(), &fakeConn{id: 1}, protocol.NewFrame(protocol.ResultListRequest, token))
	require.NotNil(t, seen)
	assert.Equal(t, int64(5), seen.UserID)
	assert.Equal(t, token, seen.Token)

	seen = nil
	r.Dispatch(context.Background(), &fakeConn{id: 2}, protocol.NewFrame(protocol.ResultListRequest, token))
	assert.Nil(t, seen)
}

func TestDispatch_HandlerErrorRepliesInternalError(t *testing.T) {
	r, _ := newTestRouter(t)
	require.NoError(t, r.Handle(protocol.ExamListRequest, func(context.Context, *Request) error {
		return errors.New("database is locked")
	}))
	conn := &fakeConn{id: 1}

	assert.False(t, r.Dispatch(context.Background(), conn, protocol.NewFrame(protocol.ExamListRequest, "")))
	f := conn.last(t)
	assert.Equal(t, protocol.ExamListFailure, f.Opcode)
	assert.Equal(t, "Internal error", string(f.Payload))
}

func TestDispatch_ReplyFailureClosesConnection(t *testing.T) {
	r, _ := newTestRouter(t)
	require.NoError(t, r.Handle(protocol.LessonListRequest, func(ctx context.Context, req *Request) error {
		return req.Succeed("0")
	}))

	conn := &fakeConn{id: 1, fail: true}
	assert.True(t, r.Dispatch(context.Background(), conn, protocol.NewFrame(protocol.LessonListRequest, "")))
}

func TestDispatch_CloseAfterReply(t *testing.T) {
	r, _ := newTestRouter(t)
	require.NoError(t, r.Handle(protocol.DisconnectRequest, func(ctx context.Context, req *Request) error {
		req.CloseAfterReply()
		return req.Succeed("Goodbye")
	}))
	conn := &fakeConn{id: 1}

	assert.True(t, r.Dispatch(context.Background(), conn, protocol.NewFrame(protocol.DisconnectRequest, "")))
	assert.Equal(t, protocol.DisconnectAck, conn.last(t).Opcode)
}

func TestHandle_RegistrationAndRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	noop := func(context.Context, *Request) error { return nil }
	assert.ErrorIs(t, r.Handle(protocol.Heartbeat, nil), ErrNilHandler)
	require.NoError(t, r.Handle(protocol.Heartbeat, noop))
	require.NoError(t, r.Handle(protocol.LoginRequest, noop))
	assert.Equal(t, []protocol.Opcode{protocol.LoginRequest, protocol.Heartbeat}, r.Routes())
}
