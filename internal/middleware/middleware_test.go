package middleware

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/router"
	"lingualink/internal/session"
	"lingualink/pkg/types"
)

type stubConn struct{ id uint32 }

func (c stubConn) ID() uint32 { return c.id }
func (c stubConn) RemoteAddr() net.Addr { return &net.TCPAddr{} }
func (c stubConn) Send(protocol.Opcode, []byte) error { return nil }
func (c stubConn) Close() error { return nil }

func request(op protocol.Opcode, role types.Role) *router.Request {
	req := &router.Request{Conn: stubConn{id: 3}, Frame: protocol.NewFrame(op, "tok")}
	if role != "" {
		req.Session = &session.Session{Token: "tok", UserID: 9, Role: role, ConnectionID: 3}
	}
	return req
}

func TestAuthGate(t *testing.T) {
	gate := NewAuthGate()
	ctx := context.Background()

	for _, op := range []protocol.Opcode{protocol.LoginRequest, protocol.RegisterRequest, protocol.Heartbeat, protocol.DisconnectRequest} {
		assert.True(t, gate.Handle(ctx, request(op, "")).Allowed, op.String())
	}

	d := gate.Handle(ctx, request(protocol.LessonListRequest, ""))
	assert.False(t, d.Allowed)
	assert.Equal(t, protocol.GeneralFailure, d.Failure)
	assert.Equal(t, UnauthorizedLogin, d.Reason)

	assert.True(t, gate.Handle(ctx, request(protocol.LessonListRequest, types.RoleStudent)).Allowed)
}

func TestRoleGate_AdminSet(t *testing.T) {
	gate := NewRoleGate(nil)
	ctx := context.Background()

	cases := []struct {
		op      protocol.Opcode
		role    types.Role
		allowed bool
	}{
		{protocol.GameCreateRequest, types.RoleStudent, false},
		{protocol.GameCreateRequest, types.RoleTeacher, false},
		{protocol.GameCreateRequest, types.RoleAdmin, true},
		{protocol.GameUpdateRequest, types.RoleTeacher, false},
		{protocol.GameDeleteRequest, types.RoleAdmin, true},
		{protocol.GradeSubmissionRequest, types.RoleStudent, false},
		{protocol.GradeSubmissionRequest, types.RoleTeacher, true},
		{protocol.AddFeedbackRequest, types.RoleStudent, false},
		{protocol.ExamReviewRequest, types.RoleStudent, false},
		{protocol.ExamReviewRequest, types.RoleAdmin, true},
		{protocol.PendingSubmissionsRequest, types.RoleStudent, false},
		{protocol.PendingSubmissionsRequest, types.RoleTeacher, true},
		{protocol.LessonListRequest, types.RoleStudent, true},
		{protocol.ExamRequest, types.RoleStudent, true},
	}
	for _, tc := range cases {
		t.Run(tc.op.String()+"/"+string(tc.role), func(t *testing.T) {
			d := gate.Handle(ctx, request(tc.op, tc.role))
			assert.Equal(t, tc.allowed, d.Allowed)
			if !tc.allowed {
				assert.Equal(t, protocol.FailureFor(tc.op), d.Failure)
				assert.Equal(t, "Unauthorized", d.Reason)
			}
		})
	}

	d := gate.Handle(ctx, request(protocol.GradeSubmissionRequest, ""))
	assert.False(t, d.Allowed)
	assert.Equal(t, protocol.GradeSubmissionFailure, d.Failure)
}

func TestLoginThrottle(t *testing.T) {
	th := NewLoginThrottle(3, time.Minute)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, th.Handle(ctx, request(protocol.LoginRequest, "")).Allowed)
	}
	d := th.Handle(ctx, request(protocol.LoginRequest, ""))
	assert.False(t, d.Allowed)
	assert.Equal(t, protocol.LoginFailure, d.Failure)

	assert.True(t, th.Handle(ctx, request(protocol.LessonListRequest, types.RoleStudent)).Allowed)
	assert.True(t, th.Allow(4))

	now = now.Add(time.Minute)
	assert.True(t, th.Allow(3))

	now = now.Add(10 * time.Minute)
	th.Cleanup()
	assert.Zero(t, th.Len())

	th.Allow(7)
	th.Forget(7)
	assert.Zero(t, th.Len())

	assert.True(t, NewLoginThrottle(0, time.Minute).Allow(1))
}

func TestLogging_AlwaysAllows(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "test", zerolog.InfoLevel, "json")
	mw := NewLogging(log)

	require.True(t, mw.Handle(context.Background(), request(protocol.LessonListRequest, types.RoleStudent)).Allowed)
	assert.Contains(t, buf.String(), "LESSON_LIST_REQUEST")
	assert.Contains(t, buf.String(), `"conn_id":3`)
	assert.Contains(t, buf.String(), `"size":9`)

	buf.Reset()
	require.True(t, mw.Handle(context.Background(), request(protocol.Heartbeat, "")).Allowed)
	assert.Empty(t, buf.String())
}
