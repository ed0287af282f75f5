package controller

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingualink/internal/config"
	"lingualink/internal/protocol"
)

var loginReply = regexp.MustCompile(`^session_id=[0-9a-f]{32};role=(student|teacher|admin)$`)

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	reply := h.do(c, protocol.RegisterRequest, "alice;secret")
	assert.Equal(t, protocol.RegisterSuccess, reply.Opcode)
	assert.Equal(t, "Registration successful", string(reply.Payload))

	reply = h.do(c, protocol.RegisterRequest, "alice;other")
	assert.Equal(t, protocol.RegisterFailure, reply.Opcode)
	assert.Equal(t, "Username already exists", string(reply.Payload))

	reply = h.do(c, protocol.RegisterRequest, "al;secret")
	assert.Equal(t, protocol.RegisterFailure, reply.Opcode)

	reply = h.do(c, protocol.LoginRequest, "alice;wrong")
	assert.Equal(t, protocol.LoginFailure, reply.Opcode)
	assert.Equal(t, "Invalid username or password", string(reply.Payload))

	reply = h.do(c, protocol.LoginRequest, "alice;")
	assert.Equal(t, "Username and password are required", string(reply.Payload))

	reply = h.do(c, protocol.LoginRequest, "alice;secret")
	require.Equal(t, protocol.LoginSuccess, reply.Opcode)
	assert.Regexp(t, loginReply, string(reply.Payload))
	assert.True(t, strings.HasSuffix(string(reply.Payload), "role=student"))
	assert.Equal(t, 1, h.sessions.Count())
}

func TestLoginSeededRoles(t *testing.T) {
	h := newHarness(t)
	for user, role := range map[string]string{"admin": "admin", "teacher": "teacher", "student": "student"} {
		c := h.connect()
		reply := h.do(c, protocol.LoginRequest, user+";"+user+"123")
		require.Equal(t, protocol.LoginSuccess, reply.Opcode, user)
		var lr protocol.LoginReply
		lr.Decode(string(reply.Payload))
		assert.Equal(t, role, lr.Role)
	}
}

func TestRegisterBcryptPolicy(t *testing.T) {
	h := newHarness(t, withPasswordPolicy(config.PasswordBcrypt))
	c, token := h.login("carol", "hunter22")
	require.NotEmpty(t, token)

	u, err := h.repos.Users.FindByUsername(context.Background(), "carol")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.Password, "$2"))

	h.do(c, protocol.LogoutRequest, token)
	reply := h.do(c, protocol.LoginRequest, "carol;hunter23")
	assert.Equal(t, protocol.LoginFailure, reply.Opcode)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	c, token := h.login("alice", "secret")

	reply := h.do(c, protocol.LogoutRequest, "bogus")
	assert.Equal(t, protocol.LogoutFailure, reply.Opcode)
	assert.Equal(t, "Invalid session", string(reply.Payload))

	reply = h.do(c, protocol.LogoutRequest, token)
	assert.Equal(t, protocol.LogoutSuccess, reply.Opcode)
	assert.Equal(t, 0, h.sessions.Count())

	reply = h.do(c, protocol.LessonListRequest, join(token))
	assert.Equal(t, protocol.GeneralFailure, reply.Opcode)
}

func TestHeartbeatExtendsSessionSilently(t *testing.T) {
	h := newHarness(t)
	c, token := h.login("alice", "secret")
	before, ok := h.sessions.LookupByToken(token)
	require.True(t, ok)

	c.take()
	h.router.Dispatch(context.Background(), c, protocol.NewFrame(protocol.Heartbeat, token))
	assert.Empty(t, c.take())

	after, ok := h.sessions.LookupByToken(token)
	require.True(t, ok)
	assert.False(t, after.LastActive.Before(before.LastActive))
}

func TestDisconnectClosesAfterAck(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	closeConn := h.router.Dispatch(context.Background(), c, protocol.NewFrame(protocol.DisconnectRequest, ""))
	assert.True(t, closeConn)

	frames := c.take()
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.DisconnectAck, frames[0].Opcode)
	assert.Equal(t, "Goodbye", string(frames[0].Payload))
}

func TestTokenFromAnotherConnectionRejected(t *testing.T) {
	h := newHarness(t)
	_, token := h.login("alice", "secret")
	other, _ := h.login("bob", "secret")

	reply := h.do(other, protocol.LessonListRequest, join(token))
	assert.Equal(t, protocol.LessonListFailure, reply.Opcode)
	assert.Equal(t, "Invalid session", string(reply.Payload))
}

func TestCheckPassword(t *testing.T) {
	assert.True(t, checkPassword("plain", "plain"))
	assert.False(t, checkPassword("plain", "Plain"))
	assert.False(t, checkPassword("$2a$10$invalidhash", "x"))
}
