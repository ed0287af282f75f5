package controller

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lingualink/internal/cache"
	"lingualink/internal/call"
	"lingualink/internal/database"
	"lingualink/internal/game"
	"lingualink/internal/logger"
	"lingualink/internal/middleware"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/repository"
	"lingualink/internal/router"
	"lingualink/internal/session"
	dbconfig "lingualink/pkg/database"
)

type testConn struct {
	id     uint32
	mu     sync.Mutex
	frames []protocol.Frame
	closed bool
}

func (c *testConn) ID() uint32 { return c.id }

func (c *testConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000 + int(c.id)}
}

func (c *testConn) Send(op protocol.Opcode, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("use of closed connection")
	}
	c.frames = append(c.frames, protocol.Frame{Opcode: op, Payload: payload})
	return nil
}

func (c *testConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// take removes and returns every frame received so far.
func (c *testConn) take() []protocol.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.frames
	c.frames = nil
	return out
}

// pushed returns the first received frame with opcode op.
func (c *testConn) pushed(op protocol.Opcode) (string, bool) {
	for _, f := range c.take() {
		if f.Opcode == op {
			return string(f.Payload), true
		}
	}
	return "", false
}

type harness struct {
	t        *testing.T
	repos    *repository.Repositories
	sessions *session.Manager
	registry *registry.Registry
	calls    *call.Manager
	router   *router.Router
	ctrl     *Controllers
	nextID   uint32
}

type harnessOption func(*Deps)

func withCallTimeout(d time.Duration) harnessOption {
	return func(deps *Deps) { deps.Calls = call.NewManager(d) }
}

func withPasswordPolicy(p string) harnessOption {
	return func(deps *Deps) { deps.PasswordPolicy = p }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := dbconfig.DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "controller.db")
	db, err := database.NewManager(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(true))

	repos, err := repository.New(db, cache.Options{Backend: cache.BackendNone})
	require.NoError(t, err)

	images := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(images, "apple.png"), []byte("apple-bytes"), 0o600))

	sessions := session.NewManager(30*time.Second, repos.Sessions, logger.Nop())
	reg := registry.New(logger.Nop())
	deps := Deps{
		Repos:          repos,
		Sessions:       sessions,
		Registry:       reg,
		Calls:          call.NewManager(30 * time.Second),
		Images:         game.NewInliner(images, logger.Nop()),
		PasswordPolicy: "plain",
		Logger:         logger.Nop(),
	}
	for _, o := range opts {
		o(&deps)
	}

	ctrl := New(deps)
	r := router.New(sessions, logger.Nop())
	r.Use(middleware.NewLogging(logger.Nop()), middleware.NewAuthGate(), middleware.NewRoleGate(nil))
	require.NoError(t, ctrl.Register(r))

	return &harness{
		t: t, repos: repos, sessions: sessions, registry: reg, calls: deps.Calls, router: r, ctrl: ctrl,
	}
}

func (h *harness) connect() *testConn {
	h.nextID++
	c := &testConn{id: h.nextID}
	require.NoError(h.t, h.registry.Add(c))
	return c
}

// do dispatches one frame and returns the reply, which is the first frame
// written to c by this request.
func (h *harness) do(c *testConn, op protocol.Opcode, payload string) protocol.Frame {
	h.t.Helper()
	c.take()
	h.router.Dispatch(context.Background(), c, protocol.NewFrame(op, payload))
	frames := c.take()
	require.NotEmpty(h.t, frames, "no reply to %s", op)
	return frames[0]
}

// login registers username if needed and logs in on a fresh connection.
func (h *harness) login(username, password string) (*testConn, string) {
	h.t.Helper()
	c := h.connect()
	creds := protocol.Credentials{Username: username, Password: password}.Encode()
	h.router.Dispatch(context.Background(), c, protocol.NewFrame(protocol.RegisterRequest, creds))
	reply := h.do(c, protocol.LoginRequest, creds)
	require.Equal(h.t, protocol.LoginSuccess, reply.Opcode, string(reply.Payload))
	var lr protocol.LoginReply
	lr.Decode(string(reply.Payload))
	return c, lr.Token
}

// join renders a request payload with the token first.
func join(token string, fields ...string) string {
	return protocol.Join(protocol.FieldSep, append([]string{token}, fields...)...)
}
