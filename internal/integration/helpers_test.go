package integration

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lingualink/internal/app"
	"lingualink/internal/client"
	"lingualink/internal/config"
	"lingualink/internal/logger"
	"lingualink/internal/protocol"
)

type env struct {
	app  *app.Application
	addr string
	http string
}

// startServer runs the full application on loopback ports with a fresh
// sqlite database. tune may shorten timers.
func startServer(t *testing.T, tune func(*config.Config)) *env {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "lingualink.db")
	cfg.Game.ImageDir = dir
	cfg.Server.Tick = 20 * time.Millisecond
	if tune != nil {
		tune(cfg)
	}

	a, err := app.New(cfg, logger.Nop(), app.WithTCPAddr("127.0.0.1:0"), app.WithGatewayAddr("127.0.0.1:0"))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	e := &env{app: a, addr: a.Addr().String()}
	if ga := a.GatewayAddr(); ga != nil {
		e.http = "http://" + ga.String()
	}
	return e
}

func (e *env) dial(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.Dial(context.Background(), client.Options{
		Addr:           e.addr,
		RequestTimeout: 3 * time.Second,
		// tests drive heartbeats explicitly
		Heartbeat: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (e *env) login(t *testing.T, user, pass string) *client.Client {
	t.Helper()
	c := e.dial(t)
	_, err := c.Login(context.Background(), user, pass)
	require.NoError(t, err)
	return c
}

// registerAndLogin creates a student account and logs it in.
func (e *env) registerAndLogin(t *testing.T, user string) *client.Client {
	t.Helper()
	c := e.dial(t)
	require.NoError(t, c.Register(context.Background(), user, "pass1234"))
	_, err := c.Login(context.Background(), user, "pass1234")
	require.NoError(t, err)
	return c
}

func waitPush(t *testing.T, c *client.Client, op protocol.Opcode, within time.Duration) protocol.Frame {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case f, ok := <-c.Pushes():
			require.True(t, ok, "connection closed while waiting for %s", op)
			if f.Opcode == op {
				return f
			}
		case <-deadline:
			t.Fatalf("no %s within %s", op, within)
		}
	}
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
