package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/server"
)

type echo struct{}

func (echo) Dispatch(_ context.Context, conn registry.Handle, f protocol.Frame) bool {
	if f.Opcode == protocol.DisconnectRequest {
		_ = conn.Send(protocol.DisconnectAck, []byte("Goodbye"))
		return true
	}
	_ = conn.Send(f.Opcode+1, f.Payload)
	return false
}

type pinger struct{ err error }

func (p pinger) HealthCheck(context.Context) error { return p.err }

type fixture struct {
	gw     *Gateway
	srv    *httptest.Server
	reg    *registry.Registry
	closed chan uint32
}

func newFixture(t *testing.T, db Pinger) *fixture {
	t.Helper()
	reg := registry.New(logger.Nop())
	var ids atomic.Uint32
	f := &fixture{reg: reg, closed: make(chan uint32, 4)}
	f.gw = New(Config{
		Pipeline: server.NewPipeline(echo{}, 1024, logger.Nop()),
		Registry: reg,
		NextID:   func() uint32 { return ids.Add(1) + 100 },
		OnClose: func(_ context.Context, id uint32) {
			reg.Remove(id)
			f.closed <- id
		},
		DB:    db,
		Stats: func() Stats { return Stats{Sessions: 2, Connections: reg.Stats().Connections} },
	})
	f.srv = httptest.NewServer(f.gw.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	return ws
}

func readFrames(t *testing.T, ws *websocket.Conn) protocol.Frame {
	t.Helper()
	kind, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, kind)
	frame, used, err := protocol.TryParseLimit(msg, protocol.MaxFrameLength)
	require.NoError(t, err)
	require.Equal(t, len(msg), used)
	return frame
}

func TestGateway_Health(t *testing.T) {
	f := newFixture(t, pinger{})
	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestGateway_HealthDatabaseDown(t *testing.T) {
	f := newFixture(t, pinger{err: errors.New("disk gone")})
	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "disk gone", body["database"])
}

func TestGateway_Stats(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(f.srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var s Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, 2, s.Sessions)
	assert.NotEmpty(t, s.Uptime)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestGateway_StatsRejectsPost(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Post(f.srv.URL+"/stats", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestGateway_WebsocketRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ws := f.dial(t)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, protocol.Encode(protocol.NewFrame(protocol.LessonListRequest, "x"))))
	got := readFrames(t, ws)
	assert.Equal(t, protocol.LessonListSuccess, got.Opcode)
	assert.Equal(t, "x", string(got.Payload))

	require.Eventually(t, func() bool { return f.reg.Stats().Connections == 1 }, time.Second, 10*time.Millisecond)
}

func TestGateway_WebsocketReassemblesSplitFrames(t *testing.T) {
	f := newFixture(t, nil)
	ws := f.dial(t)

	raw := protocol.Encode(protocol.NewFrame(protocol.ExamListRequest, "split"))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, raw[:4]))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, raw[4:]))

	got := readFrames(t, ws)
	assert.Equal(t, protocol.ExamListSuccess, got.Opcode)
	assert.Equal(t, "split", string(got.Payload))
}

func TestGateway_WebsocketDisconnect(t *testing.T) {
	f := newFixture(t, nil)
	ws := f.dial(t)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, protocol.Encode(protocol.NewFrame(protocol.DisconnectRequest, ""))))
	got := readFrames(t, ws)
	assert.Equal(t, protocol.DisconnectAck, got.Opcode)

	select {
	case id := <-f.closed:
		assert.Greater(t, id, uint32(100))
	case <-time.After(2 * time.Second):
		t.Fatal("close hook not called")
	}
	assert.Equal(t, 0, f.reg.Stats().Connections)
}

func TestGateway_WebsocketMalformedFrame(t *testing.T) {
	f := newFixture(t, nil)
	ws := f.dial(t)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{0, 0, 0, 1, 0, 1}))
	got := readFrames(t, ws)
	assert.Equal(t, protocol.GeneralFailure, got.Opcode)

	select {
	case <-f.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after malformed frame")
	}
}

func TestGateway_WebsocketMessageOverFrameLimit(t *testing.T) {
	f := newFixture(t, nil)
	ws := f.dial(t)

	big := protocol.Encode(protocol.NewFrame(protocol.LoginRequest, strings.Repeat("x", 4096)))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, big))

	select {
	case <-f.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after oversized message")
	}
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
}

func TestGateway_SendAfterClose(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.dial(t)
	require.Eventually(t, func() bool { return f.reg.Stats().Connections == 1 }, time.Second, 10*time.Millisecond)

	var h registry.Handle
	for id := uint32(101); id < 110 && h == nil; id++ {
		h, _ = f.reg.Get(id)
	}
	require.NotNil(t, h)
	require.NoError(t, h.Close())
	assert.ErrorIs(t, h.Send(protocol.NotificationPush, nil), ErrClosed)
}

func TestGateway_StartStop(t *testing.T) {
	reg := registry.New(logger.Nop())
	g := New(Config{
		Addr:     "127.0.0.1:0",
		Pipeline: server.NewPipeline(echo{}, 1024, logger.Nop()),
		Registry: reg,
		NextID:   func() uint32 { return 1 },
	})
	ctx := context.Background()

	require.NoError(t, g.Start(ctx))
	assert.ErrorIs(t, g.Start(ctx), ErrAlreadyRunning)
	require.NotNil(t, g.Addr())

	resp, err := http.Get("http://" + g.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, g.Stop(ctx))
	assert.ErrorIs(t, g.Stop(ctx), ErrNotRunning)
}

