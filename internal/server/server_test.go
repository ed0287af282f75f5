package server

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
)

// echo replies with opcode+1 and the same payload; DISCONNECT closes.
type echo struct {
	mu   sync.Mutex
	seen []protocol.Opcode
}

func (e *echo) Dispatch(_ context.Context, conn registry.Handle, f protocol.Frame) bool {
	e.mu.Lock()
	e.seen = append(e.seen, f.Opcode)
	e.mu.Unlock()
	if f.Opcode == protocol.DisconnectRequest {
		_ = conn.Send(protocol.DisconnectAck, []byte("Goodbye"))
		return true
	}
	_ = conn.Send(f.Opcode+1, f.Payload)
	return false
}

type closed struct {
	mu  sync.Mutex
	ids []uint32
	reg *registry.Registry
}

func (c *closed) hook(_ context.Context, id uint32) {
	c.reg.Remove(id)
	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.mu.Unlock()
}

func (c *closed) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

func startServer(t *testing.T, opts Options) (*Server, *closed, *registry.Registry) {
	t.Helper()
	reg := registry.New(logger.Nop())
	cl := &closed{reg: reg}
	s := New(opts, &echo{}, reg, cl.hook, logger.Nop())
	require.NoError(t, s.Start(context.Background(), "127.0.0.1:0"))
	t.Cleanup(func() { _ = s.Stop() })
	return s, cl, reg
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.SetDeadline(time.Now().Add(5*time.Second)))
	return c
}

func readFrame(t *testing.T, r io.Reader) protocol.Frame {
	t.Helper()
	header := make([]byte, protocol.HeaderSize)
	_, err := io.ReadFull(r, header)
	require.NoError(t, err)
	body := make([]byte, binary.BigEndian.Uint32(header[:4])-2)
	_, err = io.ReadFull(r, body)
	require.NoError(t, err)
	return protocol.Frame{Opcode: protocol.Opcode(binary.BigEndian.Uint16(header[4:6])), Payload: body}
}

func TestServer_RepliesInOrder(t *testing.T) {
	s, _, _ := startServer(t, Options{})
	c := dial(t, s)

	batch := append(protocol.Encode(protocol.NewFrame(100, "a;b")), protocol.Encode(protocol.NewFrame(110, "tok"))...)
	_, err := c.Write(batch)
	require.NoError(t, err)

	f := readFrame(t, c)
	assert.Equal(t, protocol.Opcode(101), f.Opcode)
	assert.Equal(t, "a;b", string(f.Payload))
	f = readFrame(t, c)
	assert.Equal(t, protocol.Opcode(111), f.Opcode)
}

func TestServer_ReassemblesSplitFrames(t *testing.T) {
	s, _, _ := startServer(t, Options{ReadBuffer: 8})
	c := dial(t, s)

	raw := protocol.Encode(protocol.NewFrame(160, "token;exercise;2;am^is"))
	for _, b := range raw {
		_, err := c.Write([]byte{b})
		require.NoError(t, err)
	}
	f := readFrame(t, c)
	assert.Equal(t, protocol.Opcode(161), f.Opcode)
	assert.Equal(t, "token;exercise;2;am^is", string(f.Payload))
}

func TestServer_MalformedFrameClosesConnection(t *testing.T) {
	s, cl, _ := startServer(t, Options{})
	c := dial(t, s)

	_, err := c.Write([]byte{0, 0, 0, 1, 0, 100})
	require.NoError(t, err)

	f := readFrame(t, c)
	assert.Equal(t, protocol.GeneralFailure, f.Opcode)
	_, err = c.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Eventually(t, func() bool { return cl.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestServer_OversizedFrameRejected(t *testing.T) {
	s, _, _ := startServer(t, Options{MaxFrame: 64})
	c := dial(t, s)

	header := make([]byte, protocol.HeaderSize)
	binary.BigEndian.PutUint32(header, 1000)
	_, err := c.Write(header)
	require.NoError(t, err)

	f := readFrame(t, c)
	assert.Equal(t, protocol.GeneralFailure, f.Opcode)
	assert.Equal(t, "Malformed frame", string(f.Payload))
}

func TestServer_DisconnectClosesAfterReply(t *testing.T) {
	s, cl, reg := startServer(t, Options{})
	c := dial(t, s)

	_, err := c.Write(protocol.Encode(protocol.NewFrame(protocol.DisconnectRequest, "")))
	require.NoError(t, err)
	f := readFrame(t, c)
	assert.Equal(t, protocol.DisconnectAck, f.Opcode)

	_, err = c.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Eventually(t, func() bool { return cl.count() == 1 && reg.Stats().Connections == 0 },
		time.Second, 10*time.Millisecond)
}

func TestServer_StartStop(t *testing.T) {
	reg := registry.New(logger.Nop())
	s := New(Options{}, &echo{}, reg, nil, logger.Nop())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)

	require.NoError(t, s.Start(context.Background(), "127.0.0.1:0"))
	assert.ErrorIs(t, s.Start(context.Background(), "127.0.0.1:0"), ErrAlreadyRunning)

	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	assert.Eventually(t, func() bool { return reg.Stats().Connections == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.Equal(t, 0, reg.Stats().Connections)
	require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = c.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestServer_IDsAreUnique(t *testing.T) {
	s := New(Options{}, &echo{}, registry.New(logger.Nop()), nil, logger.Nop())
	seen := map[uint32]bool{}
	for i := 0; i < 100; i++ {
		id := s.NextID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

type recorder struct {
	id     uint32
	frames []protocol.Frame
}

func (r *recorder) ID() uint32           { return r.id }
func (r *recorder) RemoteAddr() net.Addr { return &net.TCPAddr{} }
func (r *recorder) Close() error         { return nil }

func (r *recorder) Send(op protocol.Opcode, payload []byte) error {
	r.frames = append(r.frames, protocol.Frame{Opcode: op, Payload: payload})
	return nil
}

func TestPipeline_MaxFrame(t *testing.T) {
	assert.Equal(t, 64, NewPipeline(&echo{}, 64, nil).MaxFrame())
	assert.Equal(t, protocol.MaxFrameLength, NewPipeline(&echo{}, 0, nil).MaxFrame())
}

func TestPipeline_KeepsPartialTail(t *testing.T) {
	p := NewPipeline(&echo{}, 0, nil)
	conn := &recorder{id: 1}

	whole := protocol.Encode(protocol.NewFrame(110, "x"))
	next := protocol.Encode(protocol.NewFrame(120, "yy"))
	buf := append(append([]byte{}, whole...), next[:4]...)

	rest, closeNow := p.Drain(context.Background(), conn, buf)
	assert.False(t, closeNow)
	assert.Equal(t, next[:4], rest)
	require.Len(t, conn.frames, 1)

	rest, closeNow = p.Drain(context.Background(), conn, append(rest, next[4:]...))
	assert.False(t, closeNow)
	assert.Empty(t, rest)
	require.Len(t, conn.frames, 2)
	assert.Equal(t, protocol.Opcode(121), conn.frames[1].Opcode)
}
