package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"lingualink/internal/protocol"
)

// Conn is one accepted TCP client. Writes are serialized so a reply and a
// push to the same connection never interleave.
type Conn struct {
	id           uint32
	nc           net.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
	closed       atomic.Bool
}

func newConn(id uint32, nc net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{id: id, nc: nc, writeTimeout: writeTimeout}
}

func (c *Conn) ID() uint32 { return c.id }

func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Send writes one frame. A failed or timed out write leaves the
// connection unusable; the reader notices and tears it down.
func (c *Conn) Send(op protocol.Opcode, payload []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	buf := protocol.Encode(protocol.Frame{Opcode: op, Payload: payload})

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := c.nc.Write(buf); err != nil {
		return fmt.Errorf("write %s to conn %d: %w", op, c.id, err)
	}
	return nil
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.nc.Close()
	})
	return err
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool { return c.closed.Load() }
