package gateway

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"lingualink/internal/protocol"
)

const closeWriteDeadline = 2 * time.Second

// wsConn carries protocol frames as binary websocket messages, one frame
// per message. gorilla/websocket allows a single concurrent writer, so
// replies, pushes and pings share writeMu.
type wsConn struct {
	id           uint32
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
	closed       atomic.Bool
}

func (c *wsConn) ID() uint32 { return c.id }

func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) Send(op protocol.Opcode, payload []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	msg := protocol.Encode(protocol.Frame{Opcode: op, Payload: payload})

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, msg)
}

func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// Close sends a close message when it can and drops the socket.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeWriteDeadline))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
