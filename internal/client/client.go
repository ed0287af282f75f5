// Package client is the terminal client: a framed TCP connection with
// request/reply pairing, a push channel, a background heartbeat and a
// small local profile store.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
)

const (
	defaultDialTimeout    = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultHeartbeat      = 10 * time.Second
	defaultRetries        = 5
	pushBuffer            = 64
)

type Options struct {
	Addr           string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	// Heartbeat is the interval between HEARTBEAT frames once logged in;
	// a third of the server TTL keeps the session alive.
	Heartbeat time.Duration
	// Retries bounds reconnect attempts; zero means the default.
	Retries uint64
	// Dump, when set, receives every frame in both directions.
	Dump   *Dumper
	Logger logger.Logger
}

// Client is safe for concurrent use. Requests are serialized because the
// server answers each connection in order.
type Client struct {
	opts Options
	conn net.Conn
	log  logger.Logger

	writeMu sync.Mutex
	reqMu   sync.Mutex
	replies chan protocol.Frame
	pushes  chan protocol.Frame
	done    chan struct{}
	readErr error

	mu       sync.Mutex
	token    string
	role     string
	username string
	hbStop   chan struct{}

	closeOnce sync.Once
}

// Dial connects to opts.Addr, retrying with exponential backoff.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	if opts.Retries == 0 {
		opts.Retries = defaultRetries
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	log := opts.Logger.With(logger.Component("client"))

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, opts.Retries), ctx)

	var conn net.Conn
	dialer := net.Dialer{Timeout: opts.DialTimeout}
	err := backoff.RetryNotify(func() error {
		c, err := dialer.DialContext(ctx, "tcp", opts.Addr)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, policy, func(err error, wait time.Duration) {
		log.Warn("connect failed, retrying", logger.String("addr", opts.Addr),
			logger.Duration("wait", wait), logger.Err(err))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Addr, err)
	}

	c := newClient(conn, opts, log)
	log.Info("connected", logger.String("addr", opts.Addr))
	return c, nil
}

func newClient(conn net.Conn, opts Options, log logger.Logger) *Client {
	c := &Client{
		opts:    opts,
		conn:    conn,
		log:     log,
		replies: make(chan protocol.Frame, 1),
		pushes:  make(chan protocol.Frame, pushBuffer),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Pushes delivers unsolicited frames: notifications, chat and call events.
// The channel is closed when the connection ends.
func (c *Client) Pushes() <-chan protocol.Frame { return c.pushes }

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readLoop() {
	defer close(c.pushes)
	defer close(c.done)

	chunk := make([]byte, 4096)
	var buf []byte
	for {
		n, err := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				f, used, perr := protocol.TryParse(buf)
				if protocol.Incomplete(perr) {
					break
				}
				if perr != nil {
					c.readErr = perr
					return
				}
				buf = buf[:copy(buf, buf[used:])]
				c.opts.Dump.Frame("<-", f)
				c.route(f)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.readErr = err
			}
			return
		}
	}
}

func (c *Client) route(f protocol.Frame) {
	if f.Opcode.IsPush() {
		select {
		case c.pushes <- f:
		default:
			c.log.Warn("push dropped, consumer too slow", logger.String("opcode", f.Opcode.String()))
		}
		return
	}
	select {
	case c.replies <- f:
	case <-time.After(c.opts.RequestTimeout):
		c.log.Warn("unexpected reply dropped", logger.String("opcode", f.Opcode.String()))
	}
}

func (c *Client) write(op protocol.Opcode, payload string) error {
	f := protocol.NewFrame(op, payload)
	c.opts.Dump.Frame("->", f)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.RequestTimeout)); err != nil {
		return err
	}
	if _, err := c.conn.Write(protocol.Encode(f)); err != nil {
		return fmt.Errorf("failed to send %s: %w", op, err)
	}
	return nil
}

// Request sends one frame and waits for the next reply.
func (c *Client) Request(ctx context.Context, op protocol.Opcode, payload string) (protocol.Frame, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	// a reply that arrived after an earlier timeout must not answer this request
	select {
	case <-c.replies:
	default:
	}

	if err := c.write(op, payload); err != nil {
		return protocol.Frame{}, err
	}
	timer := time.NewTimer(c.opts.RequestTimeout)
	defer timer.Stop()
	select {
	case f := <-c.replies:
		return f, nil
	case <-c.done:
		return protocol.Frame{}, ErrClosed
	case <-timer.C:
		return protocol.Frame{}, ErrTimeout
	case <-ctx.Done():
		return protocol.Frame{}, ctx.Err()
	}
}

// Do sends a request and returns the success body. Any other reply is a
// *ReplyError.
func (c *Client) Do(ctx context.Context, op protocol.Opcode, payload string) (string, error) {
	f, err := c.Request(ctx, op, payload)
	if err != nil {
		return "", err
	}
	if f.Opcode != protocol.SuccessFor(op) {
		return "", &ReplyError{Opcode: f.Opcode, Reason: string(f.Payload)}
	}
	return string(f.Payload), nil
}

// Authed is Do with the session token prepended as field 0.
func (c *Client) Authed(ctx context.Context, op protocol.Opcode, fields ...string) (string, error) {
	token := c.Token()
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return c.Do(ctx, op, protocol.Join(protocol.FieldSep, append([]string{token}, fields...)...))
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	_, err := c.Do(ctx, protocol.RegisterRequest, protocol.Credentials{Username: username, Password: password}.Encode())
	return err
}

// Login authenticates and starts the heartbeat.
func (c *Client) Login(ctx context.Context, username, password string) (protocol.LoginReply, error) {
	body, err := c.Do(ctx, protocol.LoginRequest, protocol.Credentials{Username: username, Password: password}.Encode())
	if err != nil {
		return protocol.LoginReply{}, err
	}
	var reply protocol.LoginReply
	reply.Decode(body)
	if reply.Token == "" {
		return protocol.LoginReply{}, fmt.Errorf("login reply without session token: %q", body)
	}

	c.mu.Lock()
	c.token, c.role, c.username = reply.Token, reply.Role, username
	c.mu.Unlock()
	c.startHeartbeat()
	return reply, nil
}

func (c *Client) Logout(ctx context.Context) error {
	token := c.Token()
	if token == "" {
		return ErrNotLoggedIn
	}
	c.stopHeartbeat()
	_, err := c.Do(ctx, protocol.LogoutRequest, protocol.TokenOnly{Token: token}.Encode())
	c.mu.Lock()
	c.token, c.role, c.username = "", "", ""
	c.mu.Unlock()
	return err
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) Role() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Heartbeat sends one HEARTBEAT. The server never replies to it.
func (c *Client) Heartbeat() error {
	token := c.Token()
	if token == "" {
		return ErrNotLoggedIn
	}
	return c.write(protocol.Heartbeat, protocol.TokenOnly{Token: token}.Encode())
}

func (c *Client) startHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hbStop != nil {
		return
	}
	stop := make(chan struct{})
	c.hbStop = stop
	go func() {
		ticker := time.NewTicker(c.opts.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Heartbeat(); err != nil {
					c.log.Debug("heartbeat failed", logger.Err(err))
				}
			case <-stop:
				return
			case <-c.done:
				return
			}
		}
	}()
}

func (c *Client) stopHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
}

// Close says goodbye and drops the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.stopHeartbeat()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, rerr := c.Request(ctx, protocol.DisconnectRequest, ""); rerr != nil && !errors.Is(rerr, ErrClosed) {
			c.log.Debug("disconnect not acknowledged", logger.Err(rerr))
		}
		err = c.conn.Close()
		<-c.done
	})
	return err
}

// Err returns the error that ended the read loop, if any.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.readErr
	default:
		return nil
	}
}
