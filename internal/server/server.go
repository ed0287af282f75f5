// Package server runs the TCP listener: one reader goroutine per
// connection feeding a frame pipeline, with replies written synchronously
// under the connection's write lock.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"lingualink/internal/logger"
	"lingualink/internal/registry"
)

// Options are the per-connection I/O limits.
type Options struct {
	ReadBuffer   int
	MaxFrame     int
	WriteTimeout time.Duration
}

// CloseFunc is called once for every connection after it is closed.
type CloseFunc func(ctx context.Context, connID uint32)

type Server struct {
	opts     Options
	pipeline *Pipeline
	registry *registry.Registry
	onClose  CloseFunc
	log      logger.Logger

	ids atomic.Uint32

	mu       sync.Mutex
	listener net.Listener
	running  bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

func New(opts Options, d Dispatcher, reg *registry.Registry, onClose CloseFunc, log logger.Logger) *Server {
	if opts.ReadBuffer <= 0 {
		opts.ReadBuffer = 4096
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("server"))
	return &Server{
		opts:     opts,
		pipeline: NewPipeline(d, opts.MaxFrame, log),
		registry: reg,
		onClose:  onClose,
		log:      log,
	}
}

// NextID allocates a connection id. Ids are unique across every
// transport that shares this server's allocator.
func (s *Server) NextID() uint32 { return s.ids.Add(1) }

// Pipeline exposes the frame pipeline so other transports dispatch the
// same way.
func (s *Server) Pipeline() *Pipeline { return s.pipeline }

// Start binds addr and serves in the background until Stop or ctx ends.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.running = true
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.acceptLoop(ctx, ln, s.stop)
	s.log.Info("listening", logger.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every live connection and waits for the
// reader goroutines to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	close(s.stop)
	err := s.listener.Close()
	s.mu.Unlock()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	s.registry.CloseAll()
	s.wg.Wait()
	s.log.Info("server stopped")
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, stop <-chan struct{}) {
	defer s.wg.Done()
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			s.log.Error("accept failed", logger.Err(err))
			return
		}

		c := newConn(s.NextID(), nc, s.opts.WriteTimeout)
		if err := s.registry.Add(c); err != nil {
			s.log.Error("register connection failed", logger.Uint32("conn_id", c.ID()), logger.Err(err))
			_ = c.Close()
			continue
		}
		s.log.Info("connection accepted",
			logger.Uint32("conn_id", c.ID()), logger.String("remote", nc.RemoteAddr().String()))

		s.wg.Add(1)
		go s.serveConn(ctx, c)
	}
}

// serveConn reads until EOF, a read error or a close request. Frames are
// handled to completion in arrival order.
func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer s.wg.Done()
	defer s.release(c)

	chunk := make([]byte, s.opts.ReadBuffer)
	var buf []byte
	for {
		n, err := c.nc.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			var closeNow bool
			if buf, closeNow = s.pipeline.Drain(ctx, c, buf); closeNow {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.Closed() {
				s.log.Debug("read failed", logger.Uint32("conn_id", c.ID()), logger.Err(err))
			}
			return
		}
	}
}

func (s *Server) release(c *Conn) {
	_ = c.Close()
	if s.onClose != nil {
		s.onClose(context.Background(), c.ID())
	} else {
		s.registry.Remove(c.ID())
	}
	s.log.Info("connection closed", logger.Uint32("conn_id", c.ID()))
}
