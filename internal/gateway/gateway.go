// Package gateway is the side HTTP surface of the server: a health probe,
// live counters and a websocket transport that feeds binary frames into
// the same router as the TCP listener.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/server"
)

const (
	defaultShutdownDeadline = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	pingInterval            = 30 * time.Second
	pongWait                = 60 * time.Second
)

// Pinger reports storage health.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Stats is the /stats body.
type Stats struct {
	ServerID     string `json:"server_id"`
	Sessions     int    `json:"sessions"`
	Connections  int    `json:"connections"`
	OnlineUsers  int    `json:"online_users"`
	PendingCalls int    `json:"pending_calls"`
	ActiveCalls  int    `json:"active_calls"`
	Uptime       string `json:"uptime"`
}

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Pipeline *server.Pipeline
	Registry *registry.Registry
	NextID   func() uint32
	OnClose  server.CloseFunc
	DB       Pinger
	Stats    func() Stats
	Logger   logger.Logger
}

type Gateway struct {
	cfg      Config
	router   *mux.Router
	upgrader websocket.Upgrader
	log      logger.Logger
	started  time.Time

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	live     map[uint32]*wsConn
	conns    sync.WaitGroup
}

func New(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	g := &Gateway{
		cfg: cfg,
		log: cfg.Logger.With(logger.Component("gateway")),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		started: time.Now(),
		live:    make(map[uint32]*wsConn),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", g.health).Methods(http.MethodGet)
	r.HandleFunc("/stats", g.stats).Methods(http.MethodGet)
	r.HandleFunc("/ws", g.serveWS)
	r.Use(g.cors)
	g.router = r
	return g
}

// Handler exposes the routes for embedding or httptest.
func (g *Gateway) Handler() http.Handler { return g.router }

func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.srv != nil {
		return ErrAlreadyRunning
	}
	ln, err := net.Listen("tcp", g.cfg.Addr)
	if err != nil {
		return err
	}
	g.listener = ln
	g.srv = &http.Server{
		Handler:      g.router,
		ReadTimeout:  g.cfg.ReadTimeout,
		WriteTimeout: g.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	srv := g.srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("gateway serve failed", logger.Err(err))
		}
	}()
	g.log.Info("gateway listening", logger.String("addr", ln.Addr().String()))
	return nil
}

func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Stop shuts the HTTP server down, closes upgraded connections, which
// Shutdown does not track, and waits for their readers.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	srv := g.srv
	g.srv = nil
	g.mu.Unlock()
	if srv == nil {
		return ErrNotRunning
	}

	shCtx, cancel := context.WithTimeout(ctx, defaultShutdownDeadline)
	defer cancel()
	err := srv.Shutdown(shCtx)

	g.mu.Lock()
	live := make([]*wsConn, 0, len(g.live))
	for _, c := range g.live {
		live = append(live, c)
	}
	g.mu.Unlock()
	for _, c := range live {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		g.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shCtx.Done():
		g.log.Warn("websocket readers still running at shutdown")
	}
	g.log.Info("gateway stopped")
	return err
}

func (g *Gateway) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	body := map[string]string{"status": "ok", "database": "ok"}
	code := http.StatusOK
	if g.cfg.DB != nil {
		if err := g.cfg.DB.HealthCheck(ctx); err != nil {
			body["status"] = "unavailable"
			body["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, body)
}

func (g *Gateway) stats(w http.ResponseWriter, _ *http.Request) {
	var s Stats
	if g.cfg.Stats != nil {
		s = g.cfg.Stats()
	}
	s.Uptime = time.Since(g.started).Round(time.Second).String()
	writeJSON(w, http.StatusOK, s)
}

func (g *Gateway) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", logger.Err(err))
		return
	}
	c := &wsConn{id: g.cfg.NextID(), ws: ws, writeTimeout: g.cfg.WriteTimeout}
	if err := g.cfg.Registry.Add(c); err != nil {
		g.log.Error("register websocket failed", logger.Uint32("conn_id", c.ID()), logger.Err(err))
		_ = c.Close()
		return
	}
	g.mu.Lock()
	g.live[c.ID()] = c
	g.mu.Unlock()
	g.log.Info("websocket connected", logger.Uint32("conn_id", c.ID()), logger.String("remote", r.RemoteAddr))

	g.conns.Add(1)
	go g.readLoop(context.WithoutCancel(r.Context()), c)
}

// readLoop treats each message as more bytes of the frame stream, so a
// message may carry several frames or part of one.
func (g *Gateway) readLoop(ctx context.Context, c *wsConn) {
	defer g.conns.Done()
	defer g.release(c)

	c.ws.SetReadLimit(int64(g.cfg.Pipeline.MaxFrame() + protocol.HeaderSize))
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go g.keepAlive(c, stop)

	var buf []byte
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.closed.Load() {
				g.log.Debug("websocket read failed", logger.Uint32("conn_id", c.ID()), logger.Err(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		buf = append(buf, msg...)
		var closeNow bool
		if buf, closeNow = g.cfg.Pipeline.Drain(ctx, c, buf); closeNow {
			return
		}
	}
}

func (g *Gateway) keepAlive(c *wsConn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (g *Gateway) release(c *wsConn) {
	_ = c.Close()
	g.mu.Lock()
	delete(g.live, c.ID())
	g.mu.Unlock()
	if g.cfg.OnClose != nil {
		g.cfg.OnClose(context.Background(), c.ID())
	} else {
		g.cfg.Registry.Remove(c.ID())
	}
	g.log.Info("websocket closed", logger.Uint32("conn_id", c.ID()))
}

func (g *Gateway) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	_, _ = w.Write(b)
}
