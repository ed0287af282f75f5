// Package app wires every server component together and runs them in
// dependency order.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"lingualink/internal/cache"
	"lingualink/internal/call"
	"lingualink/internal/config"
	"lingualink/internal/controller"
	"lingualink/internal/database"
	"lingualink/internal/discovery"
	"lingualink/internal/game"
	"lingualink/internal/gateway"
	"lingualink/internal/logger"
	"lingualink/internal/middleware"
	"lingualink/internal/registry"
	"lingualink/internal/repository"
	"lingualink/internal/router"
	"lingualink/internal/scheduler"
	"lingualink/internal/server"
	"lingualink/internal/session"
	dbconfig "lingualink/pkg/database"
)

// Version is advertised over mDNS and logged at startup.
const Version = "1.0.0"

// Option adjusts an Application before it is built.
type Option func(*options)

type options struct {
	tcpAddr     string
	gatewayAddr string
}

// WithTCPAddr overrides the listen address derived from the config, e.g.
// "127.0.0.1:0" in tests.
func WithTCPAddr(addr string) Option {
	return func(o *options) { o.tcpAddr = addr }
}

func WithGatewayAddr(addr string) Option {
	return func(o *options) { o.gatewayAddr = addr }
}

// Application owns the long-lived components.
type Application struct {
	config *config.Config
	opts   options
	log    logger.Logger
	// id names this process in /stats and the mDNS TXT record.
	id     uuid.UUID

	db          *database.Manager
	redis       *redis.Client
	repos       *repository.Repositories
	sessions    *session.Manager
	registry    *registry.Registry
	calls       *call.Manager
	controllers *controller.Controllers
	router      *router.Router
	throttle    *middleware.LoginThrottle
	server      *server.Server
	scheduler   *scheduler.Scheduler
	gateway     *gateway.Gateway
	advertiser  *discovery.Advertiser
}

// New builds the component graph. Order:
// database -> cache/repositories -> sessions -> registry -> calls ->
// controllers -> router -> TCP server -> scheduler -> gateway -> discovery.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	id := uuid.New()
	app := &Application{config: cfg, id: id, log: log.With(logger.Component("app"), logger.String("server_id", id.String()))}
	for _, o := range opts {
		o(&app.opts)
	}
	if app.opts.tcpAddr == "" {
		app.opts.tcpAddr = cfg.Addr()
	}
	if app.opts.gatewayAddr == "" {
		app.opts.gatewayAddr = net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	}

	// STEP 1: database and schema
	db, err := database.NewManager(databaseConfig(cfg.Database), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db
	if err := db.Migrate(cfg.Database.Seed); err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	// STEP 2: content cache and repositories
	cacheOpts := cache.Options{Backend: cfg.Cache.Backend, TTL: cfg.Cache.TTL, Prefix: cfg.Cache.Prefix}
	if cfg.Cache.Backend == config.CacheRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisAddr)
		cancel()
		if err != nil {
			app.closeStores()
			return nil, err
		}
		app.redis = client
		cacheOpts.Redis = client
	}
	repos, err := repository.New(db, cacheOpts)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	app.repos = repos

	// STEP 3: sessions; no session survives a restart
	var mirror = repos.Sessions
	if !cfg.Session.Mirror {
		mirror = nil
	}
	app.sessions = session.NewManager(cfg.Session.HeartbeatTTL, mirror, log)
	if err := app.sessions.ClearMirror(context.Background()); err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to clear session mirror: %w", err)
	}

	// STEP 4: connection registry and call signaling
	app.registry = registry.New(log)
	app.calls = call.NewManager(cfg.Call.Timeout)

	// STEP 5: controllers and the dispatch chain
	app.controllers = controller.New(controller.Deps{
		Repos:          repos,
		Sessions:       app.sessions,
		Registry:       app.registry,
		Calls:          app.calls,
		Images:         game.NewInliner(cfg.Game.ImageDir, log),
		PasswordPolicy: cfg.Auth.PasswordPolicy,
		Logger:         log,
	})
	app.throttle = middleware.NewLoginThrottle(cfg.Auth.LoginAttempts, cfg.Auth.LoginWindow)
	app.router = router.New(app.sessions, log)
	app.router.Use(
		middleware.NewLogging(log),
		app.throttle,
		middleware.NewAuthGate(),
		middleware.NewRoleGate(nil),
	)
	if err := app.controllers.Register(app.router); err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	// STEP 6: TCP server
	app.server = server.New(server.Options{
		ReadBuffer:   cfg.Server.ReadBuffer,
		MaxFrame:     cfg.Server.MaxFrame,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, app.router, app.registry, app.connectionClosed, log)

	// STEP 7: background sweeps
	app.scheduler = scheduler.New(cfg.Server.Tick, log,
		scheduler.Task{Name: "session-sweep", Run: app.sweepSessions},
		scheduler.Task{Name: "call-timeouts", Run: app.controllers.CallTimeouts},
		scheduler.Task{Name: "login-throttle", Run: func(context.Context) { app.throttle.Cleanup() }},
	)

	// STEP 8: optional side surfaces
	if cfg.Gateway.Enabled {
		app.gateway = gateway.New(gateway.Config{
			Addr:         app.opts.gatewayAddr,
			ReadTimeout:  cfg.Gateway.ReadTimeout,
			WriteTimeout: cfg.Gateway.WriteTimeout,
			Pipeline:     app.server.Pipeline(),
			Registry:     app.registry,
			NextID:       app.server.NextID,
			OnClose:      app.connectionClosed,
			DB:           db,
			Stats:        app.stats,
			Logger:       log,
		})
	}
	if cfg.Discovery.Enabled {
		app.advertiser = discovery.NewAdvertiser(log)
	}

	return app, nil
}

// Start opens the listeners and the background loops. On failure every
// part already started is stopped again.
func (app *Application) Start(ctx context.Context) error {
	app.log.Info("starting lingualink", logger.String("version", Version), logger.String("addr", app.opts.tcpAddr))

	if err := app.server.Start(ctx, app.opts.tcpAddr); err != nil {
		return fmt.Errorf("failed to start tcp server: %w", err)
	}
	if err := app.scheduler.Start(ctx); err != nil {
		_ = app.server.Stop()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	if app.gateway != nil {
		if err := app.gateway.Start(ctx); err != nil {
			_ = app.scheduler.Stop()
			_ = app.server.Stop()
			return fmt.Errorf("failed to start gateway: %w", err)
		}
	}
	if app.advertiser != nil {
		if err := app.advertiser.Start(app.discoveryInfo()); err != nil {
			// LAN discovery is a convenience; the server stays up without it.
			app.log.Warn("mdns advertisement failed", logger.Err(err))
		}
	}

	select {
	case <-ctx.Done():
		_ = app.Stop(context.Background())
		return ctx.Err()
	default:
	}
	app.log.Info("lingualink started")
	return nil
}

// Stop shuts down in reverse order. Errors are logged and the first one
// returned; shutdown always runs to the end.
func (app *Application) Stop(ctx context.Context) error {
	app.log.Info("shutting down")
	var errs []error

	if app.advertiser != nil {
		app.advertiser.Stop()
	}
	if app.gateway != nil {
		if err := app.gateway.Stop(ctx); err != nil && !errors.Is(err, gateway.ErrNotRunning) {
			app.log.Error("gateway shutdown failed", logger.Err(err))
			errs = append(errs, err)
		}
	}
	if err := app.server.Stop(); err != nil && !errors.Is(err, server.ErrNotRunning) {
		app.log.Error("tcp server shutdown failed", logger.Err(err))
		errs = append(errs, err)
	}
	if err := app.scheduler.Stop(); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		app.log.Error("scheduler shutdown failed", logger.Err(err))
		errs = append(errs, err)
	}
	if err := app.sessions.ClearMirror(ctx); err != nil {
		app.log.Warn("failed to clear session mirror", logger.Err(err))
	}
	if err := app.closeStores(); err != nil {
		errs = append(errs, err)
	}

	app.log.Info("shutdown complete")
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Addr is the bound TCP address, nil before Start.
func (app *Application) Addr() net.Addr { return app.server.Addr() }

// GatewayAddr is the bound HTTP address, nil when the gateway is disabled.
func (app *Application) GatewayAddr() net.Addr {
	if app.gateway == nil {
		return nil
	}
	return app.gateway.Addr()
}

func (app *Application) Config() *config.Config { return app.config }

// ID is unique per process.
func (app *Application) ID() uuid.UUID { return app.id }

func (app *Application) connectionClosed(ctx context.Context, connID uint32) {
	app.throttle.Forget(connID)
	app.controllers.ConnectionClosed(ctx, connID)
}

func (app *Application) sweepSessions(ctx context.Context) {
	if expired := app.sessions.SweepExpired(ctx); len(expired) > 0 {
		app.controllers.SessionsExpired(ctx, expired)
	}
}

func (app *Application) stats() gateway.Stats {
	reg := app.registry.Stats()
	calls := app.calls.Stats()
	return gateway.Stats{
		ServerID:     app.id.String(),
		Sessions:     app.sessions.Count(),
		Connections:  reg.Connections,
		OnlineUsers:  reg.Users,
		PendingCalls: calls.Pending,
		ActiveCalls:  calls.Active,
	}
}

func (app *Application) discoveryInfo() discovery.Info {
	info := discovery.Info{
		Instance: app.config.Discovery.Instance,
		Service:  app.config.Discovery.Service,
		Port:     app.config.Server.Port,
		Version:  Version,
		ServerID: app.id.String(),
	}
	if tcp, ok := app.server.Addr().(*net.TCPAddr); ok {
		info.Port = tcp.Port
	}
	if app.gateway != nil {
		if tcp, ok := app.gateway.Addr().(*net.TCPAddr); ok {
			info.GatewayPort = tcp.Port
		}
	}
	return info
}

func (app *Application) closeStores() error {
	var first error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.log.Warn("redis close failed", logger.Err(err))
		}
		app.redis = nil
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.log.Error("database close failed", logger.Err(err))
			first = err
		}
		app.db = nil
	}
	return first
}

func databaseConfig(c *config.DatabaseConfig) *dbconfig.Config {
	out := dbconfig.DefaultConfig()
	out.Driver = c.Driver
	out.DatabasePath = c.Path
	out.Host = c.Host
	out.Port = c.Port
	out.Name = c.Name
	out.User = c.User
	out.Password = c.Password
	out.SSLMode = c.SSLMode
	out.MaxConnections = c.MaxConnections
	out.ConnMaxLifetime = c.Timeout
	out.ConnMaxIdleTime = c.Timeout / 3
	out.WriteRetryDelay = c.WriteRetryDelay
	return out
}
