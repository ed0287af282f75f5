package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"lingualink/internal/app"
	"lingualink/internal/config"
	"lingualink/internal/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "server:", err)
		}
		os.Exit(1)
	}
}

// options are the command line overrides applied over the loaded config.
type options struct {
	configPath  string
	logLevel    string
	logFormat   string
	dbPath      string
	gatewayPort int
	noGateway   bool
	advertise   bool
	port        int
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: server [flags] [port]")
		fs.PrintDefaults()
	}

	var o options
	fs.StringVarP(&o.configPath, "config", "c", os.Getenv("LINGUA_CONFIG_FILE"), "JSON config file")
	fs.StringVarP(&o.logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	fs.StringVar(&o.logFormat, "log-format", "", "log format (json, console)")
	fs.StringVar(&o.dbPath, "db", "", "sqlite database file")
	fs.IntVar(&o.gatewayPort, "gateway-port", 0, "HTTP gateway port")
	fs.BoolVar(&o.noGateway, "no-gateway", false, "disable the HTTP gateway")
	fs.BoolVar(&o.advertise, "advertise", false, "advertise the server over mDNS")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		p, err := strconv.Atoi(fs.Arg(0))
		if err != nil || p < 1 || p > 65535 {
			return o, fmt.Errorf("invalid port %q", fs.Arg(0))
		}
		o.port = p
	default:
		fs.Usage()
		return o, fmt.Errorf("too many arguments")
	}
	return o, nil
}

func (o options) apply(cfg *config.Config) {
	if o.port != 0 {
		cfg.Server.Port = o.port
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.gatewayPort != 0 {
		cfg.Gateway.Port = o.gatewayPort
	}
	if o.noGateway {
		cfg.Gateway.Enabled = false
	}
	if o.advertise {
		cfg.Discovery.Enabled = true
	}
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}

	// file > env > defaults, then flags
	cfg, err := config.LoadConfigWithPrecedence(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log := logger.New(stdout, "lingualink", level, cfg.Log.Format)

	application, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Start(ctx); err != nil {
		_ = application.Stop(context.Background())
		return err
	}

	<-ctx.Done()
	log.Info("received signal, shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := application.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
