package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"lingualink/internal/client"
	"lingualink/internal/discovery"
	"lingualink/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "client:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	host      string
	port      int
	discover  bool
	service   string
	verbose   bool
	heartbeat time.Duration
	store     string
	logLevel  string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := pflag.NewFlagSet("client", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: client [flags] [host [port]]")
		fs.PrintDefaults()
	}

	o := options{host: "127.0.0.1", port: 8080}
	fs.BoolVarP(&o.discover, "discover", "d", false, "find the server on the local network over mDNS")
	fs.StringVar(&o.service, "service", discovery.DefaultService, "mDNS service to browse")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "dump every frame to stderr")
	fs.DurationVar(&o.heartbeat, "heartbeat", 10*time.Second, "heartbeat interval, a third of the server session TTL")
	fs.StringVar(&o.store, "store", defaultStorePath(), "local profile store")
	fs.StringVarP(&o.logLevel, "log-level", "l", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if fs.NArg() > 2 {
		fs.Usage()
		return o, fmt.Errorf("too many arguments")
	}
	if fs.NArg() >= 1 {
		o.host = fs.Arg(0)
	}
	if fs.NArg() == 2 {
		p, err := strconv.Atoi(fs.Arg(1))
		if err != nil || p < 1 || p > 65535 {
			return o, fmt.Errorf("invalid port %q", fs.Arg(1))
		}
		o.port = p
	}
	return o, nil
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "lingualink-client.db"
	}
	return filepath.Join(dir, "lingualink", "client.db")
}

func run(args []string) error {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	log := logger.New(os.Stderr, "lingualink-client", level, "console")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	addr := net.JoinHostPort(opts.host, strconv.Itoa(opts.port))
	if opts.discover {
		ep, err := discovery.First(ctx, opts.service, 3*time.Second)
		if err != nil {
			return fmt.Errorf("discovery: %w", err)
		}
		addr = ep.Addr()
		fmt.Printf("Found %s at %s\n", ep.Instance, addr)
	}

	var dump *client.Dumper
	if opts.verbose {
		dump = client.NewDumper(os.Stderr)
	}
	c, err := client.Dial(ctx, client.Options{
		Addr:      addr,
		Heartbeat: opts.heartbeat,
		Dump:      dump,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	var store *client.Store
	if err := os.MkdirAll(filepath.Dir(opts.store), 0o700); err == nil {
		if store, err = client.OpenStore(opts.store); err != nil {
			log.Warn("profile store unavailable", logger.Err(err))
			store = nil
		}
	}
	if store != nil {
		defer store.Close()
	}

	fmt.Printf("Connected to %s\n", addr)
	ui := client.NewUI(c, store, addr, os.Stdin, os.Stdout)
	if err := ui.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("Goodbye.")
	return nil
}
