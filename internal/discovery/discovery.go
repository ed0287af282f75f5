// Package discovery advertises the server on the local network over mDNS
// and lets clients find it without a configured host.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"lingualink/internal/logger"
)

const (
	Domain         = "local."
	DefaultService = "_lingualink._tcp"
)

var (
	ErrAlreadyAdvertising = errors.New("already advertising")
	ErrNoServer           = errors.New("no server found")
)

// Info is what gets published in the TXT record.
type Info struct {
	Instance    string
	Service     string
	Port        int
	GatewayPort int
	Version     string
	// ServerID tells apart processes that share an instance name.
	ServerID    string
}

// Validate checks the fields mDNS registration needs.
func (i Info) Validate() error {
	if strings.TrimSpace(i.Instance) == "" {
		return fmt.Errorf("instance name is required")
	}
	if !strings.HasPrefix(i.Service, "_") || !strings.Contains(i.Service, "._tcp") {
		return fmt.Errorf("service %q must look like _name._tcp", i.Service)
	}
	if i.Port < 1 || i.Port > 65535 {
		return fmt.Errorf("port %d out of range", i.Port)
	}
	return nil
}

// TXT renders the record as key=value pairs.
func (i Info) TXT() []string {
	txt := []string{"proto=lingualink"}
	if i.Version != "" {
		txt = append(txt, "version="+i.Version)
	}
	if i.GatewayPort > 0 {
		txt = append(txt, "gateway="+strconv.Itoa(i.GatewayPort))
	}
	if i.ServerID != "" {
		txt = append(txt, "id="+i.ServerID)
	}
	return txt
}

type Advertiser struct {
	log logger.Logger

	mu     sync.Mutex
	server *zeroconf.Server
}

func NewAdvertiser(log logger.Logger) *Advertiser {
	if log == nil {
		log = logger.Nop()
	}
	return &Advertiser{log: log.With(logger.Component("discovery"))}
}

func (a *Advertiser) Start(info Info) error {
	if err := info.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return ErrAlreadyAdvertising
	}
	srv, err := zeroconf.Register(info.Instance, info.Service, Domain, info.Port, info.TXT(), nil)
	if err != nil {
		return fmt.Errorf("failed to register mdns service: %w", err)
	}
	a.server = srv
	a.log.Info("advertising", logger.String("instance", info.Instance),
		logger.String("service", info.Service), logger.Int("port", info.Port))
	return nil
}

// Stop withdraws the record. Safe to call when not advertising.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.log.Info("advertising stopped")
}

// Endpoint is one discovered server.
type Endpoint struct {
	Instance string
	Host     string
	Port     int
	TXT      map[string]string
}

func (e Endpoint) Addr() string { return net.JoinHostPort(e.Host, strconv.Itoa(e.Port)) }

// Browse collects servers answering for service until timeout elapses or
// ctx ends. Results are sorted by instance name.
func Browse(ctx context.Context, service string, timeout time.Duration) ([]Endpoint, error) {
	if service == "" {
		service = DefaultService
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, service, Domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse: %w", err)
	}

	var out []Endpoint
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return sortEndpoints(out), nil
			}
			if ep, ok := toEndpoint(entry); ok {
				out = append(out, ep)
			}
		case <-ctx.Done():
			return sortEndpoints(out), nil
		}
	}
}

func sortEndpoints(out []Endpoint) []Endpoint {
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}

// First returns the first server found by Browse.
func First(ctx context.Context, service string, timeout time.Duration) (Endpoint, error) {
	eps, err := Browse(ctx, service, timeout)
	if err != nil {
		return Endpoint{}, err
	}
	if len(eps) == 0 {
		return Endpoint{}, ErrNoServer
	}
	return eps[0], nil
}

func toEndpoint(e *zeroconf.ServiceEntry) (Endpoint, bool) {
	if e == nil {
		return Endpoint{}, false
	}
	var host string
	switch {
	case len(e.AddrIPv4) > 0:
		host = e.AddrIPv4[0].String()
	case len(e.AddrIPv6) > 0:
		host = e.AddrIPv6[0].String()
	case e.HostName != "":
		host = strings.TrimSuffix(e.HostName, ".")
	default:
		return Endpoint{}, false
	}
	return Endpoint{Instance: e.Instance, Host: host, Port: e.Port, TXT: parseTXT(e.Text)}, true
}

func parseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		if k != "" {
			out[k] = v
		}
	}
	return out
}
