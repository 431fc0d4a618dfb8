package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerConfig holds the HTTP and websocket settings.
type ServerConfig struct {
	// Address is the listen address. Default: ":8080".
	Address string

	// Timeouts

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// ShutdownTimeout bounds graceful shutdown. Default: 15 seconds.
	ShutdownTimeout time.Duration

	// Shop

	// PageSize is the product listing page size. Default: 12.
	PageSize int

	// MaxPageSize caps the pageSize query parameter. Default: 100.
	MaxPageSize int

	// MaxStates caps the number of shopper state containers held in
	// memory. The oldest is dropped first; its data stays in the store.
	// Default: 10000.
	MaxStates int

	// MaxBodySize limits JSON request bodies. Default: 64KB.
	MaxBodySize int64

	// WebSocket

	// AllowedOrigins lists the origins allowed to open a websocket. Empty
	// means same-origin only; "*" allows any origin.
	AllowedOrigins []string

	// PingInterval is the time between heartbeat pings. Default: 30 seconds.
	PingInterval time.Duration

	// PongWait is how long a connection may stay silent. Must exceed
	// PingInterval. Default: 60 seconds.
	PongWait time.Duration

	// WriteWait bounds a single websocket write. Default: 10 seconds.
	WriteWait time.Duration

	// MaxMessageSize is the largest client message accepted. Default: 16KB.
	MaxMessageSize int64

	// SendBuffer is the per-session outbound queue length. A session whose
	// queue overflows is closed. Default: 64.
	SendBuffer int

	// Observability

	// Logger receives server logs. Default: slog.Default().
	Logger *slog.Logger

	// Registry backs the /metrics endpoint. Nil disables /metrics; the
	// collectors are still kept in a private registry.
	Registry *prometheus.Registry

	// MetricsNamespace prefixes metric names. Default: "storefront".
	MetricsNamespace string

	// Tracing wraps every request except probes in an OpenTelemetry span.
	Tracing bool
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		PageSize:          12,
		MaxPageSize:       100,
		MaxStates:         10000,
		MaxBodySize:       64 * 1024,
		PingInterval:      30 * time.Second,
		PongWait:          60 * time.Second,
		WriteWait:         10 * time.Second,
		MaxMessageSize:    16 * 1024,
		SendBuffer:        64,
		MetricsNamespace:  "storefront",
	}
}

// Clone returns a copy of the ServerConfig.
func (c *ServerConfig) Clone() *ServerConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.AllowedOrigins = slices.Clone(c.AllowedOrigins)
	return &clone
}

// withDefaults fills zero fields from DefaultServerConfig.
func (c *ServerConfig) withDefaults() *ServerConfig {
	out := c.Clone()
	if out == nil {
		out = DefaultServerConfig()
	}
	d := DefaultServerConfig()
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.PageSize <= 0 {
		out.PageSize = d.PageSize
	}
	if out.MaxPageSize <= 0 {
		out.MaxPageSize = d.MaxPageSize
	}
	if out.MaxStates <= 0 {
		out.MaxStates = d.MaxStates
	}
	if out.MaxBodySize <= 0 {
		out.MaxBodySize = d.MaxBodySize
	}
	if out.PingInterval <= 0 {
		out.PingInterval = d.PingInterval
	}
	if out.PongWait <= out.PingInterval {
		out.PongWait = 2 * out.PingInterval
	}
	if out.WriteWait <= 0 {
		out.WriteWait = d.WriteWait
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.SendBuffer <= 0 {
		out.SendBuffer = d.SendBuffer
	}
	if out.MetricsNamespace == "" {
		out.MetricsNamespace = d.MetricsNamespace
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// checkOrigin validates the Origin header of a websocket upgrade.
func (c *ServerConfig) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(c.AllowedOrigins) == 0 {
		return sameOrigin(origin, r.Host)
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

func sameOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
