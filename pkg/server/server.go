package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/kvstore"
	"github.com/vango-dev/storefront/pkg/middleware"
)

// Server serves the storefront API and the websocket navigation endpoint.
type Server struct {
	config   *ServerConfig
	catalog  catalog.Catalog
	store    kvstore.Store
	states   *stateCache
	sessions *SessionManager
	metrics  *middleware.Metrics
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a server over cat with shopper state kept in store.
// A nil config uses DefaultServerConfig.
func New(config *ServerConfig, cat catalog.Catalog, store kvstore.Store) *Server {
	config = config.withDefaults()
	logger := config.Logger.With("component", "server")

	var reg prometheus.Registerer = prometheus.NewRegistry()
	if config.Registry != nil {
		reg = config.Registry
	}

	s := &Server{
		config:   config,
		catalog:  cat,
		store:    store,
		sessions: NewSessionManager(logger),
		metrics:  middleware.NewMetrics(middleware.WithRegistry(reg), middleware.WithNamespace(config.MetricsNamespace)),
		logger:   logger,
	}
	s.states = newStateCache(store, cat, config.MaxStates, logger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     config.checkOrigin,
		Error:           s.upgradeError,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(s.metrics.Middleware)
	if s.config.Tracing {
		r.Use(middleware.OTel(middleware.WithRequestFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
		})))
	}

	r.Get("/healthz", s.handleHealth)
	if s.config.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{}))
	}
	r.Get("/ws", s.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/nav/resolve", s.handleResolve)
		r.Get("/nav/encode", s.handleEncode)

		r.Get("/products", s.handleProducts)
		r.Get("/products/{id}", s.handleProduct)
		r.Get("/facets", s.handleFacets)

		r.Route("/state", func(r chi.Router) {
			r.Get("/", s.handleGetState)
			r.Post("/cart", s.handleAddToCart)
			r.Patch("/cart", s.handleUpdateQuantity)
			r.Delete("/cart", s.handleClearCart)
			r.Delete("/cart/{id}", s.handleRemoveFromCart)
			r.Post("/wishlist/{id}", s.handleToggleWishlist)
			r.Put("/theme", s.handleSetTheme)
			r.Post("/theme/toggle", s.handleToggleTheme)
		})
	})
	return r
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every websocket session and then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.sessions.Shutdown()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the websocket session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *middleware.Metrics {
	return s.metrics
}

// Config returns the effective configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}
