// Package web provides the HTTP API for parsing broker statements.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/brokerstatements/internal/config"
	"github.com/JonMunkholm/brokerstatements/internal/core"
	"github.com/JonMunkholm/brokerstatements/internal/metrics"
	"github.com/JonMunkholm/brokerstatements/internal/registry"
	weblog "github.com/JonMunkholm/brokerstatements/internal/web/middleware"
)

// Pinger reports whether the registry database is reachable.
// *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Registrar registry.Registrar
	Limiter   *core.ParseLimiter
	Metrics   *metrics.Metrics
	// DB is nil when the registry lives in memory.
	DB Pinger
}

// Server is the HTTP server of the statement API.
type Server struct {
	cfg       *config.Config
	registrar registry.Registrar
	limiter   *core.ParseLimiter
	metrics   *metrics.Metrics
	db        Pinger

	router *chi.Mux
	server *http.Server
}

// NewServer creates a new Server instance. A nil Limiter or Metrics is
// replaced by one built from cfg.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Limiter == nil {
		deps.Limiter = core.NewParseLimiter(cfg.Parse.MaxConcurrent, cfg.Parse.MaxWaitTime)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	s := &Server{
		cfg:       cfg,
		registrar: deps.Registrar,
		limiter:   deps.Limiter,
		metrics:   deps.Metrics,
		db:        deps.DB,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(weblog.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(weblog.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/formats", s.handleListFormats)

		// Statement parsing, detected or by format key
		r.Post("/statements", s.handleParseStatement)
		r.Post("/statements/{format}", s.handleParseStatement)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for parses in flight.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// healthTimeout bounds the database ping of /healthz.
const healthTimeout = 2 * time.Second
