// Package httpserver serves the research graph over HTTP: HTML pages,
// RDF serializations chosen by content negotiation, keyword search, a JSON
// API and a raw SPARQL endpoint.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/helixir/research-graph/internal/database"
	"github.com/helixir/research-graph/internal/observability"
	"github.com/helixir/research-graph/internal/query"
)

// HealthChecker reports the health of a backing database. It is nil when
// the graph was loaded from a file.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

var _ HealthChecker = (*database.DB)(nil)

// Server is the HTTP server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	queries    *query.Service
	pages      *pages
	limiter    *rate.Limiter
	health     HealthChecker
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RateLimit throttles /sparql and /api/sparql. A zero rate disables it.
	RequestsPerSecond float64
	Burst             int
}

// NewServer creates a new HTTP server over a loaded query service.
func NewServer(
	cfg Config,
	queries *query.Service,
	health HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		queries: queries,
		pages:   mustParsePages(),
		health:  health,
		metrics: metrics,
		logger:  logger.With().Str("component", "http-server").Logger(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.instrument)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Get("/", s.home)
	r.Get("/research/{type}/{id}", s.resource)
	r.Get("/papers", s.papers)
	r.Get("/authors", s.authors)
	r.Get("/authors/{id}/papers", s.authorPapers)
	r.Get("/authors/{id}/coauthors", s.coauthors)
	r.Get("/organizations", s.organizations)
	r.Get("/organizations/{id}/members", s.organizationMembers)
	r.Get("/search", s.search)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/sparql", s.sparql)
		r.Post("/sparql", s.sparql)
		r.Post("/api/sparql", s.apiSPARQL)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.apiSearch)
		r.Get("/resource", s.apiResource)
		r.Get("/stats", s.apiStats)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"triples": s.queries.Graph().Len(),
	}
	if s.health != nil {
		health := s.health.Health(r.Context())
		resp["database"] = health.Status
		if health.Status != "healthy" {
			resp["status"] = "unhealthy"
			resp["error"] = health.Error
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// readinessHandler reports ready once the graph is frozen and, when a
// database backs the graph, the database answers.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if !s.queries.Graph().Frozen() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "graph": "loading"})
		return
	}
	if s.health != nil {
		health := s.health.Health(r.Context())
		if health.Status != "healthy" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "not_ready",
				"database": health.Status,
				"error":    health.Error,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "graph": "loaded"})
}
