// Package httpserver provides the HTTP REST API server for the
// reconciliation service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/bibfuse/reconciliation-service/internal/catalog"
	"github.com/bibfuse/reconciliation-service/internal/matcher"
	"github.com/bibfuse/reconciliation-service/internal/observability"
	"github.com/bibfuse/reconciliation-service/internal/reconcile"
)

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	runner         *reconcile.Runner
	catalogs       *catalog.Registry
	matcherCfg     matcher.Config
	defaultCatalog string
	metrics        *observability.Metrics
	validate       *validator.Validate
	logger         zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
// defaultCatalog names the catalog match runs use when the request does not
// pick one; metrics may be nil.
func NewServer(
	cfg Config,
	runner *reconcile.Runner,
	catalogs *catalog.Registry,
	matcherCfg matcher.Config,
	defaultCatalog string,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		runner:         runner,
		catalogs:       catalogs,
		matcherCfg:     matcherCfg,
		defaultCatalog: defaultCatalog,
		metrics:        metrics,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		logger:         logger.With().Str("component", "http-server").Logger(),
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

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestContextMiddleware)
	r.Use(requestLogger(s.logger))

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)
		r.Post("/reconciliation-runs", s.startReconciliationRun)
		r.Post("/match-runs", s.startMatchRun)
	})

	return r
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

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness. Reconciliation runs carry their own
// candidates, so readiness only degrades when match runs have no catalog
// to query.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	enabled := s.catalogs.Enabled()
	names := make([]string, 0, len(enabled))
	for _, c := range enabled {
		names = append(names, c.Name())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"catalogs": names,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
