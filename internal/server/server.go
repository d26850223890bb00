package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/api"
	"github.com/ethpandaops/topicnav/internal/config"
	"github.com/ethpandaops/topicnav/internal/handlers"
	"github.com/ethpandaops/topicnav/internal/middleware"
	"github.com/ethpandaops/topicnav/internal/ratelimit"
	"github.com/ethpandaops/topicnav/internal/session"
)

// Dependencies are the services the HTTP routes are served from.
type Dependencies struct {
	Catalog  api.Catalog
	Sessions session.Manager
	// Limiter is nil when rate limiting is disabled.
	Limiter ratelimit.Service
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	logger     logrus.FieldLogger
}

// New creates a new HTTP server with all routes and middleware.
func New(logger logrus.FieldLogger, cfg *config.Config, deps Dependencies) *Server {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           NewHandler(logger, cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		logger:     logger,
	}
}

// NewHandler builds the routed handler wrapped in the middleware chain.
func NewHandler(logger logrus.FieldLogger, cfg *config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, h)
		logger.WithField("route", pattern).Info("Registered route")
	}

	handle("GET /health", handlers.Health(deps.Sessions))
	handle("GET /metrics", promhttp.Handler())

	handle("GET /api/v1/topics", api.NewTopicsHandler(deps.Catalog, logger))

	sessions := api.NewSessionsHandler(deps.Sessions, logger)
	handle("POST /api/v1/sessions", http.HandlerFunc(sessions.Create))
	handle("GET /api/v1/sessions/{id}", http.HandlerFunc(sessions.Get))
	handle("DELETE /api/v1/sessions/{id}", http.HandlerFunc(sessions.Delete))
	handle("POST /api/v1/sessions/{id}/seek", http.HandlerFunc(sessions.Seek))
	handle("PUT /api/v1/sessions/{id}/selection/{topic...}", http.HandlerFunc(sessions.Selection))
	handle("POST /api/v1/sessions/{id}/next/{topic...}", http.HandlerFunc(sessions.Next))
	handle("POST /api/v1/sessions/{id}/previous/{topic...}", http.HandlerFunc(sessions.Previous))
	handle("GET /api/v1/sessions/{id}/state/{topic...}", http.HandlerFunc(sessions.State))

	// Apply middleware chain: Logging → Metrics → CORS → RateLimit → Recovery
	var handler http.Handler = mux

	if cfg.RateLimiting.Enabled && deps.Limiter != nil {
		handler = middleware.RateLimit(logger, cfg.RateLimiting, deps.Limiter)(handler)
	}

	handler = middleware.Logging(logger)(handler)
	handler = middleware.Metrics()(handler)
	handler = middleware.CORS()(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}

// Start starts the HTTP server (blocking call).
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	return s.httpServer.Shutdown(ctx)
}
