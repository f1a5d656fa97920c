// Package server assembles the HTTP surface: the admission pipeline wrapped
// around the chi router and the plumbing to start and stop the listener.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/config"
	"github.com/perchhub/perch/internal/docker"
	"github.com/perchhub/perch/internal/monitor"
	"github.com/perchhub/perch/internal/observability"
	"github.com/perchhub/perch/internal/response"
	"github.com/perchhub/perch/internal/server/handlers"
	"github.com/perchhub/perch/internal/server/middleware"
	"github.com/perchhub/perch/internal/token"
)

// Server is the agent's HTTP server.
type Server struct {
	cfg     config.Config
	logger  *zap.Logger
	router  chi.Router
	http    *http.Server
	limiter *middleware.RateLimiter
}

// New wires the admission pipeline and routes. Stage order is a contract:
// rate limiting sees every request including junk traffic, deception answers
// before the version guard can leak structure, and token auth runs last so
// rejected callers learn nothing about which stage refused them.
func New(
	cfg config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
	codec *token.Codec,
	mon *monitor.Monitor,
	dockerClient *docker.Client,
	info handlers.AgentInfo,
) *Server {
	r := chi.NewRouter()

	cors := middleware.NewCorsAnnotator(cfg.Security.SelfHostDomain, cfg.Security.AllowedOrigins)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Security.TrackerLifetime, logger, metrics)
	deceiver := middleware.NewDeceiver(middleware.NewRand(), logger, metrics)
	guard := middleware.NewVersionGuard(cfg.Security.MaxVersion, middleware.NewRand(), logger, metrics)
	auth := middleware.NewTokenAuthenticator(codec, cfg.Security.IsDevelopment(), logger, metrics)

	r.Use(cors.Middleware)
	r.Use(limiter.Middleware)
	r.Use(deceiver.Middleware)
	r.Use(guard.Middleware)
	r.Use(auth.Middleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestMetrics(logger, metrics))
	r.Use(middleware.Recovery(logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w)
	})

	registerRoutes(r, mon, dockerClient, info, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return &Server{
		cfg:    cfg,
		logger: logger,
		router: r,
		http: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		limiter: limiter,
	}
}

// Handler exposes the full pipeline for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the background sweep and the listener. It blocks until the
// listener stops.
func (s *Server) Start(ctx context.Context) error {
	s.limiter.StartSweep(ctx)

	s.logger.Info("http server listening",
		zap.String("addr", s.http.Addr),
		zap.String("stage", s.cfg.Security.Stage))

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
