// Package api provides the HTTP API for TripScope.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/api/handler"
	"github.com/tripscope/tripscope/internal/api/middleware"
	"github.com/tripscope/tripscope/internal/pipeline"
	"github.com/tripscope/tripscope/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics
	Pipeline  *pipeline.Pipeline
	Registry  *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime)
	analyzeHandler := handler.NewAnalyzeHandler(cfg.Pipeline, cfg.Metrics, cfg.Logger)
	providersHandler := handler.NewProvidersHandler(cfg.Registry)

	analyzeRateLimit := middleware.RateLimitByIP(middleware.AnalyzeRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Get("/health", opsHandler.HealthCheck)
	if cfg.Metrics != nil {
		r.Method("GET", "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		// Analysis fans out to external providers, so it gets the strict limit.
		r.With(analyzeRateLimit).Post("/analyze", analyzeHandler.Analyze)

		r.With(standardRateLimit).Get("/providers/health", providersHandler.Health)
	})

	return r
}
