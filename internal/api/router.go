// Package api provides the HTTP trigger surface for the export pipeline.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aqexport/aqexport/internal/api/handler"
	"github.com/aqexport/aqexport/internal/api/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Runner    handler.Runner
}

// NewRouter creates a chi router with the trigger routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime)
	exportHandler := handler.NewExportHandler(cfg.Runner, cfg.Logger)

	r.Get("/health", opsHandler.HealthCheck)

	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.RateLimitByIP(middleware.TriggerRateLimit)).
			Post("/export", exportHandler.TriggerExport)
	})

	return r
}
