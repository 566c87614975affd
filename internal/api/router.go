// Package api provides the HTTP API for KidRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/api/handler"
	"github.com/kidroute/kidroute/internal/api/middleware"
	"github.com/kidroute/kidroute/internal/provider/resilience"
	"github.com/kidroute/kidroute/internal/smartroute"
	"github.com/kidroute/kidroute/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Tokens      middleware.TokenValidator
	Engines     *smartroute.Registry
	// Store is pinged by the readiness and status checks.
	Store handler.Pinger
	// Weather fills live conditions into route requests. Optional.
	Weather *weather.Service
	// Providers reports external provider health on /v1/ops/status. Optional.
	Providers  *resilience.Registry
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "kidroute-api"
	}

	// Global middleware, outermost first
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Store:     cfg.Store,
		Providers: cfg.Providers,
		Logger:    cfg.Logger,
	})
	routeHandler := handler.NewRouteHandler(cfg.Engines, cfg.Weather, cfg.Logger)
	meHandler := handler.NewMeHandler(cfg.Engines, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Tokens)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public except status)
		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Me endpoints (authenticated) - user-based rate limiting
		r.Route("/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireJSON)

			r.With(middleware.RateLimitByUser(middleware.ExpensiveRateLimit)).
				Post("/routes:compute", routeHandler.ComputeRoutes)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit))

				r.Get("/preferences", meHandler.GetPreferences)
				r.Patch("/preferences", meHandler.UpdatePreferences)
				r.Get("/recommendations", meHandler.Recommendations)

				r.Get("/journeys", meHandler.ListJourneys)
				r.Post("/journeys", meHandler.RecordJourney)
				r.Get("/learning", meHandler.Learning)

				r.Get("/safe-zones", meHandler.GetSafeZones)
				r.Put("/safe-zones", meHandler.ReplaceSafeZones)

				r.Post("/engine:reload", meHandler.Reload)
			})
		})
	})

	return r
}
