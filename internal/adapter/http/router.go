package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/rewardgraph/internal/adapter/http/handler"
	"github.com/iho/rewardgraph/internal/adapter/http/middleware"
	"github.com/iho/rewardgraph/internal/usecase"
)

// RouterConfig holds dependencies for the router. IdempotencyStore,
// RateLimiter and AllowedOrigins are optional.
type RouterConfig struct {
	DatasetHandler   *handler.DatasetHandler
	GraphHandler     *handler.GraphHandler
	SyncHandler      *handler.SyncHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	AllowedOrigins   []string
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	idempotent := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.IdempotencyStore != nil {
		mw := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
		idempotent = func(h http.HandlerFunc) http.Handler { return mw.Wrap(h) }
	}

	// API v1
	r.Route("/api/v1/datasets", func(r chi.Router) {
		r.Method(http.MethodPost, "/", idempotent(cfg.DatasetHandler.Upload))
		r.Get("/", cfg.DatasetHandler.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", cfg.DatasetHandler.Get)
			r.Delete("/", cfg.DatasetHandler.Delete)
			r.Get("/actors", cfg.DatasetHandler.Actors)
			r.Get("/graph", cfg.GraphHandler.Get)
			r.Get("/graph.html", cfg.GraphHandler.HTML)
			r.Method(http.MethodPost, "/sync", idempotent(cfg.SyncHandler.Sync))
		})
	})

	return r
}
