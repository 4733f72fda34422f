// Package handler provides the HTTP surface of the Lysbox presign service.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Thanawat984/lysbox-presign/internal/metrics"
	"github.com/Thanawat984/lysbox-presign/internal/ratelimit"
)

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	PresignHandler *PresignHandler
	Limiter        ratelimit.Limiter
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
}

// NewRouter builds the service's HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(Recoverer(cfg.Logger))
	if cfg.Limiter != nil {
		r.Use(RateLimit(cfg.Limiter, cfg.Metrics, cfg.Logger))
	}

	// Health check (no auth)
	r.Get("/health", handleHealth)

	cfg.PresignHandler.RegisterRoutes(r)

	return r
}
