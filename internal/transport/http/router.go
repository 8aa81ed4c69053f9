// Package httptransport assembles the public HTTP surface: middleware,
// domain handlers, health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"railclaim/internal/platform/middleware"
	"railclaim/pkg/platform/httputil"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	Logger   *slog.Logger
	Observer middleware.RequestObserver
	Metrics  http.Handler
	Health   []HealthCheck
	// Throttle wraps the API routes only; health and metrics stay open.
	Throttle func(http.Handler) http.Handler
	// HealthTimeout bounds the whole /healthz probe.
	HealthTimeout time.Duration
}

// NewRouter wires middleware, health, metrics and every registrar.
func NewRouter(cfg Config, registrars ...Registrar) http.Handler {
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 2 * time.Second
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestTime)
	r.Use(middleware.AccessLog(cfg.Logger, cfg.Observer))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", healthHandler(cfg.Health, cfg.HealthTimeout))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	r.Group(func(api chi.Router) {
		if cfg.Throttle != nil {
			api.Use(cfg.Throttle)
		}
		for _, reg := range registrars {
			reg.Register(api)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func healthHandler(checks []HealthCheck, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				resp.Checks[c.Name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
