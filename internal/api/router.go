package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/aiox-platform/ragchat/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	Chat    http.HandlerFunc
	Reindex http.HandlerFunc

	GetThread   http.HandlerFunc
	ResetThread http.HandlerFunc
	AppendTurn  http.HandlerFunc
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	ChatRateLimiter    func(http.Handler) http.Handler

	Postgres HealthCheck
	Redis    HealthCheck
	// NATS is nil when NATS is not configured.
	NATS HealthCheck
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness: no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		check := func(name string, fn HealthCheck) {
			if fn == nil {
				health[name] = "not configured"
				return
			}
			if err := fn(r.Context()); err != nil {
				health[name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
				return
			}
			health[name] = "healthy"
		}
		check("database", cfg.Postgres)
		check("redis", cfg.Redis)
		check("nats", cfg.NATS)

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.ChatRateLimiter != nil {
				r.Use(cfg.ChatRateLimiter)
			}
			r.Post("/chat", h.Chat)
		})

		r.Post("/ingest", h.Reindex)

		r.Route("/threads/{threadID}", func(r chi.Router) {
			r.Get("/", h.GetThread)
			r.Delete("/", h.ResetThread)
			r.Post("/turns", h.AppendTurn)
		})
	})

	return r
}
