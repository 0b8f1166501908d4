package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/eris/internal/discord"
	"github.com/sevigo/eris/internal/server/handler"
)

// RouterMetrics records HTTP and webhook metrics.
type RouterMetrics interface {
	HTTPMetrics
	handler.WebhookMetrics
}

// RouterDeps is everything the router serves. MetricsHandler and Metrics may
// be nil when metrics are disabled.
type RouterDeps struct {
	Interactions   *handler.InteractionHandler
	Verifier       *discord.Verifier
	MetricsHandler http.Handler
	Metrics        RouterMetrics
	Logger         *slog.Logger
}

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(Metrics(deps.Metrics))
	}
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		var webhookMetrics handler.WebhookMetrics
		if deps.Metrics != nil {
			webhookMetrics = deps.Metrics
		}
		r.With(VerifySignature(deps.Verifier, webhookMetrics, deps.Logger)).
			Post("/interactions", deps.Interactions.Handle)
	})

	return r
}
