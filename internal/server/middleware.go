package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/eris/internal/discord"
	"github.com/sevigo/eris/internal/server/handler"
)

const maxWebhookBody = 1 << 20

// HTTPMetrics is an optional interface for recording HTTP request metrics.
type HTTPMetrics interface {
	RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64)
}

// VerifySignature rejects requests whose Discord signature does not check
// out with 401 and a short JSON error. Verified bodies are handed on intact.
func VerifySignature(verifier *discord.Verifier, metrics handler.WebhookMetrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
			if err != nil {
				logger.Warn("could not read webhook body", "error", err)
				handler.WriteError(w, http.StatusBadRequest, "could not read body")
				return
			}

			payload, err := verifier.Verify(r.Header, body)
			if err != nil {
				logger.Warn("rejected webhook", "reason", err, "remote", r.RemoteAddr)
				if metrics != nil {
					metrics.RecordWebhook(r.Context(), handler.OutcomeInvalidSignature)
				}
				handler.WriteError(w, http.StatusUnauthorized, "invalid signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(payload))
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records latency and status of every request under its route pattern.
func Metrics(metrics HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			pattern := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			metrics.RecordHTTPRequest(r.Context(), r.Method, pattern, status, time.Since(start).Seconds())
		})
	}
}
