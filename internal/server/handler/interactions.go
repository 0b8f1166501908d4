// Package handler provides HTTP handlers for the eris bridge.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	jsoniter "github.com/json-iterator/go"

	"github.com/sevigo/eris/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Webhook outcomes, as recorded in metrics.
const (
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeDecodeError      = "decode_error"
	OutcomePong             = "pong"
	OutcomeDeferred         = "deferred"
	OutcomeUnavailable      = "unavailable"
)

// WebhookMetrics is an optional interface for counting webhook outcomes.
type WebhookMetrics interface {
	RecordWebhook(ctx context.Context, outcome string)
}

// InteractionHandler answers Discord interaction webhooks. Requests reach it
// only after their signature was verified.
type InteractionHandler struct {
	responder core.Handler[*discordgo.Interaction, *discordgo.InteractionResponse]
	metrics   WebhookMetrics
	logger    *slog.Logger
}

// NewInteractionHandler creates a handler around responder. metrics may be nil.
func NewInteractionHandler(responder core.Handler[*discordgo.Interaction, *discordgo.InteractionResponse], metrics WebhookMetrics, logger *slog.Logger) *InteractionHandler {
	return &InteractionHandler{responder: responder, metrics: metrics, logger: logger}
}

// Handle processes interaction webhook requests.
func (h *InteractionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("could not read interaction body", "error", err)
		WriteError(w, http.StatusBadRequest, "could not read body")
		return
	}

	var interaction discordgo.Interaction
	if err := json.Unmarshal(body, &interaction); err != nil {
		// The request is authentic, so a non-2xx answer would only be retried.
		h.logger.Warn("could not decode interaction", "error", err)
		h.record(ctx, OutcomeDecodeError)
		WriteError(w, http.StatusOK, "could not decode interaction")
		return
	}

	if err := h.responder.Ready(ctx); err != nil {
		h.logger.Error("interaction responder unavailable", "error", err)
		h.record(ctx, OutcomeUnavailable)
		WriteError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	resp, err := h.responder.Call(ctx, &interaction)
	if err != nil {
		h.logger.Error("failed to queue interaction", "error", err, "interaction_id", interaction.ID)
		h.record(ctx, OutcomeUnavailable)
		WriteError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	if resp.Type == discordgo.InteractionResponsePong {
		h.record(ctx, OutcomePong)
	} else {
		h.record(ctx, OutcomeDeferred)
		h.logger.Info("interaction accepted", "interaction_id", interaction.ID, "type", interaction.Type.String())
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *InteractionHandler) record(ctx context.Context, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(ctx, outcome)
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg} with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
