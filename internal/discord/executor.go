// Package discord executes outbound actions against Discord's REST API and
// verifies the signatures on inbound interaction webhooks.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sevigo/eris/internal/core"
)

// Executor performs client actions. A nil response with a nil error means
// the action succeeded without anything worth reporting back.
//
//go:generate mockgen -destination=../../mocks/mock_executor.go -package=mocks . Executor
type Executor interface {
	Execute(ctx context.Context, action ClientAction) (*core.ActionResponse, error)
}

// restClient is the part of *discordgo.Session the executor relies on.
type restClient interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// NewSession creates a REST-only Discord session for a bot token. discordgo's
// own retries of failed requests are disabled; rate limits are still honoured.
func NewSession(botToken string, timeout time.Duration) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Client = &http.Client{Timeout: timeout}
	s.MaxRestRetries = 0
	s.ShouldRetryOnRateLimit = true
	return s, nil
}

// RESTExecutor runs client actions through the Discord REST API.
type RESTExecutor struct {
	client        restClient
	applicationID string
	logger        *slog.Logger
}

// NewRESTExecutor creates an executor. applicationID is needed to edit
// interaction responses.
func NewRESTExecutor(session *discordgo.Session, applicationID string, logger *slog.Logger) *RESTExecutor {
	return newRESTExecutor(session, applicationID, logger)
}

func newRESTExecutor(client restClient, applicationID string, logger *slog.Logger) *RESTExecutor {
	return &RESTExecutor{client: client, applicationID: applicationID, logger: logger}
}

// Execute validates and runs action. Every failure is an *ActionError.
func (e *RESTExecutor) Execute(ctx context.Context, action ClientAction) (*core.ActionResponse, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	reqCtx := discordgo.WithContext(ctx)
	switch a := action.(type) {
	case CreateMessage:
		msg, err := e.client.ChannelMessageSendComplex(a.ChannelID, &discordgo.MessageSend{
			Content: a.Message.Text,
			Embeds:  a.Message.embeds(),
		}, reqCtx)
		return e.created(a, msg, err)

	case CreateReply:
		msg, err := e.client.ChannelMessageSendComplex(a.ReplyTo.ChannelID, &discordgo.MessageSend{
			Content: a.Message.Text,
			Embeds:  a.Message.embeds(),
			Reference: &discordgo.MessageReference{
				MessageID: a.ReplyTo.MessageID,
				ChannelID: a.ReplyTo.ChannelID,
			},
		}, reqCtx)
		return e.created(a, msg, err)

	case DeleteMessage:
		opts := []discordgo.RequestOption{reqCtx}
		if a.Reason != "" {
			opts = append(opts, discordgo.WithAuditLogReason(a.Reason))
		}
		if err := e.client.ChannelMessageDelete(a.Message.ChannelID, a.Message.MessageID, opts...); err != nil {
			return nil, classifyTransport(a.Kind(), err)
		}
		return nil, nil

	case UpdateMessage:
		edit := discordgo.NewMessageEdit(a.Message.ChannelID, a.Message.MessageID).
			SetContent(a.Body.Text).
			SetEmbeds(a.Body.replacementEmbeds())
		if _, err := e.client.ChannelMessageEditComplex(edit, reqCtx); err != nil {
			return nil, classifyTransport(a.Kind(), err)
		}
		return nil, nil

	case UpdateInteractionResponse:
		content := a.Message.Text
		embeds := a.Message.replacementEmbeds()
		interaction := &discordgo.Interaction{AppID: e.applicationID, Token: a.InteractionToken}
		if _, err := e.client.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
			Content: &content,
			Embeds:  &embeds,
		}, reqCtx); err != nil {
			return nil, classifyTransport(a.Kind(), err)
		}
		return nil, nil

	default:
		return nil, &ActionError{Kind: KindValidation, Action: action.Kind(), Err: fmt.Errorf("unsupported action %T", action)}
	}
}

func (e *RESTExecutor) created(a ClientAction, msg *discordgo.Message, err error) (*core.ActionResponse, error) {
	if err != nil {
		return nil, classifyTransport(a.Kind(), err)
	}
	if msg == nil {
		return nil, &ActionError{Kind: KindDecode, Action: a.Kind(), Err: errors.New("empty message")}
	}
	e.logger.Debug("discord message created", "action", a.Kind(), "message_id", msg.ID, "channel_id", msg.ChannelID)
	return &core.ActionResponse{Message: msg}, nil
}

// ExecutorHandler adapts an Executor to a core.Handler so it can be wrapped
// by retries and hosted in a background worker.
type ExecutorHandler struct {
	exec Executor
}

func NewExecutorHandler(exec Executor) *ExecutorHandler {
	return &ExecutorHandler{exec: exec}
}

func (h *ExecutorHandler) Ready(context.Context) error { return nil }

func (h *ExecutorHandler) Call(ctx context.Context, action ClientAction) (*core.ActionResponse, error) {
	return h.exec.Execute(ctx, action)
}
