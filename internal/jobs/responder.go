package jobs

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/sevigo/eris/internal/core"
	"github.com/sevigo/eris/internal/queue"
)

// InteractionRequest is what the responder receives: the verified
// interaction and the server-action queue.
type InteractionRequest = queue.Request[*core.ServerAction, *discordgo.Interaction]

// InteractionResponder produces the immediate HTTP answer to an interaction.
// Pings are answered directly; everything else is queued for the
// server-action worker and acknowledged with a deferred response.
type InteractionResponder struct{}

func (InteractionResponder) Ready(context.Context) error { return nil }

func (InteractionResponder) Call(ctx context.Context, req InteractionRequest) (*discordgo.InteractionResponse, error) {
	i := req.Payload
	if i == nil {
		return nil, errors.New("no interaction")
	}
	if i.Type == discordgo.InteractionPing {
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong}, nil
	}
	if err := queue.Send(ctx, req.Queue, core.ServerActionFromInteraction(i)); err != nil {
		return nil, err
	}
	return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}, nil
}

// NewInteractionHandler wraps the responder so it is handed the dispatcher
// as its queue.
func NewInteractionHandler(d *Dispatcher) *queue.Provider[*core.ServerAction, *discordgo.Interaction, *discordgo.InteractionResponse] {
	return queue.New[*core.ServerAction, *discordgo.Interaction, *discordgo.InteractionResponse](d, InteractionResponder{})
}
