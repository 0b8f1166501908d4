package jobs

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/eris/internal/core"
	"github.com/sevigo/eris/internal/queue"
)

func TestInteractionResponder(t *testing.T) {
	tests := []struct {
		name        string
		interaction *discordgo.Interaction
		wantType    discordgo.InteractionResponseType
		wantQueued  int
	}{
		{name: "ping is answered directly", interaction: &discordgo.Interaction{Type: discordgo.InteractionPing}, wantType: discordgo.InteractionResponsePong},
		{name: "command is deferred and queued once", interaction: commandInteraction("ping"), wantType: discordgo.InteractionResponseDeferredChannelMessageWithSource, wantQueued: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSender[*core.ServerAction]{}
			p := queue.New[*core.ServerAction, *discordgo.Interaction, *discordgo.InteractionResponse](sink, InteractionResponder{})

			require.NoError(t, p.Ready(context.Background()))
			resp, err := p.Call(context.Background(), tt.interaction)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, resp.Type)

			queued := sink.messages()
			require.Len(t, queued, tt.wantQueued)
			if tt.wantQueued > 0 {
				assert.Same(t, tt.interaction, queued[0].Interaction)
			}
		})
	}
}

func TestInteractionResponder_QueueFailure(t *testing.T) {
	sink := &recordingSender[*core.ServerAction]{callErr: assert.AnError}
	p := queue.New[*core.ServerAction, *discordgo.Interaction, *discordgo.InteractionResponse](sink, InteractionResponder{})

	_, err := p.Call(context.Background(), commandInteraction("ping"))
	assert.ErrorIs(t, err, queue.ErrInner)
	assert.ErrorIs(t, err, assert.AnError)
}
