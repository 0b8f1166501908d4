package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/sevigo/eris/internal/core"
)

const actionFetchChannel = "fetch_channel"

// ChannelResolver fetches channel details from Discord. It is meant to sit
// behind a cache.
type ChannelResolver struct {
	client restClient
}

func NewChannelResolver(session *discordgo.Session) *ChannelResolver {
	return &ChannelResolver{client: session}
}

func (r *ChannelResolver) Ready(context.Context) error { return nil }

func (r *ChannelResolver) Call(ctx context.Context, q core.ChannelQuery) (core.ChannelInfo, error) {
	if err := validateSnowflake("channel id", q.ChannelID); err != nil {
		return core.ChannelInfo{}, &ActionError{Kind: KindValidation, Action: actionFetchChannel, Err: err}
	}
	ch, err := r.client.Channel(q.ChannelID, discordgo.WithContext(ctx))
	if err != nil {
		return core.ChannelInfo{}, classifyTransport(actionFetchChannel, err)
	}
	if ch == nil {
		return core.ChannelInfo{}, &ActionError{Kind: KindDecode, Action: actionFetchChannel, Err: errors.New("empty channel")}
	}
	return core.ChannelInfo{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}, nil
}
