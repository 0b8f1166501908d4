package core

import (
	"github.com/bwmarrin/discordgo"
)

// ActionResponse is the meaningful, non-error outcome of an outbound Discord
// action. Actions without a meaningful outcome (deletes, edits) produce none.
type ActionResponse struct {
	// Message is the message Discord created for us.
	Message *discordgo.Message
}

// ServerAction is something Discord's server did that may require processing.
// Exactly one of the fields is set.
type ServerAction struct {
	// Interaction is set when Discord POSTed to our interactions endpoint.
	Interaction *discordgo.Interaction
	// Response is set when Discord answered one of our client actions.
	Response *ActionResponse
}

// ServerActionFromInteraction wraps an inbound interaction.
func ServerActionFromInteraction(i *discordgo.Interaction) *ServerAction {
	return &ServerAction{Interaction: i}
}

// ServerActionFromResponse wraps the response to a client action.
func ServerActionFromResponse(r *ActionResponse) *ServerAction {
	return &ServerAction{Response: r}
}

// Kind names the variant, mostly for logging.
func (a *ServerAction) Kind() string {
	switch {
	case a == nil:
		return "none"
	case a.Interaction != nil:
		return "interaction"
	case a.Response != nil:
		return "client_action_response"
	default:
		return "empty"
	}
}

// ChannelQuery asks for the details of a Discord channel.
type ChannelQuery struct {
	ChannelID string
}

// CacheKey makes channel lookups cacheable.
func (q ChannelQuery) CacheKey() any { return q.ChannelID }

// ChannelInfo is the subset of channel details the bridge federates.
type ChannelInfo struct {
	ID      string `cbor:"id"`
	GuildID string `cbor:"guild_id"`
	Name    string `cbor:"name"`
}
