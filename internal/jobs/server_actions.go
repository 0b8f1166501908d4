package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/sevigo/eris/internal/core"
	"github.com/sevigo/eris/internal/discord"
	"github.com/sevigo/eris/internal/queue"
)

// ErrEmptyServerAction is returned for a server action with no variant set.
var ErrEmptyServerAction = errors.New("server action carries neither an interaction nor a response")

// ServerActionRequest is what the server-action job receives: the action and
// the queue for the client actions it decides to take.
type ServerActionRequest = queue.Request[discord.ClientAction, *core.ServerAction]

// ServerActionJob decides what to do about things Discord did.
type ServerActionJob struct {
	commands *core.CommandSet
	outbox   queue.Sender[*discordgo.Message]
	logger   *slog.Logger
}

// NewServerActionJob creates the job. Messages the bridge created are sent
// to outbox for federation.
func NewServerActionJob(commands *core.CommandSet, outbox queue.Sender[*discordgo.Message], logger *slog.Logger) *ServerActionJob {
	if commands == nil {
		commands = core.DefaultCommandSet()
	}
	return &ServerActionJob{commands: commands, outbox: outbox, logger: logger}
}

func (j *ServerActionJob) Ready(context.Context) error { return nil }

func (j *ServerActionJob) Call(ctx context.Context, req ServerActionRequest) (struct{}, error) {
	action := req.Payload
	switch {
	case action == nil:
		return struct{}{}, ErrEmptyServerAction
	case action.Interaction != nil:
		return struct{}{}, j.handleInteraction(ctx, req.Queue, action.Interaction)
	case action.Response != nil:
		return struct{}{}, j.handleResponse(ctx, action.Response)
	default:
		return struct{}{}, ErrEmptyServerAction
	}
}

func (j *ServerActionJob) handleInteraction(ctx context.Context, actions queue.Sender[discord.ClientAction], i *discordgo.Interaction) error {
	if i.Type != discordgo.InteractionApplicationCommand {
		j.logger.Debug("ignoring interaction", "type", i.Type.String(), "id", i.ID)
		return nil
	}

	data := i.ApplicationCommandData()
	cmd, known := j.commands.Lookup(data.Name)
	reply := cmd.Reply
	if !known || reply == "" {
		reply = j.commands.Fallback
	}
	j.logger.Info("handling command", "command", data.Name, "known", known, "interaction_id", i.ID)

	if err := queue.Send[discord.ClientAction](ctx, actions, discord.UpdateInteractionResponse{
		InteractionToken: i.Token,
		Message:          discord.TextPayload(reply),
	}); err != nil {
		return err
	}

	if !cmd.Echo {
		return nil
	}
	text, ok := firstTextOption(data.Options)
	if !ok || i.ChannelID == "" {
		j.logger.Warn("echo command without text or channel", "command", data.Name)
		return nil
	}
	return queue.Send[discord.ClientAction](ctx, actions, discord.CreateMessage{
		ChannelID: i.ChannelID,
		Message:   discord.TextPayload(text),
	})
}

func (j *ServerActionJob) handleResponse(ctx context.Context, resp *core.ActionResponse) error {
	if resp.Message == nil {
		return nil
	}
	j.logger.Debug("queuing created message for federation", "message_id", resp.Message.ID)
	return queue.Send(ctx, j.outbox, resp.Message)
}

func firstTextOption(opts []*discordgo.ApplicationCommandInteractionDataOption) (string, bool) {
	for _, opt := range opts {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			if s := opt.StringValue(); s != "" {
				return s, true
			}
		}
	}
	return "", false
}
