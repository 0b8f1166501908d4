package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/sevigo/eris/internal/cache"
	"github.com/sevigo/eris/internal/core"
)

// Note is the federation record of a Discord message.
type Note struct {
	ID        string
	MessageID string
	Channel   core.ChannelInfo
	Content   string
	Published time.Time
}

// Outbox turns batches of created messages into federation records. Channel
// details come through a cache, so one lookup per channel per TTL reaches
// Discord.
type Outbox struct {
	channels *cache.Aside[core.ChannelQuery, core.ChannelInfo]
	publish  func(context.Context, Note)
	logger   *slog.Logger
}

// NewOutbox creates an outbox. Each record is handed to publish, which may be
// nil to only log.
func NewOutbox(channels *cache.Aside[core.ChannelQuery, core.ChannelInfo], publish func(context.Context, Note), logger *slog.Logger) *Outbox {
	o := &Outbox{channels: channels, publish: publish, logger: logger}
	if o.publish == nil {
		o.publish = o.logNote
	}
	return o
}

// Run consumes batches until the channel is closed or ctx ends.
func (o *Outbox) Run(ctx context.Context, batches <-chan []*discordgo.Message) error {
	for {
		select {
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			o.Process(ctx, batch)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Process federates one batch. A message whose channel cannot be resolved is
// logged and skipped; the rest of the batch goes on.
func (o *Outbox) Process(ctx context.Context, batch []*discordgo.Message) []Note {
	queries := make([]core.ChannelQuery, len(batch))
	for i, msg := range batch {
		queries[i] = core.ChannelQuery{ChannelID: msg.ChannelID}
	}

	results, err := o.channels.Call(ctx, queries)
	if err != nil {
		o.logger.Error("channel lookup failed for batch", "size", len(batch), "error", err)
		return nil
	}

	notes := make([]Note, 0, len(batch))
	for i, msg := range batch {
		if results[i].Err != nil {
			o.logger.Warn("skipping message, channel lookup failed",
				"message_id", msg.ID,
				"channel_id", msg.ChannelID,
				"error", results[i].Err,
			)
			continue
		}
		published := msg.Timestamp
		if published.IsZero() {
			published = time.Now().UTC()
		}
		note := Note{
			ID:        "urn:uuid:" + uuid.NewString(),
			MessageID: msg.ID,
			Channel:   results[i].Value,
			Content:   msg.Content,
			Published: published,
		}
		o.publish(ctx, note)
		notes = append(notes, note)
	}
	return notes
}

func (o *Outbox) logNote(_ context.Context, n Note) {
	o.logger.Info("federating message",
		"note_id", n.ID,
		"message_id", n.MessageID,
		"channel", n.Channel.Name,
		"guild_id", n.Channel.GuildID,
		"published", n.Published,
	)
}
