package discord

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	// MaxContentLength is the longest message content Discord accepts, in characters.
	MaxContentLength = 2000
	// MaxAuditLogReasonLength is the longest audit log reason Discord accepts.
	MaxAuditLogReasonLength = 512
)

// Action kinds, as reported by ClientAction.Kind.
const (
	KindCreateMessage             = "create_message"
	KindCreateReply               = "create_reply"
	KindDeleteMessage             = "delete_message"
	KindUpdateMessage             = "update_message"
	KindUpdateInteractionResponse = "update_interaction_response"
)

// ClientAction is an outbound action that changes what Discord displays.
type ClientAction interface {
	// Validate checks the action locally, before anything is sent.
	Validate() error
	Kind() string
}

// MessagePayload is the body of a message. At least one of Text or Embed is set.
type MessagePayload struct {
	Text  string
	Embed *discordgo.MessageEmbed
}

// TextPayload is a plain text message body.
func TextPayload(text string) MessagePayload {
	return MessagePayload{Text: text}
}

// EmbedPayload is an embed with optional text outside the embed frame.
func EmbedPayload(embed *discordgo.MessageEmbed, text string) MessagePayload {
	return MessagePayload{Text: text, Embed: embed}
}

func (p MessagePayload) validate() error {
	if p.Text == "" && p.Embed == nil {
		return errors.New("message payload is empty")
	}
	if n := utf8.RuneCountInString(p.Text); n > MaxContentLength {
		return fmt.Errorf("message content is %d characters, limit is %d", n, MaxContentLength)
	}
	return nil
}

func (p MessagePayload) embeds() []*discordgo.MessageEmbed {
	if p.Embed == nil {
		return nil
	}
	return []*discordgo.MessageEmbed{p.Embed}
}

// replacementEmbeds is never nil, so an edit clears embeds the payload no
// longer has.
func (p MessagePayload) replacementEmbeds() []*discordgo.MessageEmbed {
	if p.Embed == nil {
		return []*discordgo.MessageEmbed{}
	}
	return []*discordgo.MessageEmbed{p.Embed}
}

// MessageLocation identifies an existing message.
type MessageLocation struct {
	ChannelID string
	MessageID string
}

func (l MessageLocation) validate() error {
	if err := validateSnowflake("channel id", l.ChannelID); err != nil {
		return err
	}
	return validateSnowflake("message id", l.MessageID)
}

// CreateMessage posts a standalone message in a channel.
type CreateMessage struct {
	ChannelID string
	Message   MessagePayload
}

func (a CreateMessage) Kind() string { return KindCreateMessage }

func (a CreateMessage) Validate() error {
	if err := validateSnowflake("channel id", a.ChannelID); err != nil {
		return validationError(a, err)
	}
	if err := a.Message.validate(); err != nil {
		return validationError(a, err)
	}
	return nil
}

// CreateReply replies to a message in the same channel.
type CreateReply struct {
	ReplyTo MessageLocation
	Message MessagePayload
}

func (a CreateReply) Kind() string { return KindCreateReply }

func (a CreateReply) Validate() error {
	if err := a.ReplyTo.validate(); err != nil {
		return validationError(a, err)
	}
	if err := a.Message.validate(); err != nil {
		return validationError(a, err)
	}
	return nil
}

// DeleteMessage removes a message. Reason, if set, ends up in the guild's
// audit log.
type DeleteMessage struct {
	Message MessageLocation
	Reason  string
}

func (a DeleteMessage) Kind() string { return KindDeleteMessage }

func (a DeleteMessage) Validate() error {
	if err := a.Message.validate(); err != nil {
		return validationError(a, err)
	}
	if n := utf8.RuneCountInString(a.Reason); n > MaxAuditLogReasonLength {
		return validationError(a, fmt.Errorf("audit log reason is %d characters, limit is %d", n, MaxAuditLogReasonLength))
	}
	return nil
}

// UpdateMessage overwrites the body of an existing message. A reply keeps
// its reference.
type UpdateMessage struct {
	Message MessageLocation
	Body    MessagePayload
}

func (a UpdateMessage) Kind() string { return KindUpdateMessage }

func (a UpdateMessage) Validate() error {
	if err := a.Message.validate(); err != nil {
		return validationError(a, err)
	}
	if err := a.Body.validate(); err != nil {
		return validationError(a, err)
	}
	return nil
}

// UpdateInteractionResponse replaces the deferred "thinking" response of an
// interaction with a real message.
type UpdateInteractionResponse struct {
	InteractionToken string
	Message          MessagePayload
}

func (a UpdateInteractionResponse) Kind() string { return KindUpdateInteractionResponse }

func (a UpdateInteractionResponse) Validate() error {
	if a.InteractionToken == "" {
		return validationError(a, errors.New("interaction token is empty"))
	}
	if err := a.Message.validate(); err != nil {
		return validationError(a, err)
	}
	return nil
}

func validateSnowflake(field, id string) error {
	if id == "" {
		return fmt.Errorf("%s is empty", field)
	}
	if v, err := strconv.ParseUint(id, 10, 64); err != nil || v == 0 {
		return fmt.Errorf("%s %q is not a snowflake", field, id)
	}
	return nil
}
