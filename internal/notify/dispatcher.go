package notify

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Sender delivers an embed with an optional attached image to one channel.
type Sender interface {
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed, image []byte, imageName string) error
}

// Dispatcher sends finished notifications, attaching the composite preview
// when one exists. Delivery failures are logged and swallowed: a dropped
// notification never rolls back mapping or seen-set state.
type Dispatcher struct {
	sender Sender
	logger zerolog.Logger
}

// NewDispatcher constructs a dispatcher over the given transport.
func NewDispatcher(sender Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch sends the embed to the channel. With image bytes present the embed
// references the attachment; without them the caller is expected to have added
// a placeholder field already.
func (d *Dispatcher) Dispatch(ctx context.Context, channelID string, embed *discordgo.MessageEmbed, image []byte) {
	name := ""
	if len(image) > 0 {
		name = attachmentName
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + attachmentName}
	}

	if err := d.sender.SendEmbed(ctx, channelID, embed, image, name); err != nil {
		d.logger.Error().Err(err).Str("channel", channelID).Msg("failed to dispatch notification")
		return
	}
	d.logger.Info().Str("channel", channelID).Msg("notification dispatched")
}
