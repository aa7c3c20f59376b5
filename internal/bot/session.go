package bot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Session wraps the Discord gateway connection and the small transport
// surface the rest of the system needs: resolve a channel, send an embed with
// an optional attachment, send plain text.
type Session struct {
	ds     *discordgo.Session
	logger zerolog.Logger
}

// NewSession constructs an unopened Discord session.
func NewSession(token string, logger zerolog.Logger) (*Session, error) {
	ds, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	ds.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	return &Session{
		ds:     ds,
		logger: logger.With().Str("component", "discord").Logger(),
	}, nil
}

// Open connects to the gateway.
func (s *Session) Open() error {
	if err := s.ds.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	s.logger.Info().Msg("discord session open")
	return nil
}

// Close tears the gateway connection down.
func (s *Session) Close() error {
	return s.ds.Close()
}

// VerifyChannels resolves each target channel once at startup so missing
// permissions surface in the logs immediately rather than on first dispatch.
func (s *Session) VerifyChannels(ids ...string) {
	for _, id := range ids {
		ch, err := s.resolveChannel(id)
		if err != nil {
			s.logger.Warn().Err(err).Str("channel", id).Msg("target channel not accessible")
			continue
		}
		s.logger.Info().Str("channel", id).Str("name", ch.Name).Msg("target channel resolved")
	}
}

// resolveChannel consults the state cache first and falls back to an API
// fetch when the channel has not been observed yet.
func (s *Session) resolveChannel(id string) (*discordgo.Channel, error) {
	if ch, err := s.ds.State.Channel(id); err == nil {
		return ch, nil
	}
	ch, err := s.ds.Channel(id)
	if err != nil {
		return nil, fmt.Errorf("resolve channel %s: %w", id, err)
	}
	return ch, nil
}

// SendEmbed delivers an embed, attaching image bytes under imageName when
// present.
func (s *Session) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed, image []byte, imageName string) error {
	if _, err := s.resolveChannel(channelID); err != nil {
		return err
	}

	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	if len(image) > 0 {
		msg.Files = []*discordgo.File{{
			Name:        imageName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(image),
		}}
	}

	_, err := s.ds.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	return err
}

// SendText delivers a plain text message.
func (s *Session) SendText(ctx context.Context, channelID string, content string) error {
	_, err := s.ds.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

// MessageHandler receives inbound user messages.
type MessageHandler func(channelID, content string)

// OnMessage registers a handler for user-authored messages; the bot's own
// messages and other bots are ignored.
func (s *Session) OnMessage(handler MessageHandler) {
	s.ds.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		handler(m.ChannelID, m.Content)
	})
}
