package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"market-listing-alerts/internal/exchange"
	"market-listing-alerts/internal/feed"
	"market-listing-alerts/internal/market"
	"market-listing-alerts/internal/notify"
	"market-listing-alerts/internal/state"
)

// Replier sends plain command feedback into a channel.
type Replier interface {
	SendText(ctx context.Context, channelID string, content string) error
}

// MappingStore is the state slice the command surface reads and mutates.
type MappingStore interface {
	ResolveCode(code string) (state.Feed, int64, bool)
	Margin() decimal.Decimal
	SetMargin(margin decimal.Decimal) error
}

// Commands routes the vendor text commands: lookup by client code, margin
// get/set. All three are restricted to the vendor channel; invoking them
// anywhere else gets a rejection reply rather than silence.
type Commands struct {
	store         MappingStore
	detailer      market.Detailer
	previews      feed.PreviewGenerator
	dispatcher    *notify.Dispatcher
	rate          *exchange.Rate
	replier       Replier
	vendorChannel string
	prefix        string
	logger        zerolog.Logger
}

// NewCommands constructs the command router.
func NewCommands(store MappingStore, detailer market.Detailer, previews feed.PreviewGenerator, dispatcher *notify.Dispatcher, rate *exchange.Rate, replier Replier, vendorChannel, prefix string, logger zerolog.Logger) *Commands {
	if prefix == "" {
		prefix = "/"
	}
	return &Commands{
		store:         store,
		detailer:      detailer,
		previews:      previews,
		dispatcher:    dispatcher,
		rate:          rate,
		replier:       replier,
		vendorChannel: vendorChannel,
		prefix:        prefix,
		logger:        logger.With().Str("component", "commands").Logger(),
	}
}

// Handle inspects one inbound message and runs the matching command, if any.
func (c *Commands) Handle(ctx context.Context, channelID, content string) {
	if !strings.HasPrefix(content, c.prefix) {
		return
	}
	args := strings.Fields(strings.TrimPrefix(content, c.prefix))
	if len(args) == 0 {
		return
	}

	name := strings.ToLower(args[0])
	switch name {
	case "lookup", "setmargin", "getmargin":
	default:
		return
	}

	if channelID != c.vendorChannel {
		c.reply(ctx, channelID, "This command can only be used in the vendor channel.")
		return
	}

	switch name {
	case "lookup":
		c.lookup(ctx, channelID, args[1:])
	case "setmargin":
		c.setMargin(ctx, channelID, args[1:])
	case "getmargin":
		c.reply(ctx, channelID, fmt.Sprintf("📊 Current price margin is **%s%%**.", c.store.Margin().String()))
	}
}

// lookup resolves a client code to its real item, refetches live details, and
// renders the full vendor view into the invoking channel. A failed detail
// fetch still reports the real ID so a vendor can act manually.
func (c *Commands) lookup(ctx context.Context, channelID string, args []string) {
	if len(args) != 1 {
		c.reply(ctx, channelID, fmt.Sprintf("Usage: %slookup <account id>", c.prefix))
		return
	}
	code := strings.ToUpper(args[0])

	feedKind, realID, ok := c.store.ResolveCode(code)
	if !ok {
		c.reply(ctx, channelID, fmt.Sprintf("❌ No account found with ID %s.", code))
		return
	}

	detail, err := c.detailer.FetchItem(ctx, realID)
	if err != nil {
		c.logger.Error().Err(err).Str("code", code).Int64("item", realID).Msg("lookup detail fetch failed")
		c.reply(ctx, channelID, fmt.Sprintf("⚠️ Account %s is mapped, but fetching fresh details failed. Real ID: %d", code, realID))
		return
	}

	if feedKind == state.FeedInternational {
		region := detail.Region
		if region == "" {
			region = "N/A"
		}
		c.reply(ctx, channelID, fmt.Sprintf("✅ International account (%s) found! Client ID: %s", region, code))
	} else {
		c.reply(ctx, channelID, fmt.Sprintf("✅ BR account found! Client ID: %s", code))
	}

	embed := notify.VendorEmbed(detail, realID, code, c.rate.Ptr(), c.store.Margin())

	skinIDs := detail.SkinIDs()
	var image []byte
	if len(skinIDs) > 0 {
		image, err = c.previews.Generate(ctx, skinIDs)
		if err != nil {
			c.logger.Error().Err(err).Int64("item", realID).Msg("lookup preview generation failed")
			image = nil
		}
	}
	switch {
	case len(skinIDs) == 0:
		notify.AddPreviewPlaceholder(embed, "No skins listed to preview.")
	case len(image) == 0:
		notify.AddPreviewPlaceholder(embed, "Preview generation failed.")
	}

	c.dispatcher.Dispatch(ctx, channelID, embed, image)
}

func (c *Commands) setMargin(ctx context.Context, channelID string, args []string) {
	if len(args) != 1 {
		c.reply(ctx, channelID, fmt.Sprintf("Usage: %ssetmargin <percentage>", c.prefix))
		return
	}

	margin, err := decimal.NewFromString(args[0])
	if err != nil {
		c.reply(ctx, channelID, fmt.Sprintf("❌ %q is not a valid percentage.", args[0]))
		return
	}

	if err := c.store.SetMargin(margin); err != nil {
		c.reply(ctx, channelID, "❌ Margin cannot be negative.")
		return
	}
	c.reply(ctx, channelID, fmt.Sprintf("✅ Price margin set to **%s%%**. Client-facing prices now include a %s%% markup.", margin.String(), margin.String()))
}

func (c *Commands) reply(ctx context.Context, channelID, content string) {
	if err := c.replier.SendText(ctx, channelID, content); err != nil {
		c.logger.Error().Err(err).Str("channel", channelID).Msg("failed to send command reply")
	}
}
