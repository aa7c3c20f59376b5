package feed

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"market-listing-alerts/internal/exchange"
	"market-listing-alerts/internal/market"
	"market-listing-alerts/internal/notify"
	"market-listing-alerts/internal/preview"
	"market-listing-alerts/internal/state"
)

// CodeAllocator is the mapping slice of the state store the processor needs.
type CodeAllocator interface {
	AllocateCode(feed state.Feed, realID int64) string
	Margin() decimal.Decimal
}

// PreviewGenerator produces the composite image for a skin list.
type PreviewGenerator interface {
	Generate(ctx context.Context, skinIDs []string) ([]byte, error)
}

// Processor turns one fetched item detail into a client-facing notification:
// code allocation, preview enrichment, embed construction, dispatch.
type Processor struct {
	feed          state.Feed
	store         CodeAllocator
	previews      PreviewGenerator
	dispatcher    *notify.Dispatcher
	rate          *exchange.Rate
	channelID     string
	international bool
	logger        zerolog.Logger
}

// NewProcessor constructs the enrichment-and-dispatch flow for one feed.
func NewProcessor(feed state.Feed, store CodeAllocator, previews PreviewGenerator, dispatcher *notify.Dispatcher, rate *exchange.Rate, channelID string, international bool, logger zerolog.Logger) *Processor {
	return &Processor{
		feed:          feed,
		store:         store,
		previews:      previews,
		dispatcher:    dispatcher,
		rate:          rate,
		channelID:     channelID,
		international: international,
		logger:        logger.With().Str("component", "feed_processor").Str("feed", string(feed)).Logger(),
	}
}

// Process implements ProcessFunc. The code allocation persists before any
// network enrichment, so a later dispatch failure never loses the mapping.
func (p *Processor) Process(ctx context.Context, realID int64, detail *market.ItemDetail) {
	code := p.store.AllocateCode(p.feed, realID)

	skinIDs := detail.SkinIDs()
	var image []byte
	if len(skinIDs) > 0 {
		var err error
		image, err = p.previews.Generate(ctx, skinIDs)
		if err != nil {
			p.logger.Error().Err(err).Int64("item", realID).Msg("preview generation failed")
			image = nil
		}
	}

	embed := notify.ClientEmbed(detail, code, p.rate.Ptr(), p.store.Margin(), p.international)
	switch {
	case len(skinIDs) == 0:
		notify.AddPreviewPlaceholder(embed, "No skins listed to preview.")
	case len(image) == 0:
		notify.AddPreviewPlaceholder(embed, "Preview generation failed.")
	}

	p.dispatcher.Dispatch(ctx, p.channelID, embed, image)
	p.logger.Info().Int64("item", realID).Str("code", code).Msg("account processed")
}

var _ PreviewGenerator = (*preview.Pipeline)(nil)
