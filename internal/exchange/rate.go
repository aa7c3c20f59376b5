package exchange

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Rate holds the most recently fetched USD conversion rate. It is absent
// until the first successful refresh; consumers fall back to raw currency
// values while it is.
type Rate struct {
	mu    sync.RWMutex
	value decimal.Decimal
	set   bool
}

// Set stores a freshly fetched rate.
func (r *Rate) Set(v decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = v
	r.set = true
}

// Get returns the current rate and whether one has been fetched yet.
func (r *Rate) Get() (decimal.Decimal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value, r.set
}

// Ptr returns the current rate as a pointer, nil when absent.
func (r *Rate) Ptr() *decimal.Decimal {
	if v, ok := r.Get(); ok {
		return &v
	}
	return nil
}

// Fetcher is the narrow view of the client the refresher needs.
type Fetcher interface {
	FetchUSDRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Refresher periodically updates a Rate from the exchange service.
type Refresher struct {
	fetcher  Fetcher
	rate     *Rate
	currency string
	logger   zerolog.Logger
}

// NewRefresher constructs a refresher for the given target currency.
func NewRefresher(fetcher Fetcher, rate *Rate, currency string, logger zerolog.Logger) *Refresher {
	return &Refresher{
		fetcher:  fetcher,
		rate:     rate,
		currency: currency,
		logger:   logger.With().Str("component", "exchange_refresher").Logger(),
	}
}

// Tick fetches the latest rate and stores it. A failed fetch keeps the
// previous rate in place.
func (r *Refresher) Tick(ctx context.Context) error {
	v, err := r.fetcher.FetchUSDRate(ctx, r.currency)
	if err != nil {
		r.logger.Error().Err(err).Msg("exchange rate refresh failed")
		return nil
	}
	r.rate.Set(v)
	r.logger.Info().Str("currency", r.currency).Str("rate", v.String()).Msg("exchange rate updated")
	return nil
}
