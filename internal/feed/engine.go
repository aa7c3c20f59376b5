package feed

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"market-listing-alerts/internal/market"
	"market-listing-alerts/internal/state"
)

// SeenStore is the slice of the state store the engine relies on.
type SeenStore interface {
	SeenSet(feed state.Feed) map[int64]struct{}
	MarkSeen(feed state.Feed, ids ...int64)
	ReplaceSeen(feed state.Feed, ids []int64)
}

// ProcessFunc handles one successfully fetched item: allocation, enrichment,
// and dispatch. It must not fail the tick; errors stay inside.
type ProcessFunc func(ctx context.Context, realID int64, detail *market.ItemDetail)

// Options parameterise one polling engine instance.
type Options struct {
	Name        string
	Feed        state.Feed
	Query       func() string
	Cooldown    time.Duration
	MaxPerCycle int
	ItemDelay   time.Duration
}

// Engine is the cooldown-gated dedup loop for one feed. A tick fetches the
// current listing snapshot, computes the unseen delta, and processes up to a
// fixed cap of the newest items. Finding nothing new suppresses all network
// work for the cooldown duration.
type Engine struct {
	opts     Options
	store    SeenStore
	lister   market.Lister
	detailer market.Detailer
	process  ProcessFunc
	logger   zerolog.Logger

	inCooldown bool
	cooldownAt time.Time
	now        func() time.Time
}

// New constructs a polling engine.
func New(opts Options, store SeenStore, lister market.Lister, detailer market.Detailer, process ProcessFunc, logger zerolog.Logger) *Engine {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Minute
	}
	if opts.MaxPerCycle <= 0 {
		opts.MaxPerCycle = 3
	}
	return &Engine{
		opts:     opts,
		store:    store,
		lister:   lister,
		detailer: detailer,
		process:  process,
		logger:   logger.With().Str("component", "feed_engine").Str("feed", opts.Name).Logger(),
		now:      time.Now,
	}
}

// Tick runs one poll cycle. It never returns an error for upstream failures;
// a failed fetch aborts the cycle with no state mutation.
func (e *Engine) Tick(ctx context.Context) error {
	if e.inCooldown {
		elapsed := e.now().Sub(e.cooldownAt)
		if elapsed < e.opts.Cooldown {
			e.logger.Debug().Dur("remaining", e.opts.Cooldown-elapsed).Msg("in cooldown")
			return nil
		}
		e.inCooldown = false
		e.logger.Info().Msg("leaving cooldown")
	}

	snapshot, err := e.lister.ListItems(ctx, e.opts.Query())
	if err != nil {
		e.logger.Error().Err(err).Msg("listing fetch failed")
		return nil
	}

	newIDs := unseenDescending(snapshot, e.store.SeenSet(e.opts.Feed))
	e.logger.Debug().Int("snapshot", len(snapshot)).Int("new", len(newIDs)).Msg("snapshot evaluated")

	if len(newIDs) == 0 {
		e.enterCooldown(snapshot)
		return nil
	}

	e.processBatch(ctx, newIDs)
	return nil
}

// unseenDescending computes snapshot − seen, newest identifier first.
func unseenDescending(snapshot []int64, seen map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(snapshot))
	dedup := make(map[int64]struct{}, len(snapshot))
	for _, id := range snapshot {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := dedup[id]; ok {
			continue
		}
		dedup[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// enterCooldown records the quiet cycle and resynchronises the seen set with
// the snapshot when the two differ. Identifiers that dropped off the listing
// are discarded with it and would be reprocessed if relisted.
func (e *Engine) enterCooldown(snapshot []int64) {
	e.inCooldown = true
	e.cooldownAt = e.now()
	e.logger.Info().Dur("duration", e.opts.Cooldown).Msg("no new items, entering cooldown")

	if !sameSet(snapshot, e.store.SeenSet(e.opts.Feed)) {
		e.store.ReplaceSeen(e.opts.Feed, snapshot)
		e.logger.Info().Int("count", len(snapshot)).Msg("seen set resynchronised with snapshot")
	}
}

func sameSet(ids []int64, set map[int64]struct{}) bool {
	unique := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if len(unique) != len(set) {
		return false
	}
	for id := range unique {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// processBatch handles up to the per-cycle cap of the newest identifiers.
// An item whose detail fetch fails is still marked seen so it cannot poison
// future cycles; identifiers beyond the cap stay unseen for the next tick.
func (e *Engine) processBatch(ctx context.Context, newIDs []int64) {
	attempted := make([]int64, 0, e.opts.MaxPerCycle)

	for _, id := range newIDs {
		if len(attempted) >= e.opts.MaxPerCycle {
			e.logger.Info().Int("cap", e.opts.MaxPerCycle).Msg("per-cycle cap reached")
			break
		}

		detail, err := e.detailer.FetchItem(ctx, id)
		if err != nil {
			e.logger.Error().Err(err).Int64("item", id).Msg("detail fetch failed, skipping permanently")
			attempted = append(attempted, id)
			continue
		}

		e.process(ctx, id, detail)
		attempted = append(attempted, id)

		if e.opts.ItemDelay > 0 {
			timer := time.NewTimer(e.opts.ItemDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				e.store.MarkSeen(e.opts.Feed, attempted...)
				return
			case <-timer.C:
			}
		}
	}

	e.store.MarkSeen(e.opts.Feed, attempted...)
}
