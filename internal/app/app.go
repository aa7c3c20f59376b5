package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"market-listing-alerts/internal/bot"
	"market-listing-alerts/internal/config"
	"market-listing-alerts/internal/exchange"
	"market-listing-alerts/internal/feed"
	"market-listing-alerts/internal/market"
	"market-listing-alerts/internal/metadata"
	"market-listing-alerts/internal/notify"
	"market-listing-alerts/internal/preview"
	"market-listing-alerts/internal/scheduler"
	"market-listing-alerts/internal/state"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// Run wires the full system and blocks until a shutdown signal arrives: two
// polling engines, the exchange-rate refresher, and the Discord command
// surface, all over one shared state store.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := a.Config
	if cfg.Market.Token == "" {
		a.Logger.Warn().Msg("market.token not configured; marketplace requests will be unauthenticated")
	}
	if cfg.Exchange.APIKey == "" {
		a.Logger.Warn().Msg("exchange.api_key not configured; price conversion disabled")
	}

	store, err := state.Open(cfg.Storage.DataDir, a.Logger)
	if err != nil {
		return err
	}

	marketClient := market.NewClient(market.Options{
		BaseURL:       cfg.Market.BaseURL,
		Token:         cfg.Market.Token,
		Timeout:       cfg.Market.RequestTimeout,
		RetryAttempts: cfg.Market.RetryAttempts,
		RetryDelay:    cfg.Market.RetryDelay,
	}, a.Logger)

	metaClient := metadata.NewClient(metadata.Options{
		BaseURL: cfg.Metadata.BaseURL,
		Timeout: cfg.Metadata.RequestTimeout,
	}, a.Logger)

	previews := preview.NewPipeline(metaClient, preview.NewHTTPDownloader(0), a.Logger)

	rate := &exchange.Rate{}
	refresher := exchange.NewRefresher(exchange.NewClient(exchange.Options{
		APIKey:  cfg.Exchange.APIKey,
		BaseURL: cfg.Exchange.BaseURL,
		Timeout: cfg.Exchange.RequestTimeout,
	}, a.Logger), rate, "BRL", a.Logger)

	session, err := bot.NewSession(cfg.Discord.BotToken, a.Logger)
	if err != nil {
		return err
	}
	if err := session.Open(); err != nil {
		return err
	}
	defer session.Close()

	session.VerifyChannels(
		cfg.Discord.ClientChannelID,
		cfg.Discord.VendorChannelID,
		cfg.Discord.InternationalChannel,
	)

	dispatcher := notify.NewDispatcher(session, a.Logger)

	domestic := feed.New(feed.Options{
		Name:        "domestic",
		Feed:        state.FeedDomestic,
		Query:       func() string { return market.DomesticQuery(cfg.Market.Region) },
		Cooldown:    cfg.Feeds.CooldownDuration,
		MaxPerCycle: cfg.Feeds.MaxPerCycle,
		ItemDelay:   cfg.Feeds.ItemDelay,
	}, store, marketClient, marketClient,
		feed.NewProcessor(state.FeedDomestic, store, previews, dispatcher, rate,
			cfg.Discord.ClientChannelID, false, a.Logger).Process,
		a.Logger)

	international := feed.New(feed.Options{
		Name:        "international",
		Feed:        state.FeedInternational,
		Query:       func() string { return market.InternationalQuery(rate.Ptr()) },
		Cooldown:    cfg.Feeds.CooldownDuration,
		MaxPerCycle: cfg.Feeds.MaxPerCycle,
		ItemDelay:   cfg.Feeds.ItemDelay,
	}, store, marketClient, marketClient,
		feed.NewProcessor(state.FeedInternational, store, previews, dispatcher, rate,
			cfg.Discord.InternationalChannel, true, a.Logger).Process,
		a.Logger)

	commands := bot.NewCommands(store, marketClient, previews, dispatcher, rate,
		session, cfg.Discord.VendorChannelID, cfg.Discord.CommandPrefix, a.Logger)
	session.OnMessage(func(channelID, content string) {
		commands.Handle(ctx, channelID, content)
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.New(scheduler.Options{
			Name:     "exchange_refresh",
			Interval: cfg.Exchange.RefreshInterval,
		}, a.Logger).Run(ctx, refresher.Tick)
	})
	g.Go(func() error {
		return scheduler.New(scheduler.Options{
			Name:     "domestic_poll",
			Interval: cfg.Feeds.PollInterval,
		}, a.Logger).Run(ctx, domestic.Tick)
	})
	g.Go(func() error {
		return scheduler.New(scheduler.Options{
			Name:     "international_poll",
			Interval: cfg.Feeds.PollInterval,
		}, a.Logger).Run(ctx, international.Tick)
	})

	a.Logger.Info().Msg("listing watcher started")
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("listing watcher stopped")
	return nil
}
