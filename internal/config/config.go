package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"market-listing-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Market   MarketConfig   `mapstructure:"market"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Feeds    FeedsConfig    `mapstructure:"feeds"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DiscordConfig covers the bot session and target channels.
type DiscordConfig struct {
	BotToken             string `mapstructure:"bot_token"`
	ClientChannelID      string `mapstructure:"client_channel_id"`
	VendorChannelID      string `mapstructure:"vendor_channel_id"`
	InternationalChannel string `mapstructure:"international_channel_id"`
	CommandPrefix        string `mapstructure:"command_prefix"`
}

// MarketConfig captures lzt.market connectivity.
type MarketConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"`
	Region         string        `mapstructure:"region"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// ExchangeConfig covers the exchange-rate service.
type ExchangeConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// MetadataConfig covers the skin metadata service.
type MetadataConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// FeedsConfig governs the polling engines.
type FeedsConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	CooldownDuration time.Duration `mapstructure:"cooldown_duration"`
	MaxPerCycle      int           `mapstructure:"max_per_cycle"`
	ItemDelay        time.Duration `mapstructure:"item_delay"`
}

// StorageConfig locates the persisted JSON snapshots.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LZTWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lztwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("discord.bot_token", "")
	v.SetDefault("discord.client_channel_id", "")
	v.SetDefault("discord.vendor_channel_id", "")
	v.SetDefault("discord.international_channel_id", "")
	v.SetDefault("discord.command_prefix", "/")

	v.SetDefault("market.base_url", "https://api.lzt.market")
	v.SetDefault("market.token", "")
	v.SetDefault("market.region", "BR")
	v.SetDefault("market.request_timeout", "20s")
	v.SetDefault("market.retry_attempts", 3)
	v.SetDefault("market.retry_delay", "5s")

	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.base_url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("exchange.request_timeout", "10s")
	v.SetDefault("exchange.refresh_interval", "6h")

	v.SetDefault("metadata.base_url", "https://valorant-api.com")
	v.SetDefault("metadata.request_timeout", "5s")

	v.SetDefault("feeds.poll_interval", "60s")
	v.SetDefault("feeds.cooldown_duration", "5m")
	v.SetDefault("feeds.max_per_cycle", 3)
	v.SetDefault("feeds.item_delay", "5s")

	v.SetDefault("storage.data_dir", ".")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
// Missing mandatory values are fatal at startup; optional ones (market token,
// exchange key) only degrade features and are warned about by the app.
func (c *Config) Validate() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("discord.bot_token must be configured")
	}
	if c.Discord.ClientChannelID == "" {
		return fmt.Errorf("discord.client_channel_id must be configured")
	}
	if c.Discord.VendorChannelID == "" {
		return fmt.Errorf("discord.vendor_channel_id must be configured")
	}
	if c.Discord.InternationalChannel == "" {
		return fmt.Errorf("discord.international_channel_id must be configured")
	}
	if c.Feeds.PollInterval <= 0 {
		return fmt.Errorf("feeds.poll_interval must be greater than zero")
	}
	if c.Feeds.CooldownDuration <= 0 {
		return fmt.Errorf("feeds.cooldown_duration must be greater than zero")
	}
	if c.Feeds.MaxPerCycle <= 0 {
		return fmt.Errorf("feeds.max_per_cycle must be greater than zero")
	}
	if c.Market.RetryAttempts <= 0 {
		return fmt.Errorf("market.retry_attempts must be greater than zero")
	}
	return nil
}
