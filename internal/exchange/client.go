package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options parameterise the exchange-rate client.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the exchangerate-api latest-rates endpoint.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs an exchange-rate client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://v6.exchangerate-api.com/v6"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "exchange_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

// FetchUSDRate returns how many units of the given currency one USD buys.
func (c *Client) FetchUSDRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	if c.opts.APIKey == "" {
		return decimal.Decimal{}, errors.New("exchange-rate api key not configured")
	}

	endpoint := fmt.Sprintf("%s/%s/latest/USD", c.baseURL, c.opts.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("exchange api error (%d)", resp.StatusCode)
	}

	var parsed latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode exchange payload: %w", err)
	}

	if parsed.Result != "success" {
		return decimal.Decimal{}, fmt.Errorf("exchange api result %q (%s)", parsed.Result, parsed.ErrorType)
	}

	rate, ok := parsed.ConversionRates[currency]
	if !ok || !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("exchange payload missing %s rate", currency)
	}
	return rate, nil
}
