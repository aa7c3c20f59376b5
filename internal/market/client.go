package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"market-listing-alerts/internal/retry"
)

// Lister retrieves the current listing snapshot for a filter query.
type Lister interface {
	ListItems(ctx context.Context, query string) ([]int64, error)
}

// Detailer retrieves the full payload for one marketplace item.
type Detailer interface {
	FetchItem(ctx context.Context, itemID int64) (*ItemDetail, error)
}

// StatusError carries a non-2xx response status across the retry boundary.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("marketplace api error (%d): %s", e.Code, e.Body)
	}
	return fmt.Sprintf("marketplace api error (%d)", e.Code)
}

// Options parameterise the marketplace client.
type Options struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Client talks to the lzt.market HTTP API.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	policy  retry.Policy
}

// NewClient constructs a marketplace client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.lzt.market"
	}

	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "market_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		policy: retry.Policy{
			Attempts:  attempts,
			Delay:     delay,
			Retryable: retryableError,
		},
	}
}

// Server errors and transport failures are retried; any other HTTP status is
// treated as non-recoverable (auth, bad request).
func retryableError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}

// ListItems fetches the current listing snapshot and returns its item IDs.
func (c *Client) ListItems(ctx context.Context, query string) ([]int64, error) {
	endpoint := c.baseURL + "/riot/?" + query

	var parsed listResponse
	err := c.policy.Do(ctx, func() error {
		return c.getJSON(ctx, endpoint, &parsed)
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	ids := make([]int64, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ItemID != 0 {
			ids = append(ids, item.ItemID)
		}
	}
	return ids, nil
}

// FetchItem retrieves the full detail payload for one item.
func (c *Client) FetchItem(ctx context.Context, itemID int64) (*ItemDetail, error) {
	endpoint := fmt.Sprintf("%s/riot/%d", c.baseURL, itemID)

	var parsed detailResponse
	err := c.policy.Do(ctx, func() error {
		return c.getJSON(ctx, endpoint, &parsed)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", itemID, err)
	}
	if parsed.Item == nil {
		return nil, fmt.Errorf("fetch item %d: payload missing item", itemID)
	}
	return parsed.Item, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug().Int("status", resp.StatusCode).Str("url", endpoint).Msg("non-2xx response")
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &StatusError{Code: resp.StatusCode, Body: "malformed payload"}
	}
	return nil
}

var (
	_ Lister   = (*Client)(nil)
	_ Detailer = (*Client)(nil)
)
