package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SkinInfo is a resolved cosmetic item: display name plus icon location.
type SkinInfo struct {
	UUID    string
	Name    string
	IconURL string
}

// Resolver maps an opaque cosmetic ID to its display info.
type Resolver interface {
	ResolveSkin(ctx context.Context, uuid string) (*SkinInfo, error)
}

// Options parameterise the metadata client.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// Client queries the skin metadata service.
type Client struct {
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a metadata client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://valorant-api.com"
	}

	return &Client{
		logger:  logger.With().Str("component", "metadata_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type skinResponse struct {
	Status int `json:"status"`
	Data   struct {
		DisplayName string `json:"displayName"`
		DisplayIcon string `json:"displayIcon"`
	} `json:"data"`
}

// ResolveSkin looks up a skin by UUID, falling back to the skin-level
// endpoint when the primary lookup misses. Entries with a placeholder
// ("standard") name or no icon are excluded and return nil without error.
func (c *Client) ResolveSkin(ctx context.Context, uuid string) (*SkinInfo, error) {
	parsed, found, err := c.lookup(ctx, c.baseURL+"/v1/weapons/skins/"+uuid)
	if err != nil {
		return nil, err
	}
	if !found {
		parsed, found, err = c.lookup(ctx, c.baseURL+"/v1/weapons/skinlevels/"+uuid)
		if err != nil {
			return nil, err
		}
	}
	if !found {
		return nil, nil
	}

	name := parsed.Data.DisplayName
	icon := parsed.Data.DisplayIcon
	if name == "" || icon == "" || strings.Contains(strings.ToLower(name), "standard") {
		return nil, nil
	}

	return &SkinInfo{UUID: uuid, Name: name, IconURL: icon}, nil
}

func (c *Client) lookup(ctx context.Context, endpoint string) (*skinResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("metadata api error (%d)", resp.StatusCode)
	}

	var parsed skinResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, fmt.Errorf("decode metadata payload: %w", err)
	}
	if parsed.Status != http.StatusOK {
		return nil, false, nil
	}
	return &parsed, true, nil
}

var _ Resolver = (*Client)(nil)
