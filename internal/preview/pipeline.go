package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"market-listing-alerts/internal/metadata"
)

const (
	// MaxSkinsInGrid bounds how many cosmetic IDs a single preview covers;
	// anything beyond the cap is dropped before network work starts.
	MaxSkinsInGrid = 12
	fetchLimit     = 5
)

// Downloader retrieves raw icon bytes for a resolved skin.
type Downloader interface {
	DownloadIcon(ctx context.Context, url string) ([]byte, error)
}

// HTTPDownloader fetches icons over plain HTTP.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader constructs a downloader with the given per-request timeout.
func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDownloader{client: &http.Client{Timeout: timeout}}
}

// DownloadIcon returns the body bytes for the icon URL.
func (d *HTTPDownloader) DownloadIcon(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("icon download error (%d)", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Pipeline turns a list of cosmetic IDs into one composite preview image.
type Pipeline struct {
	resolver   metadata.Resolver
	downloader Downloader
	logger     zerolog.Logger
}

// NewPipeline constructs an enrichment pipeline.
func NewPipeline(resolver metadata.Resolver, downloader Downloader, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		resolver:   resolver,
		downloader: downloader,
		logger:     logger.With().Str("component", "preview_pipeline").Logger(),
	}
}

// Generate resolves, downloads, and composes up to MaxSkinsInGrid skins into
// a PNG grid. Individual lookup or download failures drop that entry only;
// when nothing survives the result is nil with no error.
func (p *Pipeline) Generate(ctx context.Context, skinIDs []string) ([]byte, error) {
	if len(skinIDs) == 0 {
		return nil, nil
	}
	if len(skinIDs) > MaxSkinsInGrid {
		skinIDs = skinIDs[:MaxSkinsInGrid]
	}

	resolved := p.resolveAll(ctx, skinIDs)
	if len(resolved) == 0 {
		return nil, nil
	}

	cards := p.downloadAll(ctx, resolved)
	if len(cards) == 0 {
		return nil, nil
	}

	p.logger.Debug().Int("cards", len(cards)).Msg("composing skin grid")
	return renderGrid(cards)
}

func (p *Pipeline) resolveAll(ctx context.Context, skinIDs []string) []*metadata.SkinInfo {
	var mu sync.Mutex
	resolved := make([]*metadata.SkinInfo, 0, len(skinIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for _, id := range skinIDs {
		id := id
		g.Go(func() error {
			info, err := p.resolver.ResolveSkin(ctx, id)
			if err != nil {
				p.logger.Debug().Err(err).Str("skin", id).Msg("skin lookup failed")
				return nil
			}
			if info == nil {
				return nil
			}
			mu.Lock()
			resolved = append(resolved, info)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return resolved
}

func (p *Pipeline) downloadAll(ctx context.Context, resolved []*metadata.SkinInfo) []card {
	var mu sync.Mutex
	cards := make([]card, 0, len(resolved))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for _, info := range resolved {
		info := info
		g.Go(func() error {
			icon, err := p.downloader.DownloadIcon(ctx, info.IconURL)
			if err != nil {
				p.logger.Debug().Err(err).Str("skin", info.Name).Msg("icon download failed")
				return nil
			}
			mu.Lock()
			cards = append(cards, card{name: info.Name, icon: icon})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return cards
}
