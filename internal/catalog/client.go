package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/itspokchop93/fasho-landing-sub004/internal/config"
	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// PlaylistInfo is what the external catalog knows about a playlist.
type PlaylistInfo struct {
	TrackCount int
	Health     models.HealthStatus
}

// Lookup is the read side of the external music catalog.
type Lookup interface {
	LookupPlaylist(ctx context.Context, externalID string) (*PlaylistInfo, error)
}

// Client talks to the catalog's public HTTP API.
// Calls are rate-limited and retried once with a fixed short delay.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

const retryDelay = 500 * time.Millisecond

func New(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rps := cfg.Catalog.RatePerSecond
	if rps <= 0 {
		rps = 4
	}
	return &Client{
		baseURL: cfg.Catalog.BaseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// LookupPlaylist fetches the live track count and visibility for a playlist.
func (c *Client) LookupPlaylist(ctx context.Context, externalID string) (*PlaylistInfo, error) {
	info, err := c.fetch(ctx, externalID)
	if err == nil {
		return info, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Retry budget: exactly one, fixed delay, no backoff.
	select {
	case <-time.After(retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	info, err = c.fetch(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup %s: %w", externalID, models.ErrUpstreamUnavailable)
	}
	return info, nil
}

func (c *Client) fetch(ctx context.Context, externalID string) (*PlaylistInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.baseURL + "/v1/playlists/" + url.PathEscape(externalID))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return &PlaylistInfo{Health: models.HealthRemoved}, nil
	case http.StatusForbidden:
		return &PlaylistInfo{Health: models.HealthPrivate}, nil
	default:
		return nil, fmt.Errorf("catalog status %d", resp.StatusCode)
	}

	var body struct {
		Name       string `json:"name"`
		TrackCount int    `json:"track_count"`
		Public     bool   `json:"public"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	health := models.HealthActive
	if !body.Public {
		health = models.HealthPrivate
	}

	return &PlaylistInfo{TrackCount: body.TrackCount, Health: health}, nil
}
