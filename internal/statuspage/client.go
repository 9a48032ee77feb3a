// Package statuspage fetches incident feeds from a Statuspage-compatible public API.
package statuspage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/version"
)

const defaultTimeout = 30 * time.Second

// Feed errors.
var (
	ErrEmptyBody        = errors.New("feed response body is empty")
	ErrMissingIncidents = errors.New("feed response has no incident list")
	ErrUnsupportedFeed  = errors.New("unsupported feed kind")
)

// Config holds status page client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Feed is a decoded provider feed.
type Feed struct {
	Page      domain.Page
	Incidents []domain.RemoteIncident
}

// Client fetches provider feeds over HTTP without authentication.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new status page client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// BaseURL returns the page URL the client polls.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FeedURL returns the endpoint for a feed kind.
func (c *Client) FeedURL(kind domain.FeedKind) string {
	return fmt.Sprintf("%s/api/v2/%s.json", c.baseURL, kind)
}

type feedResponse struct {
	Page                  domain.Page             `json:"page"`
	Incidents             []domain.RemoteIncident `json:"incidents"`
	ScheduledMaintenances []domain.RemoteIncident `json:"scheduled_maintenances"`
}

// Fetch downloads and decodes one feed.
// The provider lists items newest first; the order is preserved.
func (c *Client) Fetch(ctx context.Context, kind domain.FeedKind) (*Feed, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFeed, kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL(kind), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "incident-relay/"+version.Version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: unexpected status %d: %s", kind, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBody
		}
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}

	incidents := payload.Incidents
	if kind == domain.FeedMaintenance {
		incidents = payload.ScheduledMaintenances
	}
	if incidents == nil {
		return nil, ErrMissingIncidents
	}

	return &Feed{
		Page:      payload.Page,
		Incidents: incidents,
	}, nil
}
