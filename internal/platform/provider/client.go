// Package provider is the HTTP client for the odds provider: the reference
// catalog, scheduled matches and the two text-framed streaming feeds.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// Paths are the provider endpoint paths relative to the base URL.
type Paths struct {
	Sports        string
	Dictionary    string
	Scheduled     string
	InitialStream string
	UpdateStream  string
}

// DefaultPaths returns the standard endpoint layout.
func DefaultPaths() Paths {
	return Paths{
		Sports:        "/sports",
		Dictionary:    "/dictionary",
		Scheduled:     "/scheduled",
		InitialStream: "/stream/initial",
		UpdateStream:  "/stream/updates",
	}
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "https://feed.example.com/api".
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	// Timeout bounds catalog and scheduled requests. Streams are unbounded.
	Timeout time.Duration
	Paths   Paths
}

// Client talks to the provider API. Request/response calls use a client
// with a finite timeout; the streaming feeds use one without a body timeout
// and rely on context cancellation instead.
type Client struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	paths        Paths
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a provider client. Empty paths fall back to
// DefaultPaths.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "X-API-Key"
	}
	def := DefaultPaths()
	fill := func(dst *string, fallback string) {
		if *dst == "" {
			*dst = fallback
		}
	}
	fill(&opts.Paths.Sports, def.Sports)
	fill(&opts.Paths.Dictionary, def.Dictionary)
	fill(&opts.Paths.Scheduled, def.Scheduled)
	fill(&opts.Paths.InitialStream, def.InitialStream)
	fill(&opts.Paths.UpdateStream, def.UpdateStream)

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		apiKeyHeader: opts.APIKeyHeader,
		paths:        opts.Paths,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		streamClient: &http.Client{},
	}
}

// GetSports returns the sport catalog.
func (c *Client) GetSports(ctx context.Context) ([]domain.SportEntry, error) {
	body, err := c.doGet(ctx, c.paths.Sports)
	if err != nil {
		return nil, fmt.Errorf("provider: get sports: %w", err)
	}
	var rows []APISport
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("provider: decode sports: %w", err)
	}
	out := make([]domain.SportEntry, 0, len(rows))
	for _, r := range rows {
		s := r.ToDomain()
		if s.Code == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// GetDictionary returns the bet-type, pick and pick-group dictionaries.
func (c *Client) GetDictionary(ctx context.Context) (domain.Dictionary, error) {
	body, err := c.doGet(ctx, c.paths.Dictionary)
	if err != nil {
		return domain.Dictionary{}, fmt.Errorf("provider: get dictionary: %w", err)
	}
	var dict APIDictionary
	if err := json.Unmarshal(body, &dict); err != nil {
		return domain.Dictionary{}, fmt.Errorf("provider: decode dictionary: %w", err)
	}
	return dict.ToDomain(), nil
}

// GetScheduledMatches returns the not-yet-live matches of sportCode starting
// within interval. A zero interval leaves the window to the provider.
func (c *Client) GetScheduledMatches(ctx context.Context, sportCode string, interval time.Duration) ([]domain.ScheduledMatch, error) {
	params := url.Values{}
	params.Set("sport", sportCode)
	if interval > 0 {
		params.Set("interval", strconv.FormatInt(intervalMinutes(interval), 10))
	}
	body, err := c.doGet(ctx, c.paths.Scheduled+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("provider: get scheduled matches: %w", err)
	}
	var rows []APIScheduledMatch
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("provider: decode scheduled matches: %w", err)
	}
	out := make([]domain.ScheduledMatch, 0, len(rows))
	for _, r := range rows {
		if r.ID == 0 {
			continue
		}
		out = append(out, r.ToDomain(sportCode))
	}
	return out, nil
}

// intervalMinutes converts a positive look-ahead window to whole minutes,
// rounding up so a sub-minute window never becomes 0.
func intervalMinutes(d time.Duration) int64 {
	return int64((d + time.Minute - 1) / time.Minute)
}

// OpenInitial opens the initial (snapshot) feed for sport.
func (c *Client) OpenInitial(ctx context.Context, sport string) (io.ReadCloser, error) {
	params := url.Values{}
	params.Set("sport", sport)
	body, err := c.openStream(ctx, c.paths.InitialStream+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("provider: open initial feed: %w", err)
	}
	return body, nil
}

// OpenUpdates opens the incremental feed for sport, resuming after since.
func (c *Client) OpenUpdates(ctx context.Context, sport string, since int64) (io.ReadCloser, error) {
	params := url.Values{}
	params.Set("sport", sport)
	params.Set("since", strconv.FormatInt(since, 10))
	body, err := c.openStream(ctx, c.paths.UpdateStream+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("provider: open update feed: %w", err)
	}
	return body, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrTransport, err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) openStream(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream, text/plain")
	req.Header.Set("Cache-Control", "no-cache")
	c.authorize(req)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %w", domain.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, checkHTTPStatus(resp.StatusCode, body)
	}
	return resp.Body, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}
}

// checkHTTPStatus maps any non-2xx status to ErrTransport.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	if statusCode == http.StatusNotFound {
		return fmt.Errorf("%w: HTTP %d: %w: %s", domain.ErrTransport, statusCode, domain.ErrNotFound, msg)
	}
	return fmt.Errorf("%w: HTTP %d: %s", domain.ErrTransport, statusCode, msg)
}
