// Package nhl provides the HTTP client for the public NHL JSON endpoints:
// play-by-play, club schedules and shift charts.
package nhl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fortuna/icetime/internal/hockey"
)

const (
	// DefaultAPIBase serves play-by-play and schedules.
	DefaultAPIBase = "https://api-web.nhle.com/v1"

	// DefaultStatsBase serves shift charts.
	DefaultStatsBase = "https://api.nhle.com/stats/rest/en"

	// DefaultRequestInterval spaces out requests to both hosts.
	DefaultRequestInterval = 500 * time.Millisecond
)

// Config holds the client endpoints and pacing.
type Config struct {
	APIBase         string
	StatsBase       string
	RequestInterval time.Duration
	Timeout         time.Duration
}

// Client is the rate limited NHL API client.
type Client struct {
	httpClient *http.Client
	apiBase    string
	statsBase  string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an NHL API client. Zero config fields take the defaults.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.StatsBase == "" {
		cfg.StatsBase = DefaultStatsBase
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = DefaultRequestInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		statsBase:  strings.TrimRight(cfg.StatsBase, "/"),
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		logger:     logger.With("component", "nhl-client"),
	}
}

// FetchPlayByPlay fetches the play-by-play document for a game. The raw
// body is returned alongside the decoded document so callers can cache it.
func (c *Client) FetchPlayByPlay(ctx context.Context, gameID int64) (*PlayByPlay, []byte, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/gamecenter/%d/play-by-play", c.apiBase, gameID))
	if err != nil {
		return nil, nil, err
	}
	doc, err := ParsePlayByPlay(body)
	if err != nil {
		return nil, nil, err
	}
	return doc, body, nil
}

// FetchShiftChart fetches the JSON shift chart for a game.
func (c *Client) FetchShiftChart(ctx context.Context, gameID int64) ([]ShiftChartRecord, []byte, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/shiftcharts?cayenneExp=gameId=%d", c.statsBase, gameID))
	if err != nil {
		return nil, nil, err
	}
	records, err := ParseShiftChart(body)
	if err != nil {
		return nil, nil, err
	}
	return records, body, nil
}

// FetchSchedule fetches a club's schedule for a season such as 20232024.
func (c *Client) FetchSchedule(ctx context.Context, team string, season int) (*Schedule, error) {
	team = strings.ToUpper(strings.TrimSpace(team))
	body, err := c.get(ctx, fmt.Sprintf("%s/club-schedule-season/%s/%d", c.apiBase, team, season))
	if err != nil {
		return nil, err
	}
	var sched Schedule
	if err := json.Unmarshal(body, &sched); err != nil {
		return nil, fmt.Errorf("decode schedule %s %d: %w", team, season, err)
	}
	return &sched, nil
}

// get performs a rate limited GET. A 404 is reported as hockey.ErrNoData.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	c.logger.Debug("fetched", "url", url, "status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", url, hockey.ErrNoData)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// truncate returns a truncated string for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
