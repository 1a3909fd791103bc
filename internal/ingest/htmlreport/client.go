// Package htmlreport fetches and parses the legacy TH/TV time-on-ice
// reports.
package htmlreport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"

	"github.com/fortuna/icetime/internal/hockey"
)

const (
	// DefaultBaseURL hosts the reports by season.
	DefaultBaseURL = "http://www.nhl.com/scores/htmlreports"

	// UserAgent for browser mode requests
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// MinRequestInterval between report fetches
	MinRequestInterval = 1 * time.Second
)

// Fetch modes.
const (
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// Config selects the report host and how pages are fetched.
type Config struct {
	BaseURL         string
	Mode            string
	RequestInterval time.Duration
}

// Client fetches shift reports over plain HTTP or through a headless browser.
type Client struct {
	baseURL    string
	mode       string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	// Chromedp allocator for browser mode
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewClient creates a report client. Browser mode starts a headless Chrome
// allocator that must be released with Close.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeHTTP
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = MinRequestInterval
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		mode:       cfg.Mode,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		logger:     logger.With("component", "htmlreport"),
	}

	switch cfg.Mode {
	case ModeHTTP:
	case ModeBrowser:
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(UserAgent),
		)
		c.allocCtx, c.cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unknown html fetch mode %q", cfg.Mode)
	}
	return c, nil
}

// Close releases resources
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// ReportURL builds the TH (home) or TV (away) report address. The season
// is derived from the first four digits of the game id.
func ReportURL(baseURL string, gameID int64, side hockey.Side) (string, error) {
	id := strconv.FormatInt(gameID, 10)
	if len(id) != 10 {
		return "", &hockey.FormatError{GameID: gameID, Field: "game_id", Value: id, Err: fmt.Errorf("expected 10 digits")}
	}
	year, err := strconv.Atoi(id[:4])
	if err != nil {
		return "", &hockey.FormatError{GameID: gameID, Field: "game_id", Value: id, Err: err}
	}
	prefix := "TH"
	if side == hockey.Away {
		prefix = "TV"
	}
	return fmt.Sprintf("%s/%d%d/%s%s.HTM", strings.TrimRight(baseURL, "/"), year, year+1, prefix, id[4:]), nil
}

// Fetch downloads one side's report as UTF-8 text.
func (c *Client) Fetch(ctx context.Context, gameID int64, side hockey.Side) (string, error) {
	url, err := ReportURL(c.baseURL, gameID, side)
	if err != nil {
		return "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	c.logger.Debug("fetching shift report", "game_id", gameID, "side", side.String(), "url", url, "mode", c.mode)
	if c.mode == ModeBrowser {
		return c.fetchBrowser(ctx, url)
	}
	return c.fetchHTTP(ctx, url)
}

// fetchHTTP downloads a report and decodes it from ISO-8859-1.
func (c *Client) fetchHTTP(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%s: %w", url, hockey.ErrNoData)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("read report body: %w", err)
	}
	return string(body), nil
}

// fetchBrowser renders a report with chromedp
func (c *Client) fetchBrowser(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(c.allocCtx)
	defer cancel()

	// Stop the browser when the caller's context ends
	browserCtx, cancel = context.WithTimeout(browserCtx, 30*time.Second)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-browserCtx.Done():
		}
	}()

	var htmlContent string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.OuterHTML(`html`, &htmlContent, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp error: %w", err)
	}
	if htmlContent == "" {
		return "", fmt.Errorf("empty HTML content returned")
	}
	return htmlContent, nil
}
