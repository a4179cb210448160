package imdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/moodboxd/backend/internal/domain"
)

const (
	maxAttempts  = 3
	maxBodyBytes = 4 << 20
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// ClientConfig holds configuration for the IMDb client
type ClientConfig struct {
	SuggestURL        string
	TitleURL          string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client searches titles through the IMDb suggestion endpoint and reads
// authoritative details from title pages
type Client struct {
	httpClient  *http.Client
	suggestURL  string
	titleURL    string
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
	debug       bool
	backoff     func(attempt int) time.Duration
}

// NewClient creates a new IMDb client
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	// rate.Limit is requests per second
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		suggestURL:  strings.TrimRight(cfg.SuggestURL, "/"),
		titleURL:    strings.TrimRight(cfg.TitleURL, "/"),
		rateLimiter: limiter,
		logger:      logger.With().Str("source", "imdb").Logger(),
		backoff:     exponentialBackoff,
	}
}

// SetDebug enables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		c.logger.Debug().Msgf(format, args...)
	}
}

// exponentialBackoff returns the delay before retry attempt n (1-based)
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// readLimitedBody reads at most limit bytes of the body
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

// TitleURL returns the canonical page URL for an IMDb id
func (c *Client) TitleURL(id string) string {
	return fmt.Sprintf("%s/%s/", c.titleURL, id)
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLookupFailure, err)
	}

	return resp, nil
}

// get fetches reqURL, retrying transient failures (network errors, 429, 5xx)
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := waitRate(ctx, c.rateLimiter); err != nil {
			return nil, err
		}

		c.debugLog("GET %s (attempt %d)", reqURL, attempt)
		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.debugLog("request error (attempt %d): %v", attempt, err)
			lastErr = err
			continue
		}

		body, readErr := readLimitedBody(resp.Body, maxBodyBytes)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = fmt.Errorf("%w: reading body: %w", domain.ErrLookupFailure, readErr)
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			c.debugLog("status %d (attempt %d)", resp.StatusCode, attempt)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrLookupFailure, resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("%w: status %d", domain.ErrLookupFailure, resp.StatusCode)
		}
	}

	c.logger.Warn().Err(lastErr).Str("url", reqURL).Msg("all retries failed")
	return nil, lastErr
}

// Search returns candidates for title in IMDb's relevance order.
// Zero results is an empty slice.
func (c *Client) Search(ctx context.Context, title string) ([]domain.CandidateRecord, error) {
	query := strings.ToLower(strings.TrimSpace(title))
	if query == "" {
		return []domain.CandidateRecord{}, nil
	}

	reqURL := fmt.Sprintf("%s/x/%s.json", c.suggestURL, url.PathEscape(query))
	body, err := c.get(ctx, reqURL)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.CandidateRecord{}, nil
		}
		return nil, err
	}

	var resp SuggestionResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	candidates := MapSuggestions(&resp)
	c.debugLog("found %d candidates for %q", len(candidates), title)
	return candidates, nil
}

// GetDetail fetches and parses the title page for an IMDb id
func (c *Client) GetDetail(ctx context.Context, externalID string) (*domain.DetailRecord, error) {
	if !strings.HasPrefix(externalID, "tt") {
		return nil, fmt.Errorf("%w: not a title id %q", domain.ErrInvalidRequest, externalID)
	}

	pageURL := c.TitleURL(externalID)
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	detail, err := ParseTitlePage(externalID, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse title page: %w", err)
	}
	detail.URL = pageURL

	c.debugLog("detail %s", describe(detail))
	return detail, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// waitRate blocks until limiter admits one request. A wait the context
// deadline cannot cover is reported as context.DeadlineExceeded.
func waitRate(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("rate limiter: %w", context.DeadlineExceeded)
	}
	return nil
}
