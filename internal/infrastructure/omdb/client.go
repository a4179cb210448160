package omdb

import (
	"context"
	"encoding/json"
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

// notAvailable is OMDb's placeholder for missing fields
const notAvailable = "N/A"

// Response is the subset of an OMDb title lookup we read
type Response struct {
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Genre    string `json:"Genre"`
	Country  string `json:"Country"`
	Type     string `json:"Type"`
	IMDbID   string `json:"imdbID"`
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// Client is the secondary metadata source. It is only consulted for fields
// the primary detail record left empty.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
}

// NewClient creates a new OMDb client. requestsPerDay bounds outgoing calls
// to the plan's daily quota.
func NewClient(apiKey, baseURL string, requestsPerDay int, logger zerolog.Logger) *Client {
	if requestsPerDay <= 0 {
		requestsPerDay = 1000
	}
	limiter := rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(requestsPerDay)), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		logger:      logger.With().Str("source", "omdb").Logger(),
	}
}

// IsConfigured reports whether an API key is set
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// GetFallback looks up genre and country by IMDb id
func (c *Client) GetFallback(ctx context.Context, externalID string) (*domain.FallbackFields, error) {
	if !c.IsConfigured() {
		return nil, domain.ErrFallbackUnavailable
	}

	if err := waitRate(ctx, c.rateLimiter); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("i", externalID)
	params.Add("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s/?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.LookupError{Source: "omdb", Op: "fallback", Kind: domain.FailureFallback, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.LookupError{
			Source: "omdb",
			Op:     "fallback",
			Kind:   domain.FailureFallback,
			Err:    fmt.Errorf("%w: status %d, body: %s", domain.ErrLookupFailure, resp.StatusCode, string(body)),
		}
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !strings.EqualFold(payload.Response, "True") {
		c.logger.Debug().Str("external_id", externalID).Str("error", payload.Error).Msg("no fallback record")
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, payload.Error)
	}

	return &domain.FallbackFields{
		Genre:   cleanField(payload.Genre),
		Country: cleanField(payload.Country),
	}, nil
}

// cleanField maps OMDb's "N/A" placeholder to empty
func cleanField(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, notAvailable) {
		return ""
	}
	return v
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
