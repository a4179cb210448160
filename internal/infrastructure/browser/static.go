package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/moodboxd/backend/internal/domain"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageBytes     = 8 << 20
)

// StaticConfig holds configuration for the plain HTTP surface
type StaticConfig struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerMinute int
}

// StaticSurface fetches listing pages over plain HTTP and queries them with
// goquery. It executes no scripts, so scrolling is a no-op and the content
// height never changes.
type StaticSurface struct {
	httpClient  *http.Client
	userAgent   string
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
}

// NewStaticSurface creates an HTTP-backed rendering surface
func NewStaticSurface(config StaticConfig, logger zerolog.Logger) *StaticSurface {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := config.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
	}

	return &StaticSurface{
		httpClient:  &http.Client{Timeout: timeout},
		userAgent:   ua,
		rateLimiter: limiter,
		logger:      logger,
	}
}

// Open returns a new session; no resources are held until Navigate
func (s *StaticSurface) Open(ctx context.Context) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &staticSession{surface: s}, nil
}

type staticSession struct {
	surface *StaticSurface
	doc     *goquery.Document
	markup  string
}

func (s *staticSession) Navigate(ctx context.Context, url string) error {
	if err := waitRate(ctx, s.surface.rateLimiter); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.surface.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.surface.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		// 404 and friends still render a page; the missing grid reports it
		s.surface.logger.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("non-200 catalog page")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	s.doc = doc
	s.markup = string(body)
	return nil
}

// WaitFor checks the fetched document once; nothing appears later without scripts
func (s *staticSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	if s.doc == nil {
		return false, nil
	}
	return s.doc.Find(selector).Length() > 0, nil
}

func (s *staticSession) ScrollToBottom(ctx context.Context) error {
	return ctx.Err()
}

func (s *staticSession) ScrollHeight(ctx context.Context) (int, error) {
	return len(s.markup), ctx.Err()
}

func (s *staticSession) FindAll(ctx context.Context, selector string) ([]domain.Element, error) {
	if s.doc == nil {
		return []domain.Element{}, nil
	}
	sel := s.doc.Find(selector)
	out := make([]domain.Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		out = append(out, &staticElement{sel: node})
	})
	return out, nil
}

func (s *staticSession) FindOne(ctx context.Context, selector string) (domain.Element, bool, error) {
	if s.doc == nil {
		return nil, false, nil
	}
	return firstSelection(s.doc.Find(selector))
}

func (s *staticSession) Content(ctx context.Context) (string, error) {
	return s.markup, nil
}

func (s *staticSession) Close() error {
	s.doc = nil
	s.markup = ""
	return nil
}

type staticElement struct {
	sel *goquery.Selection
}

func (e *staticElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// IsVisible approximates rendering: hidden attribute, aria-hidden, inline
// display:none and disabled-looking classes all count as not visible
func (e *staticElement) IsVisible(ctx context.Context) (bool, error) {
	for node := e.sel; node.Length() > 0; node = node.Parent() {
		if _, hidden := node.Attr("hidden"); hidden {
			return false, nil
		}
		if v, _ := node.Attr("aria-hidden"); v == "true" {
			return false, nil
		}
		style, _ := node.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false, nil
		}
	}
	if e.sel.HasClass("disabled") || e.sel.HasClass("-disabled") {
		return false, nil
	}
	return true, nil
}

func (e *staticElement) FindOne(ctx context.Context, selector string) (domain.Element, bool, error) {
	return firstSelection(e.sel.Find(selector))
}

func firstSelection(sel *goquery.Selection) (domain.Element, bool, error) {
	if sel.Length() == 0 {
		return nil, false, nil
	}
	return &staticElement{sel: sel.First()}, true, nil
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
