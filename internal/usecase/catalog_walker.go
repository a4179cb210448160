package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/internal/domain"
)

// Catalog listing markup
const (
	selectorGrid      = "div.poster-grid"
	selectorEntry     = "li.griditem"
	selectorPoster    = "img.image"
	selectorRating    = "span.rating"
	selectorNextPage  = ".paginate-nextprev a.next"
	defaultCatalogURL = "https://letterboxd.com"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	ratingPattern   = regexp.MustCompile(`(?:^|\s)rated-(\d+)(?:\s|$)`)
)

// WalkerConfig holds configuration for the catalog walker
type WalkerConfig struct {
	BaseURL           string
	PageTimeout       time.Duration
	ScrollSettle      time.Duration
	MaxScrollAttempts int
	MaxPages          int
}

// CatalogWalker drives a rendering surface through a user's paginated film listing
type CatalogWalker struct {
	surface domain.RenderingSurface
	sink    domain.DiagnosticSink
	config  WalkerConfig
	logger  zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewCatalogWalker creates a walker. sink may be nil, in which case timed-out
// pages are not captured.
func NewCatalogWalker(surface domain.RenderingSurface, sink domain.DiagnosticSink, config WalkerConfig, logger zerolog.Logger) *CatalogWalker {
	if config.BaseURL == "" {
		config.BaseURL = defaultCatalogURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.PageTimeout <= 0 {
		config.PageTimeout = 20 * time.Second
	}
	if config.ScrollSettle < 0 {
		config.ScrollSettle = 0
	}
	if config.MaxScrollAttempts <= 0 {
		config.MaxScrollAttempts = 20
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 100
	}

	return &CatalogWalker{
		surface: surface,
		sink:    sink,
		config:  config,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// PageURL returns the listing URL for a 1-based page index
func (w *CatalogWalker) PageURL(username string, page int) string {
	user := url.PathEscape(username)
	if page <= 1 {
		return fmt.Sprintf("%s/%s/films/", w.config.BaseURL, user)
	}
	return fmt.Sprintf("%s/%s/films/page/%d/", w.config.BaseURL, user, page)
}

// Walk collects every entry of the user's catalog. It never discards entries
// already collected: when a page times out or the surface fails, the walk
// stops and reports the error alongside the partial entries.
func (w *CatalogWalker) Walk(ctx context.Context, username string) *domain.CatalogWalk {
	walk := &domain.CatalogWalk{Username: username, Entries: []domain.RawEntry{}}

	if !usernamePattern.MatchString(username) {
		walk.StopReason = domain.StopInvalidInput
		walk.Err = fmt.Errorf("%w: username %q", domain.ErrInvalidRequest, username)
		return walk
	}

	session, err := w.surface.Open(ctx)
	if err != nil {
		w.stop(ctx, walk, surfaceError("open", err))
		return walk
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			w.logger.Warn().Err(cerr).Str("username", username).Msg("failed to close browsing session")
		}
	}()

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			w.stop(ctx, walk, err)
			return walk
		}

		entries, hasNext, err := w.walkPage(ctx, session, username, page, walk)
		walk.Entries = append(walk.Entries, entries...)
		if err != nil {
			w.stop(ctx, walk, err)
			return walk
		}
		walk.PagesVisited = page

		w.logger.Info().
			Str("username", username).
			Int("page", page).
			Int("entries", len(entries)).
			Int("total", len(walk.Entries)).
			Msg("catalog page scraped")

		if !hasNext {
			walk.StopReason = domain.StopLastPage
			return walk
		}
		if page >= w.config.MaxPages {
			w.logger.Warn().
				Str("username", username).
				Int("max_pages", w.config.MaxPages).
				Msg("page cap reached, stopping catalog walk")
			walk.StopReason = domain.StopPageCap
			return walk
		}
	}
}

// walkPage loads, scrolls and extracts one listing page
func (w *CatalogWalker) walkPage(
	ctx context.Context,
	session domain.Session,
	username string,
	page int,
	walk *domain.CatalogWalk,
) ([]domain.RawEntry, bool, error) {
	pageURL := w.PageURL(username, page)
	if err := session.Navigate(ctx, pageURL); err != nil {
		return nil, false, surfaceError("navigate", err)
	}

	found, err := session.WaitFor(ctx, selectorGrid, w.config.PageTimeout)
	if err != nil {
		return nil, false, surfaceError("wait", err)
	}
	if !found {
		walk.DiagnosticPath = w.captureDiagnostics(ctx, session, username, page)
		return nil, false, &domain.LookupError{
			Source: "browser",
			Op:     "wait",
			Kind:   domain.FailureTimeout,
			Err:    fmt.Errorf("%w: %s after %s", domain.ErrPageTimeout, pageURL, w.config.PageTimeout),
		}
	}

	if err := w.scrollUntilStable(ctx, session); err != nil {
		return nil, false, err
	}

	entries, err := w.extractEntries(ctx, session)
	if err != nil {
		return nil, false, err
	}

	hasNext, err := w.hasNextPage(ctx, session)
	if err != nil {
		return entries, false, err
	}
	return entries, hasNext, nil
}

// scrollUntilStable scrolls to the bottom until the content height stops changing
func (w *CatalogWalker) scrollUntilStable(ctx context.Context, session domain.Session) error {
	height, err := session.ScrollHeight(ctx)
	if err != nil {
		return surfaceError("scroll", err)
	}

	machine := newScrollMachine(height, w.config.MaxScrollAttempts)
	for !machine.done() {
		if err := session.ScrollToBottom(ctx); err != nil {
			return surfaceError("scroll", err)
		}
		machine.scrolled()

		if err := w.sleep(ctx, w.config.ScrollSettle); err != nil {
			return err
		}

		height, err = session.ScrollHeight(ctx)
		if err != nil {
			return surfaceError("scroll", err)
		}
		machine.observe(height)
	}

	if machine.state == scrollTimedOut {
		w.logger.Debug().
			Int("attempts", machine.attempts).
			Int("height", machine.lastHeight).
			Msg("content height never settled, extracting what is loaded")
	}
	return nil
}

// extractEntries reads every grid item on the current page in document order
func (w *CatalogWalker) extractEntries(ctx context.Context, session domain.Session) ([]domain.RawEntry, error) {
	items, err := session.FindAll(ctx, selectorEntry)
	if err != nil {
		return nil, surfaceError("extract", err)
	}

	entries := make([]domain.RawEntry, 0, len(items))
	for _, item := range items {
		img, ok, err := item.FindOne(ctx, selectorPoster)
		if err != nil {
			return entries, surfaceError("extract", err)
		}
		if !ok {
			continue
		}

		title, _, err := img.Attribute(ctx, "alt")
		if err != nil {
			return entries, surfaceError("extract", err)
		}
		title = strings.TrimSpace(title)
		if title == "" {
			w.logger.Debug().Msg("skipping grid item without a title")
			continue
		}
		poster, _, err := img.Attribute(ctx, "src")
		if err != nil {
			return entries, surfaceError("extract", err)
		}
		if poster == "" {
			poster, _, _ = img.Attribute(ctx, "data-src")
		}

		entry := domain.RawEntry{
			Title:     title,
			PosterURL: strings.TrimSpace(poster),
		}

		if span, ok, err := item.FindOne(ctx, selectorRating); err == nil && ok {
			class, _, _ := span.Attribute(ctx, "class")
			entry.UserRating = ParseRating(class)
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

// hasNextPage reports whether an enabled next-page control is present
func (w *CatalogWalker) hasNextPage(ctx context.Context, session domain.Session) (bool, error) {
	next, ok, err := session.FindOne(ctx, selectorNextPage)
	if err != nil {
		return false, surfaceError("paginate", err)
	}
	if !ok {
		return false, nil
	}

	visible, err := next.IsVisible(ctx)
	if err != nil {
		return false, surfaceError("paginate", err)
	}
	if !visible {
		return false, nil
	}

	href, _, err := next.Attribute(ctx, "href")
	if err != nil {
		return false, surfaceError("paginate", err)
	}
	return strings.TrimSpace(href) != "", nil
}

// captureDiagnostics stores the current markup and returns where it went
func (w *CatalogWalker) captureDiagnostics(ctx context.Context, session domain.Session, username string, page int) string {
	if w.sink == nil {
		return ""
	}

	markup, err := session.Content(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Int("page", page).Msg("failed to read page markup for diagnostics")
		return ""
	}

	path, err := w.sink.CapturePage(ctx, username, page, markup)
	if err != nil {
		w.logger.Warn().Err(err).Int("page", page).Msg("failed to store page diagnostics")
		return ""
	}

	w.logger.Info().Str("path", path).Int("page", page).Msg("page markup saved for diagnosis")
	return path
}

// stop records why the walk ended
func (w *CatalogWalker) stop(ctx context.Context, walk *domain.CatalogWalk, err error) {
	walk.Err = err
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		walk.StopReason = domain.StopCancelled
	case domain.KindOf(err) == domain.FailureTimeout:
		walk.StopReason = domain.StopTimeout
	default:
		walk.StopReason = domain.StopSurfaceFailure
	}

	w.logger.Warn().
		Err(err).
		Str("username", walk.Username).
		Str("stop_reason", walk.StopReason).
		Int("entries", len(walk.Entries)).
		Msg("catalog walk stopped early")
}

// ParseRating converts a rated-N class token into N/2 stars.
// Missing or malformed tokens yield no rating.
func ParseRating(class string) *float64 {
	m := ratingPattern.FindStringSubmatch(class)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 || n > 10 {
		return nil
	}
	rating := float64(n) / 2.0
	return &rating
}

func surfaceError(op string, err error) error {
	var le *domain.LookupError
	if errors.As(err, &le) {
		return err
	}
	kind := domain.FailureTransport
	switch {
	case errors.Is(err, context.Canceled):
		kind = domain.FailureCancelled
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.FailureTimeout
	}
	return &domain.LookupError{
		Source: "browser",
		Op:     op,
		Kind:   kind,
		Err:    fmt.Errorf("%w: %w", domain.ErrSurfaceFailure, err),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
