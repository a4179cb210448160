package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pw "github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/internal/domain"
)

const (
	scrollScript       = "() => window.scrollTo(0, document.body.scrollHeight)"
	scrollHeightScript = "() => document.body.scrollHeight"
)

// PlaywrightConfig holds configuration for the headless browser surface
type PlaywrightConfig struct {
	BrowserPath       string
	Headless          bool
	NavigationTimeout time.Duration
	InstallDriver     bool
	UserAgent         string
}

// PlaywrightSurface renders catalog pages in a real Chromium so lazy-loaded
// grid items are materialized by scrolling
type PlaywrightSurface struct {
	config      PlaywrightConfig
	logger      zerolog.Logger
	installOnce sync.Once
	installErr  error
}

// NewPlaywrightSurface creates a browser-backed rendering surface
func NewPlaywrightSurface(config PlaywrightConfig, logger zerolog.Logger) *PlaywrightSurface {
	if config.NavigationTimeout <= 0 {
		config.NavigationTimeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	return &PlaywrightSurface{config: config, logger: logger}
}

// Open starts a driver, a browser and a single page. Everything is torn down
// by the session's Close.
func (s *PlaywrightSurface) Open(ctx context.Context) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.config.InstallDriver {
		s.installOnce.Do(func() {
			s.logger.Info().Msg("installing playwright driver")
			s.installErr = pw.Install(&pw.RunOptions{
				SkipInstallBrowsers: s.config.BrowserPath != "",
				Verbose:             false,
			})
		})
		if s.installErr != nil {
			s.logger.Warn().Err(s.installErr).Msg("playwright driver installation failed")
		}
	}

	runtime, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launch := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(s.config.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled", "--no-sandbox"},
	}
	if s.config.BrowserPath != "" {
		launch.ExecutablePath = pw.String(s.config.BrowserPath)
	}

	browser, err := runtime.Chromium.Launch(launch)
	if err != nil {
		_ = runtime.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(pw.BrowserNewContextOptions{
		Viewport:  &pw.Size{Width: 1920, Height: 1080},
		UserAgent: pw.String(s.config.UserAgent),
	})
	if err != nil {
		_ = browser.Close()
		_ = runtime.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browserCtx.Close()
		_ = browser.Close()
		_ = runtime.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(s.config.NavigationTimeout.Milliseconds()))

	return &playwrightSession{
		runtime:    runtime,
		browser:    browser,
		browserCtx: browserCtx,
		page:       page,
		navTimeout: s.config.NavigationTimeout,
		logger:     s.logger,
	}, nil
}

// playwrightSession is one live page
type playwrightSession struct {
	runtime    *pw.Playwright
	browser    pw.Browser
	browserCtx pw.BrowserContext
	page       pw.Page
	navTimeout time.Duration
	logger     zerolog.Logger
	closeOnce  sync.Once
	closeErr   error
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Debug().Str("url", url).Msg("navigating")
	_, err := s.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateDomcontentloaded,
		Timeout:   pw.Float(float64(s.navTimeout.Milliseconds())),
	})
	return err
}

// WaitFor reports false, not an error, when the selector does not attach in time
func (s *playwrightSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := s.page.Locator(selector).First().WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateAttached,
		Timeout: pw.Float(float64(timeout.Milliseconds())),
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pw.ErrTimeout) {
		return false, nil
	}
	return false, err
}

func (s *playwrightSession) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Evaluate(scrollScript)
	return err
}

func (s *playwrightSession) ScrollHeight(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := s.page.Evaluate(scrollHeightScript)
	if err != nil {
		return 0, err
	}
	return toInt(v)
}

func (s *playwrightSession) FindAll(ctx context.Context, selector string) ([]domain.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locators, err := s.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Element, 0, len(locators))
	for _, l := range locators {
		out = append(out, &playwrightElement{locator: l})
	}
	return out, nil
}

func (s *playwrightSession) FindOne(ctx context.Context, selector string) (domain.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return firstMatch(s.page.Locator(selector))
}

func (s *playwrightSession) Content(ctx context.Context) (string, error) {
	return s.page.Content()
}

// Close releases page, context, browser and driver in that order
func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(
			s.page.Close(),
			s.browserCtx.Close(),
			s.browser.Close(),
			s.runtime.Stop(),
		)
	})
	return s.closeErr
}

// playwrightElement wraps a locator resolved to a single node
type playwrightElement struct {
	locator pw.Locator
}

func (e *playwrightElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := e.locator.GetAttribute(name)
	if err != nil {
		return "", false, err
	}
	return v, v != "", nil
}

func (e *playwrightElement) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.locator.IsVisible()
}

func (e *playwrightElement) FindOne(ctx context.Context, selector string) (domain.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return firstMatch(e.locator.Locator(selector))
}

func firstMatch(l pw.Locator) (domain.Element, bool, error) {
	n, err := l.Count()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	return &playwrightElement{locator: l.First()}, true, nil
}

// toInt converts a script result into an int
func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected script result %T", v)
	}
}
