// Package app assembles the pipeline from configuration. Both the HTTP server
// and the CLI build their dependencies through New.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/config"
	"github.com/moodboxd/backend/internal/domain"
	"github.com/moodboxd/backend/internal/infrastructure/browser"
	"github.com/moodboxd/backend/internal/infrastructure/cache"
	"github.com/moodboxd/backend/internal/infrastructure/diagnostics"
	"github.com/moodboxd/backend/internal/infrastructure/imdb"
	"github.com/moodboxd/backend/internal/infrastructure/omdb"
	"github.com/moodboxd/backend/internal/logging"
	"github.com/moodboxd/backend/internal/usecase"
)

// App owns every long-lived dependency of one process
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Cache      domain.CacheRepository
	Walker     *usecase.CatalogWalker
	Enrichment *usecase.EnrichmentService
	Catalog    *usecase.CatalogService

	closers []io.Closer
}

// New wires the cache, metadata sources, rendering surface and services
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	store, err := a.openCache()
	if err != nil {
		return nil, err
	}
	a.Cache = store

	debug := cfg.Server.Environment == "development" || cfg.Enrichment.EnableDebugLogs

	imdbClient := imdb.NewClient(imdb.ClientConfig{
		SuggestURL:        cfg.IMDb.SuggestURL,
		TitleURL:          cfg.IMDb.TitleURL,
		Timeout:           cfg.IMDb.Timeout,
		RequestsPerMinute: cfg.RateLimit.IMDb,
	}, logging.Component(logger, "imdb"))
	imdbClient.SetDebug(debug)

	var fallback domain.FallbackMetadataSource
	omdbClient := omdb.NewClient(cfg.OMDb.APIKey, cfg.OMDb.BaseURL, cfg.RateLimit.OMDb, logging.Component(logger, "omdb"))
	if omdbClient.IsConfigured() {
		fallback = omdbClient
		logger.Info().Str("base_url", cfg.OMDb.BaseURL).Msg("fallback metadata source configured")
	} else {
		logger.Warn().Msg("OMDb API key not configured, genre and country fallback disabled")
	}

	surface, err := newSurface(cfg.Scraper, logging.Component(logger, "browser"))
	if err != nil {
		a.Close()
		return nil, err
	}

	var sink domain.DiagnosticSink
	if cfg.Scraper.DebugDir != "" {
		sink = diagnostics.NewFileSink(cfg.Scraper.DebugDir, logging.Component(logger, "diagnostics"))
	}

	a.Walker = usecase.NewCatalogWalker(surface, sink, usecase.WalkerConfig{
		BaseURL:           cfg.Letterboxd.BaseURL,
		PageTimeout:       cfg.Scraper.PageTimeout,
		ScrollSettle:      cfg.Scraper.ScrollSettle,
		MaxScrollAttempts: cfg.Scraper.MaxScrollAttempts,
		MaxPages:          cfg.Scraper.MaxPages,
	}, logging.Component(logger, "walker"))

	a.Enrichment = usecase.NewEnrichmentService(
		a.Cache,
		imdbClient,
		imdbClient,
		fallback,
		usecase.EnrichmentServiceConfig{
			CacheTTL:           cfg.Cache.TTL,
			LookupTimeout:      cfg.Enrichment.LookupTimeout,
			Pacing:             cfg.Enrichment.Pacing,
			TitlePrefixes:      cfg.Enrichment.TitlePrefixes,
			NonFilmIndicators:  cfg.Enrichment.NonFilmIndicators,
			EnableDebugLogging: cfg.Enrichment.EnableDebugLogs,
		},
		logging.Component(logger, "enrichment"),
	)

	a.Catalog = usecase.NewCatalogService(a.Walker, a.Enrichment, logging.Component(logger, "catalog"))

	logger.Info().
		Str("driver", cfg.Scraper.Driver).
		Str("cache", cfg.Cache.Type).
		Stringer("enrichment", a.Enrichment).
		Msg("pipeline ready")

	return a, nil
}

// Close releases the cache and any other owned resources
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openCache() (domain.CacheRepository, error) {
	switch a.Config.Cache.Type {
	case "sqlite":
		store, err := cache.OpenSQLite(a.Config.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.closers = append(a.closers, store)

		if removed, err := store.Prune(context.Background()); err != nil {
			a.Logger.Warn().Err(err).Msg("cache prune failed")
		} else if removed > 0 {
			a.Logger.Info().Int64("removed", removed).Msg("pruned expired cache entries")
		}
		a.Logger.Info().Str("path", store.Path()).Msg("using sqlite cache")
		return store, nil
	case "memory", "":
		store := cache.NewMemoryCache()
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", a.Config.Cache.Type)
	}
}

func newSurface(cfg config.ScraperConfig, logger zerolog.Logger) (domain.RenderingSurface, error) {
	switch cfg.Driver {
	case "playwright":
		return browser.NewPlaywrightSurface(browser.PlaywrightConfig{
			BrowserPath:       cfg.BrowserPath,
			Headless:          cfg.Headless,
			NavigationTimeout: cfg.PageTimeout,
			InstallDriver:     cfg.InstallDriver,
		}, logger), nil
	case "static":
		return browser.NewStaticSurface(browser.StaticConfig{
			Timeout: cfg.PageTimeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown scraper driver %q", cfg.Driver)
	}
}
