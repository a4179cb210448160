package main

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/config"
	"github.com/moodboxd/backend/internal/app"
	"github.com/moodboxd/backend/internal/domain"
	"github.com/moodboxd/backend/internal/logging"
)

// catalogRunner is the part of the pipeline the commands drive
type catalogRunner interface {
	Scrape(ctx context.Context, username string) (*domain.CatalogWalk, error)
	ScrapeAndEnrich(ctx context.Context, username string) (*domain.CatalogReport, error)
	Enrich(ctx context.Context, entries []domain.RawEntry) (*domain.BatchResult, error)
}

// buildFunc assembles a runner plus the function releasing it
type buildFunc func(cfg *config.Config, logger zerolog.Logger) (catalogRunner, func() error, error)

type commandContext struct {
	configPath string
	logLevel   string
	jsonOutput bool
	logOutput  io.Writer

	build     buildFunc
	loadOnce  sync.Once
	runner    catalogRunner
	closeFn   func() error
	runnerErr error
}

func newCommandContext() *commandContext {
	return &commandContext{
		logOutput: os.Stderr,
		build:     buildApp,
	}
}

func buildApp(cfg *config.Config, logger zerolog.Logger) (catalogRunner, func() error, error) {
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Catalog, a.Close, nil
}

func (c *commandContext) logger() zerolog.Logger {
	return logging.New("cli", c.logOutput).Level(logging.ParseLevel(c.logLevel))
}

// catalog loads configuration and builds the pipeline once per invocation
func (c *commandContext) catalog() (catalogRunner, error) {
	c.loadOnce.Do(func() {
		cfg, err := config.LoadFile(c.configPath)
		if err != nil {
			c.runnerErr = err
			return
		}
		c.runner, c.closeFn, c.runnerErr = c.build(cfg, c.logger())
	})
	return c.runner, c.runnerErr
}

func (c *commandContext) close() error {
	if c.closeFn == nil {
		return nil
	}
	err := c.closeFn()
	c.closeFn = nil
	return err
}
