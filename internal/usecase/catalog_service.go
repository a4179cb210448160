package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/internal/domain"
)

// Walker collects a user's raw catalog entries
type Walker interface {
	Walk(ctx context.Context, username string) *domain.CatalogWalk
}

// Enricher resolves raw entries against external metadata
type Enricher interface {
	EnrichBatch(ctx context.Context, entries []domain.RawEntry) (*domain.BatchResult, error)
}

// CatalogService runs the scrape and enrichment pipeline for one user
type CatalogService struct {
	walker   Walker
	enricher Enricher
	logger   zerolog.Logger
}

// NewCatalogService creates a new catalog service with dependencies
func NewCatalogService(walker Walker, enricher Enricher, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		walker:   walker,
		enricher: enricher,
		logger:   logger,
	}
}

// Scrape walks the user's catalog. A walk that ended early but collected
// entries is returned without error; check walk.Partial(). A walk with no
// entries at all fails with ErrCatalogEmpty.
func (s *CatalogService) Scrape(ctx context.Context, username string) (*domain.CatalogWalk, error) {
	walk := s.walker.Walk(ctx, username)

	if len(walk.Entries) == 0 {
		if walk.Err != nil {
			return walk, fmt.Errorf("%w: %w", domain.ErrCatalogEmpty, walk.Err)
		}
		return walk, domain.ErrCatalogEmpty
	}

	if walk.Partial() {
		s.logger.Warn().
			Err(walk.Err).
			Str("username", username).
			Int("entries", len(walk.Entries)).
			Str("stop_reason", walk.StopReason).
			Msg("returning partial catalog")
	}
	return walk, nil
}

// ScrapeAndEnrich scrapes the catalog and enriches every entry in order.
// On cancellation the report holds whatever was finished.
func (s *CatalogService) ScrapeAndEnrich(ctx context.Context, username string) (*domain.CatalogReport, error) {
	walk, err := s.Scrape(ctx, username)
	report := &domain.CatalogReport{Username: username, Walk: walk, Records: []domain.EnrichedRecord{}}
	if err != nil {
		return report, err
	}

	batch, err := s.enricher.EnrichBatch(ctx, walk.Entries)
	if batch != nil {
		report.Records = batch.Records
		report.Summary = batch.Summary
	}
	if err != nil {
		return report, err
	}
	return report, nil
}

// Enrich resolves caller-supplied entries without scraping
func (s *CatalogService) Enrich(ctx context.Context, entries []domain.RawEntry) (*domain.BatchResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", domain.ErrInvalidRequest)
	}
	return s.enricher.EnrichBatch(ctx, entries)
}
