package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/moodboxd/backend/internal/domain"
)

// EnrichmentServiceConfig holds configuration for the enrichment service
type EnrichmentServiceConfig struct {
	CacheTTL           time.Duration
	LookupTimeout      time.Duration
	Pacing             time.Duration
	TitlePrefixes      []string
	NonFilmIndicators  []string
	EnableDebugLogging bool
}

// EnrichmentService resolves scraped catalog entries against external metadata.
// Flow per entry: normalize -> search (cached) -> match -> detail (cached) -> verify -> fallback.
type EnrichmentService struct {
	cache         domain.CacheRepository
	search        domain.TitleSearchSource
	detail        domain.DetailSource
	normalizer    *TitleNormalizer
	matcher       *MatchingService
	resolver      *FallbackResolver
	cacheTTL      time.Duration
	lookupTimeout time.Duration
	pacing        time.Duration
	logger        zerolog.Logger
}

// NewEnrichmentService creates a new enrichment service with dependencies.
// cache and fallback may be nil.
func NewEnrichmentService(
	cache domain.CacheRepository,
	search domain.TitleSearchSource,
	detail domain.DetailSource,
	fallback domain.FallbackMetadataSource,
	config EnrichmentServiceConfig,
	logger zerolog.Logger,
) *EnrichmentService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 720 * time.Hour // Default 30 days
	}

	lookupTimeout := config.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = 30 * time.Second
	}

	return &EnrichmentService{
		cache:      cache,
		search:     search,
		detail:     detail,
		normalizer: NewTitleNormalizer(config.TitlePrefixes, config.EnableDebugLogging, logger),
		matcher: NewMatchingService(MatchConfig{
			NonFilmIndicators:  config.NonFilmIndicators,
			EnableDebugLogging: config.EnableDebugLogging,
		}, logger),
		resolver:      NewFallbackResolver(fallback, lookupTimeout, logger),
		cacheTTL:      cacheTTL,
		lookupTimeout: lookupTimeout,
		pacing:        config.Pacing,
		logger:        logger,
	}
}

// EnrichEntry resolves one entry. The returned record always carries the
// original entry fields; on failure it also carries the error marker and the
// error is returned for classification.
func (s *EnrichmentService) EnrichEntry(ctx context.Context, entry domain.RawEntry) (domain.EnrichedRecord, error) {
	record := domain.EnrichedRecord{RawEntry: entry}

	norm := s.normalizer.Normalize(entry.Title)
	if norm.CleanTitle == "" {
		record.Error = domain.ErrInvalidRequest.Error()
		return record, domain.ErrInvalidRequest
	}

	year := norm.YearHint
	if !year.Valid() {
		year = entry.Year
	}

	candidates, err := s.searchTitle(ctx, norm.CleanTitle)
	if err != nil {
		record.Error = err.Error()
		return record, err
	}

	match, err := s.matcher.FindBestMatch(ctx, year, candidates)
	if err != nil {
		record.Error = err.Error()
		return record, err
	}

	detail, err := s.fetchDetail(ctx, match.Candidate.ExternalID)
	if err != nil {
		record.Error = err.Error()
		return record, err
	}

	if err := s.matcher.VerifyDetail(detail); err != nil {
		record.Error = err.Error()
		return record, err
	}

	genre, country := s.resolver.Resolve(ctx, detail)

	record.ExternalID = detail.ExternalID
	record.TitleCanonical = firstNonEmpty(detail.Title, match.Candidate.Title)
	record.YearCanonical = firstValidYear(detail.Year, match.Candidate.Year, year)
	record.Genre = genre
	record.Country = country
	record.SourceURL = detail.URL

	return record, nil
}

// EnrichBatch enriches entries in order, one at a time, pacing the external
// calls. Entries without a usable title are skipped. Per-record failures are
// folded into the output; only cancellation stops the batch early, in which
// case the records completed so far are returned with the context error.
func (s *EnrichmentService) EnrichBatch(ctx context.Context, entries []domain.RawEntry) (*domain.BatchResult, error) {
	result := &domain.BatchResult{
		Records: make([]domain.EnrichedRecord, 0, len(entries)),
		Summary: domain.Summary{Total: len(entries)},
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(s.pacing), 1)
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if s.normalizer.Normalize(entry.Title).CleanTitle == "" {
			result.Summary.Skipped++
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			return result, err
		}

		record, err := s.EnrichEntry(ctx, entry)
		if err != nil {
			kind := domain.KindOf(err)
			if kind == domain.FailureCancelled {
				return result, err
			}
			s.logger.Info().
				Int("index", i).
				Str("title", entry.Title).
				Str("kind", kind.String()).
				Err(err).
				Msg("entry not enriched")
			result.Summary.Failed++
		} else {
			result.Summary.Succeeded++
		}
		result.Records = append(result.Records, record)
	}

	s.logger.Info().
		Int("total", result.Summary.Total).
		Int("succeeded", result.Summary.Succeeded).
		Int("failed", result.Summary.Failed).
		Int("skipped", result.Summary.Skipped).
		Msg("batch enrichment finished")

	return result, nil
}

// searchTitle runs the title search through the cache
func (s *EnrichmentService) searchTitle(ctx context.Context, title string) ([]domain.CandidateRecord, error) {
	cacheKey := "search:" + normalizeForCacheKey(title)

	var cached []domain.CandidateRecord
	if s.getFromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	candidates, err := s.search.Search(lookupCtx, title)
	if err != nil {
		return nil, lookupError(ctx, "search", err)
	}

	s.setInCache(ctx, cacheKey, candidates)
	return candidates, nil
}

// fetchDetail fetches the detail record through the cache
func (s *EnrichmentService) fetchDetail(ctx context.Context, externalID string) (*domain.DetailRecord, error) {
	cacheKey := "detail:" + externalID

	var cached domain.DetailRecord
	if s.getFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	detail, err := s.detail.GetDetail(lookupCtx, externalID)
	if err != nil {
		return nil, lookupError(ctx, "detail", err)
	}
	if detail == nil {
		return nil, lookupError(ctx, "detail", domain.ErrNotFound)
	}
	if detail.ExternalID == "" {
		detail.ExternalID = externalID
	}

	s.setInCache(ctx, cacheKey, detail)
	return detail, nil
}

// lookupError classifies a collaborator failure. Cancellation of the parent
// context is reported as such; a per-call deadline is a timeout.
func lookupError(parent context.Context, op string, err error) error {
	kind := domain.FailureTransport
	switch {
	case parent.Err() != nil && errors.Is(parent.Err(), context.Canceled):
		kind = domain.FailureCancelled
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.FailureTimeout
	}
	return &domain.LookupError{Source: "metadata", Op: op, Kind: kind, Err: err}
}

// getFromCache decodes a cached value into dst, reporting whether it was found
func (s *EnrichmentService) getFromCache(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false
	}
	return true
}

// setInCache stores a value; failures are logged but never fail the lookup
func (s *EnrichmentService) setInCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// normalizeForCacheKey folds case and trims the ends. Punctuation and inner
// spacing are part of the key.
func normalizeForCacheKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstValidYear(years ...domain.Year) domain.Year {
	for _, y := range years {
		if y.Valid() {
			return y
		}
	}
	return 0
}

// String renders a short description of the service wiring (for startup logs)
func (s *EnrichmentService) String() string {
	return fmt.Sprintf("enrichment(pacing=%s, timeout=%s, ttl=%s, fallback=%t)",
		s.pacing, s.lookupTimeout, s.cacheTTL, s.resolver.source != nil)
}
