package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/internal/domain"
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	NonFilmIndicators  []string
	EnableDebugLogging bool
}

// MatchingService disambiguates a scraped title against ranked search results
type MatchingService struct {
	filter             *FilmFilter
	enableDebugLogging bool
	logger             zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig, logger zerolog.Logger) *MatchingService {
	return &MatchingService{
		filter:             NewFilmFilter(config.NonFilmIndicators),
		enableDebugLogging: config.EnableDebugLogging,
		logger:             logger,
	}
}

// FindBestMatch selects one candidate in two passes over the filtered list:
// first the earliest film whose year equals year, then the earliest film at all.
// Source order decides ties; there is no scoring.
func (s *MatchingService) FindBestMatch(
	ctx context.Context,
	year domain.Year,
	candidates []domain.CandidateRecord,
) (*domain.MatchResult, error) {
	type indexed struct {
		pos int
		c   domain.CandidateRecord
	}

	kept := make([]indexed, 0, len(candidates))
	for i, c := range candidates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if reason, rejected := s.filter.Reject(c.Kind, c.Title); rejected {
			if s.enableDebugLogging {
				s.logger.Debug().Str("external_id", c.ExternalID).Str("reason", reason).Msg("candidate rejected")
			}
			continue
		}
		kept = append(kept, indexed{pos: i, c: c})
	}
	rejected := len(candidates) - len(kept)

	// Pass 1: exact year
	if year.Valid() {
		for _, k := range kept {
			if k.c.Kind == domain.KindFilm && k.c.Year.Valid() && k.c.Year.String() == year.String() {
				return s.result(k.c, domain.PassExactYear, k.pos, rejected), nil
			}
		}
	}

	// Pass 2: first film regardless of year
	for _, k := range kept {
		if k.c.Kind == domain.KindFilm {
			return s.result(k.c, domain.PassFirstFilm, k.pos, rejected), nil
		}
	}

	if s.enableDebugLogging {
		s.logger.Debug().Int("candidates", len(candidates)).Int("rejected", rejected).Msg("no film candidate")
	}
	return nil, domain.ErrNoMatch
}

// VerifyDetail re-applies the film filters to the authoritative record
func (s *MatchingService) VerifyDetail(detail *domain.DetailRecord) error {
	if detail == nil {
		return fmt.Errorf("%w: empty detail record", domain.ErrFilteredAfterVerification)
	}
	if reason, rejected := s.filter.Reject(detail.Kind, detail.Title); rejected {
		return fmt.Errorf("%w: %s", domain.ErrFilteredAfterVerification, reason)
	}
	return nil
}

func (s *MatchingService) result(c domain.CandidateRecord, pass string, pos, rejected int) *domain.MatchResult {
	if s.enableDebugLogging {
		s.logger.Debug().
			Str("external_id", c.ExternalID).
			Str("title", c.Title).
			Stringer("year", c.Year).
			Str("pass", pass).
			Int("position", pos).
			Msg("candidate selected")
	}
	return &domain.MatchResult{Candidate: c, Pass: pass, Position: pos, Rejected: rejected}
}
