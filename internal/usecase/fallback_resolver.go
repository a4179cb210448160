package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/internal/domain"
)

// FallbackResolver fills genre and country from a secondary source when the
// primary detail record left them empty. Primary values always win.
type FallbackResolver struct {
	source  domain.FallbackMetadataSource
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFallbackResolver creates a resolver. A nil source disables the fallback.
func NewFallbackResolver(source domain.FallbackMetadataSource, timeout time.Duration, logger zerolog.Logger) *FallbackResolver {
	return &FallbackResolver{source: source, timeout: timeout, logger: logger}
}

// Resolve returns the merged genre and country for detail.
// Failures of the secondary source are logged and treated as "no data".
func (r *FallbackResolver) Resolve(ctx context.Context, detail *domain.DetailRecord) (genre, country string) {
	genre = joinValues(detail.Genres)
	country = joinValues(detail.Countries)

	if genre != "" && country != "" {
		return genre, country
	}
	if r.source == nil {
		return genre, country
	}

	lookupCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	fields, err := r.source.GetFallback(lookupCtx, detail.ExternalID)
	if err != nil {
		r.logger.Debug().
			Err(err).
			Str("external_id", detail.ExternalID).
			Str("kind", domain.KindOf(err).String()).
			Msg("fallback lookup failed, keeping primary fields")
		return genre, country
	}
	if fields == nil {
		return genre, country
	}

	if genre == "" {
		genre = strings.TrimSpace(fields.Genre)
	}
	if country == "" {
		country = strings.TrimSpace(fields.Country)
	}
	return genre, country
}

// joinValues joins the non-blank values with ", "
func joinValues(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}
