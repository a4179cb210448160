package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/internal/domain"
)

func TestFallbackResolver(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		detail      domain.DetailRecord
		fallback    *domain.FallbackFields
		fallbackErr error
		wantGenre   string
		wantCountry string
		wantCalls   int
	}{
		{
			name:        "primary complete skips fallback",
			detail:      domain.DetailRecord{Genres: []string{"Drama"}, Countries: []string{"France", "Italy"}},
			fallback:    &domain.FallbackFields{Genre: "Comedy", Country: "USA"},
			wantGenre:   "Drama",
			wantCountry: "France, Italy",
			wantCalls:   0,
		},
		{
			name:        "fills only missing genre",
			detail:      domain.DetailRecord{Countries: []string{"Japan"}},
			fallback:    &domain.FallbackFields{Genre: "Animation", Country: "USA"},
			wantGenre:   "Animation",
			wantCountry: "Japan",
			wantCalls:   1,
		},
		{
			name:        "both missing both filled",
			detail:      domain.DetailRecord{},
			fallback:    &domain.FallbackFields{Genre: "Horror", Country: "UK"},
			wantGenre:   "Horror",
			wantCountry: "UK",
			wantCalls:   1,
		},
		{
			name:        "fallback has nothing",
			detail:      domain.DetailRecord{Countries: []string{"Japan"}},
			fallback:    &domain.FallbackFields{},
			wantGenre:   "",
			wantCountry: "Japan",
			wantCalls:   1,
		},
		{
			name:        "fallback error keeps primary",
			detail:      domain.DetailRecord{Genres: []string{" ", "Drama"}},
			fallbackErr: errors.New("boom"),
			wantGenre:   "Drama",
			wantCountry: "",
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewMockMetadataSource()
			src.fallback = tt.fallback
			src.fallbackError = tt.fallbackErr
			r := NewFallbackResolver(src, time.Second, zerolog.Nop())

			detail := tt.detail
			genre, country := r.Resolve(ctx, &detail)
			if genre != tt.wantGenre {
				t.Errorf("genre = %q, want %q", genre, tt.wantGenre)
			}
			if country != tt.wantCountry {
				t.Errorf("country = %q, want %q", country, tt.wantCountry)
			}
			if src.fallbackCalls != tt.wantCalls {
				t.Errorf("fallbackCalls = %d, want %d", src.fallbackCalls, tt.wantCalls)
			}
		})
	}

	t.Run("nil source disables fallback", func(t *testing.T) {
		r := NewFallbackResolver(nil, time.Second, zerolog.Nop())
		genre, country := r.Resolve(ctx, &domain.DetailRecord{Genres: []string{"Drama"}})
		if genre != "Drama" || country != "" {
			t.Errorf("Resolve() = %q, %q", genre, country)
		}
	})
}
