package usecase

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/moodboxd/backend/internal/domain"
)

// disallowedKinds can never be treated as a film match
var disallowedKinds = map[domain.Kind]bool{
	domain.KindPodcast:      true,
	domain.KindTVEpisode:    true,
	domain.KindVideo:        true,
	domain.KindVideoGame:    true,
	domain.KindTVSeries:     true,
	domain.KindTVMiniSeries: true,
}

// DefaultNonFilmIndicators are title substrings that mark podcasts, episodes and
// similar non-film content. Leading spaces are significant.
var DefaultNonFilmIndicators = []string{
	"podcast",
	"episode",
	" ep.",
	" ep ",
	" audio",
	" casting",
	"reviewcast",
	"review cast",
	"show",
	"interview",
}

// quoteMarks flag titles of quoted segments ("Inception" Review, ‘Dune’ Reaction).
// The ASCII apostrophe and U+2019 are left out since titles like Don’t Breathe
// use them as apostrophes.
const quoteMarks = "\"“”„‟‘‚‛«»‹›"

// FilmFilter rejects candidates that cannot be films.
// Casers are stateful, so each call folds with its own.
type FilmFilter struct {
	indicators []string
}

// NewFilmFilter builds a filter over the given indicator set.
// An empty set falls back to DefaultNonFilmIndicators.
func NewFilmFilter(indicators []string) *FilmFilter {
	if len(indicators) == 0 {
		indicators = DefaultNonFilmIndicators
	}

	fold := cases.Fold()
	folded := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		if ind == "" {
			continue
		}
		folded = append(folded, fold.String(ind))
	}

	return &FilmFilter{indicators: folded}
}

// IsDisallowedKind reports whether kind is in the fixed disallowed set
func IsDisallowedKind(kind domain.Kind) bool {
	return disallowedKinds[kind]
}

// LooksLikeNonFilm applies the title heuristic: indicator substrings
// (case-insensitive) or a quotation mark other than an apostrophe.
func (f *FilmFilter) LooksLikeNonFilm(title string) bool {
	if strings.ContainsAny(title, quoteMarks) {
		return true
	}

	folded := cases.Fold().String(title)
	for _, ind := range f.indicators {
		if strings.Contains(folded, ind) {
			return true
		}
	}
	return false
}

// Reject applies both predicates in order and returns the reason for the first failure
func (f *FilmFilter) Reject(kind domain.Kind, title string) (string, bool) {
	if IsDisallowedKind(kind) {
		return fmt.Sprintf("disallowed kind %q", kind), true
	}
	if f.LooksLikeNonFilm(title) {
		return fmt.Sprintf("title %q looks like non-film content", title), true
	}
	return "", false
}

// Filter keeps the candidates that pass both predicates, preserving order
func (f *FilmFilter) Filter(candidates []domain.CandidateRecord) []domain.CandidateRecord {
	kept := make([]domain.CandidateRecord, 0, len(candidates))
	for _, c := range candidates {
		if _, rejected := f.Reject(c.Kind, c.Title); rejected {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
