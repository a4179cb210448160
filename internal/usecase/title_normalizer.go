package usecase

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/internal/domain"
)

// DefaultTitlePrefixes are decorative prefixes the catalog puts in poster alt text
var DefaultTitlePrefixes = []string{"Poster for "}

// trailingYearPattern matches a trailing parenthesized year like "(2010)"
var trailingYearPattern = regexp.MustCompile(`\s*\((\d{4})\)\s*$`)

// TitleNormalizer turns scraped labels into search-ready titles
type TitleNormalizer struct {
	prefixes           []string
	enableDebugLogging bool
	logger             zerolog.Logger
}

// NewTitleNormalizer creates a normalizer for the given prefixes.
// An empty prefix list falls back to DefaultTitlePrefixes.
func NewTitleNormalizer(prefixes []string, enableDebugLogging bool, logger zerolog.Logger) *TitleNormalizer {
	kept := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		kept = DefaultTitlePrefixes
	}

	return &TitleNormalizer{
		prefixes:           kept,
		enableDebugLogging: enableDebugLogging,
		logger:             logger,
	}
}

// NormalizeTitle normalizes a raw title with the default prefixes
func NormalizeTitle(raw string) domain.NormalizedTitle {
	return normalizeTitle(raw, DefaultTitlePrefixes)
}

// Normalize strips a decorative prefix, splits off a trailing (YYYY) year hint
// and trims the ends. Inner whitespace is kept as scraped. It never fails; odd
// input passes through.
func (n *TitleNormalizer) Normalize(raw string) domain.NormalizedTitle {
	result := normalizeTitle(raw, n.prefixes)

	if n.enableDebugLogging {
		n.logger.Debug().
			Str("input", raw).
			Str("clean_title", result.CleanTitle).
			Stringer("year_hint", result.YearHint).
			Msg("normalized title")
	}

	return result
}

func normalizeTitle(raw string, prefixes []string) domain.NormalizedTitle {
	title := strings.TrimSpace(raw)

	// Step 1: strip the first matching decorative prefix (case-insensitive)
	for _, prefix := range prefixes {
		if len(title) >= len(prefix) && strings.EqualFold(title[:len(prefix)], prefix) {
			title = title[len(prefix):]
			break
		}
	}

	// Step 2: pull out a trailing year
	var year domain.Year
	if m := trailingYearPattern.FindStringSubmatchIndex(title); m != nil {
		year = domain.ParseYear(title[m[2]:m[3]])
		title = title[:m[0]]
	}

	// Step 3: trim the ends only
	title = strings.TrimSpace(title)

	return domain.NormalizedTitle{CleanTitle: title, YearHint: year}
}
