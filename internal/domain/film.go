package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Year is a release year. The zero value means the year is unknown.
type Year int

// Valid reports whether the year carries a value
func (y Year) Valid() bool {
	return y > 0
}

func (y Year) String() string {
	if !y.Valid() {
		return ""
	}
	return strconv.Itoa(int(y))
}

// UnmarshalJSON accepts a number, a numeric string or null.
// Anything else decodes to an unknown year instead of failing the whole document.
func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*y = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*y = 0
			return nil
		}
		*y = ParseYear(s)
		return nil
	}

	*y = ParseYear(string(data))
	return nil
}

// ParseYear converts a loosely typed year ("2010", " 2010 ", "2010.0") into a Year.
// Non-numeric input yields an unknown year.
func ParseYear(s string) Year {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return Year(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f == float64(int(f)) {
		return Year(int(f))
	}
	return 0
}

// RawEntry is one catalog item as scraped from a user's film listing
type RawEntry struct {
	Title      string   `json:"title"`
	PosterURL  string   `json:"poster_url,omitempty"`
	UserRating *float64 `json:"user_rating,omitempty"` // 0.0-5.0 in 0.5 steps
	Year       Year     `json:"year,omitempty"`        // caller-recorded year, when known
}

// NormalizedTitle is the search-ready form of a scraped title
type NormalizedTitle struct {
	CleanTitle string `json:"clean_title"`
	YearHint   Year   `json:"year_hint,omitempty"`
}

// Kind categorizes external metadata entries
type Kind string

const (
	KindFilm         Kind = "film"
	KindTVEpisode    Kind = "tv_episode"
	KindTVSeries     Kind = "tv_series"
	KindTVMiniSeries Kind = "tv_miniseries"
	KindTVMovie      Kind = "tv_movie"
	KindTVSpecial    Kind = "tv_special"
	KindShort        Kind = "short"
	KindPodcast      Kind = "podcast"
	KindVideo        Kind = "video"
	KindVideoGame    Kind = "video_game"
	KindUnknown      Kind = "unknown"
)

// CandidateRecord is a search-result summary. Slices of candidates keep the
// source's relevance order.
type CandidateRecord struct {
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	Kind       Kind   `json:"kind"`
	Year       Year   `json:"year,omitempty"`
}

// DetailRecord is the authoritative metadata for a matched candidate
type DetailRecord struct {
	ExternalID string   `json:"external_id"`
	Title      string   `json:"title"`
	Year       Year     `json:"year,omitempty"`
	Kind       Kind     `json:"kind"`
	Genres     []string `json:"genres"`
	Countries  []string `json:"countries"`
	URL        string   `json:"url,omitempty"`
}

// FallbackFields holds values from the secondary metadata source.
// Empty strings mean the source had nothing.
type FallbackFields struct {
	Genre   string `json:"genre,omitempty"`
	Country string `json:"country,omitempty"`
}

// EnrichedRecord is the terminal output unit: the original entry plus either
// the resolved metadata or an error marker.
type EnrichedRecord struct {
	RawEntry
	ExternalID     string `json:"external_id,omitempty"`
	TitleCanonical string `json:"title_canonical,omitempty"`
	YearCanonical  Year   `json:"year_canonical,omitempty"`
	Country        string `json:"country,omitempty"`
	Genre          string `json:"genre,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Succeeded reports whether the record was enriched without error
func (r EnrichedRecord) Succeeded() bool {
	return r.Error == ""
}

// Summary counts the outcome of a batch
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// BatchResult is the ordered output of a batch enrichment run
type BatchResult struct {
	Records []EnrichedRecord `json:"records"`
	Summary Summary          `json:"summary"`
}

// Successes returns the successfully enriched records in their original order
func (b *BatchResult) Successes() []EnrichedRecord {
	out := make([]EnrichedRecord, 0, b.Summary.Succeeded)
	for _, r := range b.Records {
		if r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// Failures returns the error-tagged records in their original order
func (b *BatchResult) Failures() []EnrichedRecord {
	out := make([]EnrichedRecord, 0, b.Summary.Failed)
	for _, r := range b.Records {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// Walk stop reasons
const (
	StopLastPage       = "last_page"
	StopPageCap        = "page_cap"
	StopTimeout        = "timeout"
	StopSurfaceFailure = "surface_failure"
	StopCancelled      = "cancelled"
	StopInvalidInput   = "invalid_input"
)

// CatalogWalk reports the outcome of walking a user's catalog.
// Entries holds everything collected before the walk stopped, even when Err is set.
type CatalogWalk struct {
	Username       string     `json:"username"`
	Entries        []RawEntry `json:"entries"`
	PagesVisited   int        `json:"pages_visited"`
	StopReason     string     `json:"stop_reason"`
	DiagnosticPath string     `json:"diagnostic_path,omitempty"`
	Err            error      `json:"-"`
}

// Partial reports whether the walk ended early
func (w *CatalogWalk) Partial() bool {
	return w.Err != nil
}

// CatalogReport is what the pipeline hands to its callers
type CatalogReport struct {
	Username string           `json:"username"`
	Walk     *CatalogWalk     `json:"walk"`
	Records  []EnrichedRecord `json:"records"`
	Summary  Summary          `json:"summary"`
}
