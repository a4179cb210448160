package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		input string
		want  Year
	}{
		{"2010", 2010},
		{" 2010 ", 2010},
		{"2010.0", 2010},
		{"", 0},
		{"abc", 0},
		{"-5", 0},
		{"2010.5", 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			if got := ParseYear(tt.input); got != tt.want {
				t.Errorf("ParseYear(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestYear_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Year
	}{
		{"number", `{"year":2010}`, 2010},
		{"string", `{"year":"2010"}`, 2010},
		{"null", `{"year":null}`, 0},
		{"garbage string", `{"year":"soon"}`, 0},
		{"missing", `{}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				Year Year `json:"year"`
			}
			if err := json.Unmarshal([]byte(tt.data), &v); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if v.Year != tt.want {
				t.Errorf("Year = %d, want %d", v.Year, tt.want)
			}
		})
	}
}

func TestYear_String(t *testing.T) {
	if got := Year(0).String(); got != "" {
		t.Errorf("unknown year String() = %q, want empty", got)
	}
	if got := Year(1999).String(); got != "1999" {
		t.Errorf("String() = %q, want 1999", got)
	}
}

func TestBatchResult_Views(t *testing.T) {
	batch := &BatchResult{
		Records: []EnrichedRecord{
			{RawEntry: RawEntry{Title: "A"}, ExternalID: "tt1"},
			{RawEntry: RawEntry{Title: "B"}, Error: ErrNoMatch.Error()},
			{RawEntry: RawEntry{Title: "C"}, ExternalID: "tt3"},
			{RawEntry: RawEntry{Title: "D"}, Error: ErrFilteredAfterVerification.Error()},
		},
		Summary: Summary{Total: 4, Succeeded: 2, Failed: 2},
	}

	successes := batch.Successes()
	if len(successes) != 2 || successes[0].Title != "A" || successes[1].Title != "C" {
		t.Errorf("Successes() = %+v, want A then C", successes)
	}

	failures := batch.Failures()
	if len(failures) != 2 || failures[0].Title != "B" || failures[1].Title != "D" {
		t.Errorf("Failures() = %+v, want B then D", failures)
	}

	if batch.Records[1].Title != "B" {
		t.Errorf("views must not reorder Records")
	}
}

func TestEnrichedRecord_JSONFlattensEntry(t *testing.T) {
	rating := 4.5
	record := EnrichedRecord{
		RawEntry:   RawEntry{Title: "Inception", UserRating: &rating},
		ExternalID: "tt1375666",
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if flat["title"] != "Inception" {
		t.Errorf("title = %v, want Inception", flat["title"])
	}
	if flat["user_rating"] != 4.5 {
		t.Errorf("user_rating = %v, want 4.5", flat["user_rating"])
	}
	if _, ok := flat["error"]; ok {
		t.Errorf("error key should be omitted on success")
	}
}

func TestCatalogWalk_Partial(t *testing.T) {
	complete := &CatalogWalk{StopReason: StopLastPage}
	if complete.Partial() {
		t.Errorf("walk without error reported partial")
	}

	partial := &CatalogWalk{StopReason: StopTimeout, Err: ErrPageTimeout}
	if !partial.Partial() {
		t.Errorf("walk with error not reported partial")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureUnknown},
		{"lookup error kind wins", &LookupError{Source: "imdb", Op: "search", Kind: FailureTimeout, Err: ErrLookupFailure}, FailureTimeout},
		{"wrapped lookup error", fmt.Errorf("enrich: %w", &LookupError{Kind: FailureFallback, Err: ErrNotFound}), FailureFallback},
		{"cancelled", fmt.Errorf("walk: %w", context.Canceled), FailureCancelled},
		{"deadline", context.DeadlineExceeded, FailureTimeout},
		{"page timeout", ErrPageTimeout, FailureTimeout},
		{"no match", ErrNoMatch, FailureNoMatch},
		{"filtered", fmt.Errorf("%w: podcast", ErrFilteredAfterVerification), FailureFiltered},
		{"fallback", ErrFallbackUnavailable, FailureFallback},
		{"transport", fmt.Errorf("%w: status 503", ErrLookupFailure), FailureTransport},
		{"surface", ErrSurfaceFailure, FailureTransport},
		{"other", errors.New("boom"), FailureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLookupError_Unwrap(t *testing.T) {
	err := &LookupError{Source: "omdb", Op: "fallback", Kind: FailureFallback, Err: ErrLookupFailure}
	if !errors.Is(err, ErrLookupFailure) {
		t.Errorf("errors.Is should see the wrapped sentinel")
	}
	if got := err.Error(); got != "omdb fallback (fallback): metadata lookup failed" {
		t.Errorf("Error() = %q", got)
	}
}
