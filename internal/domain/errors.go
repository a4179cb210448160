package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCatalogEmpty is returned when a catalog walk yields no entries at all
	ErrCatalogEmpty = errors.New("catalog not found or inaccessible")

	// ErrNoMatch is returned when no candidate survives both matcher passes
	ErrNoMatch = errors.New("No matching movie found")

	// ErrFilteredAfterVerification is returned when the fetched detail record fails the film filters
	ErrFilteredAfterVerification = errors.New("Filtered out after verification")

	// ErrLookupFailure is returned when an external metadata source cannot be reached
	ErrLookupFailure = errors.New("metadata lookup failed")

	// ErrNotFound is returned when an external source has no record for an id
	ErrNotFound = errors.New("record not found")

	// ErrPageTimeout is returned when the listing container never appears
	ErrPageTimeout = errors.New("timed out waiting for catalog page")

	// ErrSurfaceFailure is returned when the rendering surface crashes or cannot navigate
	ErrSurfaceFailure = errors.New("rendering surface failure")

	// ErrFallbackUnavailable is returned when the fallback source is not configured
	ErrFallbackUnavailable = errors.New("fallback source unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// FailureKind classifies pipeline failures so callers can decide between
// continuing with partial data and aborting.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureTransport
	FailureTimeout
	FailureNoMatch
	FailureFiltered
	FailureFallback
	FailureCancelled
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureTimeout:
		return "timeout"
	case FailureNoMatch:
		return "no_match"
	case FailureFiltered:
		return "filtered"
	case FailureFallback:
		return "fallback"
	case FailureCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// LookupError records which external call failed and how
type LookupError struct {
	Source string // "imdb", "omdb", "browser"
	Op     string // "search", "detail", "fallback", "navigate", ...
	Kind   FailureKind
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", e.Source, e.Op, e.Kind, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// KindOf classifies an error produced anywhere in the pipeline
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}

	var le *LookupError
	if errors.As(err, &le) {
		return le.Kind
	}

	switch {
	case errors.Is(err, context.Canceled):
		return FailureCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrPageTimeout):
		return FailureTimeout
	case errors.Is(err, ErrNoMatch):
		return FailureNoMatch
	case errors.Is(err, ErrFilteredAfterVerification):
		return FailureFiltered
	case errors.Is(err, ErrFallbackUnavailable):
		return FailureFallback
	case errors.Is(err, ErrLookupFailure), errors.Is(err, ErrSurfaceFailure), errors.Is(err, ErrNotFound):
		return FailureTransport
	}
	return FailureUnknown
}
