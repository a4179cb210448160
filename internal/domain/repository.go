package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque encoded payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// TitleSearchSource returns candidates for a title in relevance order.
// Zero results is an empty slice, not an error.
type TitleSearchSource interface {
	Search(ctx context.Context, title string) ([]CandidateRecord, error)
}

// DetailSource fetches the authoritative record for a matched candidate
type DetailSource interface {
	GetDetail(ctx context.Context, externalID string) (*DetailRecord, error)
}

// FallbackMetadataSource is a best-effort secondary lookup keyed by external id
type FallbackMetadataSource interface {
	GetFallback(ctx context.Context, externalID string) (*FallbackFields, error)
}

// RenderingSurface opens browsing sessions capable of executing page scripts
type RenderingSurface interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one live page owned by a single catalog walk.
// Close must be safe to call on every exit path.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	ScrollToBottom(ctx context.Context) error
	ScrollHeight(ctx context.Context) (int, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	FindOne(ctx context.Context, selector string) (Element, bool, error)
	Content(ctx context.Context) (string, error)
	Close() error
}

// Element is a handle to a node in the current page
type Element interface {
	Attribute(ctx context.Context, name string) (string, bool, error)
	IsVisible(ctx context.Context) (bool, error)
	FindOne(ctx context.Context, selector string) (Element, bool, error)
}

// DiagnosticSink stores raw page markup for offline diagnosis
type DiagnosticSink interface {
	CapturePage(ctx context.Context, username string, page int, markup string) (string, error)
}
