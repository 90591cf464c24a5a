package bounty

import (
	"context"
	"time"
)

// Fetcher retrieves the bounty board page from one of several candidate
// sources, returning ErrAllSourcesUnavailable when every candidate fails.
type Fetcher interface {
	Fetch(ctx context.Context) (Page, error)
}

// SentStore persists the set of record identifiers already delivered.
// The set grows monotonically; Mark is idempotent.
type SentStore interface {
	Has(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
}

// Notifier delivers a record to the outbound transport.
type Notifier interface {
	Notify(ctx context.Context, rec Record) error
}

// Publisher pushes delivery events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for record identity derivation.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// RenderDetector decides whether a fetched page is an unrendered
// client-side shell that warrants a headless re-fetch.
type RenderDetector interface {
	ShouldRender(page Page) bool
}
