// Package bounty defines core types shared across subsystems.
package bounty

import (
	"errors"
	"time"
	"unicode/utf8"
)

// UnknownTitle is the sentinel stored when no title-bearing element is found.
const UnknownTitle = "Unknown Title"

// MaxExcerptLen bounds the diagnostic snippet carried on each record.
const MaxExcerptLen = 200

// Record is one discovered paid-task listing. Records are created fresh
// on every extraction pass and never mutated; only the derived ID is
// ever persisted.
type Record struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Link       string    `json:"link"`
	PostedTime time.Time `json:"posted_time"`
	RawExcerpt string    `json:"raw_excerpt,omitempty"`
}

// Tier identifies which extraction strategy produced a record set.
type Tier string

// Extraction tiers, in fallback order.
const (
	TierStructured Tier = "structured"
	TierFreeText   Tier = "freetext"
	TierSample     Tier = "sample"
)

// Page is the raw content retrieved by a Fetcher.
type Page struct {
	Body      []byte
	SourceURL string
	Status    int
	Rendered  bool
}

// Sentinel errors surfaced across component boundaries.
var (
	// ErrAllSourcesUnavailable signals that every candidate source URL
	// failed; the extractor converts this into the sample fallback.
	ErrAllSourcesUnavailable = errors.New("all bounty sources unavailable")

	// ErrNoNewRecords signals that every candidate record has already
	// been delivered.
	ErrNoNewRecords = errors.New("no new records to deliver")

	// ErrNotifierUnconfigured signals that no delivery webhook is set.
	ErrNotifierUnconfigured = errors.New("notifier is not configured")
)

// Truncate caps s at MaxExcerptLen bytes for use as a raw excerpt,
// backing up to a rune boundary so the excerpt stays valid UTF-8.
func Truncate(s string) string {
	if len(s) <= MaxExcerptLen {
		return s
	}
	cut := MaxExcerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
