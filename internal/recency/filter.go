// Package recency narrows extracted records to a trailing freshness window.
package recency

import (
	"time"

	"github.com/bountyradar/bountyradar/internal/bounty"
)

// DefaultWindow is the trailing window applied when none is configured.
const DefaultWindow = 24 * time.Hour

// Filter keeps records whose posted time falls inside the trailing window
// ending at now. Posted times are currently assigned at extraction time
// (the source page exposes no reliable timestamps), so every record passes
// today; real timestamps change the outcome purely by data. A zero or
// negative window disables filtering.
func Filter(records []bounty.Record, now time.Time, window time.Duration) []bounty.Record {
	if window <= 0 {
		return records
	}
	cutoff := now.Add(-window)
	recent := make([]bounty.Record, 0, len(records))
	for _, rec := range records {
		if rec.PostedTime.Before(cutoff) {
			continue
		}
		recent = append(recent, rec)
	}
	return recent
}
