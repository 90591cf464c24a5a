package extract

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
)

// sampleSeeds are the last-resort records returned when neither extraction
// tier finds anything, for instance when every source is unreachable.
var sampleSeeds = []struct {
	label string
	title string
	price float64
	link  string
}{
	{"sample1", "Build a React Dashboard for Analytics", 2500.00, "https://replit.com/bounties/sample1"},
	{"sample2", "Create a Discord Bot with Python", 1500.00, "https://replit.com/bounties/sample2"},
	{"sample3", "Develop a Mobile App with Flutter", 5000.00, "https://replit.com/bounties/sample3"},
}

// sampleRecords returns the fixed illustrative set. Identities are salted
// with the current date: stable within a day, rotating across days so a
// long outage cannot leave the sent store permanently saturated.
func (e *Extractor) sampleRecords() []bounty.Record {
	now := e.clock.Now()
	day := now.Format("2006-01-02")

	records := make([]bounty.Record, 0, len(sampleSeeds))
	for _, seed := range sampleSeeds {
		id, err := e.hasher.Hash(fmt.Appendf(nil, "%s_%s", seed.label, day))
		if err != nil {
			e.logger.Error("sample id derivation failed", zap.Error(err))
			continue
		}
		records = append(records, bounty.Record{
			ID:         id,
			Title:      seed.title,
			Price:      seed.price,
			Link:       seed.link,
			PostedTime: now,
			RawExcerpt: "Sample bounty for testing purposes",
		})
	}
	return records
}
