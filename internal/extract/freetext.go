package extract

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
)

// freeTextPatterns scan the whole raw content when no card structure was
// recognized. They deliberately produce coarse records.
var freeTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)\s*-\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
}

// extractFreeText synthesizes records from currency-like fragments in the
// raw content. Each strictly positive price becomes a record pointing at
// the page itself rather than a specific listing.
func (e *Extractor) extractFreeText(page bounty.Page) []bounty.Record {
	if len(page.Body) == 0 {
		return nil
	}
	content := string(page.Body)

	var records []bounty.Record
	seen := make(map[string]struct{})
	for _, pattern := range freeTextPatterns {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			price, ok := parseMatch(m)
			if !ok || price <= 0 {
				continue
			}
			id, err := e.hasher.Hash(fmt.Appendf(nil, "extracted_%.2f_%s", price, page.SourceURL))
			if err != nil {
				e.logger.Error("record id derivation failed", zap.Error(err))
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			records = append(records, bounty.Record{
				ID:         id,
				Title:      fmt.Sprintf("Bounty Board Listing - $%.2f", price),
				Price:      price,
				Link:       page.SourceURL,
				PostedTime: e.clock.Now(),
				RawExcerpt: "Extracted from page content",
			})
		}
	}
	return records
}
