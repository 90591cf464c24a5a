package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// pricePatterns are tried in priority order against a card's flattened
// text. The first pattern with any match wins; a matched range resolves
// to its maximum.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)\s*cycles?`),
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*)\s*-\s*(\d+(?:,\d{3})*)`),
}

// matchPrice scans text for the first recognizable price. Malformed
// numeric fragments are skipped in favor of the next candidate match,
// then the next pattern. Returns 0 when nothing parses.
func matchPrice(text string) float64 {
	for _, pattern := range pricePatterns {
		matches := pattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			if v, ok := parseMatch(m); ok {
				return v
			}
		}
	}
	return 0
}

// parseMatch converts one regexp match into a price. Two capture groups
// mean a low-high range; take the maximum.
func parseMatch(m []string) (float64, bool) {
	if len(m) == 3 && m[2] != "" {
		low, lowOK := parseAmount(m[1])
		high, highOK := parseAmount(m[2])
		if !lowOK || !highOK {
			return 0, false
		}
		if low > high {
			return low, true
		}
		return high, true
	}
	return parseAmount(m[1])
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
