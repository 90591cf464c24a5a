// Package extract converts raw page content into normalized bounty records.
//
// Extraction is layered: structured card selectors first, free-text price
// scanning when the page structure is unrecognized, and a fixed sample set
// when both yield nothing. The extractor is total; it never fails and
// never returns an empty record set.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
)

// cardSelectors locate bounty/service cards, in priority order. The first
// selector matching at least one element wins; results are never merged
// across selectors since their definitions overlap.
var cardSelectors = []string{
	`div[data-testid*="bounty"]`,
	".bounty-card",
	".service-card",
	`[class*="bounty"]`,
	`[class*="service"]`,
}

// titleSelectors locate the title element inside a card, in priority order.
var titleSelectors = []string{
	"h1",
	"h2",
	"h3",
	".title",
	`[class*="title"]`,
}

// Extractor derives records from fetched pages.
type Extractor struct {
	hasher bounty.Hasher
	clock  bounty.Clock
	logger *zap.Logger
}

// New builds an Extractor.
func New(hasher bounty.Hasher, clock bounty.Clock, logger *zap.Logger) *Extractor {
	return &Extractor{hasher: hasher, clock: clock, logger: logger}
}

// Result carries the extracted records and the tier that produced them.
type Result struct {
	Records []bounty.Record
	Tier    bounty.Tier
}

// Extract runs the tiered strategy over page content. It always returns
// at least the sample set, so callers pass an empty Page when the fetch
// itself failed.
func (e *Extractor) Extract(page bounty.Page) Result {
	if recs := e.extractStructured(page); len(recs) > 0 {
		e.logger.Info("structured extraction succeeded", zap.Int("records", len(recs)))
		return Result{Records: recs, Tier: bounty.TierStructured}
	}
	if recs := e.extractFreeText(page); len(recs) > 0 {
		e.logger.Info("free-text extraction succeeded", zap.Int("records", len(recs)))
		return Result{Records: recs, Tier: bounty.TierFreeText}
	}
	e.logger.Warn("extraction found nothing, returning sample records")
	return Result{Records: e.sampleRecords(), Tier: bounty.TierSample}
}

func (e *Extractor) extractStructured(page bounty.Page) []bounty.Record {
	if len(page.Body) == 0 {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page.Body)))
	if err != nil {
		e.logger.Warn("html parse failed", zap.Error(err))
		return nil
	}

	for _, selector := range cardSelectors {
		elements := doc.Find(selector)
		if elements.Length() == 0 {
			continue
		}
		e.logger.Info("bounty elements matched",
			zap.String("selector", selector),
			zap.Int("count", elements.Length()),
		)
		var records []bounty.Record
		elements.Each(func(_ int, sel *goquery.Selection) {
			rec, ok := e.extractCard(sel, page.SourceURL)
			if ok {
				records = append(records, rec)
			}
		})
		return records
	}
	return nil
}

// extractCard pulls a record out of a single matched card element.
func (e *Extractor) extractCard(sel *goquery.Selection, baseURL string) (bounty.Record, bool) {
	title := bounty.UnknownTitle
	for _, ts := range titleSelectors {
		if elem := sel.Find(ts).First(); elem.Length() > 0 {
			if text := strings.TrimSpace(elem.Text()); text != "" {
				title = text
				break
			}
		}
	}

	text := sel.Text()
	price := matchPrice(text)
	link := extractLink(sel, baseURL)

	id, err := e.recordID(title, price, link)
	if err != nil {
		e.logger.Error("record id derivation failed", zap.Error(err))
		return bounty.Record{}, false
	}

	return bounty.Record{
		ID:         id,
		Title:      title,
		Price:      price,
		Link:       link,
		PostedTime: e.clock.Now(),
		RawExcerpt: bounty.Truncate(strings.TrimSpace(text)),
	}, true
}

// extractLink finds the first anchor inside the element, or the nearest
// enclosing anchor when the card itself sits inside one.
func extractLink(sel *goquery.Selection, baseURL string) string {
	anchor := sel.Find("a[href]").First()
	if anchor.Length() == 0 {
		anchor = sel.Closest("a[href]")
	}
	href, ok := anchor.Attr("href")
	if !ok || href == "" {
		return ""
	}
	return resolveURL(baseURL, href)
}

// resolveURL makes href absolute against base. A bad base or href simply
// yields the href as-is; link quality is best-effort.
func resolveURL(base, href string) string {
	baseParsed, err := url.Parse(base)
	if err != nil {
		return href
	}
	hrefParsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseParsed.ResolveReference(hrefParsed).String()
}

// recordID derives the stable content identity per record. Two passes over
// identical input must yield the same id for the same logical listing.
func (e *Extractor) recordID(title string, price float64, link string) (string, error) {
	return e.hasher.Hash(fmt.Appendf(nil, "%s|%.2f|%s", title, price, link))
}
