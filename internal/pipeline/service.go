// Package pipeline orchestrates one scrape cycle: fetch the bounty
// board, extract records, filter for recency, pick the highest-priced
// unsent record, deliver it, and persist the sent marker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
	"github.com/bountyradar/bountyradar/internal/extract"
	"github.com/bountyradar/bountyradar/internal/fetcher/headless"
	"github.com/bountyradar/bountyradar/internal/metrics"
	"github.com/bountyradar/bountyradar/internal/recency"
)

// Status classifies the outcome of a scrape cycle.
type Status string

// Cycle outcomes.
const (
	StatusDelivered            Status = "delivered"
	StatusNoNewRecords         Status = "no_new_records"
	StatusNotifierUnconfigured Status = "notifier_unconfigured"
	StatusDeliveryFailed       Status = "delivery_failed"
)

// Outcome reports what one scrape cycle did. Record is the selected
// record when one was chosen, even if delivery failed or was skipped.
type Outcome struct {
	Status       Status
	Record       *bounty.Record
	Tier         bounty.Tier
	TotalRecords int
	NewRecords   int
}

// Config holds pipeline tunables.
type Config struct {
	RecencyWindow time.Duration
	PublishTopic  string
}

// Deps collects the pipeline's collaborators. Renderer and Publisher
// are optional; everything else is required.
type Deps struct {
	Fetcher   bounty.Fetcher
	Detector  bounty.RenderDetector
	Renderer  headless.Renderer
	Extractor *extract.Extractor
	Store     bounty.SentStore
	Notifier  bounty.Notifier
	Publisher bounty.Publisher
	Clock     bounty.Clock
	Logger    *zap.Logger
}

// Service runs scrape cycles. It is safe for concurrent use: the
// dedup check and the in-flight claim are taken under one mutex, so
// two overlapping cycles can never select the same record.
type Service struct {
	cfg  Config
	deps Deps

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New builds a Service.
func New(cfg Config, deps Deps) *Service {
	if cfg.RecencyWindow == 0 {
		cfg.RecencyWindow = recency.DefaultWindow
	}
	metrics.Init()
	return &Service{
		cfg:      cfg,
		deps:     deps,
		inflight: make(map[string]struct{}),
	}
}

// Discover fetches and extracts the current record set without
// touching the sent store. Fetch failures degrade to the sample tier
// rather than erroring; the page simply arrives empty.
func (s *Service) Discover(ctx context.Context) ([]bounty.Record, bounty.Tier, error) {
	page, err := s.deps.Fetcher.Fetch(ctx)
	if err != nil {
		s.deps.Logger.Warn("fetch failed, extraction will fall back",
			zap.Error(err),
		)
		metrics.ObserveFetch(page.SourceURL, "failure")
		page = bounty.Page{}
	} else {
		metrics.ObserveFetch(page.SourceURL, "success")
	}

	if s.deps.Renderer != nil && s.deps.Detector != nil && s.deps.Detector.ShouldRender(page) {
		rendered, rerr := s.deps.Renderer.Render(ctx, page.SourceURL)
		if rerr != nil {
			s.deps.Logger.Warn("headless render failed, using original page",
				zap.String("url", page.SourceURL),
				zap.Error(rerr),
			)
		} else {
			page = rendered
		}
	}

	res := s.deps.Extractor.Extract(page)
	metrics.ObserveExtraction(string(res.Tier), len(res.Records))

	recent := recency.Filter(res.Records, s.deps.Clock.Now(), s.cfg.RecencyWindow)
	return recent, res.Tier, nil
}

// Run executes one full scrape cycle and, when a new record exists,
// delivers exactly one notification for it.
func (s *Service) Run(ctx context.Context) (Outcome, error) {
	start := time.Now()
	defer func() { metrics.ObserveScrapeDuration(time.Since(start)) }()

	records, tier, err := s.Discover(ctx)
	if err != nil {
		return Outcome{}, err
	}

	chosen, newCount, err := s.selectAndClaim(ctx, records)
	if err != nil {
		return Outcome{}, fmt.Errorf("select record: %w", err)
	}

	out := Outcome{
		Tier:         tier,
		TotalRecords: len(records),
		NewRecords:   newCount,
	}
	if chosen == nil {
		out.Status = StatusNoNewRecords
		s.deps.Logger.Info("no new records to deliver",
			zap.Int("total", len(records)),
		)
		return out, nil
	}
	out.Record = chosen

	// Delivery happens outside the lock; the claim keeps concurrent
	// cycles off this record in the meantime.
	if err := s.deps.Notifier.Notify(ctx, *chosen); err != nil {
		s.release(chosen.ID)
		if errors.Is(err, bounty.ErrNotifierUnconfigured) {
			metrics.ObserveNotification("unconfigured")
			out.Status = StatusNotifierUnconfigured
			s.deps.Logger.Warn("notifier not configured, record not marked",
				zap.String("record_id", chosen.ID),
			)
			return out, nil
		}
		metrics.ObserveNotification("failure")
		out.Status = StatusDeliveryFailed
		s.deps.Logger.Error("delivery failed, record not marked",
			zap.String("record_id", chosen.ID),
			zap.Error(err),
		)
		return out, err
	}
	metrics.ObserveNotification("success")

	s.mu.Lock()
	markErr := s.deps.Store.Mark(ctx, chosen.ID)
	delete(s.inflight, chosen.ID)
	s.mu.Unlock()
	if markErr != nil {
		// The notification went out; a failed mark risks a duplicate on
		// the next cycle, which beats silently dropping bounties.
		s.deps.Logger.Error("failed to persist sent marker",
			zap.String("record_id", chosen.ID),
			zap.Error(markErr),
		)
	}
	if n, lerr := s.deps.Store.Len(ctx); lerr == nil {
		metrics.SetSentStoreSize(n)
	}

	s.publishEvent(ctx, *chosen)

	out.Status = StatusDelivered
	s.deps.Logger.Info("bounty delivered",
		zap.String("record_id", chosen.ID),
		zap.String("title", chosen.Title),
		zap.Float64("price", chosen.Price),
		zap.String("tier", string(tier)),
	)
	return out, nil
}

// selectAndClaim picks the highest-priced record that is neither sent
// nor in flight, claims it, and reports how many unsent records exist.
// The check and the claim are atomic with respect to other cycles.
func (s *Service) selectAndClaim(ctx context.Context, records []bounty.Record) (*bounty.Record, int, error) {
	candidates := make([]bounty.Record, len(records))
	copy(candidates, records)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Price > candidates[j].Price
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	var chosen *bounty.Record
	newCount := 0
	for i := range candidates {
		rec := candidates[i]
		sent, err := s.deps.Store.Has(ctx, rec.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("check sent store: %w", err)
		}
		if sent {
			continue
		}
		newCount++
		if _, claimed := s.inflight[rec.ID]; claimed {
			continue
		}
		if chosen == nil {
			chosen = &rec
			s.inflight[rec.ID] = struct{}{}
		}
	}
	return chosen, newCount, nil
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// publishEvent best-effort publishes a delivery event. Publish errors
// are logged and never affect the cycle outcome.
func (s *Service) publishEvent(ctx context.Context, rec bounty.Record) {
	if s.deps.Publisher == nil || s.cfg.PublishTopic == "" {
		return
	}
	id, err := s.deps.Publisher.Publish(ctx, s.cfg.PublishTopic, rec)
	if err != nil {
		s.deps.Logger.Warn("failed to publish delivery event",
			zap.String("record_id", rec.ID),
			zap.Error(err),
		)
		return
	}
	s.deps.Logger.Debug("delivery event published",
		zap.String("message_id", id),
	)
}
