// Package collyfetcher implements bounty.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
)

// Config controls collector behavior.
type Config struct {
	// SourceURLs are tried in order until one returns a 2xx response.
	SourceURLs []string
	UserAgent  string
	Timeout    time.Duration
}

// Fetcher fetches the bounty board from the first reachable source.
type Fetcher struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		logger:        logger,
		baseCollector: c,
	}
}

// Fetch attempts each candidate source in order. A non-2xx response or
// transport error moves on to the next candidate; exhausting all of them
// yields bounty.ErrAllSourcesUnavailable.
func (f *Fetcher) Fetch(ctx context.Context) (bounty.Page, error) {
	for _, url := range f.cfg.SourceURLs {
		page, err := f.fetchOne(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return bounty.Page{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
			}
			f.logger.Warn("source fetch failed",
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		f.logger.Info("source fetch succeeded",
			zap.String("url", url),
			zap.Int("status", page.Status),
			zap.Int("bytes", len(page.Body)),
		)
		return page, nil
	}
	return bounty.Page{}, bounty.ErrAllSourcesUnavailable
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) (bounty.Page, error) {
	var (
		page     bounty.Page
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnRequest(func(r *colly.Request) {
		// Browser-like identity reduces the chance of being blocked.
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	collector.OnResponse(func(r *colly.Response) {
		page = bounty.Page{
			Body:      append([]byte(nil), r.Body...),
			SourceURL: r.Request.URL.String(),
			Status:    r.StatusCode,
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("unexpected status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, url); err != nil {
		return bounty.Page{}, err
	}
	if fetchErr != nil {
		return bounty.Page{}, fetchErr
	}
	if page.Status < 200 || page.Status >= 300 {
		return bounty.Page{}, fmt.Errorf("unexpected status %d", page.Status)
	}
	return page, nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
