package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
	"github.com/bountyradar/bountyradar/internal/config"
	"github.com/bountyradar/bountyradar/internal/extract"
	"github.com/bountyradar/bountyradar/internal/hash/sha256"
	"github.com/bountyradar/bountyradar/internal/pipeline"
	"github.com/bountyradar/bountyradar/internal/track/memory"
)

const boardHTML = `<html><body>
<div class="bounty-card"><h3>Build a Dashboard</h3><p>Reward: $2,500.00</p><a href="/bounties/42">View</a></div>
<div class="bounty-card"><h3>Discord Moderation Bot</h3><p>Reward: $1,000.00</p><a href="/bounties/43">View</a></div>
</body></html>`

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeFetcher struct {
	page bounty.Page
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context) (bounty.Page, error) {
	return f.page, f.err
}

type fakeNotifier struct {
	mu        sync.Mutex
	err       error
	delivered []bounty.Record
}

func (n *fakeNotifier) Notify(_ context.Context, rec bounty.Record) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, rec)
	return nil
}

type serverFixture struct {
	server   *Server
	notifier *fakeNotifier
	store    *memory.Store
}

func newFixture(t *testing.T, cfg config.Config, notifier *fakeNotifier, fetchErr error) *serverFixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.New()
	fetcher := &fakeFetcher{
		page: bounty.Page{
			Body:      []byte(boardHTML),
			SourceURL: "https://replit.com/bounties",
			Status:    200,
		},
		err: fetchErr,
	}
	pipe := pipeline.New(
		pipeline.Config{RecencyWindow: 24 * time.Hour},
		pipeline.Deps{
			Fetcher:   fetcher,
			Extractor: extract.New(sha256.New(), clock, zap.NewNop()),
			Store:     store,
			Notifier:  notifier,
			Clock:     clock,
			Logger:    zap.NewNop(),
		},
	)
	return &serverFixture{
		server:   NewServer(pipe, notifier, clock, cfg, zap.NewNop()),
		notifier: notifier,
		store:    store,
	}
}

func doRequest(t *testing.T, s *Server, method, path string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestServer_Home(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, config.Config{}, &fakeNotifier{}, nil)
	rec, body := doRequest(t, fix.server, http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "active", body["status"])
	require.Contains(t, body["endpoints"], "/scrape")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, config.Config{}, &fakeNotifier{}, nil)
	rec, body := doRequest(t, fix.server, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "bountyradar", body["service"])
}

func TestServer_GetBounties(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, config.Config{}, &fakeNotifier{}, nil)
	rec, body := doRequest(t, fix.server, http.MethodGet, "/bounties", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body["status"])
	require.EqualValues(t, 2, body["count"])
	bounties := body["bounties"].([]any)
	require.Len(t, bounties, 2)
}

func TestServer_Scrape_DeliversHighest(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, config.Config{}, &fakeNotifier{}, nil)
	rec, body := doRequest(t, fix.server, http.MethodPost, "/scrape", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body["status"])
	require.EqualValues(t, 2, body["total_bounties"])
	require.EqualValues(t, 2, body["new_bounties"])
	b := body["bounty"].(map[string]any)
	require.Equal(t, "Build a Dashboard", b["title"])
	require.InDelta(t, 2500.0, b["price"].(float64), 0.001)
}

func TestServer_Scrape_NoNewBounties(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, config.Config{}, &fakeNotifier{}, nil)

	// Drain both records.
	doRequest(t, fix.server, http.MethodPost, "/scrape", nil)
	doRequest(t, fix.server, http.MethodPost, "/scrape", nil)
	rec, body := doRequest(t, fix.server, http.MethodPost, "/scrape", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body["status"])
	require.Equal(t, "No new bounties to send", body["message"])
	require.EqualValues(t, 0, body["new_bounties"])
}

func TestServer_Scrape_DeliveryFailure(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{err: errors.New("webhook down")}
	fix := newFixture(t, config.Config{}, notifier, nil)
	rec, body := doRequest(t, fix.server, http.MethodPost, "/scrape", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "error", body["status"])
	require.NotNil(t, body["bounty"])

	// The record stays unsent so a later scrape can retry it.
	b := body["bounty"].(map[string]any)
	sent, err := fix.store.Has(context.Background(), b["id"].(string))
	require.NoError(t, err)
	require.False(t, sent)
}

func TestServer_Scrape_NotifierUnconfigured(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{err: bounty.ErrNotifierUnconfigured}
	fix := newFixture(t, config.Config{}, notifier, nil)
	rec, body := doRequest(t, fix.server, http.MethodPost, "/scrape", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "warning", body["status"])
	require.NotNil(t, body["bounty"])
}

func TestServer_DailyWebhook_Auth(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Auth: config.AuthConfig{WebhookToken: "secret"}}
	fix := newFixture(t, cfg, &fakeNotifier{}, nil)

	rec, body := doRequest(t, fix.server, http.MethodPost, "/webhook/daily", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Unauthorized", body["error"])

	rec, _ = doRequest(t, fix.server, http.MethodPost, "/webhook/daily",
		map[string]string{"Authorization": "Bearer wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = doRequest(t, fix.server, http.MethodPost, "/webhook/daily",
		map[string]string{"Authorization": "Bearer secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body["status"])
}

func TestServer_DailyWebhook_NoTokenConfigured(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, config.Config{}, &fakeNotifier{}, nil)
	rec, _ := doRequest(t, fix.server, http.MethodPost, "/webhook/daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_TestSlack(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	fix := newFixture(t, config.Config{}, notifier, nil)
	rec, body := doRequest(t, fix.server, http.MethodPost, "/test-slack", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body["status"])

	// The synthetic record never touches the sent store.
	n, err := fix.store.Len(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Len(t, notifier.delivered, 1)
	require.Equal(t, "test_bounty", notifier.delivered[0].ID)
}

func TestServer_TestSlack_Unconfigured(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{err: bounty.ErrNotifierUnconfigured}
	fix := newFixture(t, config.Config{}, notifier, nil)
	rec, body := doRequest(t, fix.server, http.MethodPost, "/test-slack", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "error", body["status"])
}

func TestServer_Scrape_FetchFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, config.Config{}, &fakeNotifier{}, bounty.ErrAllSourcesUnavailable)
	rec, body := doRequest(t, fix.server, http.MethodPost, "/scrape", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body["status"])
	b := body["bounty"].(map[string]any)
	require.InDelta(t, 5000.0, b["price"].(float64), 0.001)
}
