// Package metrics exposes Prometheus collectors for the bounty service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal         *prometheus.CounterVec
	recordsExtractedTotal      *prometheus.CounterVec
	notificationsTotal         *prometheus.CounterVec
	scrapeDurationSeconds      prometheus.Histogram
	sentStoreSize              prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bounty_fetch_attempts_total",
				Help: "Total number of page fetch attempts, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		recordsExtractedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bounty_records_extracted_total",
				Help: "Total number of bounty records extracted, labeled by extraction tier.",
			},
			[]string{"tier"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bounty_notifications_total",
				Help: "Total number of notification attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bounty_scrape_duration_seconds",
				Help:    "Histogram of end-to-end scrape cycle durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		)

		sentStoreSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bounty_sent_store_size",
				Help: "Number of bounty IDs recorded as sent.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch increments the fetch attempt counter.
func ObserveFetch(site string, outcome string) {
	fetchAttemptsTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveExtraction records how many records the given tier produced.
func ObserveExtraction(tier string, count int) {
	if count > 0 {
		recordsExtractedTotal.WithLabelValues(tier).Add(float64(count))
	}
}

// ObserveNotification increments the notification counter for the outcome.
func ObserveNotification(outcome string) {
	notificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveScrapeDuration records the duration of one scrape cycle.
func ObserveScrapeDuration(duration time.Duration) {
	scrapeDurationSeconds.Observe(duration.Seconds())
}

// SetSentStoreSize updates the sent-store size gauge.
func SetSentStoreSize(n int) {
	sentStoreSize.Set(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
