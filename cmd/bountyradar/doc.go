// Package main hosts the bounty radar service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and scrape endpoints. POST /scrape and
//     POST /webhook/daily run one synchronous pipeline cycle; GET /bounties runs discovery only.
//   - Fetch pipeline: the Colly-based fetcher tries each configured source URL in order until one
//     returns a 2xx page. A heuristic detector promotes script-heavy shells to a headless Chromedp
//     render when enabled, since the bounty board is a client-rendered application.
//   - Extraction: a three-tier strategy turns raw HTML into records. Structured selectors run first,
//     free-text price patterns second, and a fixed sample set last, so the pipeline always produces
//     output even against an empty or hostile page.
//   - Dedup & delivery: record identity is a SHA-256 digest of normalized title, price, and link.
//     The sent store (file/memory/Postgres/GCS) persists delivered ids across restarts. Each cycle
//     delivers at most one record, the highest-priced unsent one, to the Slack webhook; a claim set
//     guarded by a mutex keeps concurrent cycles from double-delivering.
//   - Fanout: on successful delivery a compact Pub/Sub event is published when a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured
//     logging; Prometheus counters and histograms are exported via the metrics middleware and the
//     /metrics handler.
//
// Operational notes:
//   - Concurrency model: each HTTP trigger runs the pipeline synchronously; only the dedup
//     check-and-claim and the post-delivery mark hold the store lock. Network calls never do.
//   - Delivery semantics: a failed webhook call leaves the record unmarked so the next cycle
//     retries it; a failed mark after a successful call risks one duplicate, never a drop.
//   - The process listens on the configured port, reacts to SIGTERM for graceful drain, and is
//     stateless across requests apart from the sent store.
//
// Quick checklist:
//   - Configure env vars: BOUNTY_SERVER_PORT, BOUNTY_SCRAPER_SOURCE_URLS, BOUNTY_SLACK_WEBHOOK_URL,
//     BOUNTY_AUTH_WEBHOOK_TOKEN, BOUNTY_STORE_BACKEND plus backend-specific settings (file path,
//     DSN/table, GCS bucket/object), BOUNTY_HEADLESS_ENABLED, and BOUNTY_PUBSUB_* for fanout.
//   - Run locally: go run ./cmd/bountyradar -config config.yaml (or rely solely on env overrides).
//   - Point a cron scheduler at POST /webhook/daily with the bearer token to drive periodic scrapes.
package main
