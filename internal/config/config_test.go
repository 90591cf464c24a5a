package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  webhook_token: secret
scraper:
  source_urls:
    - https://bounties.example.test
  user_agent: test-agent
  timeout_seconds: 45
headless:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 30
recency:
  window_hours: 12
store:
  backend: file
  file_path: /var/lib/bountyradar/sent.json
slack:
  webhook_url: https://hooks.slack.test/services/abc
  timeout_seconds: 5
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Auth.WebhookToken != "secret" {
		t.Fatalf("expected webhook token to be loaded")
	}
	if len(cfg.Scraper.SourceURLs) != 1 || cfg.Scraper.SourceURLs[0] != "https://bounties.example.test" {
		t.Fatalf("expected source url override, got %+v", cfg.Scraper.SourceURLs)
	}
	if cfg.Scraper.UserAgent != "test-agent" {
		t.Fatalf("expected user agent override, got %q", cfg.Scraper.UserAgent)
	}
	if !cfg.Headless.Enabled || cfg.Headless.MaxParallel != 2 {
		t.Fatalf("expected headless overrides to apply")
	}
	if cfg.Store.FilePath != "/var/lib/bountyradar/sent.json" {
		t.Fatalf("expected store path override, got %q", cfg.Store.FilePath)
	}
	if cfg.Slack.WebhookURL != "https://hooks.slack.test/services/abc" {
		t.Fatalf("expected slack webhook to be loaded")
	}
	if cfg.Logging.Development {
		t.Fatalf("expected production logging")
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
	if got := cfg.NotifyTimeout(); got != 5*time.Second {
		t.Fatalf("expected notify timeout 5s, got %v", got)
	}
	if got := cfg.RecencyWindow(); got != 12*time.Hour {
		t.Fatalf("expected recency window 12h, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if len(cfg.Scraper.SourceURLs) != 3 {
		t.Fatalf("expected three default source urls, got %d", len(cfg.Scraper.SourceURLs))
	}
	if cfg.Store.Backend != StoreBackendFile {
		t.Fatalf("expected default file backend, got %q", cfg.Store.Backend)
	}
	if cfg.Recency.WindowHours != 24 {
		t.Fatalf("expected 24h default window, got %d", cfg.Recency.WindowHours)
	}
}

// Environment variables are the primary deployment mode, so every key
// must be readable from env without a config file, including the keys
// whose defaults are empty.
func TestLoadEnvOnlyOverrides(t *testing.T) {
	t.Setenv("BOUNTY_SERVER_PORT", "9191")
	t.Setenv("BOUNTY_AUTH_WEBHOOK_TOKEN", "cron-secret")
	t.Setenv("BOUNTY_SLACK_WEBHOOK_URL", "https://hooks.slack.test/services/env")
	t.Setenv("BOUNTY_STORE_BACKEND", StoreBackendPostgres)
	t.Setenv("BOUNTY_STORE_DSN", "postgres://bounty:pw@localhost:5432/bounty")
	t.Setenv("BOUNTY_STORE_TABLE", "delivered")
	t.Setenv("BOUNTY_PUBSUB_ENABLED", "true")
	t.Setenv("BOUNTY_PUBSUB_PROJECT_ID", "proj-env")
	t.Setenv("BOUNTY_PUBSUB_TOPIC_NAME", "bounty-events")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Fatalf("expected port 9191 from env, got %d", cfg.Server.Port)
	}
	if cfg.Auth.WebhookToken != "cron-secret" {
		t.Fatalf("expected webhook token from env, got %q", cfg.Auth.WebhookToken)
	}
	if cfg.Slack.WebhookURL != "https://hooks.slack.test/services/env" {
		t.Fatalf("expected slack webhook from env, got %q", cfg.Slack.WebhookURL)
	}
	if cfg.Store.Backend != StoreBackendPostgres || cfg.Store.DSN == "" {
		t.Fatalf("expected postgres backend from env, got %q dsn %q", cfg.Store.Backend, cfg.Store.DSN)
	}
	if cfg.Store.Table != "delivered" {
		t.Fatalf("expected table override from env, got %q", cfg.Store.Table)
	}
	if !cfg.PubSub.Enabled || cfg.PubSub.ProjectID != "proj-env" || cfg.PubSub.TopicName != "bounty-events" {
		t.Fatalf("expected pubsub settings from env, got %+v", cfg.PubSub)
	}
}

func TestLoadEnvGCSBucket(t *testing.T) {
	t.Setenv("BOUNTY_STORE_BACKEND", StoreBackendGCS)
	t.Setenv("BOUNTY_STORE_GCS_BUCKET", "bounty-state")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.GCSBucket != "bounty-state" {
		t.Fatalf("expected gcs bucket from env, got %q", cfg.Store.GCSBucket)
	}
	if cfg.Store.GCSObject != "sent_bounties.json" {
		t.Fatalf("expected default gcs object, got %q", cfg.Store.GCSObject)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Server:  ServerConfig{Port: 8080},
			Scraper: ScraperConfig{SourceURLs: []string{"https://x"}, TimeoutSeconds: 30},
			Store:   StoreConfig{Backend: StoreBackendFile, FilePath: "/tmp/sent.json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no sources", func(c *Config) { c.Scraper.SourceURLs = nil }, "source_urls"},
		{"zero timeout", func(c *Config) { c.Scraper.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, "store.backend"},
		{"postgres without dsn", func(c *Config) {
			c.Store.Backend = StoreBackendPostgres
			c.Store.DSN = ""
		}, "store.dsn"},
		{"gcs without bucket", func(c *Config) {
			c.Store.Backend = StoreBackendGCS
		}, "gcs_bucket"},
		{"headless without parallel", func(c *Config) {
			c.Headless.Enabled = true
			c.Headless.MaxParallel = 0
		}, "max_parallel"},
		{"pubsub without topic", func(c *Config) {
			c.PubSub.Enabled = true
			c.PubSub.ProjectID = "proj"
		}, "pubsub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantSub, err)
			}
		})
	}
}
