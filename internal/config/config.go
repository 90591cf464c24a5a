// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Recency  RecencyConfig  `mapstructure:"recency"`
	Store    StoreConfig    `mapstructure:"store"`
	Slack    SlackConfig    `mapstructure:"slack"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig holds the shared secret checked on the cron webhook route.
// An empty token disables the check.
type AuthConfig struct {
	WebhookToken string `mapstructure:"webhook_token"`
}

// ScraperConfig governs page fetching and extraction.
type ScraperConfig struct {
	SourceURLs     []string `mapstructure:"source_urls"`
	UserAgent      string   `mapstructure:"user_agent"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the optional browser-rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// RecencyConfig sets the trailing freshness window for extracted records.
type RecencyConfig struct {
	WindowHours int `mapstructure:"window_hours"`
}

// StoreConfig selects and configures the sent-record store backend.
type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	FilePath  string `mapstructure:"file_path"`
	DSN       string `mapstructure:"dsn"`
	Table     string `mapstructure:"table"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSObject string `mapstructure:"gcs_object"`
}

// SlackConfig holds the outbound notification webhook.
type SlackConfig struct {
	WebhookURL     string `mapstructure:"webhook_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PubSubConfig holds metadata for delivery-event publishing.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Store backends accepted by Validate.
const (
	StoreBackendFile     = "file"
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
	StoreBackendGCS      = "gcs"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOUNTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every config key. Viper only surfaces
// environment variables for keys it already knows about, so each key
// gets a default even when that default is empty.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.webhook_token", "")
	v.SetDefault("scraper.source_urls", []string{
		"https://replit.com/bounties?status=open&order=creationDateDescending",
		"https://replit.com/bounties",
		"https://replit.com/site/bounties",
	})
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("recency.window_hours", 24)
	v.SetDefault("store.backend", StoreBackendFile)
	v.SetDefault("store.file_path", "/tmp/sent_bounties.json")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "sent_bounties")
	v.SetDefault("store.gcs_bucket", "")
	v.SetDefault("store.gcs_object", "sent_bounties.json")
	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.timeout_seconds", 10)
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Scraper.SourceURLs) == 0 {
		return fmt.Errorf("scraper.source_urls must not be empty")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Store.Backend {
	case StoreBackendFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("store.file_path must be set for the file backend")
		}
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres backend")
		}
	case StoreBackendGCS:
		if c.Store.GCSBucket == "" {
			return fmt.Errorf("store.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// FetchTimeout converts the scraper timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// NotifyTimeout converts the slack timeout config into a duration.
func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Slack.TimeoutSeconds) * time.Second
}

// RecencyWindow converts the recency window config into a duration.
func (c Config) RecencyWindow() time.Duration {
	return time.Duration(c.Recency.WindowHours) * time.Hour
}
