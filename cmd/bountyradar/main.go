// Package main wires together the bounty radar service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/api"
	"github.com/bountyradar/bountyradar/internal/bounty"
	"github.com/bountyradar/bountyradar/internal/clock/system"
	"github.com/bountyradar/bountyradar/internal/config"
	"github.com/bountyradar/bountyradar/internal/extract"
	collyfetcher "github.com/bountyradar/bountyradar/internal/fetcher/colly"
	headlessfetcher "github.com/bountyradar/bountyradar/internal/fetcher/headless"
	"github.com/bountyradar/bountyradar/internal/hash/sha256"
	"github.com/bountyradar/bountyradar/internal/logging"
	"github.com/bountyradar/bountyradar/internal/notify/slack"
	"github.com/bountyradar/bountyradar/internal/pipeline"
	pubsubpublisher "github.com/bountyradar/bountyradar/internal/publisher/pubsub"
	"github.com/bountyradar/bountyradar/internal/render"
	filestore "github.com/bountyradar/bountyradar/internal/track/file"
	gcsstore "github.com/bountyradar/bountyradar/internal/track/gcs"
	memorystore "github.com/bountyradar/bountyradar/internal/track/memory"
	pgstore "github.com/bountyradar/bountyradar/internal/track/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	hasher := sha256.New()

	store, err := buildStore(ctx, cfg, clock, logger)
	if err != nil {
		logger.Fatal("sent store init failed", zap.Error(err))
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		SourceURLs: cfg.Scraper.SourceURLs,
		UserAgent:  cfg.Scraper.UserAgent,
		Timeout:    cfg.FetchTimeout(),
	}, logger.Named("fetcher"))

	var renderer headlessfetcher.Renderer
	if cfg.Headless.Enabled {
		chromedpRenderer, rerr := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Scraper.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if rerr != nil {
			logger.Warn("headless renderer init failed", zap.Error(rerr))
		} else {
			defer chromedpRenderer.Close()
			renderer = chromedpRenderer
		}
	}

	notifier := slack.New(slack.Config{
		WebhookURL: cfg.Slack.WebhookURL,
		Timeout:    cfg.NotifyTimeout(),
	}, logger.Named("slack"))
	if !notifier.Configured() {
		logger.Warn("slack webhook not configured, deliveries will be skipped")
	}

	var publisher bounty.Publisher
	if cfg.PubSub.Enabled {
		pub, perr := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID)
		if perr != nil {
			logger.Warn("pubsub publisher init failed", zap.Error(perr))
		} else {
			defer func() {
				if cerr := pub.Close(); cerr != nil {
					logger.Warn("pubsub close failed", zap.Error(cerr))
				}
			}()
			publisher = pub
		}
	}

	pipe := pipeline.New(
		pipeline.Config{
			RecencyWindow: cfg.RecencyWindow(),
			PublishTopic:  cfg.PubSub.TopicName,
		},
		pipeline.Deps{
			Fetcher:   fetcher,
			Detector:  render.NewHeuristic(0),
			Renderer:  renderer,
			Extractor: extract.New(hasher, clock, logger.Named("extract")),
			Store:     store,
			Notifier:  notifier,
			Publisher: publisher,
			Clock:     clock,
			Logger:    logger.Named("pipeline"),
		},
	)

	apiServer := api.NewServer(pipe, notifier, clock, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

// buildStore selects the sent-store backend from configuration.
func buildStore(ctx context.Context, cfg config.Config, clock bounty.Clock, logger *zap.Logger) (bounty.SentStore, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendFile:
		return filestore.New(cfg.Store.FilePath, clock, logger.Named("store"))
	case config.StoreBackendMemory:
		logger.Info("using in-memory sent store, dedup will not survive restarts")
		return memorystore.New(), nil
	case config.StoreBackendPostgres:
		return pgstore.New(ctx, pgstore.Config{
			DSN:   cfg.Store.DSN,
			Table: cfg.Store.Table,
		})
	case config.StoreBackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcsstore.New(ctx, client, gcsstore.Config{
			Bucket: cfg.Store.GCSBucket,
			Object: cfg.Store.GCSObject,
		}, clock, logger.Named("store"))
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
