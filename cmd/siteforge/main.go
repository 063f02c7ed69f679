// Package main wires together the siteforge service binary.
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

	gcppubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/api"
	"github.com/davmora/siteforge/internal/clock/system"
	"github.com/davmora/siteforge/internal/config"
	"github.com/davmora/siteforge/internal/consumer"
	"github.com/davmora/siteforge/internal/id/uuid"
	"github.com/davmora/siteforge/internal/logging"
	"github.com/davmora/siteforge/internal/metrics"
	"github.com/davmora/siteforge/internal/pipeline"
	"github.com/davmora/siteforge/internal/providers/content"
	"github.com/davmora/siteforge/internal/providers/names"
	"github.com/davmora/siteforge/internal/providers/whois"
	queuememory "github.com/davmora/siteforge/internal/queue/memory"
	queuepubsub "github.com/davmora/siteforge/internal/queue/pubsub"
	"github.com/davmora/siteforge/internal/sitegen"
	"github.com/davmora/siteforge/internal/storage/gcs"
	"github.com/davmora/siteforge/internal/storage/local"
	storememory "github.com/davmora/siteforge/internal/storage/memory"
	"github.com/davmora/siteforge/internal/storage/postgres"
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
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.NewUUIDGenerator()

	store, closeStore, err := buildStore(ctx, cfg, clock)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStore()

	blobs, err := buildBlobSink(ctx, cfg)
	if err != nil {
		logger.Fatal("blob sink init failed", zap.Error(err))
	}

	var checker sitegen.DomainChecker
	if cfg.Domains.APILayerKey != "" {
		checker, err = whois.New(whois.Config{
			APIKey:  cfg.Domains.APILayerKey,
			Timeout: time.Duration(cfg.Domains.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			logger.Fatal("whois client init failed", zap.Error(err))
		}
	} else {
		logger.Warn("no apilayer key configured, domain checks will report unknown")
		checker = whois.NewNoop()
	}

	var articles sitegen.ContentSource
	if cfg.Content.NewsAPIKey != "" {
		articles, err = content.NewNewsAPI(content.NewsAPIConfig{
			APIKey:   cfg.Content.NewsAPIKey,
			Language: cfg.Content.Language,
		})
		if err != nil {
			logger.Fatal("newsapi client init failed", zap.Error(err))
		}
	} else {
		articles = content.NewStatic()
	}

	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewMetadataStage(names.New(), blobs, logger.Named("metadata")),
		pipeline.NewDomainStage(checker, sitegen.NewExponentialRetryPolicy(), pipeline.DomainStageConfig{
			Workers: cfg.Domains.Workers,
			RPS:     cfg.Domains.RPS,
			Burst:   cfg.Domains.Burst,
		}, logger.Named("domains")),
		pipeline.NewRenderStage(articles, cfg.Generator.ArticlesPerCategory, logger.Named("render")),
		pipeline.NewPersistStage(store, blobs, idGen, clock, cfg.Storage.Prefix, logger.Named("persist")),
		clock,
		logger.Named("pipeline"),
	)

	jobConsumer := consumer.New(store, orchestrator, consumer.Config{
		MaxAttempts: cfg.Consumer.MaxAttempts,
		RetryDelay:  cfg.RetryDelay(),
	}, logger.Named("consumer"))

	publisher, runTransport, stopTransport, err := buildQueue(ctx, cfg, jobConsumer, logger)
	if err != nil {
		logger.Fatal("queue init failed", zap.Error(err))
	}
	defer stopTransport()

	apiServer := api.NewServer(store, blobs, publisher, idGen, clock, api.Config{
		RequestTimeout: cfg.RequestTimeout(),
		PageSize:       cfg.Server.PageSize,
	}, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go runTransport(ctx)
	go runStaleSweep(ctx, store, cfg, logger.Named("sweep"))

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
	logger.Info("shutdown complete")
}

func buildStore(ctx context.Context, cfg config.Config, clock sitegen.Clock) (sitegen.Store, func(), error) {
	if cfg.DB.DSN == "" {
		return storememory.NewStore(clock), func() {}, nil
	}
	store, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeMin) * time.Minute,
	}, clock)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func buildBlobSink(ctx context.Context, cfg config.Config) (sitegen.BlobSink, error) {
	switch cfg.Storage.Backend {
	case "local":
		return local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
	default:
		return storememory.NewBlobSink(), nil
	}
}

// buildQueue returns the publisher, a blocking transport loop, and a
// cleanup func. An empty pubsub project selects the in-process queue.
func buildQueue(ctx context.Context, cfg config.Config, jobConsumer *consumer.Consumer, logger *zap.Logger) (sitegen.QueuePublisher, func(context.Context), func(), error) {
	if cfg.PubSub.ProjectID == "" {
		q := queuememory.New(0, logger.Named("queue"))
		run := func(ctx context.Context) {
			q.Run(ctx, cfg.Consumer.Workers, jobConsumer.Handle)
		}
		return q, run, func() {}, nil
	}

	client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	publisher, err := queuepubsub.NewPublisher(client, cfg.PubSub.TopicName, logger.Named("publisher"))
	if err != nil {
		return nil, nil, nil, err
	}
	subscriber, err := queuepubsub.NewSubscriber(client, cfg.PubSub.Subscription, cfg.Consumer.Workers, logger.Named("subscriber"))
	if err != nil {
		return nil, nil, nil, err
	}
	run := func(ctx context.Context) {
		if err := subscriber.Run(ctx, jobConsumer.Handle); err != nil {
			logger.Error("subscriber stopped", zap.Error(err))
		}
	}
	cleanup := func() {
		publisher.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	return publisher, run, cleanup, nil
}

// runStaleSweep periodically re-queues jobs stuck in processing, the only
// recovery path for workers that died mid-job.
func runStaleSweep(ctx context.Context, store sitegen.Store, cfg config.Config, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.ReclaimStale(ctx, cfg.StaleAfter())
			if err != nil {
				logger.Error("stale sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("requeued stale jobs", zap.Int("count", n))
			}
		}
	}
}
