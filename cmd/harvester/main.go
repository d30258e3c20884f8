// Package main wires together the tally-sheet harvester service.
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

	gcstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	gcpubsub "cloud.google.com/go/pubsub"

	"github.com/civicledger/actas-harvester/internal/api"
	"github.com/civicledger/actas-harvester/internal/checkpoint"
	"github.com/civicledger/actas-harvester/internal/clock/system"
	"github.com/civicledger/actas-harvester/internal/config"
	collyfetcher "github.com/civicledger/actas-harvester/internal/fetcher/colly"
	"github.com/civicledger/actas-harvester/internal/harvest"
	"github.com/civicledger/actas-harvester/internal/hash/sha256"
	"github.com/civicledger/actas-harvester/internal/logging"
	"github.com/civicledger/actas-harvester/internal/orchestrator"
	"github.com/civicledger/actas-harvester/internal/progress"
	"github.com/civicledger/actas-harvester/internal/progress/sinks"
	memorypublisher "github.com/civicledger/actas-harvester/internal/publisher/memory"
	pubsubpublisher "github.com/civicledger/actas-harvester/internal/publisher/pubsub"
	"github.com/civicledger/actas-harvester/internal/resolver"
	"github.com/civicledger/actas-harvester/internal/scheduler"
	"github.com/civicledger/actas-harvester/internal/storage/gcs"
	memorystorage "github.com/civicledger/actas-harvester/internal/storage/memory"
	"github.com/civicledger/actas-harvester/internal/storage/postgres"
	"github.com/civicledger/actas-harvester/internal/store/content"
	"github.com/civicledger/actas-harvester/internal/worker"
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
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, stop); err != nil {
		logger.Error("harvester exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, stop func()) error {
	clock := system.New()
	hasher := sha256.New()

	contentStore, err := content.New(content.Config{
		RawDir:        cfg.Content.RawDir,
		DuplicatesDir: cfg.Content.DuplicatesDir,
		ArchivedDir:   cfg.Content.ArchivedDir,
	}, logger.Named("content"))
	if err != nil {
		return fmt.Errorf("content store init: %w", err)
	}

	objects, cleanupObjects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("object store init: %w", err)
	}
	defer cleanupObjects()

	publisher, cleanupPublisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("publisher init: %w", err)
	}
	defer cleanupPublisher()

	var history harvest.PassHistory
	var passLister api.PassLister
	if cfg.DB.DSN != "" {
		passStore, err := postgres.NewPassStore(ctx, postgres.PassStoreConfig{DSN: cfg.DB.DSN})
		if err != nil {
			return fmt.Errorf("pass store init: %w", err)
		}
		defer passStore.Close()
		history = passStore
		passLister = passStore
	}

	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return fmt.Errorf("metrics init: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		promSink,
		sinks.NewLogSink(logger.Named("events")),
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	}()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Harvest.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})
	resolve := resolver.New(fetcher, logger.Named("resolver"))
	policy := harvest.ReprocessPolicy{MaxAttempts: cfg.Harvest.MaxAttempts}

	runners := func(passID uuid.UUID) orchestrator.Runner {
		uploader := worker.NewUploader(contentStore, objects, clock, hub, passID, logger.Named("uploader"))
		processor := worker.New(
			fetcher,
			resolve,
			contentStore,
			uploader,
			hasher,
			clock,
			policy,
			cfg.Variants,
			hub,
			passID,
			logger.Named("worker"),
		)
		return scheduler.New(scheduler.Config{
			ChunkSize:   cfg.Harvest.ChunkSize,
			Concurrency: cfg.Harvest.Concurrency,
			ArtifactDir: cfg.Harvest.DataDir,
		}, processor, logger.Named("scheduler"))
	}

	status := api.NewStatusStore()
	orch := orchestrator.New(
		orchestrator.Config{
			CheckpointPath: cfg.Harvest.Checkpoint,
			DataDir:        cfg.Harvest.DataDir,
			Variants:       cfg.Variants,
			Start:          cfg.Harvest.Start,
			Total:          cfg.Harvest.Total,
			Interval:       cfg.PassInterval(),
			RunOnce:        cfg.Harvest.RunOnce,
			Topic:          cfg.Publisher.Topic,
		},
		runners,
		checkpoint.New(logger.Named("checkpoint")),
		publisher,
		history,
		status,
		hub,
		clock,
		logger.Named("orchestrator"),
	)

	apiServer := api.NewServer(status, passLister, registry, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	orchDone := make(chan struct{})
	go func() {
		defer close(orchDone)
		logger.Info("orchestrator started")
		if err := orch.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("orchestrator error", zap.Error(err))
		}
		stop()
	}()

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
	<-orchDone
	logger.Info("shutdown complete")
	return nil
}

func buildObjectStore(ctx context.Context, cfg config.Config) (harvest.ObjectStore, func(), error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.Bucket})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	case "memory":
		return memorystorage.NewObjectStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (harvest.Publisher, func(), error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		client, err := gcpubsub.NewClient(ctx, cfg.Publisher.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		return pubsubpublisher.New(client), func() { _ = client.Close() }, nil
	case "noop":
		return memorypublisher.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown publisher provider %q", cfg.Publisher.Provider)
	}
}
