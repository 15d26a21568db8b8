package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brojonat/solagg/service/config"
	"github.com/brojonat/solagg/service/metrics"
	natspkg "github.com/brojonat/solagg/service/nats"
	"github.com/brojonat/solagg/service/poller"
	"github.com/brojonat/solagg/service/server"
	"github.com/brojonat/solagg/service/solana"
	"github.com/brojonat/solagg/service/store"
	"github.com/brojonat/solagg/service/temporal"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"scheduler", cfg.Scheduler,
		"wallets", len(cfg.TrackedWallets),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.NewMetrics(nil)
	}

	// Load whatever earlier runs persisted before anything can insert
	txnStore := store.New(cfg.StorePath, logger)
	loaded, err := txnStore.Reload()
	if err != nil {
		logger.Error("failed to load store", "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}
	m.SetStoreSize(txnStore.Len())
	logger.Info("loaded store", "path", cfg.StorePath, "records", loaded, "keys", txnStore.Keys())

	// For premium RPC endpoints, include the API key in the URL
	rpcURL, err := solana.SelectRandomEndpoint(cfg.SolanaRPCURLs)
	if err != nil {
		logger.Error("failed to select RPC endpoint", "error", err)
		os.Exit(1)
	}
	endpoint := solana.EndpointLabel(rpcURL)
	rpcClient := solana.NewRPCClient(rpcURL, m)
	logger.Info("initialized solana RPC client",
		"endpoint", endpoint,
		"available_endpoints", len(cfg.SolanaRPCURLs),
	)

	aggregator := solana.NewAggregator(rpcClient, txnStore, solana.Config{
		FetchTimeout: cfg.FetchTimeout,
		SlotDuration: cfg.SlotDuration,
		EpochFilter:  cfg.EpochFilter,
	}, endpoint, m, logger)

	// NATS is optional. Keep the interfaces nil rather than typed-nil pointers
	// so the poller and server can tell it is disabled.
	var (
		publisher natspkg.Publisher
		events    server.EventSource
	)
	if cfg.NATSURL != "" {
		pub, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		publisher = pub

		sub, err := natspkg.NewSubscriber(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to create NATS subscriber", "error", err)
			os.Exit(1)
		}
		defer sub.Close()
		events = sub

		logger.Info("connected to NATS", "url", cfg.NATSURL)
	}

	p := poller.New(aggregator, cfg.TrackedWallets, cfg.PollInterval, publisher, txnStore, m, logger)

	switch cfg.Scheduler {
	case config.SchedulerTemporal:
		tc, err := temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, logger)
		if err != nil {
			logger.Error("failed to create temporal client", "error", err)
			os.Exit(1)
		}
		defer tc.Close()

		w, err := temporal.NewWorker(temporal.WorkerConfig{
			Client:    tc.SDKClient(),
			TaskQueue: tc.TaskQueue(),
			Poller:    p,
			Logger:    logger,
		})
		if err != nil {
			logger.Error("failed to create temporal worker", "error", err)
			os.Exit(1)
		}
		if err := w.Start(); err != nil {
			logger.Error("failed to start temporal worker", "error", err)
			os.Exit(1)
		}
		defer w.Stop()

		if err := temporal.SyncSchedules(ctx, tc, cfg.TrackedWallets, cfg.PollInterval, logger); err != nil {
			logger.Error("failed to sync schedules", "error", err)
			os.Exit(1)
		}
	default:
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("poller stopped", "error", err)
			}
		}()
	}

	httpServer := server.New(cfg.ServerAddr, txnStore, events, m, logger)
	if events != nil {
		if err := httpServer.WithTemplates(); err != nil {
			logger.Error("failed to load templates", "error", err)
			os.Exit(1)
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		cancel()
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Stop the poller first so no cycle writes while the server drains
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
