// Package main is the entry point for the background worker: it relays
// outbox events to customer notifications and prunes housekeeping tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"supplyhub/internal/infrastructure/config"
	"supplyhub/internal/infrastructure/notification"
	"supplyhub/internal/infrastructure/storage/postgres"
	"supplyhub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
		Service:     cfg.App.Name + "-worker",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             cfg.Database.DSN,
		ApplicationName: cfg.App.Name + "-worker",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool, postgres.DefaultTxOptions())

	var notifier notification.Notifier = notification.LogNotifier{}
	if cfg.Worker.NotifierEndpoint != "" {
		notifier = notification.NewWebhookNotifier(cfg.Worker.NotifierEndpoint, 0)
	}

	relay := postgres.NewOutboxRelay(txm, postgres.RelayConfig{
		BatchSize:   cfg.Worker.BatchSize,
		MaxRetries:  cfg.Worker.MaxRetries,
		BaseBackoff: cfg.Worker.BaseBackoff,
	}, notification.NewDispatcher(notifier))

	worker := NewWorker(relay, postgres.NewIdempotencyStore(pool, cfg.Idempotency.TTL), WorkerConfig{
		PollInterval:    cfg.Worker.PollInterval,
		CleanupInterval: cfg.Worker.CleanupInterval,
		OutboxRetention: cfg.Worker.OutboxRetention,
	}, log)

	log.Infow("worker started",
		"poll_interval", cfg.Worker.PollInterval,
		"notifier", fmt.Sprintf("%T", notifier),
	)
	worker.Run(ctx)
	log.Info("worker stopped")
}
