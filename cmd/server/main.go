// Package main is the entry point for the supply order API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	corenumerator "supplyhub/internal/core/numerator"
	"supplyhub/internal/domain/auth"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/cache"
	"supplyhub/internal/infrastructure/config"
	v1 "supplyhub/internal/infrastructure/http/v1"
	"supplyhub/internal/infrastructure/http/v1/middleware"
	"supplyhub/internal/infrastructure/numerator"
	"supplyhub/internal/infrastructure/storage/postgres"
	"supplyhub/internal/infrastructure/storage/postgres/catalog_repo"
	"supplyhub/internal/infrastructure/storage/postgres/document_repo"
	"supplyhub/pkg/logger"
)

// auditCompressThreshold is the change-set size above which audit rows are zstd-compressed.
const auditCompressThreshold = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
		Service:     cfg.App.Name,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Fatalw("server failed", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting supply order server", "env", cfg.App.Env, "version", cfg.App.Version)

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             cfg.Database.DSN,
		ApplicationName: cfg.App.Name,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.Database.StatementTimeout
	txOpts.LockTimeout = cfg.Database.LockTimeout
	txm := postgres.NewTxManager(pool, txOpts)

	// --- Discount settings (Postgres, optionally behind Redis) ---
	var settings supply.SettingsSource = catalog_repo.NewSettingsRepo(txm)
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		settingsCache := cache.NewDiscountSettingsCache(redisClient, settings, cfg.Redis.CacheTTL)
		settings = settingsCache

		listener := cache.NewSettingsListener(pool.Pool, settingsCache)
		listener.Start(ctx)
		defer listener.Stop()
		log.Infow("discount settings cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	// --- Audit and outbox ---
	audit, err := postgres.NewAuditService(txm, auditCompressThreshold)
	if err != nil {
		return fmt.Errorf("init audit: %w", err)
	}

	strategy := corenumerator.StrategyStrict
	if cfg.Numerator.Strategy == "cached" {
		strategy = corenumerator.StrategyCached
	}

	deps := supply.Deps{
		Orders:          document_repo.NewSupplyOrderRepo(txm),
		Returns:         document_repo.NewSupplyReturnRepo(txm),
		Payments:        document_repo.NewSupplyPaymentRepo(txm),
		TxManager:       txm,
		Numerator:       numerator.New(func(ctx context.Context) numerator.Querier { return txm.GetQuerier(ctx) }, txm.Pool()),
		NumberStrategy:  strategy,
		NumberRangeSize: cfg.Numerator.RangeSize,
		Events:          postgres.NewOutboxPublisher(txm),
		Audit:           audit,
	}

	orders := supply.NewOrderManager(deps, catalog_repo.NewProductRepo(txm), supply.NewDiscountRateResolver(settings))
	returns := supply.NewReturnProcessor(deps)
	payments := supply.NewPaymentProcessor(deps)

	// --- Router ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	if cfg.JWT.Issuer != "" {
		jwtConfig.Issuer = cfg.JWT.Issuer
	}

	routerCfg := v1.RouterConfig{
		AppName:      cfg.App.Name,
		Version:      cfg.App.Version,
		Development:  cfg.App.IsDevelopment(),
		Logger:       log,
		Database:     pool,
		JWTValidator: auth.NewJWTService(jwtConfig),
		Orders:       orders,
		Returns:      returns,
		Payments:     payments,
		History:      audit,
	}
	if cfg.Idempotency.Enabled {
		routerCfg.Idempotency = postgres.NewIdempotencyStore(pool, cfg.Idempotency.TTL)
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = &middleware.RateLimitConfig{Rate: cfg.RateLimit.Rate, Redis: redisClient}
	}

	router, err := v1.NewRouter(routerCfg)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
