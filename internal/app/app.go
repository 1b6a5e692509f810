package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tradeyard/vendor-ledger/internal/api"
	"github.com/tradeyard/vendor-ledger/internal/api/middleware"
	"github.com/tradeyard/vendor-ledger/internal/config"
	"github.com/tradeyard/vendor-ledger/internal/db"
	"github.com/tradeyard/vendor-ledger/internal/idempotency"
	"github.com/tradeyard/vendor-ledger/internal/observability"
	"github.com/tradeyard/vendor-ledger/internal/repository"
	"github.com/tradeyard/vendor-ledger/internal/service"
	"github.com/tradeyard/vendor-ledger/internal/worker"
)

// Run bootstraps the HTTP server and background workers, blocking until
// shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)
	store := repository.NewStore(pool)
	directory := store.Querier()

	ledgerSvc := service.NewLedgerService(store, directory)
	withdrawalSvc := service.NewWithdrawalService(store, directory)
	reconciliationSvc := service.NewReconciliationService(store)

	reconciliationWorker := worker.NewReconciliationWorker(reconciliationSvc).
		WithInterval(cfg.ReconciliationInterval)
	stopReconciliation := reconciliationWorker.Run(ctx)
	logger.Info("reconciliation worker started", zap.Duration("interval", cfg.ReconciliationInterval))

	janitor := worker.NewIdempotencyJanitor(idemStore).
		WithInterval(cfg.JanitorInterval)
	stopJanitor := janitor.Run(ctx)
	logger.Info("idempotency janitor started", zap.Duration("interval", cfg.JanitorInterval))

	router := api.NewRouter(logger, pool, redisClient, ledgerSvc, withdrawalSvc, idemStore, cfg.PublicRateLimitRPS, cfg.AuthRateLimitRPS)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping background workers")
	stopReconciliation()
	stopJanitor()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
