package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/canteen-backend/internal/cron"
	"github.com/angelmondragon/canteen-backend/internal/mirror"
	"github.com/angelmondragon/canteen-backend/pkg/chain"
	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/metrics"
	"github.com/angelmondragon/canteen-backend/pkg/migrate"
	"github.com/angelmondragon/canteen-backend/pkg/outbox"
	"github.com/angelmondragon/canteen-backend/pkg/redis"
	"github.com/angelmondragon/canteen-backend/pkg/security"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		Repository:    outbox.NewRepository(dbClient.DB()),
		RetentionDays: cfg.Outbox.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	registry := cron.NewRegistry(retention)

	if cfg.Chain.RPCURL == "" {
		logg.Warn(context.Background(), "chain rpc url not configured, mirror reconciliation disabled")
	} else {
		chainClient, err := chain.Dial(context.Background(), cfg.Chain, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to dial token ledger", err)
			os.Exit(1)
		}
		defer chainClient.Close()

		reconcile, err := newReconcileJob(cfg, logg, dbClient, chainClient)
		if err != nil {
			logg.Error(context.Background(), "failed to create mirror reconcile job", err)
			os.Exit(1)
		}
		registry.Register(reconcile)
	}

	lock, err := cron.NewRedisLock(redisClient, cron.LockName, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        len(registry.Jobs()),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func newReconcileJob(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, ledger chain.TokenLedger) (cron.Job, error) {
	sealer, err := security.NewKeySealer(cfg.WalletKey)
	if err != nil {
		return nil, err
	}
	repo := mirror.NewRepository(dbClient.DB())
	wallets, err := mirror.NewWallets(repo, sealer)
	if err != nil {
		return nil, err
	}
	mirrorSvc, err := mirror.NewService(mirror.ServiceParams{
		Repo:    repo,
		Wallets: wallets,
		Ledger:  ledger,
		Metrics: metrics.NewMirrorMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewMirrorReconcileJob(cron.MirrorReconcileJobParams{
		Logger:    logg,
		Mirror:    mirrorSvc,
		BatchSize: cfg.Cron.ReconcileBatchSize,
	})
}
