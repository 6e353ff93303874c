package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/canteen-backend/internal/mirror"
	"github.com/angelmondragon/canteen-backend/pkg/chain"
	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/kafka"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/metrics"
	"github.com/angelmondragon/canteen-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/canteen-backend/pkg/pubsub"
	"github.com/angelmondragon/canteen-backend/pkg/redis"
	"github.com/angelmondragon/canteen-backend/pkg/security"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "mirror-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "mirror-worker"

	logg = logger.New(logger.Options{
		ServiceName: "mirror-worker",
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

	chainClient, err := chain.Dial(context.Background(), cfg.Chain, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to dial token ledger", err)
		os.Exit(1)
	}
	defer chainClient.Close()

	sealer, err := security.NewKeySealer(cfg.WalletKey)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet key sealer", err)
		os.Exit(1)
	}

	repo := mirror.NewRepository(dbClient.DB())
	wallets, err := mirror.NewWallets(repo, sealer)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet store", err)
		os.Exit(1)
	}
	mirrorSvc, err := mirror.NewService(mirror.ServiceParams{
		Repo:    repo,
		Wallets: wallets,
		Ledger:  chainClient,
		Metrics: metrics.NewMirrorMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create mirror service", err)
		os.Exit(1)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}
	consumer, err := mirror.NewConsumer(mirrorSvc, manager, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mirror consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"transport":   cfg.Eventing.Transport,
	})
	logg.Info(ctx, "starting mirror worker")

	if err := run(ctx, cfg, logg, consumer); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "mirror worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "mirror worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, consumer *mirror.Consumer) error {
	if cfg.Eventing.UsesKafka() {
		client, err := kafka.NewClient(ctx, cfg.Kafka, logg)
		if err != nil {
			return err
		}
		defer client.Close()

		reader, err := kafka.NewConsumer(client.Reader(cfg.Kafka.LedgerTopic, cfg.Kafka.ConsumerGroup), logg)
		if err != nil {
			return err
		}
		return reader.Run(ctx, consumer.KafkaHandler())
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer client.Close()
	return consumer.RunPubSub(ctx, client.LedgerSubscription())
}
