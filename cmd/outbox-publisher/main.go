package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/kafka"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/migrate"
	"github.com/angelmondragon/canteen-backend/pkg/outbox"
	"github.com/angelmondragon/canteen-backend/pkg/outbox/registry"
	"github.com/angelmondragon/canteen-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
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

	transport, err := openTransport(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap event transport", err)
		os.Exit(1)
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logg.Error(context.Background(), "error closing event transport", err)
		}
	}()

	repo := outbox.NewRepository(dbClient.DB())
	eventRegistry, err := registry.NewEventRegistry(registry.TopicsFromConfig(cfg))
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		os.Exit(1)
	}
	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logg,
		DB:               dbClient,
		Broker:           transport,
		BrokerName:       cfg.Eventing.Transport,
		Repository:       repo,
		Registry:         eventRegistry,
		PublisherFactory: transport.publisherFor,
		DLQRepository:    outbox.NewDLQRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
		"transport":   cfg.Eventing.Transport,
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// eventTransport hides which broker backs the publisher.
type eventTransport struct {
	ping         func(context.Context) error
	close        func() error
	publisherFor publisherFactory
}

func (t *eventTransport) Ping(ctx context.Context) error { return t.ping(ctx) }

func (t *eventTransport) Close() error { return t.close() }

func openTransport(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*eventTransport, error) {
	if cfg.Eventing.UsesKafka() {
		client, err := kafka.NewClient(ctx, cfg.Kafka, logg)
		if err != nil {
			return nil, err
		}
		return &eventTransport{
			ping:  client.Ping,
			close: client.Close,
			publisherFor: func(topic string) publisher {
				return newKafkaPublisher(client.Writer(topic))
			},
		}, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, err
	}
	return &eventTransport{
		ping:  client.Ping,
		close: client.Close,
		publisherFor: func(topic string) publisher {
			return newGCPPublisher(client.Publisher(topic))
		},
	}, nil
}
