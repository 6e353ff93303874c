package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/canteen-backend/api/routes"
	"github.com/angelmondragon/canteen-backend/internal/accounts"
	"github.com/angelmondragon/canteen-backend/internal/availability"
	"github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/internal/checkout"
	"github.com/angelmondragon/canteen-backend/internal/ledger"
	"github.com/angelmondragon/canteen-backend/internal/menus"
	"github.com/angelmondragon/canteen-backend/internal/orders"
	"github.com/angelmondragon/canteen-backend/pkg/calendar"
	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/metrics"
	"github.com/angelmondragon/canteen-backend/pkg/migrate"
	"github.com/angelmondragon/canteen-backend/pkg/outbox"
	"github.com/angelmondragon/canteen-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, reg prometheus.Registerer) (routes.Services, error) {
	var out routes.Services

	houseID, err := cfg.Ledger.HouseAccount()
	if err != nil {
		return out, err
	}
	loc, err := cfg.App.Location()
	if err != nil {
		return out, err
	}
	var cal *calendar.Calendar
	if cfg.Points.CalendarPath != "" {
		if cal, err = calendar.Load(cfg.Points.CalendarPath); err != nil {
			return out, err
		}
	}

	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	calc := availability.NewCalculator(int64(cfg.Ordering.MaxQuantityPerOrder))
	orderingMetrics := metrics.NewOrderingMetrics(reg)

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		Repo:           ledger.NewRepository(conn),
		TxRunner:       dbClient,
		Outbox:         emitter,
		HouseAccountID: houseID,
		Logger:         logg,
	})
	if err != nil {
		return out, err
	}

	cartSvc, err := cart.NewService(cart.NewRepository(conn), dbClient, calc, logg)
	if err != nil {
		return out, err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Repo:     checkout.NewRepository(conn),
		TxRunner: dbClient,
		Cart:     cartSvc,
		Ledger:   ledgerSvc,
		Outbox:   emitter,
		Metrics:  orderingMetrics,
		Logger:   logg,
	})
	if err != nil {
		return out, err
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		TxRunner: dbClient,
		Ledger:   ledgerSvc,
		Outbox:   emitter,
		Metrics:  orderingMetrics,
		Logger:   logg,
	})
	if err != nil {
		return out, err
	}

	menusSvc, err := menus.NewService(conn, menus.NewRepository(conn), calc)
	if err != nil {
		return out, err
	}

	accountsSvc, err := accounts.NewService(accounts.ServiceParams{
		Repo:        accounts.NewRepository(conn),
		TxRunner:    dbClient,
		Ledger:      ledgerSvc,
		Calendar:    cal,
		DailyAmount: cfg.Points.DailyAmount,
		Location:    loc,
		Logger:      logg,
	})
	if err != nil {
		return out, err
	}

	return routes.Services{
		Accounts: accountsSvc,
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Orders:   ordersSvc,
		Menus:    menusSvc,
		Ledger:   ledgerSvc,
	}, nil
}
