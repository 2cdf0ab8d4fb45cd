package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/metrics"
	"github.com/sonaskin/storefront-backend/pkg/migrate"
	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/outbox/idempotency"
	"github.com/sonaskin/storefront-backend/pkg/outbox/registry"
	"github.com/sonaskin/storefront-backend/pkg/pubsub"
	"github.com/sonaskin/storefront-backend/pkg/redis"
	"github.com/sonaskin/storefront-backend/pkg/sheets"
)

const deliveryGuardTTL = 7 * 24 * time.Hour

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

	logg = logger.FromConfig("outbox-publisher", cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	pubsubSink, err := pubsub.NewSink(pubsubClient.OrdersPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to build pubsub sink", err)
		os.Exit(1)
	}
	sinks := []outbox.Sink{pubsubSink}
	deps := []Dependency{
		{Name: "redis", Ping: redisClient.Ping},
		{Name: "pubsub", Ping: pubsubClient.Ping},
	}

	if cfg.FeatureFlags.SheetsMirror {
		sheetsClient, err := sheets.NewClient(context.Background(), cfg.GCP, cfg.Sheets, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap sheets", err)
			os.Exit(1)
		}
		mirror, err := sheets.NewOrderMirror(sheetsClient, cfg.Sheets.OrdersRange, cfg.App.Location())
		if err != nil {
			logg.Error(context.Background(), "failed to build sheets mirror", err)
			os.Exit(1)
		}
		sinks = append(sinks, mirror)
		deps = append(deps, Dependency{Name: "sheets", Ping: sheetsClient.Ping})
	}

	guard, err := idempotency.NewManager(redisClient, deliveryGuardTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to build delivery guard", err)
		os.Exit(1)
	}

	relay, err := NewRelay(RelayParams{
		Outbox:       cfg.Outbox,
		Logger:       logg,
		DB:           dbClient,
		Events:       outbox.NewRepository(dbClient.DB()),
		DeadLetters:  outbox.NewDLQRepository(dbClient.DB()),
		Registry:     registry.NewEventRegistry(cfg.FeatureFlags.SheetsMirror),
		Sinks:        sinks,
		Guard:        guard,
		Metrics:      metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Dependencies: deps,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox relay", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
		"sinks":       len(sinks),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}
