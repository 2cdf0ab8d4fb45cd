package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sonaskin/storefront-backend/api/routes"
	"github.com/sonaskin/storefront-backend/internal/articles"
	"github.com/sonaskin/storefront-backend/internal/auth"
	"github.com/sonaskin/storefront-backend/internal/cart"
	"github.com/sonaskin/storefront-backend/internal/categories"
	"github.com/sonaskin/storefront-backend/internal/checkout"
	"github.com/sonaskin/storefront-backend/internal/orders"
	"github.com/sonaskin/storefront-backend/internal/products"
	"github.com/sonaskin/storefront-backend/internal/reviews"
	"github.com/sonaskin/storefront-backend/internal/settings"
	"github.com/sonaskin/storefront-backend/internal/users"
	"github.com/sonaskin/storefront-backend/pkg/auth/session"
	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/locations"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/metrics"
	"github.com/sonaskin/storefront-backend/pkg/migrate"
	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/redis"
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

	logg = logger.FromConfig("api", cfg.App)

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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	deps, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
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
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shutting down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessions *session.Manager) (routes.Dependencies, error) {
	conn := dbClient.DB()
	now := time.Now

	userRepo := users.NewRepository(conn)
	userService, err := users.NewService(users.ServiceParams{
		Repository: userRepo,
		Password:   cfg.Password,
		Logger:     logg,
		Now:        now,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
		Now:            now,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	productService, err := products.NewService(products.NewRepository(conn), logg, now)
	if err != nil {
		return routes.Dependencies{}, err
	}
	categoryService, err := categories.NewService(categories.NewRepository(conn), logg, now)
	if err != nil {
		return routes.Dependencies{}, err
	}
	articleService, err := articles.NewService(articles.NewRepository(conn), logg, now)
	if err != nil {
		return routes.Dependencies{}, err
	}
	reviewService, err := reviews.NewService(reviews.NewRepository(conn), logg, now)
	if err != nil {
		return routes.Dependencies{}, err
	}

	settingsService, err := settings.NewService(settings.ServiceParams{
		Repository:   settings.NewRepository(conn),
		Logger:       logg,
		CacheTTL:     cfg.Cache.SettingsTTL,
		ContactStore: redisClient,
		ContactKey:   redisClient.ContactCacheKey(),
		ContactTTL:   cfg.Cache.ContactInfoTTL,
		Now:          now,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(conn),
		Tx:         dbClient,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:     logg,
		Location:   cfg.App.Location(),
		Now:        now,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	cartStorage, err := cart.NewRedisStorage(redisClient, cfg.Cache.CartTTL)
	if err != nil {
		return routes.Dependencies{}, err
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Storage:  cartStorage,
		Products: productService,
		Key:      func(token string) string { return redisClient.CartKey(token, "items") },
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Cart:     cartService,
		Orders:   orderService,
		Products: productService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	locationClient := locations.NewClient(
		locations.WithBaseURL(cfg.Locations.BaseURL),
		locations.WithTimeout(cfg.Locations.Timeout),
	)

	return routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		Now:         now,
		DB:          dbClient,
		Redis:       redisClient,
		Sessions:    sessions,
		Accounts:    userRepo,
		Auth:        authService,
		Users:       userService,
		Products:    productService,
		Categories:  categoryService,
		Articles:    articleService,
		Reviews:     reviewService,
		Settings:    settingsService,
		Orders:      orderService,
		Cart:        cartService,
		Checkout:    checkoutService,
		Locations:   locationClient,
		HTTPMetrics: metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Gatherer:    prometheus.DefaultGatherer,
	}, nil
}
