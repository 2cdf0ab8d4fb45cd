package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonaskin/storefront-backend/api/controllers"
	"github.com/sonaskin/storefront-backend/api/middleware"
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
	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/metrics"
)

// RedisStore is the redis surface the HTTP layer needs: rate limits, replay records and readiness.
type RedisStore interface {
	middleware.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger
	Now    func() time.Time

	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Accounts middleware.UserLookup

	Auth       auth.Service
	Users      users.Service
	Products   products.Service
	Categories categories.Service
	Articles   articles.Service
	Reviews    reviews.Service
	Settings   settings.Service
	Orders     orders.Service
	Cart       cart.Service
	Checkout   checkout.Service
	Locations  controllers.LocationDirectory

	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	staff := []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleEditor}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	var idempotencyStore middleware.IdempotencyStore
	var limiter rateLimiter
	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiter = deps.Redis
		readiness["redis"] = deps.Redis
	}

	loginLimit := middleware.RateLimit(middleware.LoginRateLimitPolicy(
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	), limiter, logg)
	reviewLimit := middleware.RateLimit(middleware.IPRateLimitPolicy("review", cfg.RateLimit.ReviewIPLimit, cfg.RateLimit.Window), limiter, logg)
	orderLimit := middleware.RateLimit(middleware.IPRateLimitPolicy("order", cfg.RateLimit.OrderIPLimit, cfg.RateLimit.Window), limiter, logg)
	idempotent := middleware.Idempotency(idempotencyStore, logg)
	authn := middleware.Auth(cfg.JWT, deps.Sessions, deps.Accounts, logg)
	adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimit).Post("/login", controllers.AuthLogin(deps.Auth, cfg.JWT, logg))
			r.With(authn).Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
			r.With(authn).Get("/me", controllers.AuthMe(deps.Auth, logg))
		})

		r.Get("/products", controllers.PublicListProducts(deps.Products, deps.Categories, logg))
		r.Get("/products/{slug}", controllers.PublicGetProduct(deps.Products, logg))
		r.Get("/products/{slug}/reviews", controllers.PublicListProductReviews(deps.Reviews, deps.Products, logg))
		r.Get("/categories", controllers.ListCategories(deps.Categories, logg))
		r.Get("/articles", controllers.PublicListArticles(deps.Articles, logg))
		r.Get("/articles/{slug}", controllers.PublicGetArticle(deps.Articles, logg))
		r.With(reviewLimit, idempotent).Post("/reviews", controllers.PublicSubmitReview(deps.Reviews, logg))
		r.Get("/settings", controllers.PublicListSettings(deps.Settings, logg))
		r.Get("/settings/contact", controllers.PublicContactInfo(deps.Settings, logg))

		r.Route("/locations", func(r chi.Router) {
			r.Get("/provinces", controllers.ListProvinces(deps.Locations, logg))
			r.Get("/provinces/{code}/districts", controllers.ListDistricts(deps.Locations, logg))
			r.Get("/districts/{code}/wards", controllers.ListWards(deps.Locations, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartToken(middleware.CartTokenOptions{
				TTL:    cfg.Cache.CartTTL,
				Secure: cfg.JWT.CookieSecure,
			}, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.Cart, logg))
				r.Delete("/", controllers.ClearCart(deps.Cart, logg))
				r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
				r.Put("/items/{id}", controllers.UpdateCartItem(deps.Cart, logg))
				r.Delete("/items/{id}", controllers.RemoveCartItem(deps.Cart, logg))
			})
			r.With(orderLimit, idempotent).Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.With(orderLimit, idempotent).Post("/orders", controllers.PublicCreateOrder(deps.Checkout, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authn, middleware.RequireRole(logg, staff...), idempotent)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(deps.Orders, cfg.App, logg))
				r.Post("/", controllers.AdminCreateOrder(deps.Orders, logg))
				r.Get("/export", controllers.AdminExportOrders(deps.Orders, cfg.App, deps.Now, logg))
				r.Get("/{id}", controllers.AdminGetOrder(deps.Orders, logg))
				r.Put("/{id}", controllers.AdminUpdateOrder(deps.Orders, logg))
				r.With(adminOnly).Delete("/{id}", controllers.AdminDeleteOrder(deps.Orders, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminListProducts(deps.Products, logg))
				r.Post("/", controllers.AdminCreateProduct(deps.Products, logg))
				r.Get("/{id}", controllers.AdminGetProduct(deps.Products, logg))
				r.Put("/{id}", controllers.AdminUpdateProduct(deps.Products, logg))
				r.With(adminOnly).Delete("/{id}", controllers.AdminDeleteProduct(deps.Products, logg))
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.ListCategories(deps.Categories, logg))
				r.Post("/", controllers.AdminCreateCategory(deps.Categories, logg))
				r.Get("/{id}", controllers.AdminGetCategory(deps.Categories, logg))
				r.Put("/{id}", controllers.AdminUpdateCategory(deps.Categories, logg))
				r.With(adminOnly).Delete("/{id}", controllers.AdminDeleteCategory(deps.Categories, logg))
			})

			r.Route("/articles", func(r chi.Router) {
				r.Get("/", controllers.AdminListArticles(deps.Articles, logg))
				r.Post("/", controllers.AdminCreateArticle(deps.Articles, logg))
				r.Get("/{id}", controllers.AdminGetArticle(deps.Articles, logg))
				r.Put("/{id}", controllers.AdminUpdateArticle(deps.Articles, logg))
				r.With(adminOnly).Delete("/{id}", controllers.AdminDeleteArticle(deps.Articles, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Get("/", controllers.AdminListReviews(deps.Reviews, logg))
				r.Post("/", controllers.AdminCreateReview(deps.Reviews, logg))
				r.Get("/{id}", controllers.AdminGetReview(deps.Reviews, logg))
				r.Put("/{id}", controllers.AdminUpdateReview(deps.Reviews, logg))
				r.With(adminOnly).Delete("/{id}", controllers.AdminDeleteReview(deps.Reviews, logg))
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", controllers.AdminListSettings(deps.Settings, logg))
				r.Post("/", controllers.AdminCreateSetting(deps.Settings, logg))
				r.Post("/contact/refresh", controllers.AdminRefreshContact(deps.Settings, logg))
				r.Get("/{key}", controllers.AdminGetSetting(deps.Settings, logg))
				r.Put("/{key}", controllers.AdminUpdateSetting(deps.Settings, logg))
				r.With(adminOnly).Delete("/{key}", controllers.AdminDeleteSetting(deps.Settings, logg))
			})

			// role and activation changes are checked per field by the users service
			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminListUsers(deps.Users, logg))
				r.With(adminOnly).Post("/", controllers.AdminCreateUser(deps.Users, logg))
				r.Get("/{id}", controllers.AdminGetUser(deps.Users, logg))
				r.Put("/{id}", controllers.AdminUpdateUser(deps.Users, logg))
				r.With(adminOnly).Delete("/{id}", controllers.AdminDeleteUser(deps.Users, logg))
			})
		})
	})

	return r
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}
