package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	stripego "github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// Dependencies groups everything the HTTP surface needs. Nil services answer 500.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Cart     cart.Service
	Checkout checkoutsvc.Service
	Wishlist wishlist.Service
	Users    users.Service

	StripeClient       *stripe.Client
	StripeWebhook      *stripewebhook.Service
	StripeWebhookGuard *stripewebhook.IdempotencyGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.App.BaseURL()),
	)

	var (
		idempotencyStore redis.IdempotencyStore
		readiness        = map[string]controllers.Pinger{}
		checkoutLimiter  = func(next http.Handler) http.Handler { return next }
	)
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		readiness["redis"] = deps.Redis
		checkoutLimiter = middleware.RateLimit(
			middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutLimit),
			deps.Redis,
			logg,
		)
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", stripeWebhookHandler(deps, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/cart", controllers.CartGet(deps.Cart, logg))
		r.Post("/cart/items", controllers.CartAddItem(deps.Cart, logg))
		r.Patch("/cart/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
		r.Delete("/cart/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))

		r.With(checkoutLimiter, middleware.Idempotency(idempotencyStore, logg)).
			Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Get("/checkout/attempts", controllers.CheckoutAttempts(deps.Checkout, logg))

		r.Get("/wishlist", controllers.WishlistList(deps.Wishlist, logg))
		r.Post("/wishlist", controllers.WishlistAdd(deps.Wishlist, logg))
		r.Delete("/wishlist/{productId}", controllers.WishlistRemove(deps.Wishlist, logg))

		r.Get("/me", controllers.MeGet(deps.Users, logg))
		r.Patch("/me", controllers.MeUpdate(deps.Users, logg))
	})

	return r
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type eventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripego.Event, error)
}

// stripeWebhookHandler keeps nil pointers out of the handler's interfaces.
func stripeWebhookHandler(deps Dependencies, logg *logger.Logger) http.HandlerFunc {
	var (
		svc    webhookcontrollers.StripeWebhookService
		client eventVerifier
		guard  webhookGuard
	)
	if deps.StripeWebhook != nil {
		svc = deps.StripeWebhook
	}
	if deps.StripeClient != nil {
		client = deps.StripeClient
	}
	if deps.StripeWebhookGuard != nil {
		guard = deps.StripeWebhookGuard
	}
	return webhookcontrollers.StripeWebhook(svc, client, guard, deps.Metrics, logg)
}
