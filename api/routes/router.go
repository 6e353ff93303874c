package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/canteen-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/canteen-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/canteen-backend/api/controllers/orders"
	"github.com/angelmondragon/canteen-backend/api/middleware"
	"github.com/angelmondragon/canteen-backend/internal/accounts"
	"github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/internal/checkout"
	"github.com/angelmondragon/canteen-backend/internal/ledger"
	"github.com/angelmondragon/canteen-backend/internal/menus"
	"github.com/angelmondragon/canteen-backend/internal/orders"
	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/canteen-backend/pkg/redis"
)

const checkoutRatePolicy = "checkout"

// redisStore covers the redis operations used by the HTTP edge.
type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services are the domain services exposed over HTTP.
type Services struct {
	Accounts accounts.Service
	Cart     cart.Service
	Checkout checkout.Service
	Orders   orders.Service
	Menus    menus.Service
	Ledger   ledger.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient redisStore,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/me", controllers.Me(svc.Accounts, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartList(svc.Cart, logg))
			r.Post("/lines", cartcontrollers.CartAddLine(svc.Cart, logg))
			r.Patch("/lines", cartcontrollers.CartUpdateLine(svc.Cart, logg))
			r.Delete("/lines", cartcontrollers.CartDeleteLine(svc.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.AccountRateLimit(
				checkoutRatePolicy,
				cfg.Ordering.CheckoutRateLimit,
				cfg.Ordering.CheckoutRateWindow,
				redisClient,
				logg,
			)).Post("/checkout", ordercontrollers.Checkout(svc.Checkout, logg))
			r.Get("/", ordercontrollers.List(svc.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
		})

		r.Route("/menus", func(r chi.Router) {
			r.Get("/", controllers.MenuByKind(svc.Menus, logg))
			r.Get("/{menuId}", controllers.MenuByID(svc.Menus, logg))
		})

		r.Get("/ledger/transactions", controllers.LedgerTransactions(svc.Ledger, logg))

		r.Route("/staff", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.AccountRoleStaff, logg))
			r.Post("/ledger/recharge", controllers.StaffRecharge(svc.Ledger, logg))
			r.Post("/orders/{orderId}/status", ordercontrollers.StaffAdvance(svc.Orders, logg))
			r.Post("/orders/{orderId}/cancel", ordercontrollers.StaffCancel(svc.Orders, logg))
		})
	})

	return r
}
