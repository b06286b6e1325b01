package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darzi-doorstep/darzi-backend/api/controllers"
	"github.com/darzi-doorstep/darzi-backend/api/middleware"
	"github.com/darzi-doorstep/darzi-backend/api/responses"
	"github.com/darzi-doorstep/darzi-backend/internal/address"
	"github.com/darzi-doorstep/darzi-backend/internal/auth"
	"github.com/darzi-doorstep/darzi-backend/internal/booking"
	"github.com/darzi-doorstep/darzi-backend/internal/cart"
	"github.com/darzi-doorstep/darzi-backend/internal/catalog"
	"github.com/darzi-doorstep/darzi-backend/internal/contact"
	"github.com/darzi-doorstep/darzi-backend/internal/orders"
	"github.com/darzi-doorstep/darzi-backend/internal/otp"
	"github.com/darzi-doorstep/darzi-backend/pkg/auth/session"
	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/metrics"
	pkgredis "github.com/darzi-doorstep/darzi-backend/pkg/redis"
)

type rateLimiter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Dependencies groups everything the router hands to controllers.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    *pkgredis.Client
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Catalog *catalog.Catalog
	Contact *contact.Builder
	Address address.Service
	OTP     otp.Service
	Auth    auth.Service
	Cart    cart.Service
	Booking booking.Service
	Orders  orders.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	responses.SetLogger(logg)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientAddress(cfg.App.TrustedHops),
		middleware.Logging(logg, deps.HTTP),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginPhoneLimit,
	)
	var (
		idempotencyStore pkgredis.IdempotencyStore
		limiterStore     rateLimiter
		redisPinger      controllers.Pinger
	)
	if deps.Redis != nil {
		idempotencyStore, limiterStore, redisPinger = deps.Redis, deps.Redis, deps.Redis
	}
	idempotency := middleware.Idempotency(idempotencyStore, middleware.IdempotencyOptions{BookingTTL: cfg.Booking.IdempotencyTTL}, logg)
	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": redisPinger,
		}))
	})
	r.Handle("/metrics", metricsHandler(deps.Gatherer))

	r.Route("/api/public", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", controllers.CatalogCategories(deps.Catalog, logg))
			r.Get("/services", controllers.CatalogServices(deps.Catalog, logg))
			r.Get("/services/{serviceID}", controllers.CatalogService(deps.Catalog, logg))
		})
		r.Get("/booking/slots", controllers.BookingSlots(deps.Booking, logg))
		r.Get("/contact", controllers.ContactLinks(deps.Contact, logg))
		r.Get("/address/reverse", controllers.AddressReverse(deps.Address, logg))
		r.Post("/otp", controllers.OTPEdge(deps.OTP, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).Post("/otp/login", controllers.AuthOTPLogin(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).Post("/external", controllers.AuthExternalLogin(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.With(requireAuth).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.With(requireAuth).Get("/me", controllers.AuthMe(deps.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth, middleware.DeviceID(logg))
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{serviceID}", controllers.CartSetQuantity(deps.Cart, logg))
				r.Delete("/items/{serviceID}", controllers.CartRemoveItem(deps.Cart, logg))
			})
			r.With(idempotency).Post("/bookings", controllers.BookingSubmit(deps.Booking, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderID}", controllers.OrderDetail(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth, middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.With(idempotency).Patch("/orders/{orderID}/status", controllers.AdminOrderStatus(deps.Orders, logg))
	})

	return r
}

func metricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
