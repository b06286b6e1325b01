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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/darzi-doorstep/darzi-backend/api/routes"
	"github.com/darzi-doorstep/darzi-backend/internal/address"
	"github.com/darzi-doorstep/darzi-backend/internal/auth"
	"github.com/darzi-doorstep/darzi-backend/internal/booking"
	"github.com/darzi-doorstep/darzi-backend/internal/cart"
	"github.com/darzi-doorstep/darzi-backend/internal/catalog"
	"github.com/darzi-doorstep/darzi-backend/internal/contact"
	"github.com/darzi-doorstep/darzi-backend/internal/orders"
	"github.com/darzi-doorstep/darzi-backend/internal/otp"
	"github.com/darzi-doorstep/darzi-backend/internal/users"
	"github.com/darzi-doorstep/darzi-backend/pkg/auth/session"
	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	"github.com/darzi-doorstep/darzi-backend/pkg/db"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/maps"
	"github.com/darzi-doorstep/darzi-backend/pkg/metrics"
	"github.com/darzi-doorstep/darzi-backend/pkg/migrate"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox"
	"github.com/darzi-doorstep/darzi-backend/pkg/redis"
	"github.com/darzi-doorstep/darzi-backend/pkg/sms"
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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	cat := catalog.Default()
	if synced, err := catalog.NewRepository(dbClient.DB()).Sync(bootCtx, cat); err != nil {
		logg.Warn(logg.WithField(bootCtx, "error", err.Error()), "catalog sync failed; serving from memory")
	} else {
		logg.Info(logg.WithField(bootCtx, "services", synced), "catalog synced")
	}

	sender, err := sms.NewSender(cfg.SMS, logg)
	if err != nil {
		return err
	}
	otpService, err := otp.NewService(otp.ServiceParams{
		Store:     otp.NewRepository(dbClient.DB()),
		Sender:    sender,
		Limiter:   redisClient,
		OTP:       cfg.OTP,
		RateLimit: cfg.AuthRateLimit,
		Password:  cfg.Password,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          users.NewRepository(dbClient.DB()),
		Tx:             dbClient,
		OTP:            otpService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		IdentityConfig: cfg.Identity,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	deviceStore, err := cart.NewDeviceStore(redisClient, cfg.Cart.DeviceTTL)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Catalog:       cat,
		Device:        deviceStore,
		Server:        cart.NewRepository(dbClient.DB()),
		Logger:        logg,
		MirrorTimeout: cfg.Cart.MirrorTimeout,
	})
	if err != nil {
		return err
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		return err
	}

	calendar, err := booking.NewCalendar(cfg.Booking)
	if err != nil {
		return err
	}
	bookingService, err := booking.NewService(booking.ServiceParams{
		Repo:     booking.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Outbox:   outboxService,
		Carts:    cartService,
		Orders:   ordersService,
		Catalog:  cat,
		Calendar: calendar,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	contactBuilder, err := contact.NewBuilder(cfg.Contact, cat)
	if err != nil {
		return err
	}

	geocoder := maps.NewClient(
		maps.WithBaseURL(cfg.Geocoding.BaseURL),
		maps.WithUserAgent(cfg.Geocoding.UserAgent),
		maps.WithLanguage(cfg.Geocoding.Language),
		maps.WithTimeout(cfg.Geocoding.Timeout),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:       dbClient,
		Redis:    redisClient,
		Sessions: sessionManager,
		Gatherer: reg,
		HTTP:     metrics.NewHTTPMetrics(reg),
		Catalog:  cat,
		Contact:  contactBuilder,
		Address:  address.NewService(geocoder, logg),
		OTP:      otpService,
		Auth:     authService,
		Cart:     cartService,
		Booking:  bookingService,
		Orders:   ordersService,
	})

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
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
