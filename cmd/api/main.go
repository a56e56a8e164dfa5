package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/api/routes"
	"github.com/sorbeteslab/sorbetes-backend/internal/availability"
	"github.com/sorbeteslab/sorbetes-backend/internal/orders"
	"github.com/sorbeteslab/sorbetes-backend/internal/payments"
	"github.com/sorbeteslab/sorbetes-backend/internal/reservation"
	"github.com/sorbeteslab/sorbetes-backend/internal/settlement"
	"github.com/sorbeteslab/sorbetes-backend/pkg/config"
	"github.com/sorbeteslab/sorbetes-backend/pkg/db"
	"github.com/sorbeteslab/sorbetes-backend/pkg/gcash"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
	"github.com/sorbeteslab/sorbetes-backend/pkg/metrics"
	"github.com/sorbeteslab/sorbetes-backend/pkg/migrate"
	"github.com/sorbeteslab/sorbetes-backend/pkg/outbox"
	"github.com/sorbeteslab/sorbetes-backend/pkg/redis"
)

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

	gcashOpts := []gcash.Option{
		gcash.WithHTTPClient(&http.Client{Timeout: cfg.GCash.GatewayTimeout}),
	}
	if cfg.GCash.GatewayBaseURL != "" {
		gcashOpts = append(gcashOpts, gcash.WithBaseURL(cfg.GCash.GatewayBaseURL))
	}
	gcashClient, err := gcash.NewClient(cfg.GCash.GatewayAPIKey, gcashOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to create gcash gateway client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	availabilitySvc, err := availability.NewService(availability.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}

	reservationSvc, err := reservation.NewService(
		reservation.NewFlavorRepository(dbClient.DB()),
		availabilitySvc,
		dbClient,
		orderMetrics,
		logg,
		cfg.Order.MinLeadTime,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, availabilitySvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	attemptsRepo := payments.NewAttemptRepository(dbClient.DB())
	settlementSvc, err := settlement.NewService(ordersRepo, attemptsRepo, outboxSvc, orderMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	chargeGuard, err := payments.NewIdempotencyGuard(redisClient, cfg.Eventing.PaymentIdempotencyTTL, "gcash-charge")
	if err != nil {
		logg.Error(context.Background(), "failed to create charge idempotency guard", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(
		attemptsRepo,
		payments.NewVendorAccountRepository(dbClient.DB()),
		ordersRepo,
		settlementSvc,
		gcashClient,
		chargeGuard,
		dbClient,
		outboxSvc,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	defaultFee, err := decimal.NewFromString(cfg.Order.DefaultDeliveryFee)
	if err != nil {
		logg.Error(context.Background(), "invalid default delivery fee", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:             cfg,
			Logger:             logg,
			DB:                 dbClient,
			Redis:              redisClient,
			AvailabilitySvc:    availabilitySvc,
			ReservationSvc:     reservationSvc,
			OrdersSvc:          ordersSvc,
			PaymentsSvc:        paymentsSvc,
			DefaultDeliveryFee: defaultFee,
			MetricsGatherer:    registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
