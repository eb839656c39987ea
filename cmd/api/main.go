package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abdul-hamid-achik/luzimarket-backend/api/routes"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/audit"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/inventory"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/ledger"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/notifications"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/orders"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/refunds"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/shipping"
	stripewebhook "github.com/abdul-hamid-achik/luzimarket-backend/internal/webhooks/stripe"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/config"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/metrics"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/migrate"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/redis"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/stripe"
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	gateway := stripe.NewGateway(stripeClient)

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())

	shippingSvc, err := shipping.NewService(shipping.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), emitter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	auditor, err := audit.NewRecorder(dbClient.DB(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit recorder", err)
		os.Exit(1)
	}

	mailer := notifications.NewNoopMailer()
	if cfg.Sendgrid.APIKey != "" {
		mailer, err = notifications.NewSendgridMailer(cfg.Sendgrid)
		if err != nil {
			logg.Error(context.Background(), "failed to create sendgrid mailer", err)
			os.Exit(1)
		}
	}
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), mailer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(
		inventory.NewRepository(dbClient.DB()),
		ordersRepo,
		dbClient,
		emitter,
		notificationsSvc,
		logg,
		cfg.Inventory,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, emitter, gateway, shippingSvc, ledgerSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	refundsSvc, err := refunds.NewService(
		ordersRepo,
		dbClient,
		emitter,
		gateway,
		inventorySvc,
		ledgerSvc,
		auditor,
		notificationsSvc,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:            ordersSvc,
		Ledger:            ledgerSvc,
		Refunds:           refundsSvc,
		OrderFinder:       ordersRepo,
		Guard:             guard,
		TransactionRunner: dbClient,
		Metrics:           metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Orders:        ordersSvc,
			Refunds:       refundsSvc,
			Shipping:      shippingSvc,
			Inventory:     inventorySvc,
			Notifications: notificationsSvc,
			StripeWebhook: webhookSvc,
			StripeClient:  stripeClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
