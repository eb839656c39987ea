package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abdul-hamid-achik/luzimarket-backend/internal/cron"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/inventory"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/notifications"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/orders"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/config"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/instance"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/metrics"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/migrate"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/redis"
)

const lockKeyFormat = "lm:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	mailer := notifications.NewNoopMailer()
	if cfg.Sendgrid.APIKey != "" {
		mailer, err = notifications.NewSendgridMailer(cfg.Sendgrid)
		if err != nil {
			logg.Error(context.Background(), "failed to create sendgrid mailer", err)
			os.Exit(1)
		}
	}
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	notificationsSvc, err := notifications.NewService(notificationsRepo, mailer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(
		inventory.NewRepository(dbClient.DB()),
		orders.NewRepository(dbClient.DB()),
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

	sweepJob, err := cron.NewInventorySweepJob(cron.InventorySweepJobParams{
		Logger:  logg,
		Sweeper: inventorySvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory sweep job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notificationsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(sweepJob, retentionJob, cleanupJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.InventorySweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"workerId":    instance.ID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
