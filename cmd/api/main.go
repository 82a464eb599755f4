package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kursadbilgin/integration-hub/internal/command"
	"github.com/kursadbilgin/integration-hub/internal/condition"
	"github.com/kursadbilgin/integration-hub/internal/config"
	"github.com/kursadbilgin/integration-hub/internal/events"
	"github.com/kursadbilgin/integration-hub/internal/handler"
	"github.com/kursadbilgin/integration-hub/internal/infra/postgresql"
	"github.com/kursadbilgin/integration-hub/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/integration-hub/internal/infra/redis"
	"github.com/kursadbilgin/integration-hub/internal/observability"
	"github.com/kursadbilgin/integration-hub/internal/provider"
	"github.com/kursadbilgin/integration-hub/internal/reconciler"
	"github.com/kursadbilgin/integration-hub/internal/repository"
	"github.com/kursadbilgin/integration-hub/internal/resolver"
	"github.com/kursadbilgin/integration-hub/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rmq, err := events.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	publisher := events.NewRabbitMQPublisher(rmq)
	defer publisher.Close()

	registry := provider.NewRegistry(logger)
	if err := registerBuiltinProviders(registry, logger); err != nil {
		logger.Fatal("provider registration failed", zap.Error(err))
	}

	appRepo := repository.NewGormAppRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	dispatcher, err := command.NewDispatcher(appRepo, attemptRepo, registry, publisher, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	evaluator, err := condition.NewEvaluator(condition.NewCUEPredicate(), logger)
	if err != nil {
		logger.Fatal("condition evaluator initialization failed", zap.Error(err))
	}

	res, err := resolver.NewResolver(registry, evaluator, logger)
	if err != nil {
		logger.Fatal("resolver initialization failed", zap.Error(err))
	}

	lease, err := infraredis.NewLease(rdb, "", time.Duration(cfg.LeaseTTLSeconds)*time.Second)
	if err != nil {
		logger.Fatal("lease initialization failed", zap.Error(err))
	}

	rec, err := reconciler.NewReconciler(
		appRepo,
		registry,
		dispatcher,
		lease,
		time.Duration(cfg.ReconcileIntervalSeconds)*time.Second,
		time.Duration(cfg.CheckTimeoutSeconds)*time.Second,
		cfg.AppConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("reconciler initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	rec.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterIntegrationRoutes(app, dispatcher, appRepo, res, attemptRepo); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rec.Start(ctx); err != nil {
		logger.Fatal("reconciler start failed", zap.Error(err))
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("integration-hub api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")

		rec.Stop()

		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("fiber shutdown failed", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run group exited", zap.Error(err))
	}

	logger.Info("integration-hub api stopped")
}

func registerBuiltinProviders(registry *provider.Registry, logger *zap.Logger) error {
	webhook, err := provider.NewWebhookProvider(logger)
	if err != nil {
		return err
	}
	if err := registry.Register(webhook); err != nil {
		return err
	}

	smsgate, err := provider.NewSMSGateProvider(logger)
	if err != nil {
		return err
	}
	return registry.Register(smsgate)
}
