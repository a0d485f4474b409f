// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/session"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/infrastructure/database/redis"
	"github.com/your-org/storefront/internal/infrastructure/messaging/kafka"
	"github.com/your-org/storefront/internal/interfaces/http"
	"github.com/your-org/storefront/internal/interfaces/http/routes"
	"github.com/your-org/storefront/internal/pkg/handoff"
	"github.com/your-org/storefront/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("storefront exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	log.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Infof("starting %s", cfg.App.Name)

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if _, failed := migration.CreateIndexes(); failed > 0 {
		log.WithField("failed", failed).Warn("some indexes could not be created")
	}

	products := catalog.NewCachedLookup(catalog.NewService(db.GetDB()), redisClient.GetClient(), cfg.Catalog.CacheTTL, log)
	if cfg.App.SeedCatalog {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migration.SeedCatalog(ctx); err != nil {
			log.WithError(err).Warn("catalog seeding failed")
		} else if err := products.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("failed to invalidate catalog cache")
		}
		cancel()
	}

	var publisher order.EventPublisher = order.NopPublisher{}
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg)
		defer producer.Close()
		publisher = producer
		log.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.OrderEventsTopic,
		}).Info("publishing order events to kafka")
	}

	policy, err := pricing.PolicyFromConfig(cfg.Pricing)
	if err != nil {
		return fmt.Errorf("invalid pricing policy: %w", err)
	}
	calculator := pricing.NewCalculator(policy)

	orders := order.NewService(db.GetDB(), publisher, log)
	defer orders.Close()
	payments := payment.NewService(db.GetDB(), payment.NewTestGateway(cfg.Checkout.PaymentDeclineCard, 0), log)

	sessions := session.NewManager(cfg.Session.TTL, func(store *cart.Store) *checkout.Orchestrator {
		return checkout.NewOrchestrator(store, checkout.Dependencies{
			Pricing:        calculator,
			Orders:         orders,
			Payments:       payments,
			Logger:         log,
			SubmitTimeout:  cfg.Checkout.SubmitTimeout,
			PaymentTimeout: cfg.Checkout.PaymentTimeout,
		})
	}, log)
	sessions.StartSweeper(cfg.Session.SweepInterval)
	defer sessions.Stop()

	server := http.NewServer(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Redis:    redisClient.GetClient(),
		Catalog:  products,
		Pricing:  calculator,
		Orders:   orders,
		Sessions: sessions,
		Tokens:   handoff.NewManager(cfg.Checkout, cfg.App.Name),
	}, map[string]http.HealthChecker{
		"database": db,
		"redis":    redisClient,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down gracefully")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("failed to shut down HTTP server gracefully")
	}

	log.Info("server shutdown completed")
	return nil
}
