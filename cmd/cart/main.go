package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tair/storefront/internal/cart"
	httpDelivery "github.com/tair/storefront/internal/cart/delivery/http"
	"github.com/tair/storefront/internal/cart/repository"
	"github.com/tair/storefront/kafka"
	"github.com/tair/storefront/pkg/database"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/middleware"
	"github.com/tair/storefront/pkg/server"
)

func main() {
	cfg, shutdownTracer := server.Bootstrap("cart-service", "8082")
	defer shutdownTracer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	if err := repository.NewGormCartRepository(db).AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	svc, err := cart.InitializeService(db, cart.CatalogURL(cfg.Services.Catalog))
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize service")
	}

	// Orders empty the cart they were placed from
	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{kafka.TopicOrderPlaced})
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Kafka unavailable - carts will not be cleared after orders")
	} else {
		svc.OrderPlaced.Register(consumer)
		if err := consumer.Start(ctx); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to start Kafka consumer")
		}
		defer consumer.Close()
	}

	router := mux.NewRouter()
	mwConfig := middleware.DefaultConfig(cfg.ServiceName)
	middleware.Register(router, mwConfig)

	svc.HTTP.RegisterRoutes(router)
	svc.HTTP.RegisterHealthCheck(router, sqlDB)
	httpDelivery.RegisterSwaggerDocs(router)
	router.Handle("/metrics", promhttp.Handler())

	if err := server.ListenAndServe(ctx, cfg.HTTPPort, middleware.CORS(mwConfig, router)); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}
