package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tair/storefront/internal/order"
	httpDelivery "github.com/tair/storefront/internal/order/delivery/http"
	"github.com/tair/storefront/internal/order/domain"
	"github.com/tair/storefront/internal/order/payment"
	"github.com/tair/storefront/internal/order/repository"
	"github.com/tair/storefront/internal/storefront/remote"
	"github.com/tair/storefront/kafka"
	"github.com/tair/storefront/pkg/breaker"
	"github.com/tair/storefront/pkg/database"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/middleware"
	"github.com/tair/storefront/pkg/server"
)

func main() {
	cfg, shutdownTracer := server.Bootstrap("order-service", "8083")
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

	if err := repository.NewGormOrderRepository(db).AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	cart := remote.NewClient(cfg.Services.Cart, remote.WithBreaker(breaker.New("cart-service", 5, 30*time.Second)))

	var gateway payment.Gateway
	if cfg.Payment.GatewayURL != "" {
		gateway = payment.NewHTTPGateway(cfg.Payment.GatewayURL, cfg.Payment.APIKey)
	} else {
		logger.Logger.Warn().Msg("PAYMENT_GATEWAY_URL not set - using the sandbox gateway")
		gateway = payment.NewSandboxGateway()
	}

	var publisher domain.EventPublisher
	if p, err := kafka.NewPublisher(cfg.Kafka.Brokers); err != nil {
		logger.Logger.Warn().Err(err).Msg("Kafka unavailable - order.placed will not be published")
	} else {
		publisher = p
		defer p.Close()
	}

	handler, err := order.InitializeOrderHandler(db, cart, gateway, publisher, domain.Currency(cfg.Payment.Currency))
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize handler")
	}

	router := mux.NewRouter()
	mwConfig := middleware.DefaultConfig(cfg.ServiceName)
	middleware.Register(router, mwConfig)

	handler.RegisterRoutes(router)
	handler.RegisterHealthCheck(router, sqlDB)
	httpDelivery.RegisterSwaggerDocs(router)
	router.Handle("/metrics", promhttp.Handler())

	if err := server.ListenAndServe(ctx, cfg.HTTPPort, middleware.CORS(mwConfig, router)); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}
