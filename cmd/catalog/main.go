package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tair/storefront/internal/catalog"
	httpDelivery "github.com/tair/storefront/internal/catalog/delivery/http"
	"github.com/tair/storefront/internal/catalog/domain"
	"github.com/tair/storefront/internal/catalog/repository"
	"github.com/tair/storefront/internal/catalog/usecase/command"
	"github.com/tair/storefront/pkg/database"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/middleware"
	"github.com/tair/storefront/pkg/server"
)

func main() {
	seed := flag.String("seed", "", "import legacy product records from this JSON file and exit")
	flag.Parse()

	cfg, shutdownTracer := server.Bootstrap("catalog-service", "8081")
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

	if err := repository.NewGormProductRepository(db).AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	if *seed != "" {
		if err := importSeed(ctx, catalog.ProvideProductRepository(db), *seed); err != nil {
			logger.Logger.Fatal().Err(err).Str("file", *seed).Msg("Seed import failed")
		}
		return
	}

	productHandler, err := catalog.InitializeProductHandler(db)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize handler")
	}

	router := mux.NewRouter()
	mwConfig := middleware.DefaultConfig(cfg.ServiceName)
	middleware.Register(router, mwConfig)

	productHandler.RegisterRoutes(router)
	productHandler.RegisterHealthCheck(router, sqlDB)
	httpDelivery.RegisterSwaggerDocs(router)
	router.Handle("/metrics", promhttp.Handler())

	if err := server.ListenAndServe(ctx, cfg.HTTPPort, middleware.CORS(mwConfig, router)); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

func importSeed(ctx context.Context, repo domain.ProductRepository, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := command.NewImportProductsHandler(repo).Handle(ctx, command.ImportProductsCommand{Source: f})
	if err != nil {
		return err
	}

	logger.Logger.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Strs("errors", result.Errors).
		Msg("Seed file imported")
	return nil
}
