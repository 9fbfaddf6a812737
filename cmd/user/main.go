package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tair/storefront/internal/user"
	httpDelivery "github.com/tair/storefront/internal/user/delivery/http"
	"github.com/tair/storefront/internal/user/domain"
	"github.com/tair/storefront/internal/user/repository"
	"github.com/tair/storefront/internal/user/usecase/command"
	"github.com/tair/storefront/pkg/database"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/middleware"
	"github.com/tair/storefront/pkg/server"
)

func main() {
	cfg, shutdownTracer := server.Bootstrap("user-service", "8080")
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

	if err := repository.NewGormUserRepository(db).AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	if name, password := os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD"); name != "" && password != "" {
		bootstrapAdmin(ctx, user.ProvideUserRepository(db), name, password)
	}

	handler, err := user.InitializeUserHandler(db)
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

// bootstrapAdmin creates the first admin account if it does not exist yet.
func bootstrapAdmin(ctx context.Context, repo domain.UserRepository, username, password string) {
	_, err := command.NewRegisterUserHandler(repo).Handle(ctx, command.RegisterUserCommand{
		Username: username,
		Email:    username + "@admin.local",
		Password: password,
		FullName: "Administrator",
		Role:     domain.RoleAdmin,
	})
	switch {
	case err == nil:
		logger.Logger.Info().Str("username", username).Msg("Admin account created")
	case errors.Is(err, domain.ErrConflict):
		logger.Logger.Debug().Str("username", username).Msg("Admin account already exists")
	default:
		logger.Logger.Error().Err(err).Msg("Failed to create admin account")
	}
}
