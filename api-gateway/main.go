package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"github.com/tair/storefront/api-gateway/config"
	"github.com/tair/storefront/api-gateway/health"
	"github.com/tair/storefront/api-gateway/middleware"
	"github.com/tair/storefront/api-gateway/proxy"
	"github.com/tair/storefront/api-gateway/routes"
	storefronthttp "github.com/tair/storefront/internal/storefront/delivery/http"
	"github.com/tair/storefront/internal/storefront/remote"
	"github.com/tair/storefront/internal/storefront/session"
	"github.com/tair/storefront/pkg/auth"
	"github.com/tair/storefront/pkg/breaker"
	appconfig "github.com/tair/storefront/pkg/config"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/tracing"
)

const sessionCookie = "sf_session"

func main() {
	appCfg, err := appconfig.Load(os.Getenv("STOREFRONT_CONFIG"), "storefront-edge", "8000")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(appCfg.ServiceName, appCfg.IsDevelopment())
	logger.SetLevel(appCfg.LogLevel)
	auth.SetSigningKey([]byte(appCfg.JWTSecret))

	logger.Logger.Info().
		Str("environment", appCfg.Environment).
		Msg("Starting storefront edge")

	tp, err := tracing.InitTracer(appCfg)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	cfg := config.LoadConfig(appCfg)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Addr,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Logger.Warn().
			Err(err).
			Str("redis_addr", appCfg.Redis.Addr).
			Msg("Failed to connect to Redis - guest state kept in memory, cache and rate limiting disabled")
		redisClient = nil
	} else {
		logger.Logger.Info().
			Str("redis_addr", appCfg.Redis.Addr).
			Msg("Connected to Redis")
	}

	breakers := breaker.NewManager(5, 30*time.Second)

	// Sessions
	cartURL := cfg.Services["cart"].BaseURL()
	cartClient := remote.NewClient(cartURL, remote.WithBreaker(breakers.Get("cart")))
	catalog := remote.NewCatalog(cfg.Services["catalog"].BaseURL(), remote.WithBreaker(breakers.Get("catalog")))

	locals := session.MemoryLocals()
	switch {
	case appCfg.StateDir != "":
		locals = session.FileLocals(appCfg.StateDir)
		logger.Logger.Info().Str("state_dir", appCfg.StateDir).Msg("Guest state kept on disk")
	case redisClient != nil:
		locals = session.RedisLocals(redisClient, 0)
	}
	sessions := session.NewManager(cartClient, locals, cfg.SessionTTL)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.Run(sweepCtx, time.Minute)

	sessionHandler := storefronthttp.NewSessionHandler(sessions, catalog, storefronthttp.Config{
		CookieName:   sessionCookie,
		CookieSecure: cfg.CookieSecure,
		CookieMaxAge: 30 * 24 * time.Hour,
		Currency:     cfg.Currency,
	})

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Edge",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	setupMiddleware(app, cfg, appCfg.ServiceName, redisClient, breakers)

	routes.SetupRoutes(app, routes.Dependencies{
		Proxy:         proxy.NewReverseProxy(cfg),
		Health:        health.NewHealthChecker(cfg, sessions),
		Sessions:      sessionHandler,
		Breakers:      breakers,
		Redis:         redisClient,
		SessionCookie: sessionCookie,
	})

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		for name, svc := range cfg.Services {
			logger.Logger.Info().
				Str("target", name).
				Strs("instances", svc.Instances).
				Msg("Routing to service")
		}
		logger.Logger.Info().Str("addr", addr).Msg("Storefront edge listening")

		if err := app.Listen(addr); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Int("live_sessions", sessions.Len()).Msg("Shutting down storefront edge")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Logger.Info().Msg("Storefront edge stopped")
}

// setupMiddleware configures global middleware
func setupMiddleware(app *fiber.App, cfg *config.GatewayConfig, serviceName string, redisClient *redis.Client, breakers *breaker.Manager) {
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID (must be first)
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware(serviceName))

	// after tracing so the trace id is available
	app.Use(middleware.StructuredLoggingMiddleware(sessionCookie))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-Id, traceparent, tracestate",
		AllowCredentials: cfg.AllowOrigins != "*",
		ExposeHeaders:    "X-Request-Id, X-Trace-Id, X-Cache, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset",
		MaxAge:           86400,
	}))

	if redisClient != nil {
		cacheConfig := middleware.DefaultCacheConfig()
		app.Use(middleware.CacheMiddleware(redisClient, cacheConfig))
		logger.Logger.Info().
			Dur("ttl", cacheConfig.DefaultTTL).
			Msg("Catalog response caching enabled")
	}

	// before rate limiting to fail fast
	app.Use(middleware.CircuitBreakerMiddleware(breakers, routes.ServiceFor))

	if redisClient != nil {
		app.Use(middleware.GlobalRateLimiter(redisClient, sessionCookie))
	} else {
		logger.Logger.Warn().Msg("Rate limiting disabled (Redis not available)")
	}

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"success":   false,
		"error":     err.Error(),
		"path":      c.Path(),
		"method":    c.Method(),
		"requestId": c.Get(fiber.HeaderXRequestID),
	})
}
