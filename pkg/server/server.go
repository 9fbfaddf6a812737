// Package server holds the start-up and shutdown steps every storefront
// service binary repeats.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/tair/storefront/pkg/auth"
	appconfig "github.com/tair/storefront/pkg/config"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/tracing"
)

// Bootstrap loads the configuration and sets up logging, token signing and
// tracing. The returned func flushes the tracer.
func Bootstrap(serviceName, defaultPort string) (appconfig.Config, func()) {
	cfg, err := appconfig.Load(os.Getenv("STOREFRONT_CONFIG"), serviceName, defaultPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)
	auth.SetSigningKey([]byte(cfg.JWTSecret))

	logger.Logger.Info().
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msgf("Starting %s", cfg.ServiceName)

	tp, err := tracing.InitTracer(cfg)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
		return cfg, func() {}
	}

	return cfg, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx, tp); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
		}
	}
}

// ListenAndServe serves h on port until ctx is done, then drains in-flight
// requests for up to ten seconds.
func ListenAndServe(ctx context.Context, port string, h http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info().
			Str("port", port).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
