package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"file-gallery/internal/config"
	"file-gallery/internal/observability"
	"file-gallery/internal/platform/server"
	"file-gallery/internal/services"
	"file-gallery/internal/web/handlers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	obsConfig := observability.LoadConfig()
	obsConfig.Environment = cfg.Environment
	obsConfig.LogLevel = cfg.Logging.Level
	obsConfig.LogFormat = cfg.Logging.Format
	logger := observability.NewLogger(obsConfig)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := observability.NewProvider(ctx, obsConfig, logger)
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to initialize telemetry")
	}

	metrics, err := observability.NewHTTPMetrics(observability.Meter())
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to create HTTP metrics")
	}

	container, err := services.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to initialize services container")
	}

	handler := handlers.NewWithContainer(container, logger, metrics)
	srv := server.New(cfg, handler.Routes())

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx).
			Str("addr", srv.Addr).
			Str("root", container.Store().Root()).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	exitCode := 0
	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error(ctx).Err(err).Msg("Server failed")
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info(context.Background()).Msg("Server shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx).Err(err).Msg("Server forced to shutdown")
		exitCode = 1
	}
	if err := container.Close(); err != nil {
		logger.Warn(shutdownCtx).Err(err).Msg("Failed to close backends")
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx).Err(err).Msg("Failed to flush telemetry")
	}

	logger.Info(shutdownCtx).Msg("Server exited")
	os.Exit(exitCode)
}
