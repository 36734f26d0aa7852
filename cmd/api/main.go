// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"biblioteca/internal/config"
	"biblioteca/internal/server"
	"biblioteca/internal/telemetry"
)

func main() {
	cfg, err := config.Load("api-gateway", "8080")
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api gateway failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	libraryURL, err := url.Parse(cfg.BibliotecaServiceURL)
	if err != nil {
		return fmt.Errorf("BIBLIOTECA_SERVICE_URL: %w", err)
	}
	usersURL, err := url.Parse(cfg.UsuariosServiceURL)
	if err != nil {
		return fmt.Errorf("USUARIOS_SERVICE_URL: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.ServiceName, server.Version, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("failed to flush telemetry", slog.Any("error", err))
		}
	}()

	router := server.NewGatewayRouter(libraryURL, usersURL, server.Options{
		ServiceName: cfg.ServiceName,
		Logger:      logger,
		Limiter:     cfg.Limiter(),
	})

	logger.Info("starting api gateway",
		slog.String("port", cfg.Port),
		slog.String("biblioteca", libraryURL.String()),
		slog.String("usuarios", usersURL.String()),
	)
	return server.ListenAndServe(ctx, cfg.Addr(), router, cfg.ShutdownTimeout, logger)
}
