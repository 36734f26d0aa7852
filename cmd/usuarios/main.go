// cmd/usuarios/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"biblioteca/internal/config"
	"biblioteca/internal/membership"
	"biblioteca/internal/server"
	"biblioteca/internal/telemetry"
)

func main() {
	cfg, err := config.Load("usuarios", "8083")
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("usuarios service failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
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

	var seed []membership.Record
	if cfg.SeedUsers {
		seed = membership.DefaultSeed()
	}

	opts := server.Options{
		ServiceName: cfg.ServiceName,
		Logger:      logger,
		Limiter:     cfg.Limiter(),
	}
	router := server.NewUsersRouter(server.NewRegistry(opts, seed), cfg.WelcomeDelay, opts)

	logger.Info("starting usuarios service",
		slog.String("port", cfg.Port),
		slog.Int("seeded_users", len(seed)),
		slog.Duration("welcome_delay", cfg.WelcomeDelay),
	)
	return server.ListenAndServe(ctx, cfg.Addr(), router, cfg.ShutdownTimeout, logger)
}
