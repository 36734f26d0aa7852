// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the settings shared by every command. Each command only uses
// the fields it needs.
type Config struct {
	ServiceName     string
	Port            string
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// WelcomeDelay is the artificial latency of GET /bienvenido.
	WelcomeDelay time.Duration
	SeedUsers    bool

	// RateLimitRPS of zero disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string

	BibliotecaServiceURL string
	UsuariosServiceURL   string
}

// Load reads the environment. serviceName and defaultPort apply when
// OTEL_SERVICE_NAME and PORT are unset.
func Load(serviceName, defaultPort string) (Config, error) {
	cfg := Config{
		ServiceName:          getEnv("OTEL_SERVICE_NAME", serviceName),
		Port:                 getEnv("PORT", defaultPort),
		OTLPEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		BibliotecaServiceURL: getEnv("BIBLIOTECA_SERVICE_URL", "http://localhost:8081"),
		UsuariosServiceURL:   getEnv("USUARIOS_SERVICE_URL", "http://localhost:8083"),
	}

	var err error
	if err = cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.WelcomeDelay, err = time.ParseDuration(getEnv("WELCOME_DELAY", "5s")); err != nil {
		return Config{}, fmt.Errorf("WELCOME_DELAY: %w", err)
	}
	if cfg.SeedUsers, err = strconv.ParseBool(getEnv("USERS_SEED", "true")); err != nil {
		return Config{}, fmt.Errorf("USERS_SEED: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "0"), 64); err != nil {
		return Config{}, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10")); err != nil {
		return Config{}, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}
	if cfg.RateLimitRPS < 0 || cfg.RateLimitBurst < 0 {
		return Config{}, fmt.Errorf("rate limit settings must not be negative")
	}

	return cfg, nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Limiter builds the process-wide token bucket, or nil when rate limiting
// is disabled.
func (c Config) Limiter() *rate.Limiter {
	if c.RateLimitRPS <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.RateLimitRPS), c.RateLimitBurst)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
