package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("biblioteca", "8081")

	require.NoError(t, err)
	assert.Equal(t, "biblioteca", cfg.ServiceName)
	assert.Equal(t, ":8081", cfg.Addr())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.WelcomeDelay)
	assert.True(t, cfg.SeedUsers)
	assert.Zero(t, cfg.RateLimitRPS)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WELCOME_DELAY", "250ms")
	t.Setenv("USERS_SEED", "false")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")

	cfg, err := Load("usuarios", "8083")

	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.WelcomeDelay)
	assert.False(t, cfg.SeedUsers)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 4, cfg.RateLimitBurst)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("WELCOME_DELAY", "soon")

	_, err := Load("usuarios", "8083")

	assert.ErrorContains(t, err, "WELCOME_DELAY")
}

func TestLimiter(t *testing.T) {
	cfg, err := Load("biblioteca", "8081")
	require.NoError(t, err)
	assert.Nil(t, cfg.Limiter())

	t.Setenv("RATE_LIMIT_RPS", "5")
	t.Setenv("RATE_LIMIT_BURST", "2")
	cfg, err = Load("biblioteca", "8081")
	require.NoError(t, err)

	limiter := cfg.Limiter()
	require.NotNil(t, limiter)
	assert.Equal(t, rate.Limit(5), limiter.Limit())
	assert.Equal(t, 2, limiter.Burst())
}
