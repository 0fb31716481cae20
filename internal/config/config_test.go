package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load()
	assert.ErrorIs(t, err, ErrMissingSessionSecret)
	assert.Nil(t, cfg)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.StrictBooking)
	assert.Equal(t, "./web/views", cfg.ViewsDir)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("STRICT_BOOKING", "true")
	t.Setenv("WORKER_COUNT", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.StrictBooking)
	assert.Equal(t, 8, cfg.WorkerCount)
}

func TestLoadIgnoresBrokenValues(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("STRICT_BOOKING", "definitely")
	t.Setenv("WORKER_COUNT", "many")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.StrictBooking)
	assert.Equal(t, 4, cfg.WorkerCount)
}
