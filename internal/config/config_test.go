package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data/spectrum.db", cfg.DBPath)
	assert.Equal(t, 5*time.Minute, cfg.GracePeriod)
	assert.Equal(t, 24*time.Hour, cfg.Retention)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.False(t, cfg.StrictTeamCheck)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ROOM_GRACE_PERIOD", "30s")
	t.Setenv("STRICT_TEAM_CHECK", "true")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.GracePeriod)
	assert.True(t, cfg.StrictTeamCheck)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("ROOM_RETENTION", "not-a-duration")
	t.Setenv("CLEANUP_INTERVAL", "-5m")
	t.Setenv("STRICT_TEAM_CHECK", "maybe")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.Retention)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.False(t, cfg.StrictTeamCheck)
}
