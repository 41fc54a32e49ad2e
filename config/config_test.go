package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 30*time.Minute, cfg.Scheduling.DefaultDuration)
	assert.Equal(t, 5*time.Second, cfg.Scheduling.StoreTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Scheduling.IdempotencyTTL)
	assert.NotEmpty(t, cfg.JWT.Secret)
}

func TestSchedulingLocation(t *testing.T) {
	cfg := SchedulingConfig{Timezone: "America/New_York"}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	cfg.Timezone = ""
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Timezone = "Mars/Olympus"
	_, err = cfg.Location()
	assert.Error(t, err)
}
