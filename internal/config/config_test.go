package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "127.0.0.1"

database:
  url: "postgres://localhost:5432/attribution?sslmode=disable"
  max_open_conns: 10

redis:
  enabled: true
  addr: "localhost:6379"
  ttl_minutes: 15

ml_scoring:
  enabled: true
  base_url: "https://ml.paidsearchnav.internal"
  timeout_seconds: 5

attribution:
  default_half_life_days: 14
  position_based_first_weight: 0.3
  position_based_last_weight: 0.3

worker:
  enabled: true
  poll_interval_seconds: 30
  batch_size: 250
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	assert.Equal(t, "postgres://localhost:5432/attribution?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns, "default applies")

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 15, cfg.Redis.TTLMinutes)

	assert.True(t, cfg.MLScoring.Enabled)
	assert.Equal(t, 5, cfg.MLScoring.TimeoutSeconds)
	assert.Equal(t, 3, cfg.MLScoring.MaxRetries, "default applies")

	assert.Equal(t, 14.0, cfg.Attribution.DefaultHalfLifeDays)
	assert.Equal(t, 0.3, cfg.Attribution.PositionBasedFirstWeight)

	assert.True(t, cfg.Worker.Enabled)
	assert.Equal(t, 30, cfg.Worker.PollIntervalSeconds)
	assert.Equal(t, 250, cfg.Worker.BatchSize)
}

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 8080\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 7.0, cfg.Attribution.DefaultHalfLifeDays)
	assert.Equal(t, 0.4, cfg.Attribution.PositionBasedFirstWeight)
	assert.Equal(t, 90.0, cfg.Attribution.MaxJourneyLengthDays)
	assert.Equal(t, 60, cfg.Worker.PollIntervalSeconds)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database:\n  url: \"postgres://file-value\"\n"), 0644))

	t.Setenv("DATABASE_URL", "postgres://env-value")
	t.Setenv("ML_SCORING_BASE_URL", "https://ml.example.com")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-value", cfg.Database.URL)
	assert.Equal(t, "https://ml.example.com", cfg.MLScoring.BaseURL)
	assert.True(t, cfg.MLScoring.Enabled, "setting the URL enables the client")
}
