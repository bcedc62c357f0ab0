package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv blanks every variable LoadConfig reads. Empty values are ignored.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "NATS_URL", "DISCORD_TOKEN", "DISCORD_COMMAND_GUILD_ID",
		"OSU_CLIENT_ID", "OSU_CLIENT_SECRET", "OSU_BASE_URL", "OSU_REQUESTS_PER_SECOND",
		"OSU_STATS_BASE_URL", "CACHE_DEFAULT_TTL", "CACHE_API_TTL", "REFRESH_ENABLED",
		"REFRESH_INTERVAL", "REFRESH_STALE_AFTER", "REFRESH_BATCH_SIZE",
		"METRICS_ADDRESS", "ENV", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
postgres:
  dsn: postgres://bot@localhost/points
discord:
  token: file-token
osu:
  client_id: "123"
  client_secret: secret
cache:
  default_ttl: 12h
refresh:
  enabled: true
  interval: 30m
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://bot@localhost/points", cfg.Postgres.DSN)
	assert.Equal(t, "file-token", cfg.Discord.Token)
	assert.Equal(t, 12*time.Hour, cfg.Cache.DefaultTTL)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Refresh.Interval)

	// defaults fill what the file leaves out
	assert.Equal(t, defaultAPICacheTTL, cfg.Cache.APITTL)
	assert.Equal(t, defaultRefreshStale, cfg.Refresh.StaleAfter)
	assert.Equal(t, defaultRefreshBatch, cfg.Refresh.BatchSize)
	assert.Equal(t, defaultOsuBaseURL, cfg.Osu.BaseURL)
	assert.Equal(t, defaultOsuStatsBaseURL, cfg.OsuStats.BaseURL)
	assert.Equal(t, defaultOsuRPS, cfg.Osu.RequestsPerSecond)
	assert.Equal(t, "production", cfg.Observability.Environment)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
discord:
  token: file-token
nats:
  url: nats://file:4222
`)
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("REFRESH_BATCH_SIZE", "5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
	assert.Equal(t, 5, cfg.Refresh.BatchSize)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	t.Run("required values", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DISCORD_TOKEN", "")
		_, err := LoadConfig(missing)
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("osu credentials required", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://x")
		t.Setenv("DISCORD_TOKEN", "t")
		t.Setenv("OSU_CLIENT_ID", "")
		t.Setenv("OSU_CLIENT_SECRET", "")
		_, err := LoadConfig(missing)
		assert.ErrorContains(t, err, "OSU_CLIENT_ID")
	})

	t.Run("complete", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://x")
		t.Setenv("DISCORD_TOKEN", "t")
		t.Setenv("OSU_CLIENT_ID", "1")
		t.Setenv("OSU_CLIENT_SECRET", "s")
		t.Setenv("REFRESH_INTERVAL", "2h")
		t.Setenv("ENV", "development")

		cfg, err := LoadConfig(missing)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, cfg.Refresh.Interval)
		assert.Equal(t, "development", cfg.Observability.Environment)
		assert.Equal(t, defaultCacheTTL, cfg.Cache.DefaultTTL)
	})
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"duration", "CACHE_API_TTL", "soon"},
		{"rate", "OSU_REQUESTS_PER_SECOND", "fast"},
		{"batch", "REFRESH_BATCH_SIZE", "many"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeConfig(t, "discord:\n  token: x\n")
			t.Setenv(tt.env, tt.val)
			_, err := LoadConfig(path)
			assert.ErrorContains(t, err, tt.env)
		})
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "postgres: [unterminated")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "unmarshal")
}
