package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultCacheTTL        = 24 * time.Hour
	defaultAPICacheTTL     = 10 * time.Minute
	defaultRefreshInterval = 6 * time.Hour
	defaultRefreshStale    = 24 * time.Hour
	defaultRefreshBatch    = 50
	defaultOsuBaseURL      = "https://osu.ppy.sh"
	defaultOsuStatsBaseURL = "https://osustats.ppy.sh"
	defaultOsuRPS          = 1.0
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Discord       DiscordConfig       `yaml:"discord"`
	Osu           OsuConfig           `yaml:"osu"`
	OsuStats      OsuStatsConfig      `yaml:"osu_stats"`
	Cache         CacheConfig         `yaml:"cache"`
	Refresh       RefreshConfig       `yaml:"refresh"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL disables the event bus.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// DiscordConfig holds Discord configuration.
type DiscordConfig struct {
	Token string `yaml:"token"`
	// CommandGuildID registers slash commands to a single guild (development).
	CommandGuildID string `yaml:"command_guild_id"`
}

// OsuConfig holds the osu! API v2 client credential.
type OsuConfig struct {
	ClientID          string  `yaml:"client_id"`
	ClientSecret      string  `yaml:"client_secret"`
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// OsuStatsConfig holds the osu!stats API configuration.
type OsuStatsConfig struct {
	BaseURL string `yaml:"base_url"`
}

// CacheConfig holds TTLs for the in-process caches.
type CacheConfig struct {
	// DefaultTTL applies to entries mirrored from the database.
	DefaultTTL time.Duration `yaml:"default_ttl"`
	// APITTL applies to volatile osu! and osu!stats responses.
	APITTL time.Duration `yaml:"api_ttl"`
}

// RefreshConfig holds the scheduled refresh settings.
type RefreshConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	BatchSize  int           `yaml:"batch_size"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_COMMAND_GUILD_ID"); v != "" {
		cfg.Discord.CommandGuildID = v
	}
	if v := os.Getenv("OSU_CLIENT_ID"); v != "" {
		cfg.Osu.ClientID = v
	}
	if v := os.Getenv("OSU_CLIENT_SECRET"); v != "" {
		cfg.Osu.ClientSecret = v
	}
	if v := os.Getenv("OSU_BASE_URL"); v != "" {
		cfg.Osu.BaseURL = v
	}
	if v := os.Getenv("OSU_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid OSU_REQUESTS_PER_SECOND value: %v", err)
		}
		cfg.Osu.RequestsPerSecond = f
	}
	if v := os.Getenv("OSU_STATS_BASE_URL"); v != "" {
		cfg.OsuStats.BaseURL = v
	}
	if v := os.Getenv("CACHE_DEFAULT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_DEFAULT_TTL value: %v", err)
		}
		cfg.Cache.DefaultTTL = d
	}
	if v := os.Getenv("CACHE_API_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_API_TTL value: %v", err)
		}
		cfg.Cache.APITTL = d
	}
	if v := os.Getenv("REFRESH_ENABLED"); v != "" {
		cfg.Refresh.Enabled = v == "true"
	}
	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REFRESH_INTERVAL value: %v", err)
		}
		cfg.Refresh.Interval = d
	}
	if v := os.Getenv("REFRESH_STALE_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REFRESH_STALE_AFTER value: %v", err)
		}
		cfg.Refresh.StaleAfter = d
	}
	if v := os.Getenv("REFRESH_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REFRESH_BATCH_SIZE value: %v", err)
		}
		cfg.Refresh.BatchSize = n
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	return nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN environment variable not set")
	}
	if cfg.Osu.ClientID == "" || cfg.Osu.ClientSecret == "" {
		return nil, fmt.Errorf("OSU_CLIENT_ID and OSU_CLIENT_SECRET environment variables must be set")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = defaultCacheTTL
	}
	if c.Cache.APITTL <= 0 {
		c.Cache.APITTL = defaultAPICacheTTL
	}
	if c.Osu.BaseURL == "" {
		c.Osu.BaseURL = defaultOsuBaseURL
	}
	if c.Osu.RequestsPerSecond <= 0 {
		c.Osu.RequestsPerSecond = defaultOsuRPS
	}
	if c.OsuStats.BaseURL == "" {
		c.OsuStats.BaseURL = defaultOsuStatsBaseURL
	}
	if c.Refresh.Interval <= 0 {
		c.Refresh.Interval = defaultRefreshInterval
	}
	if c.Refresh.StaleAfter <= 0 {
		c.Refresh.StaleAfter = defaultRefreshStale
	}
	if c.Refresh.BatchSize <= 0 {
		c.Refresh.BatchSize = defaultRefreshBatch
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "production"
	}
}
