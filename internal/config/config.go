package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the attribution service
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Export      ExportConfig      `yaml:"export"`
	MLScoring   MLScoringConfig   `yaml:"ml_scoring"`
	Attribution AttributionConfig `yaml:"attribution"`
	Worker      WorkerConfig      `yaml:"worker"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds the result cache settings
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// ExportConfig holds S3 report export settings
type ExportConfig struct {
	Enabled    bool   `yaml:"enabled"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
	AWSProfile string `yaml:"aws_profile"`
}

// MLScoringConfig holds the data-driven weight prediction service settings
type MLScoringConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// AttributionConfig holds engine defaults
type AttributionConfig struct {
	DefaultHalfLifeDays      float64 `yaml:"default_half_life_days"`
	PositionBasedFirstWeight float64 `yaml:"position_based_first_weight"`
	PositionBasedLastWeight  float64 `yaml:"position_based_last_weight"`
	MaxJourneyLengthDays     float64 `yaml:"max_journey_length_days"`
}

// WorkerConfig holds the batch attribution worker settings
type WorkerConfig struct {
	Enabled             bool `yaml:"enabled"`
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
	BatchSize           int  `yaml:"batch_size"`
}

// Load reads the YAML configuration from path and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Redis.TTLMinutes == 0 {
		cfg.Redis.TTLMinutes = 60
	}
	if cfg.MLScoring.TimeoutSeconds == 0 {
		cfg.MLScoring.TimeoutSeconds = 10
	}
	if cfg.MLScoring.MaxRetries == 0 {
		cfg.MLScoring.MaxRetries = 3
	}
	if cfg.Attribution.DefaultHalfLifeDays == 0 {
		cfg.Attribution.DefaultHalfLifeDays = 7
	}
	if cfg.Attribution.PositionBasedFirstWeight == 0 {
		cfg.Attribution.PositionBasedFirstWeight = 0.4
	}
	if cfg.Attribution.PositionBasedLastWeight == 0 {
		cfg.Attribution.PositionBasedLastWeight = 0.4
	}
	if cfg.Attribution.MaxJourneyLengthDays == 0 {
		cfg.Attribution.MaxJourneyLengthDays = 90
	}
	if cfg.Worker.PollIntervalSeconds == 0 {
		cfg.Worker.PollIntervalSeconds = 60
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 100
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ML_SCORING_BASE_URL"); v != "" {
		cfg.MLScoring.BaseURL = v
		cfg.MLScoring.Enabled = true
	}
	if v := os.Getenv("ML_SCORING_API_KEY"); v != "" {
		cfg.MLScoring.APIKey = v
	}
	if v := os.Getenv("EXPORT_S3_BUCKET"); v != "" {
		cfg.Export.S3Bucket = v
	}
	if v := os.Getenv("EXPORT_S3_REGION"); v != "" {
		cfg.Export.S3Region = v
	}

	return cfg, nil
}
