package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName     string `mapstructure:"app_name"`
	Env         string `mapstructure:"app_env"`
	LogLevel    string `mapstructure:"log_level"`
	LogOutput   string `mapstructure:"log_output"`
	HTTPAddr    string `mapstructure:"http_addr"`
	CORSOrigins string `mapstructure:"cors_origins"`
	DefaultCity string `mapstructure:"default_city"`
	CatalogFile string `mapstructure:"catalog_file"`

	ProvidersFile       string `mapstructure:"providers_file"`
	NewsProvider        string `mapstructure:"news_provider"`
	EventRegistryAPIKey string `mapstructure:"event_registry_api_key"`
	PageSize            int    `mapstructure:"page_size"`
	RecencyWindowDays   int    `mapstructure:"recency_window_days"`
	SyntheticCount      int    `mapstructure:"synthetic_count"`
	SyntheticSeed       uint64 `mapstructure:"synthetic_seed"`

	FetchTimeoutSeconds    int64         `mapstructure:"fetch_timeout_seconds"`
	RefreshIntervalSeconds int64         `mapstructure:"refresh_interval_seconds"`
	FetchTimeout           time.Duration `mapstructure:"-"`
	RefreshInterval        time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "city-pulse")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_output", "stdout")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("default_city", "New York")
	v.SetDefault("catalog_file", "")
	v.SetDefault("providers_file", "./configs/providers.yaml")
	v.SetDefault("news_provider", "eventregistry")
	v.SetDefault("event_registry_api_key", "")
	v.SetDefault("page_size", 20)
	v.SetDefault("recency_window_days", 31)
	v.SetDefault("synthetic_count", 15)
	v.SetDefault("synthetic_seed", 0)
	v.SetDefault("fetch_timeout_seconds", 15)
	v.SetDefault("refresh_interval_seconds", 0) // disabled
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/citypulse.db")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("redis_prefix", "citypulse:")
	v.SetDefault("sqlite_path", "./data/citypulse.sqlite")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	cfg.DefaultCity = strings.TrimSpace(cfg.DefaultCity)
	if cfg.DefaultCity == "" {
		return fmt.Errorf("invalid default_city (must not be empty)")
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("invalid page_size (must be positive)")
	}
	if cfg.RecencyWindowDays <= 0 {
		return fmt.Errorf("invalid recency_window_days (must be positive)")
	}
	if cfg.SyntheticCount <= 0 {
		return fmt.Errorf("invalid synthetic_count (must be positive)")
	}

	if cfg.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second

	if cfg.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("invalid refresh_interval_seconds (must be zero or positive seconds)")
	}
	cfg.RefreshInterval = time.Duration(cfg.RefreshIntervalSeconds) * time.Second

	return nil
}

// RecencyWindow returns the maximum article age requested from remote sources.
func (cfg *Config) RecencyWindow() time.Duration {
	return time.Duration(cfg.RecencyWindowDays) * 24 * time.Hour
}

// AllowedOrigins splits the comma-separated cors_origins value.
func (cfg *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(cfg.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
