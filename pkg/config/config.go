// Package config loads engine configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration. All values come from the
// environment with sane defaults; flags may override selected fields.
type Config struct {
	// Endpoints is the connection registry source: a semicolon-separated
	// list of id|name|url|token-id|secret entries.
	Endpoints string `envconfig:"CAPACITY_ENDPOINTS" default:""`

	// PrometheusURL enables the secondary history source when set.
	PrometheusURL string `envconfig:"CAPACITY_PROMETHEUS_URL" default:""`

	// Storage
	StorageEnabled bool   `envconfig:"CAPACITY_STORAGE_ENABLED" default:"false"`
	DatabaseURL    string `envconfig:"CAPACITY_DATABASE_URL" default:"host=localhost port=5432 user=capacity password=devpassword dbname=capacity sslmode=disable"`

	// Aggregation
	LookbackDays       int `envconfig:"CAPACITY_LOOKBACK_DAYS" default:"30"`
	HistoryConcurrency int `envconfig:"CAPACITY_HISTORY_CONCURRENCY" default:"24"`

	// Remote fetch
	RequestTimeout time.Duration `envconfig:"CAPACITY_REQUEST_TIMEOUT" default:"30s"`
	TLSSkipVerify  bool          `envconfig:"CAPACITY_TLS_SKIP_VERIFY" default:"false"`

	// Serve mode
	ListenAddr      string        `envconfig:"CAPACITY_LISTEN_ADDR" default:":8099"`
	RefreshInterval time.Duration `envconfig:"CAPACITY_REFRESH_INTERVAL" default:"5m"`

	LogLevel string `envconfig:"CAPACITY_LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks if configuration is usable.
func (c *Config) Validate() error {
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("CAPACITY_DATABASE_URL must be set when storage is enabled")
	}
	if c.LookbackDays < 1 {
		return fmt.Errorf("lookback must be at least 1 day")
	}
	if c.HistoryConcurrency < 1 {
		return fmt.Errorf("history concurrency must be at least 1")
	}
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("request timeout must be at least 1s")
	}
	return nil
}

// Lookback returns the historical fetch window as a duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}
