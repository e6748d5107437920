package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the client.
type Config struct {
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"skydeck"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	BackendURL      string        `env:"SKYDECK_BACKEND_URL" envDefault:"http://localhost:5000"`
	RequestTimeout  time.Duration `env:"SKYDECK_REQUEST_TIMEOUT" envDefault:"120s"`
	StatePath       string        `env:"SKYDECK_STATE_PATH"`
	LogPath         string        `env:"SKYDECK_LOG_PATH"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	MaxProviders    int           `env:"SKYDECK_MAX_PROVIDERS" envDefault:"5"`
	ProviderWaitMs  int           `env:"SKYDECK_PROVIDER_WAIT_TIMEOUT_MS" envDefault:"10000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses environment variables into Config and fills in the per-user
// default locations for the state database and log file.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if cfg.StatePath == "" || cfg.LogPath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		dir := filepath.Join(base, "skydeck")
		if cfg.StatePath == "" {
			cfg.StatePath = filepath.Join(dir, "state.bolt")
		}
		if cfg.LogPath == "" {
			cfg.LogPath = filepath.Join(dir, "skydeck.log")
		}
	}

	if cfg.MaxProviders <= 0 {
		cfg.MaxProviders = 5
	}
	if cfg.ProviderWaitMs <= 0 {
		cfg.ProviderWaitMs = 10000
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}

	return cfg, nil
}
