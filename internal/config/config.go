package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"github.com/varoOP/shinkrorec/internal/domain"
)

const (
	DefaultJikanBaseURL      = "https://api.jikan.moe/v4"
	DefaultRequestsPerSecond = 3
	DefaultHTTPTimeout       = 15 * time.Second
)

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("store_backend", string(domain.StoreBackendSQLite))
	v.SetDefault("jikan_base_url", DefaultJikanBaseURL)
	v.SetDefault("requests_per_second", DefaultRequestsPerSecond)
	v.SetDefault("http_timeout", DefaultHTTPTimeout)
	v.SetDefault("log_level", "info")
}

// Load loads configuration from the global viper instance:
// 1. Config file (config.yaml, optional)
// 2. Environment variables (SHINKROREC_*)
// 3. Command line flags bound by the CLI
func Load() (*domain.Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds and validates a Config from v
func LoadFrom(v *viper.Viper) (*domain.Config, error) {
	SetDefaults(v)

	cfg := &domain.Config{
		DataDir:           v.GetString("data_dir"),
		StoreBackend:      domain.StoreBackend(v.GetString("store_backend")),
		JikanBaseURL:      v.GetString("jikan_base_url"),
		RequestsPerSecond: v.GetFloat64("requests_per_second"),
		HTTPTimeout:       v.GetDuration("http_timeout"),
		LogLevel:          v.GetString("log_level"),
	}

	switch cfg.StoreBackend {
	case domain.StoreBackendSQLite, domain.StoreBackendBadger, domain.StoreBackendMemory:
	default:
		return nil, fmt.Errorf("invalid store_backend: %s (must be 'sqlite', 'badger' or 'memory')", cfg.StoreBackend)
	}

	if cfg.DataDir == "" && cfg.StoreBackend != domain.StoreBackendMemory {
		return nil, fmt.Errorf("data_dir is required (set via config.yaml or SHINKROREC_DATA_DIR environment variable)")
	}

	u, err := url.Parse(cfg.JikanBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid jikan_base_url: %q", cfg.JikanBaseURL)
	}

	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests_per_second must be positive, got %v", cfg.RequestsPerSecond)
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}

	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shinkrorec"
	}
	return filepath.Join(home, ".shinkrorec")
}
