// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and FORECAST_ env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/corex-retail/sales-forecast/internal/adapters/predictor"
)

const maxPort = 65535

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// LogFile, when set, also writes logs to a size-rotated file.
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb"`
	LogMaxBackups int    `koanf:"log_max_backups"`
	LogMaxAgeDays int    `koanf:"log_max_age_days"`

	// Host and Port configure the HTTP listen address.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// ModelPath is the artifact loaded once at startup.
	ModelPath string `koanf:"model_path"`

	// ModelFormat is one of predictor.Formats.
	ModelFormat string `koanf:"model_format"`

	// CORSAllowOrigin is sent as Access-Control-Allow-Origin.
	CORSAllowOrigin string `koanf:"cors_allow_origin"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		LogMaxSizeMB:    100,
		LogMaxBackups:   3,
		LogMaxAgeDays:   28,
		Host:            "0.0.0.0",
		Port:            5000,
		ModelPath:       "models/sales_forecast_model.txt",
		ModelFormat:     predictor.FormatAuto,
		CORSAllowOrigin: "*",
	}
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > maxPort:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case strings.TrimSpace(c.ModelPath) == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	}
	if _, err := predictor.ParseFormat(c.ModelFormat); err != nil {
		return fmt.Errorf("%w: model_format: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
