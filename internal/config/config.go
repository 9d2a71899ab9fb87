// Package config defines service configuration and its loader.
//
// Defaults come from New; Load layers an optional YAML file and STRIDE_
// environment variables on top and validates the result.
package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver is memory or postgres.
	StoreDriver string `koanf:"store_driver"`

	// DatabaseURL is the postgres DSN; required for the postgres driver.
	DatabaseURL string `koanf:"database_url"`

	// ProximityRadiusKM is the activation radius for collectibles.
	ProximityRadiusKM float64 `koanf:"proximity_radius_km"`

	RunCountMilestone   int     `koanf:"run_count_milestone"`
	RunCountChallenge   string  `koanf:"run_count_challenge"`
	DistanceMilestoneKM float64 `koanf:"distance_milestone_km"`
	DistanceChallenge   string  `koanf:"distance_challenge"`

	// DefaultPageSize applies when a list request carries no size.
	DefaultPageSize int `koanf:"default_page_size"`

	// MaxPageSize caps the size query parameter.
	MaxPageSize int `koanf:"max_page_size"`

	// MetricsRefreshSeconds is the period of the background gauge refresh jobs.
	MetricsRefreshSeconds int `koanf:"metrics_refresh_seconds"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// Company details served by /api/company_details.
	CompanyName string `koanf:"company_name"`
	Slogan      string `koanf:"slogan"`
	Contacts    string `koanf:"contacts"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		StoreDriver:           DriverMemory,
		ProximityRadiusKM:     0.1,
		RunCountMilestone:     10,
		RunCountChallenge:     "Run 10 times!",
		DistanceMilestoneKM:   50,
		DistanceChallenge:     "Run 50 kilometers!",
		DefaultPageSize:       20,
		MaxPageSize:           50,
		MetricsRefreshSeconds: 15,
		MetricsNamespace:      "stride",
		CompanyName:           "Stride",
		Slogan:                "Every step counts",
		Contacts:              "team@stride.run",
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.ProximityRadiusKM <= 0 {
		return fmt.Errorf("%w: proximity_radius_km must be positive", ErrInvalidConfig)
	}
	if c.RunCountMilestone <= 0 || c.DistanceMilestoneKM <= 0 {
		return fmt.Errorf("%w: challenge milestones must be positive", ErrInvalidConfig)
	}
	if c.RunCountChallenge == "" || c.DistanceChallenge == "" {
		return fmt.Errorf("%w: challenge names must not be empty", ErrInvalidConfig)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("%w: need 0 < default_page_size <= max_page_size", ErrInvalidConfig)
	}
	if c.MetricsRefreshSeconds <= 0 {
		return fmt.Errorf("%w: metrics_refresh_seconds must be positive", ErrInvalidConfig)
	}
	if c.MetricsNamespace == "" {
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	}
	return nil
}
