package logging

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Environment types
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// GetConfigFromEnv starts from base and applies LOG_* and ENVIRONMENT overrides.
func GetConfigFromEnv(base Config) (Config, error) {
	config := base
	if err := env.Parse(&config); err != nil {
		return base, fmt.Errorf("parse logging env: %w", err)
	}
	return Normalize(config), nil
}

// Normalize lower-cases values and fills environment-specific defaults.
func Normalize(config Config) Config {
	config.Level = strings.ToLower(strings.TrimSpace(config.Level))
	config.Format = strings.ToLower(strings.TrimSpace(config.Format))
	config.Environment = strings.ToLower(strings.TrimSpace(config.Environment))

	switch config.Environment {
	case EnvProduction:
		if config.Format == "" {
			config.Format = "json"
		}
		if config.Level == "" {
			config.Level = "warn"
		}

	case EnvTest:
		if config.Format == "" {
			config.Format = "text"
		}
		if config.Level == "" {
			config.Level = "debug"
		}
		config.AddSource = false

	case EnvDevelopment:
		if config.Format == "" {
			config.Format = "text"
		}
		if config.Level == "" {
			config.Level = "debug"
		}
	}

	if config.Level == "" {
		config.Level = "info"
	}
	if config.Format == "" {
		config.Format = "text"
	}
	return config
}
