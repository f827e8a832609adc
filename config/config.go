// Package config loads ledger settings from defaults, an optional YAML file and
// LEDGER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/c0deZ3R0/go-ledger-kit/logging"
	"github.com/c0deZ3R0/go-ledger-kit/storage/sqlite"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LEDGER_"

// Config holds the settings of one ledger.
type Config struct {
	// DataDir holds both database files unless they are given as absolute paths.
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`

	EventLogFile   string `yaml:"event_log_file" env:"EVENT_LOG_FILE"`
	ProjectionFile string `yaml:"projection_file" env:"PROJECTION_FILE"`

	// Driver is the SQLite driver: "sqlite3" (mattn, cgo) or "sqlite" (modernc).
	Driver string `yaml:"sqlite_driver" env:"SQLITE_DRIVER"`

	// Timeout bounds one CLI invocation.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	Log logging.Config `yaml:"log"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataDir:        ".ledger",
		EventLogFile:   "events.db",
		ProjectionFile: "projections.db",
		Driver:         sqlite.DriverMattn,
		Timeout:        30 * time.Second,
		Log:            logging.DefaultConfig,
	}
}

// Load builds the configuration. An empty path skips the settings file; a path
// that does not exist is an error. Plain LOG_* variables apply before the LEDGER_
// prefixed ones.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	}

	log, err := logging.GetConfigFromEnv(cfg.Log)
	if err != nil {
		return cfg, err
	}
	cfg.Log = log

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.Driver = strings.TrimSpace(cfg.Driver)
	cfg.Log = logging.Normalize(cfg.Log)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, fmt.Errorf("data_dir is required"))
	}
	if strings.TrimSpace(c.EventLogFile) == "" {
		errs = append(errs, fmt.Errorf("event_log_file is required"))
	}
	if strings.TrimSpace(c.ProjectionFile) == "" {
		errs = append(errs, fmt.Errorf("projection_file is required"))
	}
	if !sqlite.ValidDriver(c.Driver) {
		errs = append(errs, fmt.Errorf("sqlite_driver %q is not one of %s, %s", c.Driver, sqlite.DriverMattn, sqlite.DriverModernc))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// EventLogPath is the event log database file.
func (c Config) EventLogPath() string { return c.resolve(c.EventLogFile) }

// ProjectionPath is the projection database file.
func (c Config) ProjectionPath() string { return c.resolve(c.ProjectionFile) }

func (c Config) resolve(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.DataDir, file)
}
