// Package config loads nettracker's configuration.
//
// Config file locations (priority order):
//  1. $NETTRACKER_CONFIG
//  2. ./nettracker.yaml
//  3. $XDG_CONFIG_HOME/nettracker/config.yaml
//  4. ~/.config/nettracker/config.yaml
//  5. /etc/nettracker/config.yaml
//
// A .env file in the working directory is read before environment
// overrides are applied; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nettracker/internal/logger"
)

// ErrInvalidConfig is returned when a loaded configuration cannot be used
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment overrides
const (
	EnvDatabaseURL    = "DATABASE_URL"
	EnvDatabaseDriver = "NETTRACKER_DB_DRIVER"
	EnvInterface      = "NETTRACKER_INTERFACE"
	EnvLogLevel       = "NETTRACKER_LOG_LEVEL"
)

const (
	defaultDBPath    = "./nettracker.db"
	defaultSchema    = "network"
	defaultInterface = "en0"
	defaultTimeout   = 2 * time.Minute
	defaultInterval  = 5 * time.Minute
)

// Load finds and loads the config file, or returns defaults if none found.
// The returned path is empty when defaults were used.
func Load() (*Config, string, error) {
	loadDotEnv(".env")

	path := FindConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, path, nil
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDBPath
	}
	if c.Database.Schema == "" {
		c.Database.Schema = defaultSchema
	}
	if c.Scanner.Type == "" {
		c.Scanner.Type = ScannerArpScan
	}
	if c.Scanner.Interface == "" {
		c.Scanner.Interface = defaultInterface
	}
	if c.Scanner.Timeout == 0 {
		c.Scanner.Timeout = Duration(defaultTimeout)
	}
	if c.Interval == 0 {
		c.Interval = Duration(defaultInterval)
	}

	defaults := logger.DefaultConfig()
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Level
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaults.Output
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Format
	}
}

// applyEnv lets the environment override file values
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvDatabaseDriver); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(EnvInterface); v != "" {
		c.Scanner.Interface = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate reports the first setting that would make a command fail
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for sqlite", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("%w: database.url or $%s is required for postgres", ErrInvalidConfig, EnvDatabaseURL)
		}
	default:
		return fmt.Errorf("%w: unknown database.driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	switch c.Scanner.Type {
	case ScannerArpScan:
		if c.Scanner.Interface == "" {
			return fmt.Errorf("%w: scanner.interface is required for arp-scan", ErrInvalidConfig)
		}
	case ScannerNmap:
		if len(c.Scanner.Targets) == 0 {
			return fmt.Errorf("%w: scanner.targets is required for nmap", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown scanner.type %q", ErrInvalidConfig, c.Scanner.Type)
	}

	if c.Scanner.Timeout.Duration() <= 0 {
		return fmt.Errorf("%w: scanner.timeout must be positive", ErrInvalidConfig)
	}
	if c.Interval.Duration() <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	store := c.Database.Path
	if c.Database.Driver == DriverPostgres {
		store = "schema " + c.Database.Schema
	}

	target := c.Scanner.Interface
	if c.Scanner.Type == ScannerNmap {
		target = fmt.Sprintf("%v", c.Scanner.Targets)
	}

	return fmt.Sprintf("Database: %s (%s), Scanner: %s on %s, Interval: %s",
		c.Database.Driver, store, c.Scanner.Type, target, c.Interval.Duration())
}

// loadDotEnv reads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) {
	if fileExists(path) {
		_ = godotenv.Load(path)
	}
}
