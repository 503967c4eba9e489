package config

import (
	"time"

	"nettracker/internal/logger"
)

// Config is the on-disk configuration of nettracker
type Config struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Interval Duration       `yaml:"interval"` // watch-mode period
	Logging  logger.Config  `yaml:"logging"`
}

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects and locates the history store
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`             // sqlite file
	URL    string `yaml:"url,omitempty"`    // postgres DSN
	Schema string `yaml:"schema,omitempty"` // postgres namespace
}

// Scanner types
const (
	ScannerArpScan = "arp-scan"
	ScannerNmap    = "nmap"
)

// ScannerConfig selects the host discovery backend
type ScannerConfig struct {
	Type      string   `yaml:"type"`
	Interface string   `yaml:"interface"`
	Targets   []string `yaml:"targets,omitempty"` // CIDRs, nmap only
	SudoRetry *bool    `yaml:"sudo_retry,omitempty"`
	Timeout   Duration `yaml:"timeout"`
}

// RetryWithSudo reports whether a failed arp-scan is retried under sudo
func (s ScannerConfig) RetryWithSudo() bool {
	return s.SudoRetry == nil || *s.SudoRetry
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
