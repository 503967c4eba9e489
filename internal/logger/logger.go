// Package logger builds the zerolog loggers used across nettracker
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log level, destination and encoding
type Config struct {
	Level      string `yaml:"level"`
	Debug      bool   `yaml:"debug"`
	Output     string `yaml:"output"`      // stdout or stderr
	Format     string `yaml:"format"`      // json or console
	TimeFormat string `yaml:"time_format"` // Go layout, RFC3339 when empty
}

// DefaultConfig logs JSON at info level to stderr, leaving stdout to command output
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: "stderr",
		Format: "json",
	}
}

// New builds a root logger from config
func New(config Config) (zerolog.Logger, error) {
	var output io.Writer
	switch config.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log output %q", config.Output)
	}

	return build(output, config)
}

func build(output io.Writer, config Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
		}
	}

	// TimeFieldFormat is process wide and already RFC3339 by default
	timeFormat := time.RFC3339
	if config.TimeFormat != "" {
		timeFormat = config.TimeFormat
		if zerolog.TimeFieldFormat != timeFormat {
			zerolog.TimeFieldFormat = timeFormat
		}
	}

	switch config.Format {
	case "", "json":
	case "console":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", config.Format)
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// WithComponent tags every event of logger with a component name
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}
