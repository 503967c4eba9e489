package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nettracker.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", cfg.Database.Driver)
	}
	if cfg.Database.Path != "./nettracker.db" {
		t.Errorf("expected ./nettracker.db, got %s", cfg.Database.Path)
	}
	if cfg.Database.Schema != "network" {
		t.Errorf("expected schema network, got %s", cfg.Database.Schema)
	}
	if cfg.Scanner.Type != ScannerArpScan || cfg.Scanner.Interface != "en0" {
		t.Errorf("unexpected scanner defaults: %+v", cfg.Scanner)
	}
	if !cfg.Scanner.RetryWithSudo() {
		t.Error("sudo retry should default to on")
	}
	if cfg.Interval.Duration() != 5*time.Minute {
		t.Errorf("expected 5m interval, got %s", cfg.Interval.Duration())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvDatabaseDriver, "")
	t.Setenv(EnvInterface, "")
	t.Setenv(EnvLogLevel, "")

	path := writeConfig(t, `
database:
  driver: postgres
  url: postgres://nettracker@localhost/nettracker
scanner:
  type: nmap
  targets: [192.168.1.0/24]
  sudo_retry: false
  timeout: 30s
interval: 1m
logging:
  level: debug
`)

	cfg, gotPath, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if gotPath != path {
		t.Errorf("expected path %s, got %s", path, gotPath)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("expected postgres, got %s", cfg.Database.Driver)
	}
	if cfg.Database.Schema != "network" {
		t.Errorf("schema default not applied, got %q", cfg.Database.Schema)
	}
	if cfg.Scanner.RetryWithSudo() {
		t.Error("expected sudo retry disabled")
	}
	if cfg.Scanner.Timeout.Duration() != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.Scanner.Timeout.Duration())
	}
	if cfg.Interval.Duration() != time.Minute {
		t.Errorf("expected 1m interval, got %s", cfg.Interval.Duration())
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Output != "stderr" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestLoadFromPathErrors(t *testing.T) {
	if _, _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeConfig(t, "interval: soon\n")
	if _, _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://env@db/nettracker")
	t.Setenv(EnvDatabaseDriver, "postgres")
	t.Setenv(EnvInterface, "eth1")
	t.Setenv(EnvLogLevel, "warn")

	path := writeConfig(t, "scanner:\n  interface: wlan0\n")
	cfg, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Database.URL != "postgres://env@db/nettracker" {
		t.Errorf("DATABASE_URL not applied, got %q", cfg.Database.URL)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("driver override not applied, got %q", cfg.Database.Driver)
	}
	if cfg.Scanner.Interface != "eth1" {
		t.Errorf("interface override not applied, got %q", cfg.Scanner.Interface)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level override not applied, got %q", cfg.Logging.Level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("NETTRACKER_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("NETTRACKER_TEST_DOTENV") })

	loadDotEnv(envPath)
	if got := os.Getenv("NETTRACKER_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}

	// Missing files are ignored
	loadDotEnv(filepath.Join(dir, "absent.env"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres; c.Database.URL = "" }},
		{"unknown scanner", func(c *Config) { c.Scanner.Type = "ping" }},
		{"nmap without targets", func(c *Config) { c.Scanner.Type = ScannerNmap }},
		{"arp-scan without interface", func(c *Config) { c.Scanner.Interface = "" }},
		{"zero timeout", func(c *Config) { c.Scanner.Timeout = 0 }},
		{"negative interval", func(c *Config) { c.Interval = Duration(-time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scanner.Interface = "eth0"
	cfg.Interval = Duration(90 * time.Second)

	summary := cfg.Summary()
	for _, want := range []string{"sqlite", cfg.Database.Path, "arp-scan on eth0", "1m30s"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary %q missing %q", summary, want)
		}
	}

	cfg.Database.Driver = DriverPostgres
	cfg.Database.Schema = "network"
	cfg.Scanner.Type = ScannerNmap
	cfg.Scanner.Targets = []string{"10.0.0.0/24"}

	summary = cfg.Summary()
	for _, want := range []string{"postgres (schema network)", "nmap on [10.0.0.0/24]"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary %q missing %q", summary, want)
		}
	}
}

func TestFindConfigPath(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.yaml")
	if err := os.WriteFile(explicit, []byte("version: 1\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv(EnvConfigPath, explicit)
	if got := FindConfigPath(); got != explicit {
		t.Errorf("expected %s, got %s", explicit, got)
	}

	xdg := filepath.Join(dir, "xdg")
	xdgPath := filepath.Join(xdg, ConfigDirName, "config.yaml")
	if err := os.MkdirAll(filepath.Dir(xdgPath), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(xdgPath, []byte("version: 1\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", xdg)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if got := FindConfigPath(); got != xdgPath {
		t.Errorf("expected %s, got %s", xdgPath, got)
	}
}
