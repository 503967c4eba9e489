package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "NETTRACKER_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "nettracker.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "nettracker"
)

// FindConfigPath searches for config file in priority order:
// 1. $NETTRACKER_CONFIG (explicit path)
// 2. ./nettracker.yaml (working directory)
// 3. $XDG_CONFIG_HOME/nettracker/config.yaml
// 4. ~/.config/nettracker/config.yaml
// 5. /etc/nettracker/config.yaml
//
// Returns empty string if no config file found
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	for _, path := range userConfigPaths() {
		if fileExists(path) {
			return path
		}
	}

	systemPath := filepath.Join("/etc", ConfigDirName, "config.yaml")
	if fileExists(systemPath) {
		return systemPath
	}

	return ""
}

// userConfigPaths lists the XDG locations in lookup order
func userConfigPaths() []string {
	var paths []string
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return paths
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
