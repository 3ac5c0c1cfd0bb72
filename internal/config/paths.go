// Package config loads brchd's TOML configuration file and merges it with
// environment variable and flag overrides per the precedence rule: flag >
// env var > config file > default.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath returns the default location of config.toml.
//   - Windows: %APPDATA%\brchd\config.toml
//   - Unix: $XDG_CONFIG_HOME/brchd/config.toml (or ~/.config/brchd/config.toml)
func DefaultConfigPath() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "brchd", "config.toml"), nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "brchd", "config.toml"), nil
}
