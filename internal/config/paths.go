// ABOUTME: XDG-style default locations for the config file and data directory
// ABOUTME: Environment overrides take priority over XDG variables and home fallbacks

package config

import (
	"os"
	"path/filepath"
)

// ConfigPath returns the path to the config file.
// Priority: COVEN_PHRASEBOT_CONFIG env var > XDG_CONFIG_HOME/coven/phrasebot.yaml > ~/.config/coven/phrasebot.yaml
func ConfigPath() string {
	if envPath := os.Getenv("COVEN_PHRASEBOT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "phrasebot.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "phrasebot.yaml")
}

// DataDir returns the path to the coven data directory.
// Priority: XDG_DATA_HOME/coven > ~/.local/share/coven
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "coven")
}
