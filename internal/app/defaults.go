package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - GONOTEDB_CONFIG_PATH: config file location (default: ~/.config/gonotedb.toml)
//   - GONOTEDB_HOME: base directory for gonotedb data (default: ~/.local/share/gonotedb)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"cache_dir":   filepath.Join(baseDir, "cache"),
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking GONOTEDB_CONFIG_PATH env var
// first, then falling back to the default ~/.config/gonotedb.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("GONOTEDB_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "gonotedb.toml"), nil
}

// getBaseDir returns the base directory for gonotedb data, checking GONOTEDB_HOME
// env var first, then falling back to the XDG default ~/.local/share/gonotedb.
func getBaseDir() (string, error) {
	if path := os.Getenv("GONOTEDB_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "gonotedb"), nil
}
