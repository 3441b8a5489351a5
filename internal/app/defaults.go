package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first. Environment variables:
//   - PARACIPHER_CONFIG_PATH: config file location (default: ~/.config/paracipher.toml)
//   - PARACIPHER_HOME: base directory for engine data (default: ~/.local/share/paracipher)
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
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking PARACIPHER_CONFIG_PATH
// first, then falling back to the default ~/.config/paracipher.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("PARACIPHER_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "paracipher.toml"), nil
}

// getBaseDir returns the base directory for engine data, checking
// PARACIPHER_HOME first, then falling back to the XDG default
// ~/.local/share/paracipher.
func getBaseDir() (string, error) {
	if path := os.Getenv("PARACIPHER_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "paracipher"), nil
}
