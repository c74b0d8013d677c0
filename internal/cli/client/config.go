package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/vsearch/internal/backend"
)

// GlobalConfig is the CLI configuration stored in config.json. Empty
// fields fall through to the built-in defaults.
type GlobalConfig struct {
	BackendURL string `json:"backend_url,omitempty"`
	ServerURL  string `json:"server_url,omitempty"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "vsearch"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigDir returns the platform-specific configuration directory
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads and parses the global config.json file
// Returns nil config (not error) if file doesn't exist
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes the config to config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// UpdateGlobalConfig applies fn to the stored config, starting from an
// empty one when none exists, and saves the result.
func UpdateGlobalConfig(fn func(*GlobalConfig)) error {
	config, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	if config == nil {
		config = &GlobalConfig{}
	}
	fn(config)
	return SaveGlobalConfig(config)
}

// DeleteGlobalConfig removes the config.json file
func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete config file: %w", err)
	}

	return nil
}

// Source records which layer a URL was resolved from.
type Source string

const (
	SourceFlag         Source = "flag"
	SourceEnv          Source = "env"
	SourceGlobalConfig Source = "global_config"
	SourceDefault      Source = "default"
)

const (
	envBackendURL    = "VSEARCH_BACKEND_URL"
	envServerURL     = "VSEARCH_SERVER_URL"
	defaultServerURL = "http://localhost:8080"
)

// ResolveBackendURL picks the search backend:
// flag -> VSEARCH_BACKEND_URL -> global config -> default.
func ResolveBackendURL(flagURL string) (Source, string) {
	return resolveURL(flagURL, envBackendURL, func(c *GlobalConfig) string { return c.BackendURL }, backend.DefaultBaseURL)
}

// ResolveServerURL picks the vsearchd front end the history command reads:
// flag -> VSEARCH_SERVER_URL -> global config -> default.
func ResolveServerURL(flagURL string) string {
	_, url := resolveURL(flagURL, envServerURL, func(c *GlobalConfig) string { return c.ServerURL }, defaultServerURL)
	return url
}

func resolveURL(flagURL, env string, stored func(*GlobalConfig) string, fallback string) (Source, string) {
	if flagURL != "" {
		return SourceFlag, strings.TrimRight(flagURL, "/")
	}
	if envURL := os.Getenv(env); envURL != "" {
		return SourceEnv, strings.TrimRight(envURL, "/")
	}
	if config, err := LoadGlobalConfig(); err == nil && config != nil {
		if url := stored(config); url != "" {
			return SourceGlobalConfig, url
		}
	}
	return SourceDefault, fallback
}
