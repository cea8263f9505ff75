// Package config handles local configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// DefaultAPIURL is used until api_url is configured.
const DefaultAPIURL = "http://localhost:8080"

// Environment overrides.
const (
	EnvConfigDir = "TALLY_CONFIG_DIR"
	EnvAPIURL    = "TALLY_API_URL"
)

var (
	mu         sync.RWMutex
	globalCfg  *Config
	configPath string
)

// Config represents the CLI configuration.
type Config struct {
	APIUrl         string            `json:"api_url"`
	Timeout        string            `json:"timeout,omitempty"`
	Locale         string            `json:"locale,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	OutputFormat   string            `json:"output_format,omitempty"`
	CustomSettings map[string]string `json:"custom,omitempty"`
}

// Default returns a config with default values.
func Default() *Config {
	return &Config{
		APIUrl:         DefaultAPIURL,
		Timeout:        "30s",
		Locale:         "en",
		Currency:       "SEK",
		OutputFormat:   "human",
		CustomSettings: make(map[string]string),
	}
}

// Dir returns the directory holding config, session and context files,
// creating it if needed. TALLY_CONFIG_DIR overrides ~/.tally.
func Dir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("create config directory: %w", err)
		}
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}

	dir := filepath.Join(homeDir, ".tally")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create .tally directory: %w", err)
	}
	return dir, nil
}

// Load reads the configuration from disk, creating defaults if needed.
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalCfg != nil {
		return globalCfg, nil
	}

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	configPath = filepath.Join(dir, "config.json")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := Default()
		if err := save(cfg); err != nil {
			return nil, fmt.Errorf("save default config: %w", err)
		}
		globalCfg = cfg
		applyEnv(globalCfg)
		return globalCfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.CustomSettings == nil {
		cfg.CustomSettings = make(map[string]string)
	}

	globalCfg = cfg
	applyEnv(globalCfg)
	return globalCfg, nil
}

// Override from environment
func applyEnv(cfg *Config) {
	if apiURL := os.Getenv(EnvAPIURL); apiURL != "" {
		cfg.APIUrl = apiURL
	}
}

// Reset drops the loaded configuration so the next Load reads the disk again.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalCfg = nil
}

// save writes the config to disk.
func save(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Save persists the current config to disk.
func Save() error {
	mu.Lock()
	defer mu.Unlock()

	if globalCfg == nil {
		return fmt.Errorf("no config loaded")
	}

	return save(globalCfg)
}

// Get retrieves a config value by key.
func Get(key string) (string, error) {
	mu.RLock()
	defer mu.RUnlock()

	if globalCfg == nil {
		return "", fmt.Errorf("config not loaded")
	}

	switch key {
	case "api_url":
		return globalCfg.APIUrl, nil
	case "timeout":
		return globalCfg.Timeout, nil
	case "locale":
		return globalCfg.Locale, nil
	case "currency":
		return globalCfg.Currency, nil
	case "output.format":
		return globalCfg.OutputFormat, nil
	default:
		if val, ok := globalCfg.CustomSettings[key]; ok {
			return val, nil
		}
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a config value by key and saves.
func Set(key, value string) error {
	mu.Lock()
	defer mu.Unlock()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	switch key {
	case "api_url":
		globalCfg.APIUrl = value
	case "timeout":
		if _, err := parseTimeout(value); err != nil {
			return err
		}
		globalCfg.Timeout = value
	case "locale":
		globalCfg.Locale = value
	case "currency":
		globalCfg.Currency = value
	case "output.format":
		switch value {
		case "human", "json", "raw", "yaml":
		default:
			return fmt.Errorf("invalid output.format %q (human, json, raw, yaml)", value)
		}
		globalCfg.OutputFormat = value
	default:
		globalCfg.CustomSettings[key] = value
	}

	return save(globalCfg)
}

// Unset restores a built-in key to its default and removes a custom one.
func Unset(key string) error {
	mu.Lock()
	defer mu.Unlock()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	def := Default()
	switch key {
	case "api_url":
		globalCfg.APIUrl = def.APIUrl
	case "timeout":
		globalCfg.Timeout = def.Timeout
	case "locale":
		globalCfg.Locale = def.Locale
	case "currency":
		globalCfg.Currency = def.Currency
	case "output.format":
		globalCfg.OutputFormat = def.OutputFormat
	default:
		if _, ok := globalCfg.CustomSettings[key]; !ok {
			return fmt.Errorf("unknown config key: %s", key)
		}
		delete(globalCfg.CustomSettings, key)
	}

	return save(globalCfg)
}

// List returns all config key-value pairs.
func List() (map[string]string, error) {
	mu.RLock()
	defer mu.RUnlock()

	if globalCfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	result := make(map[string]string)
	result["api_url"] = globalCfg.APIUrl
	result["timeout"] = globalCfg.Timeout
	result["locale"] = globalCfg.Locale
	result["currency"] = globalCfg.Currency
	result["output.format"] = globalCfg.OutputFormat

	for k, v := range globalCfg.CustomSettings {
		result[k] = v
	}

	return result, nil
}

// Keys returns the sorted keys of a List result.
func Keys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetAPIUrl returns the configured API URL.
func GetAPIUrl() string {
	mu.RLock()
	defer mu.RUnlock()

	if globalCfg == nil {
		if u := os.Getenv(EnvAPIURL); u != "" {
			return u
		}
		return DefaultAPIURL
	}

	return globalCfg.APIUrl
}

// GetTimeout returns the configured request timeout.
func GetTimeout() time.Duration {
	mu.RLock()
	defer mu.RUnlock()

	if globalCfg == nil || globalCfg.Timeout == "" {
		return 30 * time.Second
	}
	d, err := parseTimeout(globalCfg.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// parseTimeout accepts durations such as "10s" or a bare number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := cast.ToIntE(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid timeout %q", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := cast.ToDurationE(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid timeout %q (e.g. 30s, 2m, 0 to disable)", s)
	}
	return d, nil
}
