// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for kage.
//
// Configuration is a TOML file with sensible defaults and environment
// variable overrides. Locations (in order of precedence):
//   - $KAGE_CONFIG (explicit path)
//   - ~/.kage/config.toml
//   - Built-in defaults
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kagenokoe/kage-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete kage configuration.
type Config struct {
	// Version of the config schema
	Version string `toml:"version"`

	// DefaultModel is the model sent with completion requests when the user
	// has not picked one
	DefaultModel string `toml:"default_model"`

	// Backend configuration
	Backend BackendConfig `toml:"backend"`

	// Downloads polling configuration
	Downloads DownloadsConfig `toml:"downloads"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// BackendConfig contains settings for the chat backend connection.
type BackendConfig struct {
	// URL is the backend base URL including the /api prefix
	URL string `toml:"url"`
	// TimeoutSecs is the request timeout for catalog calls
	TimeoutSecs int `toml:"timeout_secs"`
	// CompletionTimeoutSecs is the request timeout for inference calls
	CompletionTimeoutSecs int `toml:"completion_timeout_secs"`
}

// DownloadsConfig contains the model download polling cadence. The defaults
// match the reference behavior; the poll loop is additionally rate-limited so
// a typo here cannot hammer the backend.
type DownloadsConfig struct {
	// ListIntervalMillis is the cadence of the download-list poll
	ListIntervalMillis int `toml:"list_interval_ms"`
	// WatchIntervalMillis is the cadence of the per-model completion poll
	WatchIntervalMillis int `toml:"watch_interval_ms"`
	// WatchTimeoutSecs is the hard timeout of the per-model completion poll
	WatchTimeoutSecs int `toml:"watch_timeout_secs"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "system"
	Theme string `toml:"theme"`
	// AccentColor is the hex accent color
	AccentColor string `toml:"accent_color"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version:      "1.0.0",
		DefaultModel: "llama3.2:1b",

		Backend: BackendConfig{
			URL:                   "http://127.0.0.1:8000/api",
			TimeoutSecs:           15,
			CompletionTimeoutSecs: 300,
		},

		Downloads: DownloadsConfig{
			ListIntervalMillis:  1000,
			WatchIntervalMillis: 2000,
			WatchTimeoutSecs:    300,
		},

		UI: UIConfig{
			Theme:       "system",
			AccentColor: "#79c0ff",
			CompactMode: false,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the kage configuration directory (~/.kage).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".kage"), nil
}

// ConfigPath returns the path of the TOML config file.
func ConfigPath() (string, error) {
	if p := os.Getenv("KAGE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from disk, falling back to defaults when no file
// exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from an explicit path. A missing file is
// not an error; it yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults replaces zero values with defaults so a sparse config file
// never yields unusable timeouts or cadences.
func (c *Config) fillDefaults() {
	def := Default()
	if c.DefaultModel == "" {
		c.DefaultModel = def.DefaultModel
	}
	if c.Backend.URL == "" {
		c.Backend.URL = def.Backend.URL
	}
	if c.Backend.TimeoutSecs <= 0 {
		c.Backend.TimeoutSecs = def.Backend.TimeoutSecs
	}
	if c.Backend.CompletionTimeoutSecs <= 0 {
		c.Backend.CompletionTimeoutSecs = def.Backend.CompletionTimeoutSecs
	}
	if c.Downloads.ListIntervalMillis <= 0 {
		c.Downloads.ListIntervalMillis = def.Downloads.ListIntervalMillis
	}
	if c.Downloads.WatchIntervalMillis <= 0 {
		c.Downloads.WatchIntervalMillis = def.Downloads.WatchIntervalMillis
	}
	if c.Downloads.WatchTimeoutSecs <= 0 {
		c.Downloads.WatchTimeoutSecs = def.Downloads.WatchTimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.AccentColor == "" {
		c.UI.AccentColor = def.UI.AccentColor
	}
}

// ApplyEnvOverrides applies environment variable overrides:
//
//	KAGE_BACKEND_URL  overrides backend.url
//	KAGE_MODEL        overrides default_model
//	KAGE_THEME        overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KAGE_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("KAGE_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("KAGE_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default path atomically.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to an explicit path atomically.
func SaveToPath(cfg *Config, path string) error {
	b := &tomlBuffer{}
	if err := toml.NewEncoder(b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, b.data, 0600)
}

// tomlBuffer is a minimal io.Writer collecting encoder output.
type tomlBuffer struct {
	data []byte
}

func (b *tomlBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("invalid backend url %q: %w", c.Backend.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("backend url must use http or https")
	}
	if u.Host == "" {
		return errors.New("backend url is missing a host")
	}

	switch c.UI.Theme {
	case "dark", "light", "system":
	default:
		return fmt.Errorf("invalid theme %q (want dark, light, or system)", c.UI.Theme)
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// ListInterval returns the download-list poll cadence as a Duration.
func (c *Config) ListInterval() time.Duration {
	return time.Duration(c.Downloads.ListIntervalMillis) * time.Millisecond
}

// WatchInterval returns the per-model poll cadence as a Duration.
func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.Downloads.WatchIntervalMillis) * time.Millisecond
}

// WatchTimeout returns the per-model poll hard timeout as a Duration.
func (c *Config) WatchTimeout() time.Duration {
	return time.Duration(c.Downloads.WatchTimeoutSecs) * time.Second
}

// BackendTimeout returns the catalog request timeout as a Duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// CompletionTimeout returns the inference request timeout as a Duration.
func (c *Config) CompletionTimeout() time.Duration {
	return time.Duration(c.Backend.CompletionTimeoutSecs) * time.Second
}
