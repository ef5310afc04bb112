// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for kage.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.Backend.URL)
	assert.Equal(t, time.Second, cfg.ListInterval())
	assert.Equal(t, 2*time.Second, cfg.WatchInterval())
	assert.Equal(t, 5*time.Minute, cfg.WatchTimeout())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromPath_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Backend.URL, cfg.Backend.URL)
}

func TestLoadFromPath_SparseFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("default_model = \"qwen:0.5b\"\n"), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen:0.5b", cfg.DefaultModel)
	// Everything unspecified keeps its default
	assert.Equal(t, 1000, cfg.Downloads.ListIntervalMillis)
	assert.Equal(t, "system", cfg.UI.Theme)
}

func TestLoadFromPath_EnvOverride(t *testing.T) {
	t.Setenv("KAGE_BACKEND_URL", "http://10.0.0.5:8000/api")
	t.Setenv("KAGE_MODEL", "gemma:2b")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000/api", cfg.Backend.URL)
	assert.Equal(t, "gemma:2b", cfg.DefaultModel)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Backend.URL = "ftp://example.com"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.UI.Theme = "neon"
	assert.Error(t, cfg.Validate())
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.DefaultModel = "tinyllama"
	cfg.UI.AccentColor = "#a371f7"
	require.NoError(t, SaveToPath(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "tinyllama", loaded.DefaultModel)
	assert.Equal(t, "#a371f7", loaded.UI.AccentColor)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("default_model = \"a\"\n"), 0600))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	require.NoError(t, os.WriteFile(path, []byte("default_model = \"b\"\n"), 0600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "b", cfg.DefaultModel)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload within 5s")
	}
}
