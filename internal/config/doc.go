// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for kage.
//
// Settings live in a TOML file with sensible defaults, environment variable
// overrides, and validation. A file watcher picks up external edits while
// the app is running.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (KAGE_*)
//   - ~/.kage/config.toml (or $KAGE_CONFIG)
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	model := cfg.DefaultModel
//	timeout := cfg.BackendTimeout()
package config
