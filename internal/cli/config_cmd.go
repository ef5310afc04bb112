// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration show/set command.
//
// Command: config [show|set KEY VALUE|path]
//
// Settable keys:
//   model            Default completion model
//   backend.url      Backend base URL
//   ui.theme         system | dark | light
//   ui.accent        Accent color name or hex
package cli

import (
	"fmt"
	"os"

	"github.com/kagenokoe/kage-tui/internal/config"
)

// HandleConfig shows or mutates the configuration file.
func HandleConfig(cfg *config.Config, args Args) int {
	switch args.Subcommand {
	case "", "show":
		printConfig(cfg)
		return 0

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println(path)
		return 0

	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			fmt.Fprintln(os.Stderr, "Usage: kage config set KEY VALUE")
			return 1
		}
		if err := setConfigKey(cfg, args.ConfigKey, args.ConfigVal); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := config.Save(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not save config: %v\n", err)
			return 1
		}
		fmt.Printf("%s = %s\n", args.ConfigKey, args.ConfigVal)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand %q\n", args.Subcommand)
		return 1
	}
}

func printConfig(cfg *config.Config) {
	fmt.Printf("model         %s\n", cfg.DefaultModel)
	fmt.Printf("backend.url   %s\n", cfg.Backend.URL)
	fmt.Printf("ui.theme      %s\n", cfg.UI.Theme)
	fmt.Printf("ui.accent     %s\n", cfg.UI.AccentColor)
	fmt.Printf("timeouts      request %s, completion %s\n", cfg.BackendTimeout(), cfg.CompletionTimeout())
}

func setConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "model":
		cfg.DefaultModel = value
	case "backend.url":
		cfg.Backend.URL = value
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.accent":
		cfg.UI.AccentColor = value
	default:
		return fmt.Errorf("unknown key %q (settable: model, backend.url, ui.theme, ui.accent)", key)
	}
	return cfg.Validate()
}
