// Kage no Koe - terminal client for a locally hosted LLM chat backend.
//
// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/cache"
	"github.com/kagenokoe/kage-tui/internal/catalog"
	"github.com/kagenokoe/kage-tui/internal/cli"
	"github.com/kagenokoe/kage-tui/internal/config"
	"github.com/kagenokoe/kage-tui/internal/contextstack"
	"github.com/kagenokoe/kage-tui/internal/downloads"
	"github.com/kagenokoe/kage-tui/internal/events"
	"github.com/kagenokoe/kage-tui/internal/prefs"
	"github.com/kagenokoe/kage-tui/internal/session"
	"github.com/kagenokoe/kage-tui/internal/ui"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load config: %v\n", err)
		os.Exit(1)
	}
	if args.Model != "" {
		cfg.DefaultModel = args.Model
	}

	switch cmd {
	case cli.CmdTUI:
		os.Exit(runTUI(cfg))
	case cli.CmdAsk:
		os.Exit(cli.HandleAsk(cfg, args))
	case cli.CmdChat:
		os.Exit(cli.HandleChat(cfg, args))
	case cli.CmdStatus:
		os.Exit(cli.HandleStatus(cfg, args))
	case cli.CmdConfig:
		os.Exit(cli.HandleConfig(cfg, args))
	case cli.CmdModels:
		os.Exit(cli.HandleModels(cfg, args))
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		cli.PrintUsage()
		os.Exit(1)
	}
}

// runTUI wires the state models together and hands control to Bubble Tea.
func runTUI(cfg *config.Config) int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: the TUI needs an interactive terminal (try 'kage ask' or 'kage chat')")
		return 1
	}

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:           cfg.Backend.URL,
		Timeout:           cfg.BackendTimeout(),
		CompletionTimeout: cfg.CompletionTimeout(),
	})

	bus := events.NewBus()

	// Watch the config file so edits surface in the status bar. Settings
	// that feed constructors (backend URL, poll intervals) apply on the
	// next start.
	if path, err := config.ConfigPath(); err == nil {
		if w, werr := config.NewWatcher(path, func(_ *config.Config) {
			bus.Infof("config", "configuration reloaded from %s", path)
		}); werr == nil {
			if werr := w.Watch(); werr == nil {
				defer w.Close()
			} else {
				w.Close()
			}
		}
	}

	// The mirror is optional; the app degrades to online-only without it
	var mirror *cache.Store
	if m, err := cache.OpenDefault(); err == nil {
		mirror = m
		defer mirror.Close()
	} else {
		bus.Warnf("cache", "local mirror unavailable: %v", err)
	}

	cat := catalog.New(client, catalog.WithMirror(mirror), catalog.WithBus(bus))
	sess := session.New(client, session.WithMirror(mirror), session.WithBus(bus))
	layers := contextstack.NewLayerModel(client)
	items := contextstack.NewItemStore(client, bus)
	tracker := downloads.New(client,
		downloads.WithBus(bus),
		downloads.WithIntervals(cfg.ListInterval(), cfg.WatchInterval(), cfg.WatchTimeout()),
	)

	prefStore, err := prefs.NewStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not open preferences: %v\n", err)
		return 1
	}

	app := ui.NewApp(ui.Deps{
		Config:    cfg,
		Prefs:     prefStore,
		Catalog:   cat,
		Session:   sess,
		Layers:    layers,
		Items:     items,
		Downloads: tracker,
		Bus:       bus,
	})

	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
