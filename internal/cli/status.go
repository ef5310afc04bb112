// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Backend status reporting.
//
// Command: status
// Aliases: s
//
// Sections:
//   Backend:   reachability and base URL
//   Models:    installed models, active downloads
//   Catalog:   project and chat counts
//
// Flags:
//   --json     Structured output
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/kagenokoe/kage-tui/internal/config"
	"github.com/kagenokoe/kage-tui/internal/ui/styles"
)

var (
	statusLabel = lipgloss.NewStyle().Bold(true).Width(10)
	statusOK    = lipgloss.NewStyle().Foreground(styles.Emerald)
	statusBad   = lipgloss.NewStyle().Foreground(styles.Rose)
)

// statusReport is the JSON shape of the status output.
type statusReport struct {
	BackendURL string   `json:"backend_url"`
	Reachable  bool     `json:"reachable"`
	Models     []string `json:"models,omitempty"`
	Downloads  int      `json:"active_downloads"`
	Projects   int      `json:"projects"`
	Chats      int      `json:"chats"`
	Model      string   `json:"default_model"`
}

// HandleStatus prints backend and catalog status.
func HandleStatus(cfg *config.Config, args Args) int {
	client := newClient(cfg)
	ctx := context.Background()

	report := statusReport{
		BackendURL: cfg.Backend.URL,
		Model:      cfg.DefaultModel,
	}

	report.Reachable = client.CheckReachable(ctx) == nil
	if report.Reachable {
		if models, err := client.ListInstalledModels(ctx); err == nil {
			for _, m := range models {
				report.Models = append(report.Models, m.Name)
			}
		}
		if records, err := client.DownloadProgress(ctx); err == nil {
			for _, r := range records {
				if !r.Terminal() {
					report.Downloads++
				}
			}
		}
		if projects, err := client.ListProjects(ctx); err == nil {
			report.Projects = len(projects)
		}
		if chats, err := client.ListChats(ctx); err == nil {
			report.Chats = len(chats)
		}
	}

	if args.JSON {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		if !report.Reachable {
			return 1
		}
		return 0
	}

	printStatus(report)
	if !report.Reachable {
		return 1
	}
	return 0
}

func printStatus(r statusReport) {
	fmt.Println()
	if r.Reachable {
		fmt.Printf("%s %s\n", statusLabel.Render("Backend"), statusOK.Render("up")+"  "+r.BackendURL)
	} else {
		fmt.Printf("%s %s\n", statusLabel.Render("Backend"), statusBad.Render("unreachable")+"  "+r.BackendURL)
		fmt.Fprintln(os.Stderr, "\nError: Could not reach server. Is backend running?")
		return
	}

	fmt.Printf("%s %s\n", statusLabel.Render("Model"), r.Model)

	if len(r.Models) == 0 {
		fmt.Printf("%s %s\n", statusLabel.Render("Installed"), "none")
	} else {
		for i, name := range r.Models {
			label := ""
			if i == 0 {
				label = "Installed"
			}
			fmt.Printf("%s %s\n", statusLabel.Render(label), name)
		}
	}

	if r.Downloads > 0 {
		fmt.Printf("%s %d in progress\n", statusLabel.Render("Pulls"), r.Downloads)
	}
	fmt.Printf("%s %d projects, %d chats\n", statusLabel.Render("Catalog"), r.Projects, r.Chats)
	fmt.Println()
}

// HandleModels lists installed models or starts a pull.
func HandleModels(cfg *config.Config, args Args) int {
	client := newClient(cfg)
	ctx := context.Background()

	if args.Subcommand == "pull" {
		if args.Query == "" {
			fmt.Fprintln(os.Stderr, "Usage: kage models pull NAME")
			return 1
		}
		started, err := client.StartModelDownload(ctx, args.Query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if !started.Started() {
			fmt.Fprintf(os.Stderr, "Error: download rejected: %s\n", started.Error)
			return 1
		}
		fmt.Printf("pulling %s (watch progress in the TUI or with kage status)\n", args.Query)
		return 0
	}

	models, err := client.ListInstalledModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if args.JSON {
		out, _ := json.Marshal(models)
		fmt.Println(string(out))
		return 0
	}
	if len(models) == 0 {
		fmt.Println("no models installed")
		return 0
	}
	for _, m := range models {
		fmt.Println(m.Name)
	}
	return 0
}
