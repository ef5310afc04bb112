// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing and dispatch for kage.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdStatus
	CmdConfig
	CmdModels
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Model   string
	JSON    bool
	Quiet   bool
	Verbose bool

	// Command-specific
	Query      string
	File       string
	Keep       bool // ask: keep the throwaway chat on the backend
	ChatID     int
	ConfigKey  string
	ConfigVal  string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `kage - terminal client for the Kage no Koe chat backend

Kage talks to a locally hosted LLM backend and keeps your projects,
chats, and layered context organized.

Usage:
  kage                       Start the TUI (default)
  kage ask "question"        Ask a single question and exit
  kage chat                  Interactive chat in the terminal
  kage status, s             Show backend and model status
  kage config [show|set]     Configuration
  kage models [pull NAME]    List installed models or start a download
  kage version               Show version
  kage help                  Show this help

Global flags:
  -m, --model NAME   Use a specific model for completions
  --json             Machine-readable output where supported
  -q, --quiet        Minimal output
  -v, --verbose      Verbose output

Ask flags:
  -f, --file FILE    Attach a file's content to the question
  --keep             Keep the chat created for the question

Environment:
  KAGE_CONFIG        Path to the config file (default ~/.kage/config.toml)
  KAGE_BACKEND_URL   Override the backend base URL

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("kage version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses os.Args and returns the command and its arguments.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

func parseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "ask":
		parseAskArgs(&args, remaining)
		return CmdAsk, args

	case "chat":
		return CmdChat, args

	case "status", "s":
		return CmdStatus, args

	case "config":
		parseConfigArgs(&args, remaining)
		return CmdConfig, args

	case "models", "model":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
			if args.Subcommand == "pull" && len(remaining) > 1 {
				args.Query = remaining[1]
			}
		}
		return CmdModels, args

	case "version", "--version", "-V":
		return CmdVersion, args

	case "help", "--help", "-h":
		return CmdHelp, args

	default:
		// Bare "kage how do I..." reads naturally as a question
		args.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		return CmdAsk, args
	}
}

// parseGlobalFlags strips flags that apply to every command.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-m", "--model":
			if i+1 < len(argv) {
				i++
				args.Model = argv[i]
			}
		case "--json":
			args.JSON = true
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		default:
			remaining = append(remaining, argv[i])
		}
	}
	return remaining, args
}

// parseAskArgs extracts ask-specific flags; everything else joins into the
// query.
func parseAskArgs(args *Args, remaining []string) {
	var queryParts []string
	for i := 0; i < len(remaining); i++ {
		switch remaining[i] {
		case "-f", "--file":
			if i+1 < len(remaining) {
				i++
				args.File = remaining[i]
			}
		case "--keep":
			args.Keep = true
		default:
			queryParts = append(queryParts, remaining[i])
		}
	}
	args.Query = strings.Join(queryParts, " ")
}

// parseConfigArgs handles "config", "config show", "config set KEY VALUE".
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) == 0 {
		args.Subcommand = "show"
		return
	}
	args.Subcommand = remaining[0]
	if args.Subcommand == "set" {
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = remaining[2]
		}
	}
}
