// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestParseDefaultsToTUI(t *testing.T) {
	cmd, _ := parseArgs(nil)
	if cmd != CmdTUI {
		t.Errorf("no args should run the TUI, got %v", cmd)
	}
}

func TestParseAsk(t *testing.T) {
	cmd, args := parseArgs([]string{"ask", "what", "is", "this"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "what is this" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseAskFlags(t *testing.T) {
	cmd, args := parseArgs([]string{"-m", "qwen2.5:3b", "ask", "--keep", "-f", "notes.md", "review"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Model != "qwen2.5:3b" {
		t.Errorf("Model = %q", args.Model)
	}
	if !args.Keep {
		t.Error("--keep not parsed")
	}
	if args.File != "notes.md" {
		t.Errorf("File = %q", args.File)
	}
	if args.Query != "review" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseBareQuestionBecomesAsk(t *testing.T) {
	cmd, args := parseArgs([]string{"how", "do", "rune", "literals", "work"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "how do rune literals work" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseStatusAlias(t *testing.T) {
	cmd, _ := parseArgs([]string{"s"})
	if cmd != CmdStatus {
		t.Errorf("cmd = %v, want CmdStatus", cmd)
	}
}

func TestParseConfigSet(t *testing.T) {
	cmd, args := parseArgs([]string{"config", "set", "model", "llama3.2:3b"})
	if cmd != CmdConfig {
		t.Fatalf("cmd = %v, want CmdConfig", cmd)
	}
	if args.Subcommand != "set" || args.ConfigKey != "model" || args.ConfigVal != "llama3.2:3b" {
		t.Errorf("parsed %q %q %q", args.Subcommand, args.ConfigKey, args.ConfigVal)
	}
}

func TestParseConfigDefaultsToShow(t *testing.T) {
	_, args := parseArgs([]string{"config"})
	if args.Subcommand != "show" {
		t.Errorf("Subcommand = %q, want show", args.Subcommand)
	}
}

func TestParseModelsPull(t *testing.T) {
	cmd, args := parseArgs([]string{"models", "pull", "llama3.2:1b"})
	if cmd != CmdModels {
		t.Fatalf("cmd = %v, want CmdModels", cmd)
	}
	if args.Subcommand != "pull" || args.Query != "llama3.2:1b" {
		t.Errorf("parsed %q %q", args.Subcommand, args.Query)
	}
}

func TestParseGlobalJSON(t *testing.T) {
	_, args := parseArgs([]string{"--json", "status"})
	if !args.JSON {
		t.Error("--json not parsed")
	}
}

func TestAskChatTitleTruncates(t *testing.T) {
	long := "this question has a very long first line that should be cut down to a sane chat title length"
	title := askChatTitle(long)
	if len([]rune(title)) > 48 {
		t.Errorf("title too long: %q", title)
	}
}
