// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestAccentOrDefault(t *testing.T) {
	if got := AccentOrDefault("purple"); got != Accents["purple"] {
		t.Errorf("purple accent = %v, want %v", got, Accents["purple"])
	}
	if got := AccentOrDefault("no-such-accent"); got != Accents["blue"] {
		t.Errorf("unknown accent should fall back to blue, got %v", got)
	}
	if got := AccentOrDefault(""); got != Accents["blue"] {
		t.Errorf("empty accent should fall back to blue, got %v", got)
	}
}

func TestAccentNamesAllResolve(t *testing.T) {
	for _, name := range AccentNames {
		if _, ok := Accents[name]; !ok {
			t.Errorf("accent %q listed but not defined", name)
		}
	}
}

func TestNewThemeUsesAccent(t *testing.T) {
	theme := NewTheme("green")
	if theme.Accent != lipgloss.Color("#7ee787") {
		t.Errorf("theme accent = %v, want #7ee787", theme.Accent)
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewTheme("blue")
	// Rendering must not panic and must return the content
	out := theme.SidebarSelected.Render("chat title")
	if out == "" {
		t.Error("rendered style is empty")
	}
}
