// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the Kage no Koe TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT PALETTE
// =============================================================================

// AccentNames pairs each selectable accent with its display name, in the
// order the settings view offers them.
var AccentNames = []string{"blue", "purple", "green", "orange", "red", "cyan"}

// Accents maps accent names to their colors. The blue entry is the default.
var Accents = map[string]lipgloss.Color{
	"blue":   lipgloss.Color("#79c0ff"),
	"purple": lipgloss.Color("#a371f7"),
	"green":  lipgloss.Color("#7ee787"),
	"orange": lipgloss.Color("#ffa657"),
	"red":    lipgloss.Color("#ff7b72"),
	"cyan":   lipgloss.Color("#56d4dd"),
}

// AccentOrDefault resolves an accent choice, falling back to blue for
// anything unknown.
func AccentOrDefault(name string) lipgloss.Color {
	if c, ok := Accents[name]; ok {
		return c
	}
	return Accents["blue"]
}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors, failed downloads, destructive prompts
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#ff7b72"}

// Amber - Warnings, dirty indicators
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#ffa657"}

// Emerald - Success states, completed downloads, active items
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#7ee787"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0d1117"}

// SurfaceDim - Slightly darker/lighter surface for headers and footers
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#010409"}

// SurfaceBright - Raised surface for the selected row
var SurfaceBright = lipgloss.AdaptiveColor{Light: "#FAFAFA", Dark: "#161b22"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#30363d"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#e6edf3"}

// TextSecondary - Labels, less prominent text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#8b949e"}

// TextMuted - Hints, timestamps, placeholders
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6e7681"}

// TextInverse - Text on accent backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0d1117"}
