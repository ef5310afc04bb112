// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Selected accent
	Accent lipgloss.Color

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	PaneFocus lipgloss.Style
	PaneBlur  lipgloss.Style

	// ==========================================================================
	// SIDEBAR STYLES
	// ==========================================================================

	SidebarHeading  lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarMeta     lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantLabel  lipgloss.Style
	TurnTimestamp   lipgloss.Style
	PendingTurn     lipgloss.Style
	ErrorTurn       lipgloss.Style
	EmptyTranscript lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// ==========================================================================
	// CONTEXT PANEL STYLES
	// ==========================================================================

	LayerHeading  lipgloss.Style
	LayerDirty    lipgloss.Style
	ItemActive    lipgloss.Style
	ItemInactive  lipgloss.Style
	ItemTypeBadge lipgloss.Style

	// ==========================================================================
	// DOWNLOADS VIEW STYLES
	// ==========================================================================

	DownloadName     lipgloss.Style
	DownloadProgress lipgloss.Style
	DownloadDone     lipgloss.Style
	DownloadFailed   lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusError  lipgloss.Style
	StatusWarn   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	Spinner lipgloss.Style
}

// NewTheme creates a theme with all styles configured around the given
// accent color name.
func NewTheme(accentName string) *Theme {
	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
		Accent:       AccentOrDefault(accentName),
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	t.PaneFocus = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(0, 1)

	t.PaneBlur = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	// Sidebar
	t.SidebarHeading = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Accent).
		MarginBottom(1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextSecondary).
		PaddingLeft(1)

	t.SidebarSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SurfaceBright).
		Bold(true).
		PaddingLeft(1)

	t.SidebarMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Transcript
	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Accent)

	t.TurnTimestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.PendingTurn = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.ErrorTurn = lipgloss.NewStyle().
		Foreground(Rose)

	t.EmptyTranscript = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Align(lipgloss.Center)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	// Context panel
	t.LayerHeading = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Accent)

	t.LayerDirty = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.ItemActive = lipgloss.NewStyle().
		Foreground(Emerald)

	t.ItemInactive = lipgloss.NewStyle().
		Foreground(TextMuted).
		Strikethrough(true)

	t.ItemTypeBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(t.Accent).
		Padding(0, 1)

	// Downloads
	t.DownloadName = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.DownloadProgress = lipgloss.NewStyle().
		Foreground(t.Accent)

	t.DownloadDone = lipgloss.NewStyle().
		Foreground(Emerald)

	t.DownloadFailed = lipgloss.NewStyle().
		Foreground(Rose)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusError = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(Rose).
		Bold(true).
		Padding(0, 1)

	t.StatusWarn = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(Amber).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(t.Accent)
}
