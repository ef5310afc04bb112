// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/downloads"
	"github.com/kagenokoe/kage-tui/internal/ui/styles"
)

// =============================================================================
// DOWNLOADS VIEW
// =============================================================================

// DownloadsView is the models overlay: installed models, live download
// progress, and a field to start a new pull.
type DownloadsView struct {
	theme  *styles.Theme
	width  int
	height int

	nameInput textinput.Model
	cursor    int
}

// NewDownloadsView creates the overlay.
func NewDownloadsView(theme *styles.Theme) DownloadsView {
	input := textinput.New()
	input.Placeholder = "model to pull, e.g. llama3.2:1b"
	input.Prompt = "pull: "
	return DownloadsView{theme: theme, nameInput: input}
}

// SetSize updates the overlay dimensions.
func (d *DownloadsView) SetSize(width, height int) {
	d.width = width
	d.height = height
	d.nameInput.Width = width - 12
}

// Focus routes keystrokes to the pull field.
func (d *DownloadsView) Focus(focused bool) {
	if focused {
		d.nameInput.Focus()
	} else {
		d.nameInput.Blur()
	}
}

// TakePullRequest returns and clears the entered model name.
func (d *DownloadsView) TakePullRequest() string {
	name := strings.TrimSpace(d.nameInput.Value())
	d.nameInput.SetValue("")
	return name
}

// Update handles text entry.
func (d DownloadsView) Update(msg tea.Msg) (DownloadsView, tea.Cmd) {
	var cmd tea.Cmd
	d.nameInput, cmd = d.nameInput.Update(msg)
	return d, cmd
}

// View renders the overlay from a tracker snapshot.
func (d DownloadsView) View(tracker *downloads.Tracker) string {
	var b strings.Builder
	b.WriteString(d.theme.LayerHeading.Render("Models"))
	b.WriteString("\n\n")

	installed := tracker.Installed()
	if len(installed) == 0 {
		b.WriteString(d.theme.ShortcutDesc.Render("  no models installed"))
		b.WriteString("\n")
	}
	for _, m := range installed {
		b.WriteString("  " + d.theme.DownloadName.Render(m.Name))
		b.WriteString("\n")
	}

	records := tracker.Records()
	if len(records) > 0 {
		b.WriteString("\n")
		b.WriteString(d.theme.LayerHeading.Render("Downloads"))
		b.WriteString("\n")
		for _, r := range records {
			b.WriteString(d.renderRecord(r))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(d.nameInput.View())
	b.WriteString("\n")
	b.WriteString(d.theme.ShortcutDesc.Render("enter pull · esc back"))

	return d.theme.PaneFocus.Width(d.width).Height(d.height).Render(b.String())
}

func (d DownloadsView) renderRecord(r api.DownloadRecord) string {
	name := d.theme.DownloadName.Render(r.ModelName)
	switch r.Status {
	case api.DownloadStatusCompleted:
		return fmt.Sprintf("  %s %s", name, d.theme.DownloadDone.Render("done"))
	case api.DownloadStatusFailed:
		detail := "failed"
		if r.Error != "" {
			detail = "failed: " + r.Error
		}
		return fmt.Sprintf("  %s %s", name, d.theme.DownloadFailed.Render(detail))
	default:
		return fmt.Sprintf("  %s %s", name, d.theme.DownloadProgress.Render(progressBar(r, d.width/2)))
	}
}

// progressBar renders a textual bar from the record's percent complete.
func progressBar(r api.DownloadRecord, width int) string {
	if width < 10 {
		width = 10
	}
	pct := r.Progress
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := width * pct / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}
