// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kagenokoe/kage-tui/internal/events"
	"github.com/kagenokoe/kage-tui/internal/ui/styles"
	"github.com/kagenokoe/kage-tui/internal/util"
)

// noticeTTL is how long a bus event stays on the bar.
const noticeTTL = 6 * time.Second

// StatusBar shows the selected model, backend state, and the latest bus
// event.
type StatusBar struct {
	theme *styles.Theme
	width int

	notice      events.Event
	noticeSet   time.Time
	modelName   string
	downloading bool
}

// NewStatusBar creates the bar.
func NewStatusBar(theme *styles.Theme) StatusBar {
	return StatusBar{theme: theme}
}

// SetSize updates the bar width.
func (s *StatusBar) SetSize(width int) {
	s.width = width
}

// SetModel records the selected completion model.
func (s *StatusBar) SetModel(name string) {
	s.modelName = name
}

// SetDownloading toggles the download indicator.
func (s *StatusBar) SetDownloading(active bool) {
	s.downloading = active
}

// ShowEvent puts a bus event on the bar.
func (s *StatusBar) ShowEvent(ev events.Event) {
	s.notice = ev
	s.noticeSet = time.Now()
}

// View renders the bar.
func (s StatusBar) View() string {
	left := s.theme.ShortcutKey.Render("model ") + s.modelName
	if s.downloading {
		left += "  " + s.theme.StatusWarn.Render("downloading")
	}

	right := s.theme.ShortcutDesc.Render("tab panes · ctrl+n chat · ctrl+g context · ctrl+o models · ctrl+c quit")

	middle := ""
	if !s.noticeSet.IsZero() && time.Since(s.noticeSet) < noticeTTL {
		text := util.TruncateWidth(s.notice.Message, s.width/2)
		switch s.notice.Level {
		case events.LevelError:
			middle = s.theme.StatusError.Render(text)
		case events.LevelWarn:
			middle = s.theme.StatusWarn.Render(text)
		default:
			middle = s.theme.StatusBar.Render(text)
		}
	}

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(middle) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap/2+gap%2) + middle + strings.Repeat(" ", gap/2) + right
	return s.theme.StatusBar.Width(s.width).Render(line)
}
