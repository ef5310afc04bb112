// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/catalog"
	"github.com/kagenokoe/kage-tui/internal/ui/styles"
	"github.com/kagenokoe/kage-tui/internal/util"
)

// =============================================================================
// ROWS
// =============================================================================

type rowKind int

const (
	rowAllChats rowKind = iota
	rowProject
	rowChat
)

// sidebarRow is one selectable line in the sidebar.
type sidebarRow struct {
	kind  rowKind
	id    int
	title string
}

// =============================================================================
// SIDEBAR
// =============================================================================

// Sidebar lists projects and the chats visible under the current project
// selection.
type Sidebar struct {
	theme   *styles.Theme
	width   int
	height  int
	focused bool

	rows   []sidebarRow
	cursor int
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) Sidebar {
	return Sidebar{theme: theme}
}

// SetSize updates the pane dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// Focus marks the sidebar as the active pane.
func (s *Sidebar) Focus(focused bool) {
	s.focused = focused
}

// Rebuild regenerates the rows from the catalog snapshot and clamps the
// cursor.
func (s *Sidebar) Rebuild(cat *catalog.Catalog) {
	rows := []sidebarRow{{kind: rowAllChats, title: "All Chats"}}
	for _, p := range cat.Projects() {
		rows = append(rows, sidebarRow{kind: rowProject, id: p.ID, title: p.Name})
	}
	for _, c := range cat.ChatsForCurrentProject() {
		rows = append(rows, sidebarRow{kind: rowChat, id: c.ID, title: chatRowTitle(c)})
	}
	s.rows = rows
	if s.cursor >= len(rows) {
		s.cursor = len(rows) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// Selected returns the row under the cursor.
func (s *Sidebar) Selected() (sidebarRow, bool) {
	if s.cursor < 0 || s.cursor >= len(s.rows) {
		return sidebarRow{}, false
	}
	return s.rows[s.cursor], true
}

// MoveCursorToChat positions the cursor on the given chat if present.
func (s *Sidebar) MoveCursorToChat(chatID int) {
	for i, r := range s.rows {
		if r.kind == rowChat && r.id == chatID {
			s.cursor = i
			return
		}
	}
}

// Update handles cursor movement keys.
func (s Sidebar) Update(msg tea.KeyMsg) Sidebar {
	switch msg.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.rows)-1 {
			s.cursor++
		}
	case "home", "g":
		s.cursor = 0
	case "end", "G":
		s.cursor = len(s.rows) - 1
	}
	return s
}

// View renders the sidebar pane.
func (s Sidebar) View(currentChatID int, hasCurrentChat bool) string {
	var b strings.Builder
	b.WriteString(s.theme.SidebarHeading.Render("Kage no Koe"))
	b.WriteString("\n")

	maxTitle := s.width - 6
	if maxTitle < 8 {
		maxTitle = 8
	}

	for i, row := range s.rows {
		var line string
		switch row.kind {
		case rowAllChats:
			line = row.title
		case rowProject:
			line = fmt.Sprintf("▸ %s", util.TruncateWidth(row.title, maxTitle))
		case rowChat:
			marker := "  "
			if hasCurrentChat && row.id == currentChatID {
				marker = "● "
			}
			line = marker + util.TruncateWidth(row.title, maxTitle)
		}

		if i == s.cursor && s.focused {
			b.WriteString(s.theme.SidebarSelected.Width(s.width - 2).Render(line))
		} else {
			b.WriteString(s.theme.SidebarItem.Render(line))
		}
		b.WriteString("\n")
	}

	style := s.theme.PaneBlur
	if s.focused {
		style = s.theme.PaneFocus
	}
	return style.Width(s.width).Height(s.height).Render(b.String())
}

// chatRowTitle derives the sidebar title for a chat, falling back to its
// first message style naming when the title is blank.
func chatRowTitle(c api.Chat) string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return fmt.Sprintf("Chat %d", c.ID)
}
