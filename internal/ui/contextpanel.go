// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/contextstack"
	"github.com/kagenokoe/kage-tui/internal/ui/styles"
	"github.com/kagenokoe/kage-tui/internal/util"
)

// panelMode is the context panel's input state.
type panelMode int

const (
	panelBrowse panelMode = iota
	panelEditLayer
	panelUploadPath
	panelConfirmDelete
)

// layerRows come first in the browse list, then one row per item.
var layerOrder = []contextstack.Layer{
	contextstack.LayerGlobal,
	contextstack.LayerProject,
	contextstack.LayerChat,
}

// =============================================================================
// CONTEXT PANEL
// =============================================================================

// ContextPanel edits the three context layers and manages the bound chat's
// attachments.
type ContextPanel struct {
	theme  *styles.Theme
	width  int
	height int

	mode    panelMode
	cursor  int
	focused bool

	editLayer contextstack.Layer
	editor    textarea.Model
	pathInput textinput.Model

	// deleteTarget is the item awaiting confirmation in panelConfirmDelete
	deleteTarget api.ContextItem

	items []api.ContextItem
}

// NewContextPanel creates the panel.
func NewContextPanel(theme *styles.Theme) ContextPanel {
	editor := textarea.New()
	editor.Placeholder = "Context text..."
	editor.CharLimit = 0

	pathInput := textinput.New()
	pathInput.Placeholder = "/path/to/file"
	pathInput.Prompt = "upload: "

	return ContextPanel{
		theme:     theme,
		editor:    editor,
		pathInput: pathInput,
	}
}

// SetSize updates the pane dimensions.
func (p *ContextPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.editor.SetWidth(width - 4)
	p.editor.SetHeight(height / 2)
	p.pathInput.Width = width - 12
}

// Focus marks the panel as the active pane.
func (p *ContextPanel) Focus(focused bool) {
	p.focused = focused
	if !focused {
		p.leaveEdit()
	}
}

// Rebuild refreshes the item list snapshot.
func (p *ContextPanel) Rebuild(items *contextstack.ItemStore) {
	p.items = items.Items()
	max := len(layerOrder) + len(p.items) - 1
	if p.cursor > max {
		p.cursor = max
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

// Editing reports whether the panel currently owns all keystrokes.
func (p *ContextPanel) Editing() bool {
	return p.mode != panelBrowse
}

func (p *ContextPanel) leaveEdit() {
	p.mode = panelBrowse
	p.editor.Blur()
	p.pathInput.Blur()
}

// selectedItem returns the item under the cursor, if the cursor is past the
// layer rows.
func (p *ContextPanel) selectedItem() (api.ContextItem, bool) {
	i := p.cursor - len(layerOrder)
	if i < 0 || i >= len(p.items) {
		return api.ContextItem{}, false
	}
	return p.items[i], true
}

// panelAction tells the App what the panel wants done after a keystroke.
type panelAction int

const (
	panelActionNone panelAction = iota
	panelActionSaveLayer
	panelActionToggleItem
	panelActionDeleteItem
	panelActionUpload
)

// panelRequest is the action plus its subject.
type panelRequest struct {
	action panelAction
	layer  contextstack.Layer
	itemID int
	path   string
}

// Update handles panel keys. The returned request, if any, names a state
// mutation for the App to run.
func (p ContextPanel) Update(msg tea.Msg, layers *contextstack.LayerModel) (ContextPanel, panelRequest, tea.Cmd) {
	var cmd tea.Cmd

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, panelRequest{}, nil
	}

	switch p.mode {
	case panelEditLayer:
		switch keyMsg.String() {
		case "esc":
			// Keep the draft; dirtiness is tracked against the baseline
			layers.SetDraft(p.editLayer, p.editor.Value())
			p.leaveEdit()
			return p, panelRequest{}, nil
		case "ctrl+s":
			layers.SetDraft(p.editLayer, p.editor.Value())
			req := panelRequest{action: panelActionSaveLayer, layer: p.editLayer}
			p.leaveEdit()
			return p, req, nil
		}
		p.editor, cmd = p.editor.Update(msg)
		return p, panelRequest{}, cmd

	case panelUploadPath:
		switch keyMsg.String() {
		case "esc":
			p.leaveEdit()
			return p, panelRequest{}, nil
		case "enter":
			path := strings.TrimSpace(p.pathInput.Value())
			p.pathInput.SetValue("")
			p.leaveEdit()
			if path == "" {
				return p, panelRequest{}, nil
			}
			return p, panelRequest{action: panelActionUpload, path: path}, nil
		}
		p.pathInput, cmd = p.pathInput.Update(msg)
		return p, panelRequest{}, cmd

	case panelConfirmDelete:
		p.mode = panelBrowse
		if keyMsg.String() == "y" {
			return p, panelRequest{action: panelActionDeleteItem, itemID: p.deleteTarget.ID}, nil
		}
		// Any other key cancels
		return p, panelRequest{}, nil
	}

	// Browse mode
	switch keyMsg.String() {
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(layerOrder)+len(p.items)-1 {
			p.cursor++
		}
	case "enter":
		if p.cursor < len(layerOrder) {
			p.mode = panelEditLayer
			p.editLayer = layerOrder[p.cursor]
			p.editor.SetValue(layers.Draft(p.editLayer))
			p.editor.Focus()
			return p, panelRequest{}, textarea.Blink
		}
		if item, ok := p.selectedItem(); ok {
			return p, panelRequest{action: panelActionToggleItem, itemID: item.ID}, nil
		}
	case "d":
		// Deletion is destructive; arm a confirmation prompt first
		if item, ok := p.selectedItem(); ok {
			p.mode = panelConfirmDelete
			p.deleteTarget = item
		}
	case "u":
		p.mode = panelUploadPath
		p.pathInput.Focus()
		return p, panelRequest{}, textinput.Blink
	}
	return p, panelRequest{}, nil
}

// View renders the panel.
func (p ContextPanel) View(layers *contextstack.LayerModel, hasProject, hasChat bool) string {
	var b strings.Builder
	b.WriteString(p.theme.LayerHeading.Render("Context"))
	b.WriteString("\n\n")

	if p.mode == panelEditLayer {
		b.WriteString(p.theme.LayerHeading.Render(fmt.Sprintf("editing %s layer", p.editLayer)))
		b.WriteString("\n")
		b.WriteString(p.editor.View())
		b.WriteString("\n")
		b.WriteString(p.theme.ShortcutDesc.Render("ctrl+s save · esc back"))
	} else {
		for i, layer := range layerOrder {
			b.WriteString(p.renderLayerRow(i, layer, layers, hasProject, hasChat))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(p.theme.LayerHeading.Render("Attachments"))
		b.WriteString("\n")
		if len(p.items) == 0 {
			b.WriteString(p.theme.ShortcutDesc.Render("  none · u to upload"))
			b.WriteString("\n")
		}
		for i, item := range p.items {
			b.WriteString(p.renderItemRow(len(layerOrder)+i, item))
			b.WriteString("\n")
		}
		if p.mode == panelUploadPath {
			b.WriteString("\n")
			b.WriteString(p.pathInput.View())
		}
		if p.mode == panelConfirmDelete {
			b.WriteString("\n")
			b.WriteString(p.theme.StatusError.Render(fmt.Sprintf("delete %q? y/n", p.deleteTarget.Name)))
		}
	}

	style := p.theme.PaneBlur
	if p.focused {
		style = p.theme.PaneFocus
	}
	return style.Width(p.width).Height(p.height).Render(b.String())
}

func (p ContextPanel) renderLayerRow(row int, layer contextstack.Layer, layers *contextstack.LayerModel, hasProject, hasChat bool) string {
	name := layer.String()
	switch {
	case layer == contextstack.LayerProject && !hasProject:
		return p.theme.ShortcutDesc.Render("  " + name + " (no project)")
	case layer == contextstack.LayerChat && !hasChat:
		return p.theme.ShortcutDesc.Render("  " + name + " (no chat)")
	}

	line := "  " + name
	if layers.Dirty(layer) {
		line += " " + p.theme.LayerDirty.Render("*")
	}
	if preview := util.FirstLine(layers.Draft(layer)); preview != "" {
		line += " " + p.theme.SidebarMeta.Render(util.TruncateWidth(preview, p.width/2))
	}
	if row == p.cursor && p.focused {
		return p.theme.SidebarSelected.Width(p.width - 2).Render(line)
	}
	return line
}

func (p ContextPanel) renderItemRow(row int, item api.ContextItem) string {
	badge := p.theme.ItemTypeBadge.Render(item.Type)
	name := util.TruncateWidth(item.Name, p.width/2)
	var line string
	if item.IsActive {
		line = fmt.Sprintf("  %s %s", badge, p.theme.ItemActive.Render(name))
	} else {
		line = fmt.Sprintf("  %s %s", badge, p.theme.ItemInactive.Render(name))
	}
	if row == p.cursor && p.focused {
		return p.theme.SidebarSelected.Width(p.width - 2).Render(line)
	}
	return line
}
