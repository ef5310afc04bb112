// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/contextstack"
	"github.com/kagenokoe/kage-tui/internal/ui/styles"
)

func runeKey(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func testPanelWithItem(t *testing.T) (ContextPanel, *contextstack.LayerModel) {
	t.Helper()
	p := NewContextPanel(styles.NewTheme("blue"))
	p.SetSize(40, 20)
	p.focused = true
	p.items = []api.ContextItem{{ID: 7, Name: "notes.txt", Type: "file", IsActive: true}}
	p.cursor = len(layerOrder) // first attachment row
	return p, contextstack.NewLayerModel(nil)
}

func TestDeleteItemRequiresConfirmation(t *testing.T) {
	p, layers := testPanelWithItem(t)

	p, req, _ := p.Update(runeKey("d"), layers)
	if req.action != panelActionNone {
		t.Fatalf("d alone must not delete, got action %d", req.action)
	}
	if p.mode != panelConfirmDelete {
		t.Fatalf("expected confirm mode, got %d", p.mode)
	}

	p, req, _ = p.Update(runeKey("y"), layers)
	if req.action != panelActionDeleteItem {
		t.Fatalf("y must confirm the delete, got action %d", req.action)
	}
	if req.itemID != 7 {
		t.Fatalf("wrong delete target: %d", req.itemID)
	}
	if p.mode != panelBrowse {
		t.Fatalf("panel should return to browse, got %d", p.mode)
	}
}

func TestDeleteItemConfirmationCancelled(t *testing.T) {
	p, layers := testPanelWithItem(t)

	p, _, _ = p.Update(runeKey("d"), layers)
	p, req, _ := p.Update(runeKey("n"), layers)

	if req.action != panelActionNone {
		t.Fatalf("any key but y must cancel, got action %d", req.action)
	}
	if p.mode != panelBrowse {
		t.Fatalf("panel should return to browse, got %d", p.mode)
	}
}
