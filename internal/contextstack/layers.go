// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package contextstack

import (
	"context"
	"fmt"
	"sync"

	"github.com/kagenokoe/kage-tui/internal/api"
)

// =============================================================================
// LAYERS
// =============================================================================

// Layer identifies one editable context layer.
type Layer int

const (
	// LayerGlobal is the workspace-wide context stored in settings.
	LayerGlobal Layer = iota
	// LayerProject is the context of the bound project.
	LayerProject
	// LayerChat is the context of the bound chat.
	LayerChat
)

// String returns the layer name for logs.
func (l Layer) String() string {
	switch l {
	case LayerGlobal:
		return "global"
	case LayerProject:
		return "project"
	case LayerChat:
		return "chat"
	default:
		return "unknown"
	}
}

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// LayerBackend is the slice of the API client the layer model needs.
// *api.Client satisfies it.
type LayerBackend interface {
	GetSettings(ctx context.Context) (*api.Settings, error)
	UpdateSettings(ctx context.Context, globalContext string) (*api.Settings, error)
	UpdateProject(ctx context.Context, id int, upd api.ProjectUpdate) (*api.Project, error)
	UpdateChat(ctx context.Context, id int, upd api.ChatUpdate) (*api.Chat, error)
}

// =============================================================================
// LAYER MODEL
// =============================================================================

// LayerModel holds the three editable context layers. Each layer has a saved
// baseline and a draft; the layer is dirty while they differ. All methods
// are safe for concurrent use.
type LayerModel struct {
	mu      sync.Mutex
	backend LayerBackend

	boundProjectID *int
	boundChatID    *int

	baseline [3]string
	draft    [3]string
	dirty    [3]bool

	// Invoked after a successful save so the catalog's copy of the
	// entity stays in step. Run without the model lock held.
	OnProjectSaved func(projectID int, text string)
	OnChatSaved    func(chatID int, text string)
}

// NewLayerModel creates a LayerModel over the given backend.
func NewLayerModel(backend LayerBackend) *LayerModel {
	return &LayerModel{backend: backend}
}

// LoadGlobal fetches the global context from settings and resets the global
// layer to it.
func (m *LayerModel) LoadGlobal(ctx context.Context) error {
	settings, err := m.backend.GetSettings(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.baseline[LayerGlobal] = settings.GlobalContextText
	m.draft[LayerGlobal] = settings.GlobalContextText
	m.dirty[LayerGlobal] = false
	m.mu.Unlock()
	return nil
}

// BindProject points the project layer at a new project. Binding to a
// different project (or to none) discards any unsaved project draft; the
// global and chat layers are untouched.
func (m *LayerModel) BindProject(p *api.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p == nil {
		m.boundProjectID = nil
		m.rebindLocked(LayerProject, "")
		return
	}
	if m.boundProjectID != nil && *m.boundProjectID == p.ID {
		// Same entity, keep the draft
		return
	}
	id := p.ID
	m.boundProjectID = &id
	m.rebindLocked(LayerProject, p.ContextText)
}

// BindChat points the chat layer at a new chat. Binding to a different chat
// (or to none) discards any unsaved chat draft.
func (m *LayerModel) BindChat(c *api.Chat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c == nil {
		m.boundChatID = nil
		m.rebindLocked(LayerChat, "")
		return
	}
	if m.boundChatID != nil && *m.boundChatID == c.ID {
		return
	}
	id := c.ID
	m.boundChatID = &id
	m.rebindLocked(LayerChat, c.ContextText)
}

func (m *LayerModel) rebindLocked(l Layer, text string) {
	m.baseline[l] = text
	m.draft[l] = text
	m.dirty[l] = false
}

// SetDraft records an edit to one layer. The layer becomes dirty when the
// draft differs from the saved baseline.
func (m *LayerModel) SetDraft(l Layer, text string) {
	m.mu.Lock()
	m.draft[l] = text
	m.dirty[l] = text != m.baseline[l]
	m.mu.Unlock()
}

// Draft returns the current draft text of one layer.
func (m *LayerModel) Draft(l Layer) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft[l]
}

// Dirty reports whether one layer has unsaved edits.
func (m *LayerModel) Dirty(l Layer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty[l]
}

// Save commits one layer's draft to the backend. The target entity is the
// one bound when Save is called; a rebind happening mid-flight cannot
// redirect the write. A failed save leaves the draft and dirty flag intact.
func (m *LayerModel) Save(ctx context.Context, l Layer) error {
	m.mu.Lock()
	text := m.draft[l]
	var projectID, chatID *int
	switch l {
	case LayerProject:
		if m.boundProjectID == nil {
			m.mu.Unlock()
			return fmt.Errorf("no project bound")
		}
		id := *m.boundProjectID
		projectID = &id
	case LayerChat:
		if m.boundChatID == nil {
			m.mu.Unlock()
			return fmt.Errorf("no chat bound")
		}
		id := *m.boundChatID
		chatID = &id
	}
	m.mu.Unlock()

	var err error
	switch l {
	case LayerGlobal:
		_, err = m.backend.UpdateSettings(ctx, text)
	case LayerProject:
		_, err = m.backend.UpdateProject(ctx, *projectID, api.ProjectUpdate{ContextText: &text})
	case LayerChat:
		_, err = m.backend.UpdateChat(ctx, *chatID, api.ChatUpdate{ContextText: &text})
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	// Only settle the flag if the entity is still the one we wrote to;
	// a rebind during the request already reset the layer
	settled := false
	switch l {
	case LayerGlobal:
		settled = true
	case LayerProject:
		settled = m.boundProjectID != nil && *m.boundProjectID == *projectID
	case LayerChat:
		settled = m.boundChatID != nil && *m.boundChatID == *chatID
	}
	if settled {
		m.baseline[l] = text
		m.dirty[l] = m.draft[l] != text
	}
	m.mu.Unlock()

	switch l {
	case LayerProject:
		if m.OnProjectSaved != nil {
			m.OnProjectSaved(*projectID, text)
		}
	case LayerChat:
		if m.OnChatSaved != nil {
			m.OnChatSaved(*chatID, text)
		}
	}
	return nil
}
