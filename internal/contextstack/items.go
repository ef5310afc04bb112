// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package contextstack

import (
	"context"
	"errors"
	"sync"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/events"
)

// errNoChatBound is returned by mutations attempted with no chat selected.
var errNoChatBound = errors.New("no chat bound")

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// ItemBackend is the slice of the API client the item store needs.
// *api.Client satisfies it.
type ItemBackend interface {
	ListContextItems(ctx context.Context, chatID int) ([]api.ContextItem, error)
	CreateContextItem(ctx context.Context, chatID int, create api.ContextItemCreate) (*api.ContextItem, error)
	UpdateContextItem(ctx context.Context, itemID int, update api.ContextItemUpdate) (*api.ContextItem, error)
	DeleteContextItem(ctx context.Context, itemID int) error
	UploadFile(ctx context.Context, filename string, data []byte) (*api.UploadResponse, error)
}

// =============================================================================
// ITEM STORE
// =============================================================================

// ItemStore tracks the context attachments of one chat. All methods are
// safe for concurrent use.
type ItemStore struct {
	mu      sync.Mutex
	backend ItemBackend
	bus     *events.Bus // optional

	chatID *int
	items  []api.ContextItem
}

// NewItemStore creates an ItemStore over the given backend.
func NewItemStore(backend ItemBackend, bus *events.Bus) *ItemStore {
	return &ItemStore{backend: backend, bus: bus}
}

// BindChat points the store at a new chat and clears the item list. Pass
// nil to unbind.
func (s *ItemStore) BindChat(chatID *int) {
	s.mu.Lock()
	if chatID == nil {
		s.chatID = nil
	} else {
		id := *chatID
		s.chatID = &id
	}
	s.items = nil
	s.mu.Unlock()
}

// Load fetches the bound chat's items. The load is best-effort: on failure
// whatever was loaded before stays in place and the error is reported on
// the bus, since a chat without fresh attachments is still fully usable.
func (s *ItemStore) Load(ctx context.Context) {
	s.mu.Lock()
	if s.chatID == nil {
		s.mu.Unlock()
		return
	}
	chatID := *s.chatID
	s.mu.Unlock()

	items, err := s.backend.ListContextItems(ctx, chatID)
	if err != nil {
		if s.bus != nil {
			s.bus.Warnf("context", "failed to load context items for chat %d: %v", chatID, err)
		}
		return
	}

	s.mu.Lock()
	// The bound chat may have changed while the request was in flight
	if s.chatID != nil && *s.chatID == chatID {
		s.items = items
	}
	s.mu.Unlock()
}

// Items returns a copy of the item list.
func (s *ItemStore) Items() []api.ContextItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.ContextItem(nil), s.items...)
}

// CreateText adds a pasted text snippet and appends it to the list once the
// backend has accepted it.
func (s *ItemStore) CreateText(ctx context.Context, name, content string) (api.ContextItem, error) {
	s.mu.Lock()
	if s.chatID == nil {
		s.mu.Unlock()
		return api.ContextItem{}, errNoChatBound
	}
	chatID := *s.chatID
	s.mu.Unlock()

	item, err := s.backend.CreateContextItem(ctx, chatID, api.ContextItemCreate{
		Name:    name,
		Content: content,
		Type:    api.ItemTypeText,
	})
	if err != nil {
		return api.ContextItem{}, err
	}
	s.appendItem(chatID, *item)
	return *item, nil
}

// UploadFile attaches a file in two phases: the raw bytes go to the upload
// endpoint for text extraction, then the extracted content is registered as
// a file item. A failure between the phases leaves no item behind.
func (s *ItemStore) UploadFile(ctx context.Context, filename string, data []byte) (api.ContextItem, error) {
	s.mu.Lock()
	if s.chatID == nil {
		s.mu.Unlock()
		return api.ContextItem{}, errNoChatBound
	}
	chatID := *s.chatID
	s.mu.Unlock()

	extracted, err := s.backend.UploadFile(ctx, filename, data)
	if err != nil {
		return api.ContextItem{}, err
	}

	item, err := s.backend.CreateContextItem(ctx, chatID, api.ContextItemCreate{
		Name:    extracted.Filename,
		Content: extracted.Content,
		Type:    api.ItemTypeFile,
	})
	if err != nil {
		return api.ContextItem{}, err
	}
	s.appendItem(chatID, *item)
	return *item, nil
}

// Update rewrites an item's name and content, replacing the local record
// in place on success.
func (s *ItemStore) Update(ctx context.Context, itemID int, name, content string) error {
	updated, err := s.backend.UpdateContextItem(ctx, itemID, api.ContextItemUpdate{
		Name:    &name,
		Content: &content,
	})
	if err != nil {
		return err
	}
	s.replaceItem(itemID, *updated)
	return nil
}

// ToggleActive flips whether an item is included in the assembled context.
func (s *ItemStore) ToggleActive(ctx context.Context, itemID int) error {
	s.mu.Lock()
	i := s.findLocked(itemID)
	if i < 0 {
		s.mu.Unlock()
		return api.ErrNotFound
	}
	active := !s.items[i].IsActive
	s.mu.Unlock()

	updated, err := s.backend.UpdateContextItem(ctx, itemID, api.ContextItemUpdate{
		IsActive: &active,
	})
	if err != nil {
		return err
	}
	s.replaceItem(itemID, *updated)
	return nil
}

// Delete removes an item. A backend 404 still removes the local record:
// the item being gone is the outcome the caller asked for.
func (s *ItemStore) Delete(ctx context.Context, itemID int) error {
	err := s.backend.DeleteContextItem(ctx, itemID)
	if err != nil && !api.IsNotFound(err) {
		return err
	}
	s.mu.Lock()
	if i := s.findLocked(itemID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	s.mu.Unlock()
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *ItemStore) appendItem(chatID int, item api.ContextItem) {
	s.mu.Lock()
	if s.chatID != nil && *s.chatID == chatID {
		s.items = append(s.items, item)
	}
	s.mu.Unlock()
}

func (s *ItemStore) replaceItem(itemID int, item api.ContextItem) {
	s.mu.Lock()
	if i := s.findLocked(itemID); i >= 0 {
		s.items[i] = item
	}
	s.mu.Unlock()
}

func (s *ItemStore) findLocked(itemID int) int {
	for i, it := range s.items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}
