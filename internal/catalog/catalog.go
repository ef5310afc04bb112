// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"sync"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/cache"
	"github.com/kagenokoe/kage-tui/internal/events"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the slice of the API client the catalog needs. *api.Client
// satisfies it.
type Backend interface {
	ListProjects(ctx context.Context) ([]api.Project, error)
	CreateProject(ctx context.Context, name string) (*api.Project, error)
	UpdateProject(ctx context.Context, id int, upd api.ProjectUpdate) (*api.Project, error)
	DeleteProject(ctx context.Context, id int) error

	ListChats(ctx context.Context) ([]api.Chat, error)
	CreateChat(ctx context.Context, title string, projectID *int) (*api.Chat, error)
	UpdateChat(ctx context.Context, id int, upd api.ChatUpdate) (*api.Chat, error)
	DeleteChat(ctx context.Context, id int) error
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is the client-side view of projects and chats plus the selection
// cursor. All methods are safe for concurrent use.
type Catalog struct {
	mu      sync.Mutex
	backend Backend
	mirror  *cache.Store // optional, best-effort
	bus     *events.Bus  // optional

	projects []api.Project
	chats    []api.Chat

	currentProjectID *int
	currentChatID    *int

	loaded   bool // at least one successful refresh
	onChange func()
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMirror attaches the local SQLite mirror for offline fallback.
func WithMirror(m *cache.Store) Option {
	return func(c *Catalog) { c.mirror = m }
}

// WithBus attaches the event bus for background error reporting.
func WithBus(b *events.Bus) Option {
	return func(c *Catalog) { c.bus = b }
}

// New creates a Catalog over the given backend.
func New(backend Backend, opts ...Option) *Catalog {
	c := &Catalog{backend: backend}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOnChange registers a callback invoked after every local state change.
// The callback runs without the catalog lock held.
func (c *Catalog) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Catalog) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Catalog) publishError(source, format string, args ...interface{}) {
	if c.bus != nil {
		c.bus.Errorf(source, format, args...)
	}
}

// =============================================================================
// REFRESH
// =============================================================================

// Refresh fetches both collections from the backend and replaces the local
// view. On failure the previous lists and selection are kept untouched; if
// nothing was ever loaded and the backend is unreachable, the local mirror
// is consulted so the sidebar is not empty.
func (c *Catalog) Refresh(ctx context.Context) error {
	projects, err := c.backend.ListProjects(ctx)
	if err != nil {
		return c.refreshFailed(ctx, err)
	}
	chats, err := c.backend.ListChats(ctx)
	if err != nil {
		return c.refreshFailed(ctx, err)
	}

	c.mu.Lock()
	c.projects = projects
	c.chats = chats
	c.loaded = true
	// Drop the cursor if its target disappeared server-side
	if c.currentProjectID != nil && findProject(projects, *c.currentProjectID) < 0 {
		c.currentProjectID = nil
	}
	if c.currentChatID != nil && findChat(chats, *c.currentChatID) < 0 {
		c.currentChatID = nil
	}
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.PutProjects(ctx, projects); err != nil {
			c.publishError("cache", "failed to mirror projects: %v", err)
		}
		if err := c.mirror.PutChats(ctx, chats); err != nil {
			c.publishError("cache", "failed to mirror chats: %v", err)
		}
	}

	c.notify()
	return nil
}

func (c *Catalog) refreshFailed(ctx context.Context, err error) error {
	c.publishError("catalog", "refresh failed: %v", err)

	c.mu.Lock()
	needFallback := !c.loaded && c.mirror != nil && api.IsUnreachable(err)
	c.mu.Unlock()

	if needFallback {
		projects, perr := c.mirror.GetProjects(ctx)
		chats, cerr := c.mirror.GetChats(ctx)
		if perr == nil && cerr == nil && (len(projects) > 0 || len(chats) > 0) {
			c.mu.Lock()
			c.projects = projects
			c.chats = chats
			c.mu.Unlock()
			if c.bus != nil {
				c.bus.Warnf("catalog", "backend unreachable, showing cached catalog")
			}
			c.notify()
		}
	}
	return err
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Projects returns a copy of the project list.
func (c *Catalog) Projects() []api.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Project(nil), c.projects...)
}

// Chats returns a copy of the chat list.
func (c *Catalog) Chats() []api.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Chat(nil), c.chats...)
}

// ChatsForCurrentProject returns the chats under the selected project, or
// every chat when no project is selected.
func (c *Catalog) ChatsForCurrentProject() []api.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentProjectID == nil {
		return append([]api.Chat(nil), c.chats...)
	}
	var out []api.Chat
	for _, ch := range c.chats {
		if ch.ProjectID != nil && *ch.ProjectID == *c.currentProjectID {
			out = append(out, ch)
		}
	}
	return out
}

// CurrentProject returns the selected project, if any.
func (c *Catalog) CurrentProject() (api.Project, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentProjectID == nil {
		return api.Project{}, false
	}
	if i := findProject(c.projects, *c.currentProjectID); i >= 0 {
		return c.projects[i], true
	}
	return api.Project{}, false
}

// CurrentChat returns the selected chat, if any.
func (c *Catalog) CurrentChat() (api.Chat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentChatID == nil {
		return api.Chat{}, false
	}
	if i := findChat(c.chats, *c.currentChatID); i >= 0 {
		return c.chats[i], true
	}
	return api.Chat{}, false
}

// =============================================================================
// SELECTION
// =============================================================================

// SelectProject moves the cursor to the given project. Returns false if the
// project is not in the catalog.
func (c *Catalog) SelectProject(id int) bool {
	c.mu.Lock()
	if findProject(c.projects, id) < 0 {
		c.mu.Unlock()
		return false
	}
	c.currentProjectID = &id
	c.mu.Unlock()
	c.notify()
	return true
}

// ClearProjectSelection drops the project cursor.
func (c *Catalog) ClearProjectSelection() {
	c.mu.Lock()
	c.currentProjectID = nil
	c.mu.Unlock()
	c.notify()
}

// SelectChat moves the cursor to the given chat and returns it. Returns
// false if the chat is not in the catalog.
func (c *Catalog) SelectChat(id int) (api.Chat, bool) {
	c.mu.Lock()
	i := findChat(c.chats, id)
	if i < 0 {
		c.mu.Unlock()
		return api.Chat{}, false
	}
	c.currentChatID = &id
	ch := c.chats[i]
	c.mu.Unlock()
	c.notify()
	return ch, true
}

// ClearChatSelection drops the chat cursor.
func (c *Catalog) ClearChatSelection() {
	c.mu.Lock()
	c.currentChatID = nil
	c.mu.Unlock()
	c.notify()
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateProject creates a project on the backend and appends it to the local
// list once the server has accepted it.
func (c *Catalog) CreateProject(ctx context.Context, name string) (api.Project, error) {
	p, err := c.backend.CreateProject(ctx, name)
	if err != nil {
		return api.Project{}, err
	}
	c.mu.Lock()
	c.projects = append(c.projects, *p)
	c.mu.Unlock()
	c.notify()
	return *p, nil
}

// CreateChat creates a chat on the backend, prepends it to the local list
// and makes it the current chat.
func (c *Catalog) CreateChat(ctx context.Context, title string, projectID *int) (api.Chat, error) {
	ch, err := c.backend.CreateChat(ctx, title, projectID)
	if err != nil {
		return api.Chat{}, err
	}
	c.mu.Lock()
	c.chats = append([]api.Chat{*ch}, c.chats...)
	id := ch.ID
	c.currentChatID = &id
	c.mu.Unlock()
	c.notify()
	return *ch, nil
}

// RenameProject commits the new name to the backend, then updates the local
// record in place.
func (c *Catalog) RenameProject(ctx context.Context, id int, name string) error {
	updated, err := c.backend.UpdateProject(ctx, id, api.ProjectUpdate{Name: &name})
	if err != nil {
		return err
	}
	c.mu.Lock()
	if i := findProject(c.projects, id); i >= 0 {
		c.projects[i] = *updated
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// RenameChat commits the new title to the backend, then updates the local
// record in place.
func (c *Catalog) RenameChat(ctx context.Context, id int, title string) error {
	updated, err := c.backend.UpdateChat(ctx, id, api.ChatUpdate{Title: &title})
	if err != nil {
		return err
	}
	c.mu.Lock()
	if i := findChat(c.chats, id); i >= 0 {
		c.chats[i] = *updated
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// DeleteProject deletes the project on the backend, then removes it locally.
// Chats that referenced it are left in place; the backend owns any orphan
// handling. If the deleted project was selected, the cursor is cleared.
func (c *Catalog) DeleteProject(ctx context.Context, id int) error {
	if err := c.backend.DeleteProject(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	if i := findProject(c.projects, id); i >= 0 {
		c.projects = append(c.projects[:i], c.projects[i+1:]...)
	}
	if c.currentProjectID != nil && *c.currentProjectID == id {
		c.currentProjectID = nil
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// DeleteChat deletes the chat on the backend, then removes it locally. If
// the deleted chat was selected, the cursor is cleared.
func (c *Catalog) DeleteChat(ctx context.Context, id int) error {
	if err := c.backend.DeleteChat(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	if i := findChat(c.chats, id); i >= 0 {
		c.chats = append(c.chats[:i], c.chats[i+1:]...)
	}
	if c.currentChatID != nil && *c.currentChatID == id {
		c.currentChatID = nil
	}
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.DeleteChat(ctx, id); err != nil {
			c.publishError("cache", "failed to evict chat %d: %v", id, err)
		}
	}

	c.notify()
	return nil
}

// ApplyProjectContext records an already-committed context change on the
// local project record. Used by the context layer after a successful save.
func (c *Catalog) ApplyProjectContext(id int, text string) {
	c.mu.Lock()
	if i := findProject(c.projects, id); i >= 0 {
		c.projects[i].ContextText = text
	}
	c.mu.Unlock()
	c.notify()
}

// ApplyChatContext records an already-committed context change on the local
// chat record.
func (c *Catalog) ApplyChatContext(id int, text string) {
	c.mu.Lock()
	if i := findChat(c.chats, id); i >= 0 {
		c.chats[i].ContextText = text
	}
	c.mu.Unlock()
	c.notify()
}

// =============================================================================
// HELPERS
// =============================================================================

func findProject(projects []api.Project, id int) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func findChat(chats []api.Chat, id int) int {
	for i, c := range chats {
		if c.ID == id {
			return i
		}
	}
	return -1
}
