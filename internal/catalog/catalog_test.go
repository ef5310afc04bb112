// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/cache"
)

// fakeBackend is an in-memory Backend with switchable failure.
type fakeBackend struct {
	projects []api.Project
	chats    []api.Chat
	nextID   int
	fail     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 100}
}

func (f *fakeBackend) ListProjects(ctx context.Context) ([]api.Project, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return append([]api.Project(nil), f.projects...), nil
}

func (f *fakeBackend) CreateProject(ctx context.Context, name string) (*api.Project, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.nextID++
	p := api.Project{ID: f.nextID, Name: name}
	f.projects = append(f.projects, p)
	return &p, nil
}

func (f *fakeBackend) UpdateProject(ctx context.Context, id int, upd api.ProjectUpdate) (*api.Project, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	for i, p := range f.projects {
		if p.ID == id {
			if upd.Name != nil {
				f.projects[i].Name = *upd.Name
			}
			if upd.ContextText != nil {
				f.projects[i].ContextText = *upd.ContextText
			}
			updated := f.projects[i]
			return &updated, nil
		}
	}
	return nil, api.ErrNotFound
}

func (f *fakeBackend) DeleteProject(ctx context.Context, id int) error {
	if f.fail != nil {
		return f.fail
	}
	for i, p := range f.projects {
		if p.ID == id {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			return nil
		}
	}
	return api.ErrNotFound
}

func (f *fakeBackend) ListChats(ctx context.Context) ([]api.Chat, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return append([]api.Chat(nil), f.chats...), nil
}

func (f *fakeBackend) CreateChat(ctx context.Context, title string, projectID *int) (*api.Chat, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.nextID++
	ch := api.Chat{ID: f.nextID, Title: title, ProjectID: projectID}
	f.chats = append(f.chats, ch)
	return &ch, nil
}

func (f *fakeBackend) UpdateChat(ctx context.Context, id int, upd api.ChatUpdate) (*api.Chat, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	for i, c := range f.chats {
		if c.ID == id {
			if upd.Title != nil {
				f.chats[i].Title = *upd.Title
			}
			if upd.ContextText != nil {
				f.chats[i].ContextText = *upd.ContextText
			}
			updated := f.chats[i]
			return &updated, nil
		}
	}
	return nil, api.ErrNotFound
}

func (f *fakeBackend) DeleteChat(ctx context.Context, id int) error {
	if f.fail != nil {
		return f.fail
	}
	for i, c := range f.chats {
		if c.ID == id {
			f.chats = append(f.chats[:i], f.chats[i+1:]...)
			return nil
		}
	}
	return api.ErrNotFound
}

// =============================================================================
// REFRESH
// =============================================================================

func TestRefreshReplacesCollections(t *testing.T) {
	b := newFakeBackend()
	b.projects = []api.Project{{ID: 1, Name: "alpha"}}
	b.chats = []api.Chat{{ID: 2, Title: "hello"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))

	assert.Len(t, c.Projects(), 1)
	assert.Len(t, c.Chats(), 1)
}

func TestRefreshFailureKeepsPreviousState(t *testing.T) {
	b := newFakeBackend()
	b.projects = []api.Project{{ID: 1, Name: "alpha"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))

	b.fail = errors.New("boom")
	err := c.Refresh(context.Background())
	require.Error(t, err)

	assert.Len(t, c.Projects(), 1, "previous list must survive a failed refresh")
}

func TestRefreshDropsVanishedSelection(t *testing.T) {
	b := newFakeBackend()
	b.chats = []api.Chat{{ID: 2, Title: "hello"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))
	_, ok := c.SelectChat(2)
	require.True(t, ok)

	b.chats = nil
	require.NoError(t, c.Refresh(context.Background()))

	_, ok = c.CurrentChat()
	assert.False(t, ok, "cursor must clear when the chat disappears server-side")
}

// =============================================================================
// MUTATIONS
// =============================================================================

func TestCreateProjectAppends(t *testing.T) {
	b := newFakeBackend()
	b.projects = []api.Project{{ID: 1, Name: "first"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))

	p, err := c.CreateProject(context.Background(), "second")
	require.NoError(t, err)

	got := c.Projects()
	require.Len(t, got, 2)
	assert.Equal(t, p.ID, got[1].ID, "new project goes to the end")
}

func TestCreateChatPrependsAndSelects(t *testing.T) {
	b := newFakeBackend()
	b.chats = []api.Chat{{ID: 1, Title: "old"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))

	ch, err := c.CreateChat(context.Background(), "new", nil)
	require.NoError(t, err)

	got := c.Chats()
	require.Len(t, got, 2)
	assert.Equal(t, ch.ID, got[0].ID, "new chat goes to the front")

	cur, ok := c.CurrentChat()
	require.True(t, ok)
	assert.Equal(t, ch.ID, cur.ID)
}

func TestRenameChatFailureLeavesLocalUntouched(t *testing.T) {
	b := newFakeBackend()
	b.chats = []api.Chat{{ID: 1, Title: "original"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))

	b.fail = errors.New("boom")
	err := c.RenameChat(context.Background(), 1, "renamed")
	require.Error(t, err)

	assert.Equal(t, "original", c.Chats()[0].Title)
}

func TestRenameChatCommitsAfterServerAck(t *testing.T) {
	b := newFakeBackend()
	b.chats = []api.Chat{{ID: 1, Title: "original"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.RenameChat(context.Background(), 1, "renamed"))

	assert.Equal(t, "renamed", c.Chats()[0].Title)
}

func TestDeleteChatClearsCursor(t *testing.T) {
	b := newFakeBackend()
	b.chats = []api.Chat{{ID: 1, Title: "doomed"}, {ID: 2, Title: "kept"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))
	_, ok := c.SelectChat(1)
	require.True(t, ok)

	require.NoError(t, c.DeleteChat(context.Background(), 1))

	assert.Len(t, c.Chats(), 1)
	_, ok = c.CurrentChat()
	assert.False(t, ok)
}

func TestDeleteProjectLeavesChatsInPlace(t *testing.T) {
	pid := 1
	b := newFakeBackend()
	b.projects = []api.Project{{ID: 1, Name: "doomed"}}
	b.chats = []api.Chat{{ID: 2, Title: "survivor", ProjectID: &pid}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))
	require.True(t, c.SelectProject(1))

	require.NoError(t, c.DeleteProject(context.Background(), 1))

	assert.Empty(t, c.Projects())
	assert.Len(t, c.Chats(), 1, "no client-side cascade")
	_, ok := c.CurrentProject()
	assert.False(t, ok)
}

func TestDeleteFailureKeepsEntry(t *testing.T) {
	b := newFakeBackend()
	b.chats = []api.Chat{{ID: 1, Title: "kept"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))

	b.fail = errors.New("boom")
	require.Error(t, c.DeleteChat(context.Background(), 1))
	assert.Len(t, c.Chats(), 1)
}

// =============================================================================
// SELECTION / FILTERING
// =============================================================================

func TestChatsForCurrentProjectFilters(t *testing.T) {
	pid := 1
	b := newFakeBackend()
	b.projects = []api.Project{{ID: 1, Name: "p"}}
	b.chats = []api.Chat{
		{ID: 2, Title: "in", ProjectID: &pid},
		{ID: 3, Title: "out"},
	}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))

	assert.Len(t, c.ChatsForCurrentProject(), 2, "no selection shows everything")

	require.True(t, c.SelectProject(1))
	filtered := c.ChatsForCurrentProject()
	require.Len(t, filtered, 1)
	assert.Equal(t, 2, filtered[0].ID)
}

func TestApplyChatContextUpdatesRecord(t *testing.T) {
	b := newFakeBackend()
	b.chats = []api.Chat{{ID: 1, Title: "t"}}

	c := New(b)
	require.NoError(t, c.Refresh(context.Background()))

	c.ApplyChatContext(1, "fresh context")
	assert.Equal(t, "fresh context", c.Chats()[0].ContextText)
}

func TestOnChangeFires(t *testing.T) {
	b := newFakeBackend()
	c := New(b)

	var calls int
	c.SetOnChange(func() { calls++ })

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestRefreshFallsBackToMirrorWhenUnreachable(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.PutProjects(ctx, []api.Project{{ID: 1, Name: "Research"}}))
	require.NoError(t, store.PutChats(ctx, []api.Chat{{ID: 5, Title: "Old chat"}}))

	b := newFakeBackend()
	b.fail = api.ErrUnreachable

	c := New(b, WithMirror(store))
	require.Error(t, c.Refresh(ctx))

	require.Len(t, c.Projects(), 1)
	assert.Equal(t, "Research", c.Projects()[0].Name)
	require.Len(t, c.Chats(), 1)
	assert.Equal(t, "Old chat", c.Chats()[0].Title)
}

func TestMirrorIgnoredOnceLoaded(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.PutProjects(ctx, []api.Project{{ID: 1, Name: "Stale"}}))

	b := newFakeBackend()
	b.projects = []api.Project{{ID: 2, Name: "Live"}}

	c := New(b, WithMirror(store))
	require.NoError(t, c.Refresh(ctx))

	// The backend going down later must not clobber live state with cache
	b.fail = api.ErrUnreachable
	require.Error(t, c.Refresh(ctx))

	require.Len(t, c.Projects(), 1)
	assert.Equal(t, "Live", c.Projects()[0].Name)
}
