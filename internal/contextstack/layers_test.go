// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package contextstack

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagenokoe/kage-tui/internal/api"
)

type fakeLayerBackend struct {
	settings        api.Settings
	projectSaves    map[int]string
	chatSaves       map[int]string
	fail            error
	settingsUpdates int
}

func newFakeLayerBackend() *fakeLayerBackend {
	return &fakeLayerBackend{
		projectSaves: make(map[int]string),
		chatSaves:    make(map[int]string),
	}
}

func (f *fakeLayerBackend) GetSettings(ctx context.Context) (*api.Settings, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	s := f.settings
	return &s, nil
}

func (f *fakeLayerBackend) UpdateSettings(ctx context.Context, globalContext string) (*api.Settings, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.settings.GlobalContextText = globalContext
	f.settingsUpdates++
	s := f.settings
	return &s, nil
}

func (f *fakeLayerBackend) UpdateProject(ctx context.Context, id int, upd api.ProjectUpdate) (*api.Project, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	p := api.Project{ID: id}
	if upd.ContextText != nil {
		f.projectSaves[id] = *upd.ContextText
		p.ContextText = *upd.ContextText
	}
	return &p, nil
}

func (f *fakeLayerBackend) UpdateChat(ctx context.Context, id int, upd api.ChatUpdate) (*api.Chat, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	c := api.Chat{ID: id}
	if upd.ContextText != nil {
		f.chatSaves[id] = *upd.ContextText
		c.ContextText = *upd.ContextText
	}
	return &c, nil
}

func TestLoadGlobalResetsLayer(t *testing.T) {
	b := newFakeLayerBackend()
	b.settings.GlobalContextText = "be brief"

	m := NewLayerModel(b)
	require.NoError(t, m.LoadGlobal(context.Background()))

	assert.Equal(t, "be brief", m.Draft(LayerGlobal))
	assert.False(t, m.Dirty(LayerGlobal))
}

func TestDirtyTracksBaseline(t *testing.T) {
	m := NewLayerModel(newFakeLayerBackend())

	m.SetDraft(LayerGlobal, "edited")
	assert.True(t, m.Dirty(LayerGlobal))

	m.SetDraft(LayerGlobal, "")
	assert.False(t, m.Dirty(LayerGlobal), "restoring the baseline clears the flag")
}

func TestSaveGlobalCommits(t *testing.T) {
	b := newFakeLayerBackend()
	m := NewLayerModel(b)

	m.SetDraft(LayerGlobal, "always answer in haiku")
	require.NoError(t, m.Save(context.Background(), LayerGlobal))

	assert.Equal(t, "always answer in haiku", b.settings.GlobalContextText)
	assert.False(t, m.Dirty(LayerGlobal))
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	b := newFakeLayerBackend()
	m := NewLayerModel(b)

	m.SetDraft(LayerGlobal, "edited")
	b.fail = errors.New("boom")

	require.Error(t, m.Save(context.Background(), LayerGlobal))
	assert.True(t, m.Dirty(LayerGlobal))
	assert.Equal(t, "edited", m.Draft(LayerGlobal))
}

func TestSaveProjectTargetsBoundEntity(t *testing.T) {
	b := newFakeLayerBackend()
	m := NewLayerModel(b)

	m.BindProject(&api.Project{ID: 7, ContextText: "old"})
	m.SetDraft(LayerProject, "new")
	require.NoError(t, m.Save(context.Background(), LayerProject))

	assert.Equal(t, "new", b.projectSaves[7])
	assert.False(t, m.Dirty(LayerProject))
}

func TestSaveWithoutBindingFails(t *testing.T) {
	m := NewLayerModel(newFakeLayerBackend())
	m.SetDraft(LayerChat, "orphan draft")
	assert.Error(t, m.Save(context.Background(), LayerChat))
}

func TestRebindDiscardsDraft(t *testing.T) {
	m := NewLayerModel(newFakeLayerBackend())

	m.BindChat(&api.Chat{ID: 1, ContextText: "first"})
	m.SetDraft(LayerChat, "unsaved edit")
	require.True(t, m.Dirty(LayerChat))

	m.BindChat(&api.Chat{ID: 2, ContextText: "second"})

	assert.Equal(t, "second", m.Draft(LayerChat))
	assert.False(t, m.Dirty(LayerChat))
}

func TestRebindSameEntityKeepsDraft(t *testing.T) {
	m := NewLayerModel(newFakeLayerBackend())

	m.BindChat(&api.Chat{ID: 1, ContextText: "first"})
	m.SetDraft(LayerChat, "unsaved edit")

	m.BindChat(&api.Chat{ID: 1, ContextText: "first"})

	assert.Equal(t, "unsaved edit", m.Draft(LayerChat))
	assert.True(t, m.Dirty(LayerChat))
}

func TestRebindDoesNotTouchOtherLayers(t *testing.T) {
	m := NewLayerModel(newFakeLayerBackend())

	m.SetDraft(LayerGlobal, "global edit")
	m.BindChat(&api.Chat{ID: 1})

	assert.True(t, m.Dirty(LayerGlobal))
	assert.Equal(t, "global edit", m.Draft(LayerGlobal))
}

func TestSaveInvokesCommitHook(t *testing.T) {
	b := newFakeLayerBackend()
	m := NewLayerModel(b)

	var gotID int
	var gotText string
	m.OnChatSaved = func(chatID int, text string) {
		gotID = chatID
		gotText = text
	}

	m.BindChat(&api.Chat{ID: 3})
	m.SetDraft(LayerChat, "chat context")
	require.NoError(t, m.Save(context.Background(), LayerChat))

	assert.Equal(t, 3, gotID)
	assert.Equal(t, "chat context", gotText)
}
