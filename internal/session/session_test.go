// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagenokoe/kage-tui/internal/api"
)

type fakeBackend struct {
	mu       sync.Mutex
	history  map[int][]api.Message
	listErr  error
	complete func(chatID int, text, model string) (*api.CompletionResponse, error)
	calls    []string
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{history: make(map[int][]api.Message)}
	f.complete = func(chatID int, text, model string) (*api.CompletionResponse, error) {
		return &api.CompletionResponse{Role: api.RoleAssistant, Content: "echo: " + text, ChatID: chatID}, nil
	}
	return f
}

func (f *fakeBackend) ListMessages(ctx context.Context, chatID int) ([]api.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]api.Message(nil), f.history[chatID]...), nil
}

func (f *fakeBackend) Complete(ctx context.Context, chatID int, userMessage, model string) (*api.CompletionResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, userMessage)
	fn := f.complete
	f.mu.Unlock()
	return fn(chatID, userMessage, model)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestOpenExistingChatLoadsHistory(t *testing.T) {
	b := newFakeBackend()
	b.history[1] = []api.Message{
		{ID: 1, ChatID: 1, Role: api.RoleUser, Content: "hi"},
		{ID: 2, ChatID: 1, Role: api.RoleAssistant, Content: "hello"},
	}

	s := New(b)
	s.Open(api.Chat{ID: 1}, false)
	assert.Equal(t, StateLoading, s.State())

	s.Load(context.Background())
	assert.Equal(t, StateLoading, s.State(), "history alone is not enough")

	s.ItemsLoaded(1)
	assert.Equal(t, StateReady, s.State())

	turns := s.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "hi", turns[0].Content)
	assert.NotEmpty(t, turns[0].LocalID)
}

func TestReadyWaitsOnBothFetches(t *testing.T) {
	b := newFakeBackend()
	s := New(b)
	s.Open(api.Chat{ID: 1}, false)

	// Item fetch finishing first leaves the session loading on the history
	s.ItemsLoaded(1)
	assert.Equal(t, StateLoading, s.State())

	s.Load(context.Background())
	assert.Equal(t, StateReady, s.State())
}

func TestItemsLoadedForStaleChatIgnored(t *testing.T) {
	s := New(newFakeBackend())
	s.Open(api.Chat{ID: 1}, false)
	s.Open(api.Chat{ID: 2}, false)

	s.ItemsLoaded(1)
	assert.Equal(t, StateLoading, s.State())
}

func TestOpenFreshChatIsImmediatelyReady(t *testing.T) {
	s := New(newFakeBackend())
	s.Open(api.Chat{ID: 1}, true)

	assert.Equal(t, StateReady, s.State())
	assert.Empty(t, s.Turns())
}

func TestLoadFailureEndsReadyEmpty(t *testing.T) {
	b := newFakeBackend()
	b.listErr = errors.New("boom")

	s := New(b)
	s.Open(api.Chat{ID: 1}, false)
	s.Load(context.Background())
	s.ItemsLoaded(1)

	assert.Equal(t, StateReady, s.State())
	assert.Empty(t, s.Turns())
}

func TestStaleLoadDiscarded(t *testing.T) {
	b := newFakeBackend()
	b.history[1] = []api.Message{{ID: 1, ChatID: 1, Role: api.RoleUser, Content: "old chat"}}

	s := New(b)
	s.Open(api.Chat{ID: 1}, false)

	// Rebind before the fetch result is installed
	s.Open(api.Chat{ID: 2}, true)
	s.installHistory(1, b.history[1])

	assert.Empty(t, s.Turns(), "history for a previously bound chat must not appear")
}

func TestSendRequiresReady(t *testing.T) {
	s := New(newFakeBackend())
	assert.False(t, s.Send("hello", "m"), "unloaded session rejects sends")

	s.Open(api.Chat{ID: 1}, false)
	assert.False(t, s.Send("hello", "m"), "loading session rejects sends")
}

func TestSendRejectsBlankInput(t *testing.T) {
	s := New(newFakeBackend())
	s.Open(api.Chat{ID: 1}, true)
	assert.False(t, s.Send("   \n\t", "m"))
}

func TestSendAppendsOptimisticTurn(t *testing.T) {
	s := New(newFakeBackend())
	s.Open(api.Chat{ID: 1}, true)

	require.True(t, s.Send("  hello there  ", "m"))

	turns := s.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, api.RoleUser, turns[0].Role)
	assert.Equal(t, "hello there", turns[0].Content, "input is trimmed")
	assert.True(t, turns[0].Pending)
	assert.NotEmpty(t, turns[0].Timestamp)
}

func TestCompletionAppendsReply(t *testing.T) {
	b := newFakeBackend()
	s := New(b)
	s.Open(api.Chat{ID: 1}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.True(t, s.Send("hello", "llama3.2:1b"))
	waitFor(t, func() bool { return len(s.Turns()) == 2 })

	turns := s.Turns()
	assert.Equal(t, api.RoleAssistant, turns[1].Role)
	assert.Equal(t, "echo: hello", turns[1].Content)
	assert.False(t, turns[0].Pending, "user turn settles once the reply lands")
}

func TestCompletionFailureYieldsErrorTurn(t *testing.T) {
	b := newFakeBackend()
	b.complete = func(chatID int, text, model string) (*api.CompletionResponse, error) {
		return nil, api.ErrUnreachable
	}

	s := New(b)
	s.Open(api.Chat{ID: 1}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.True(t, s.Send("hello", "m"))
	waitFor(t, func() bool { return len(s.Turns()) == 2 })

	assert.Equal(t, "Error: Could not reach server. Is backend running?", s.Turns()[1].Content)
}

func TestSendsProcessInOrder(t *testing.T) {
	b := newFakeBackend()
	release := make(chan struct{})
	b.complete = func(chatID int, text, model string) (*api.CompletionResponse, error) {
		<-release
		return &api.CompletionResponse{Role: api.RoleAssistant, Content: "re: " + text, ChatID: chatID}, nil
	}

	s := New(b)
	s.Open(api.Chat{ID: 1}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.True(t, s.Send("first", "m"))
	require.True(t, s.Send("second", "m"))
	require.True(t, s.Send("third", "m"))
	close(release)

	waitFor(t, func() bool { return len(s.Turns()) == 6 })

	b.mu.Lock()
	calls := append([]string(nil), b.calls...)
	b.mu.Unlock()
	assert.Equal(t, []string{"first", "second", "third"}, calls)

	// Replies interleave with the pre-queued user turns but keep send order
	var replies []string
	for _, turn := range s.Turns() {
		if turn.Role == api.RoleAssistant {
			replies = append(replies, turn.Content)
		}
	}
	assert.Equal(t, []string{"re: first", "re: second", "re: third"}, replies)
}

func TestReplyForAbandonedChatDropped(t *testing.T) {
	b := newFakeBackend()
	started := make(chan struct{})
	release := make(chan struct{})
	b.complete = func(chatID int, text, model string) (*api.CompletionResponse, error) {
		close(started)
		<-release
		return &api.CompletionResponse{Role: api.RoleAssistant, Content: "late", ChatID: chatID}, nil
	}

	s := New(b)
	s.Open(api.Chat{ID: 1}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.True(t, s.Send("hello", "m"))
	<-started
	s.Open(api.Chat{ID: 2}, true)
	close(release)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, s.Turns(), "a reply for the old chat must not leak into the new one")
}

func TestBusyTracksPendingTurns(t *testing.T) {
	b := newFakeBackend()
	release := make(chan struct{})
	b.complete = func(chatID int, text, model string) (*api.CompletionResponse, error) {
		<-release
		return &api.CompletionResponse{Role: api.RoleAssistant, Content: "ok", ChatID: chatID}, nil
	}

	s := New(b)
	s.Open(api.Chat{ID: 1}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.True(t, s.Send("hello", "m"))
	assert.True(t, s.Busy())

	close(release)
	waitFor(t, func() bool { return !s.Busy() })
}
