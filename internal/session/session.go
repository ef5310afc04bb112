// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/cache"
	"github.com/kagenokoe/kage-tui/internal/events"
)

// =============================================================================
// STATES
// =============================================================================

// State is the lifecycle phase of the bound chat.
type State int

const (
	// StateUnloaded means no chat is bound.
	StateUnloaded State = iota
	// StateLoading means the history fetch is in flight.
	StateLoading
	// StateReady means the transcript is usable and sends are accepted.
	StateReady
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// backendDownReply is the assistant turn shown when a completion cannot
// reach the backend.
const backendDownReply = "Error: Could not reach server. Is backend running?"

// sendQueueDepth bounds how many completions may be waiting. Sends past the
// bound are rejected rather than silently reordered.
const sendQueueDepth = 16

// =============================================================================
// TYPES
// =============================================================================

// Backend is the slice of the API client the session needs. *api.Client
// satisfies it.
type Backend interface {
	ListMessages(ctx context.Context, chatID int) ([]api.Message, error)
	Complete(ctx context.Context, chatID int, userMessage, model string) (*api.CompletionResponse, error)
}

// Turn is one transcript entry. LocalID gives every turn a stable identity
// before (or without) a server-assigned message id.
type Turn struct {
	LocalID string
	api.Message
	Pending bool // a completion for this user turn is still in flight
}

type sendJob struct {
	chatID      int
	userLocalID string
	text        string
	model       string
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the active conversation model. All methods are safe for
// concurrent use. Run must be started once for sends to be processed.
type Session struct {
	mu      sync.Mutex
	backend Backend
	mirror  *cache.Store // optional, best-effort
	bus     *events.Bus  // optional

	chatID *int
	state  State
	turns  []Turn

	// pendingLoads counts the fetches (history, context items) that must
	// finish before an existing chat is Ready.
	pendingLoads int

	jobs     chan sendJob
	onChange func()
}

// Option configures a Session.
type Option func(*Session)

// WithMirror attaches the local SQLite mirror for offline history fallback.
func WithMirror(m *cache.Store) Option {
	return func(s *Session) { s.mirror = m }
}

// WithBus attaches the event bus for background error reporting.
func WithBus(b *events.Bus) Option {
	return func(s *Session) { s.bus = b }
}

// New creates a Session over the given backend.
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		state:   StateUnloaded,
		jobs:    make(chan sendJob, sendQueueDepth),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOnChange registers a callback invoked after every transcript or state
// change. The callback runs without the session lock held.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChatID returns the bound chat id, if any.
func (s *Session) ChatID() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatID == nil {
		return 0, false
	}
	return *s.chatID, true
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// =============================================================================
// BINDING AND LOADING
// =============================================================================

// Open binds the session to a chat. A freshly created chat has nothing to
// fetch and goes straight to Ready; an existing chat enters Loading until
// both the history fetch (Load) and the context-item fetch (ItemsLoaded)
// have finished.
func (s *Session) Open(chat api.Chat, fresh bool) {
	s.mu.Lock()
	id := chat.ID
	s.chatID = &id
	s.turns = nil
	if fresh {
		s.state = StateReady
		s.pendingLoads = 0
	} else {
		s.state = StateLoading
		s.pendingLoads = 2
	}
	s.mu.Unlock()
	s.notify()
}

// Close unbinds the session, returning it to Unloaded.
func (s *Session) Close() {
	s.mu.Lock()
	s.chatID = nil
	s.turns = nil
	s.state = StateUnloaded
	s.pendingLoads = 0
	s.mu.Unlock()
	s.notify()
}

// Load fetches the bound chat's history. Run it after Open, typically in
// the background. If the backend is unreachable the local mirror is tried;
// either way the history load counts as finished so the user can keep
// working once the item fetch lands too. A result arriving after the
// session was rebound to another chat is discarded.
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	if s.chatID == nil {
		s.mu.Unlock()
		return
	}
	chatID := *s.chatID
	s.mu.Unlock()

	messages, err := s.backend.ListMessages(ctx, chatID)
	if err != nil {
		s.loadFailed(ctx, chatID, err)
		return
	}

	if s.mirror != nil {
		if merr := s.mirror.PutMessages(ctx, chatID, messages); merr != nil {
			s.publishError("cache", "failed to mirror history for chat %d: %v", chatID, merr)
		}
	}

	s.installHistory(chatID, messages)
}

func (s *Session) loadFailed(ctx context.Context, chatID int, err error) {
	s.publishError("session", "failed to load history for chat %d: %v", chatID, err)

	if s.mirror != nil && api.IsUnreachable(err) {
		cached, cerr := s.mirror.GetMessages(ctx, chatID)
		if cerr == nil && len(cached) > 0 {
			if s.bus != nil {
				s.bus.Warnf("session", "backend unreachable, showing cached history for chat %d", chatID)
			}
			s.installHistory(chatID, cached)
			return
		}
	}
	// An empty transcript is still usable
	s.installHistory(chatID, nil)
}

func (s *Session) installHistory(chatID int, messages []api.Message) {
	s.mu.Lock()
	if s.chatID == nil || *s.chatID != chatID {
		s.mu.Unlock()
		return
	}
	s.turns = make([]Turn, 0, len(messages))
	for _, m := range messages {
		s.turns = append(s.turns, Turn{LocalID: uuid.NewString(), Message: m})
	}
	s.loadPartDoneLocked()
	s.mu.Unlock()
	s.notify()
}

// ItemsLoaded marks the context-item fetch for the given chat as finished.
// Call it whether the fetch succeeded or failed; Ready waits on both this
// and the history load. Results for a chat the session has left are ignored.
func (s *Session) ItemsLoaded(chatID int) {
	s.mu.Lock()
	if s.chatID == nil || *s.chatID != chatID {
		s.mu.Unlock()
		return
	}
	s.loadPartDoneLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Session) loadPartDoneLocked() {
	if s.pendingLoads > 0 {
		s.pendingLoads--
	}
	if s.pendingLoads == 0 && s.state == StateLoading {
		s.state = StateReady
	}
}

// =============================================================================
// SENDING
// =============================================================================

// Send appends the user's turn optimistically and queues the completion.
// It reports false when the send was not accepted: blank input, no Ready
// chat, or a full queue.
func (s *Session) Send(text, model string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	s.mu.Lock()
	if s.state != StateReady || s.chatID == nil {
		s.mu.Unlock()
		return false
	}
	chatID := *s.chatID

	turn := Turn{
		LocalID: uuid.NewString(),
		Message: api.Message{
			ChatID:    chatID,
			Role:      api.RoleUser,
			Content:   trimmed,
			Timestamp: clientTimestamp(),
		},
		Pending: true,
	}

	job := sendJob{
		chatID:      chatID,
		userLocalID: turn.LocalID,
		text:        trimmed,
		model:       model,
	}
	select {
	case s.jobs <- job:
	default:
		s.mu.Unlock()
		s.publishError("session", "send queue full, message dropped")
		return false
	}

	s.turns = append(s.turns, turn)
	s.mu.Unlock()
	s.notify()
	return true
}

// Busy reports whether any turn is still waiting on its completion.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.turns {
		if t.Pending {
			return true
		}
	}
	return false
}

// Run processes queued completions one at a time until ctx is cancelled.
// Start it once, in its own goroutine.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.process(ctx, job)
		}
	}
}

func (s *Session) process(ctx context.Context, job sendJob) {
	resp, err := s.backend.Complete(ctx, job.chatID, job.text, job.model)

	content := backendDownReply
	if err == nil {
		content = resp.Content
	} else {
		s.publishError("session", "completion failed for chat %d: %v", job.chatID, err)
	}

	reply := Turn{
		LocalID: uuid.NewString(),
		Message: api.Message{
			ChatID:    job.chatID,
			Role:      api.RoleAssistant,
			Content:   content,
			Timestamp: clientTimestamp(),
		},
	}

	s.mu.Lock()
	if s.chatID == nil || *s.chatID != job.chatID {
		// The user moved on; the backend has the exchange if it succeeded
		s.mu.Unlock()
		return
	}
	for i := range s.turns {
		if s.turns[i].LocalID == job.userLocalID {
			s.turns[i].Pending = false
			break
		}
	}
	s.turns = append(s.turns, reply)
	s.mu.Unlock()
	s.notify()
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Session) publishError(source, format string, args ...interface{}) {
	if s.bus != nil {
		s.bus.Errorf(source, format, args...)
	}
}

// clientTimestamp matches the backend's ISO-8601 message timestamps. The
// client clock is authoritative for optimistic turns; the server rewrites
// them on the next history fetch.
func clientTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
