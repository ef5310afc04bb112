// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package downloads

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/events"
)

// Polling defaults. The list poll drives the downloads view; the per-model
// watch outlives the view and gives up after the timeout.
const (
	DefaultListInterval  = time.Second
	DefaultWatchInterval = 2 * time.Second
	DefaultWatchTimeout  = 5 * time.Minute
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the slice of the API client the tracker needs. *api.Client
// satisfies it.
type Backend interface {
	DownloadProgress(ctx context.Context) ([]api.DownloadRecord, error)
	StartModelDownload(ctx context.Context, modelName string) (*api.DownloadStart, error)
	ListInstalledModels(ctx context.Context) ([]api.ModelInfo, error)
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker mirrors the backend's download state. All methods are safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	backend Backend
	bus     *events.Bus // optional

	listInterval  time.Duration
	watchInterval time.Duration
	watchTimeout  time.Duration
	limiter       *rate.Limiter

	records   []api.DownloadRecord
	installed []api.ModelInfo

	watchCancels map[string]*watchHandle
	onChange     func()
}

// watchHandle identifies one watcher goroutine. Deregistration compares
// handles so a replaced watcher cannot evict its replacement from the map.
type watchHandle struct {
	cancel context.CancelFunc
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithBus attaches the event bus for background error reporting.
func WithBus(b *events.Bus) Option {
	return func(t *Tracker) { t.bus = b }
}

// WithIntervals overrides the polling cadence. Zero values keep the
// defaults.
func WithIntervals(list, watch, watchTimeout time.Duration) Option {
	return func(t *Tracker) {
		if list > 0 {
			t.listInterval = list
		}
		if watch > 0 {
			t.watchInterval = watch
		}
		if watchTimeout > 0 {
			t.watchTimeout = watchTimeout
		}
	}
}

// New creates a Tracker over the given backend.
func New(backend Backend, opts ...Option) *Tracker {
	t := &Tracker{
		backend:       backend,
		listInterval:  DefaultListInterval,
		watchInterval: DefaultWatchInterval,
		watchTimeout:  DefaultWatchTimeout,
		watchCancels:  make(map[string]*watchHandle),
	}
	for _, opt := range opts {
		opt(t)
	}
	// The limiter caps the poll rate even if multiple callers drive Poll
	t.limiter = rate.NewLimiter(rate.Every(t.listInterval), 1)
	return t
}

// SetOnChange registers a callback invoked after every state change. The
// callback runs without the tracker lock held.
func (t *Tracker) SetOnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

func (t *Tracker) notify() {
	t.mu.Lock()
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (t *Tracker) publishError(format string, args ...interface{}) {
	if t.bus != nil {
		t.bus.Errorf("downloads", format, args...)
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Records returns a copy of the last progress snapshot.
func (t *Tracker) Records() []api.DownloadRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]api.DownloadRecord(nil), t.records...)
}

// Installed returns a copy of the installed-model list.
func (t *Tracker) Installed() []api.ModelInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]api.ModelInfo(nil), t.installed...)
}

// Active reports whether any download is still in flight.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.records {
		if !r.Terminal() {
			return true
		}
	}
	return false
}

// =============================================================================
// POLLING
// =============================================================================

// Run polls the progress endpoint until ctx is cancelled. Each successful
// poll replaces the snapshot wholesale; a failed poll keeps the previous
// snapshot and reports the error.
func (t *Tracker) Run(ctx context.Context) {
	for {
		if err := t.limiter.Wait(ctx); err != nil {
			return
		}
		t.Poll(ctx)
	}
}

// Poll fetches one progress snapshot.
func (t *Tracker) Poll(ctx context.Context) {
	records, err := t.backend.DownloadProgress(ctx)
	if err != nil {
		if ctx.Err() == nil {
			t.publishError("progress poll failed: %v", err)
		}
		return
	}
	t.mu.Lock()
	t.records = records
	t.mu.Unlock()
	t.notify()
}

// RefreshInstalled fetches the installed-model list.
func (t *Tracker) RefreshInstalled(ctx context.Context) error {
	models, err := t.backend.ListInstalledModels(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.installed = models
	t.mu.Unlock()
	t.notify()
	return nil
}

// =============================================================================
// STARTING DOWNLOADS
// =============================================================================

// Start asks the backend to pull a model. On acceptance a watcher goroutine
// follows that model until it reaches a terminal status or the watch times
// out; completion triggers an installed-model refresh.
func (t *Tracker) Start(ctx context.Context, modelName string) error {
	started, err := t.backend.StartModelDownload(ctx, modelName)
	if err != nil {
		return err
	}
	if !started.Started() {
		if started.Error != "" {
			return fmt.Errorf("download rejected: %s", started.Error)
		}
		return fmt.Errorf("download rejected: status %q", started.Status)
	}

	t.mu.Lock()
	// One watcher per model; restarting replaces the previous one
	if prev, ok := t.watchCancels[modelName]; ok {
		prev.cancel()
	}
	watchCtx, cancel := context.WithTimeout(context.Background(), t.watchTimeout)
	handle := &watchHandle{cancel: cancel}
	t.watchCancels[modelName] = handle
	t.mu.Unlock()

	go t.watch(watchCtx, modelName, handle)
	return nil
}

// watch polls until the model's download reaches a terminal status.
func (t *Tracker) watch(ctx context.Context, modelName string, h *watchHandle) {
	defer h.cancel()
	defer func() {
		t.mu.Lock()
		if t.watchCancels[modelName] == h {
			delete(t.watchCancels, modelName)
		}
		t.mu.Unlock()
	}()

	ticker := time.NewTicker(t.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				t.publishError("gave up watching download of %s", modelName)
			}
			return
		case <-ticker.C:
			records, err := t.backend.DownloadProgress(ctx)
			if err != nil {
				continue
			}
			t.mu.Lock()
			t.records = records
			t.mu.Unlock()
			t.notify()

			for _, r := range records {
				if r.ModelName != modelName {
					continue
				}
				if r.Terminal() {
					if r.Status == api.DownloadStatusCompleted {
						if err := t.RefreshInstalled(ctx); err != nil {
							t.publishError("failed to refresh installed models: %v", err)
						}
					} else if r.Error != "" {
						t.publishError("download of %s failed: %s", modelName, r.Error)
					}
					return
				}
			}
		}
	}
}

// StopWatches cancels every per-model watcher.
func (t *Tracker) StopWatches() {
	t.mu.Lock()
	handles := make([]*watchHandle, 0, len(t.watchCancels))
	for _, h := range t.watchCancels {
		handles = append(handles, h)
	}
	t.mu.Unlock()
	for _, h := range handles {
		h.cancel()
	}
}
