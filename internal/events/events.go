// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events provides the status stream for background failures.
//
// Operations that swallow their own errors (catalog refreshes, context
// refreshes, download polls) publish here instead of reporting to the console
// only, so the UI and tests have one observable channel for everything that
// went wrong without interrupting the session.
package events

import (
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// EVENT TYPE
// =============================================================================

// Level classifies an event.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one entry on the status stream.
type Event struct {
	Level   Level
	Source  string // originating component, e.g. "catalog", "downloads"
	Message string
	Err     error
	Time    time.Time
}

// =============================================================================
// BUS
// =============================================================================

// DefaultHistory is how many recent events the bus retains for late readers.
const DefaultHistory = 100

// Bus fans events out to subscribers and keeps a bounded history.
//
// Publish never blocks: a subscriber that stops draining its channel loses
// events rather than stalling the publisher. Background loops must not be
// held hostage by a slow status pane.
type Bus struct {
	mu      sync.Mutex
	subs    []chan Event
	history []Event
	limit   int
}

// NewBus creates a bus retaining DefaultHistory events.
func NewBus() *Bus {
	return &Bus{limit: DefaultHistory}
}

// Publish records an event and delivers it to all subscribers.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.Lock()
	b.history = append(b.history, ev)
	if len(b.history) > b.limit {
		b.history = b.history[len(b.history)-b.limit:]
	}
	subs := make([]chan Event, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default: // Slow subscriber: drop rather than block
		}
	}
}

// Errorf publishes an error-level event. If the last argument is an error
// it is also attached to the event's Err field.
func (b *Bus) Errorf(source, format string, args ...interface{}) {
	b.Publish(Event{Level: LevelError, Source: source, Message: fmt.Sprintf(format, args...), Err: lastErr(args)})
}

// Warnf publishes a warn-level event.
func (b *Bus) Warnf(source, format string, args ...interface{}) {
	b.Publish(Event{Level: LevelWarn, Source: source, Message: fmt.Sprintf(format, args...), Err: lastErr(args)})
}

// Infof publishes an info-level event.
func (b *Bus) Infof(source, format string, args ...interface{}) {
	b.Publish(Event{Level: LevelInfo, Source: source, Message: fmt.Sprintf(format, args...)})
}

func lastErr(args []interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err, ok := args[len(args)-1].(error); ok {
		return err
	}
	return nil
}

// Subscribe returns a channel receiving all future events. The channel is
// buffered; events are dropped for subscribers that fall behind.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// History returns a copy of the retained events, oldest first.
func (b *Bus) History() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}
