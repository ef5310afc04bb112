// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events provides the status stream for background failures.
package events

import (
	"errors"
	"testing"
)

func TestBus_PublishAndSubscribe(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Errorf("catalog", "refresh failed: %v", errors.New("boom"))

	ev := <-ch
	if ev.Level != LevelError {
		t.Errorf("Level = %v, want LevelError", ev.Level)
	}
	if ev.Source != "catalog" {
		t.Errorf("Source = %q, want 'catalog'", ev.Source)
	}
	if ev.Message != "refresh failed: boom" {
		t.Errorf("Message = %q, want formatted message", ev.Message)
	}
	if ev.Err == nil {
		t.Error("trailing error argument should be attached")
	}
	if ev.Time.IsZero() {
		t.Error("Time should be stamped on publish")
	}
}

func TestBus_HistoryBounded(t *testing.T) {
	bus := NewBus()
	for i := 0; i < DefaultHistory+25; i++ {
		bus.Infof("test", "event")
	}

	history := bus.History()
	if len(history) != DefaultHistory {
		t.Errorf("history length = %d, want %d", len(history), DefaultHistory)
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	bus.Subscribe() // Never drained

	// Publishing far beyond the subscriber buffer must not deadlock.
	for i := 0; i < 200; i++ {
		bus.Infof("test", "event")
	}
}

func TestLevel_String(t *testing.T) {
	if LevelWarn.String() != "warn" {
		t.Errorf("LevelWarn.String() = %q, want 'warn'", LevelWarn.String())
	}
}
