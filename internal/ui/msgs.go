// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagenokoe/kage-tui/internal/events"
)

// =============================================================================
// MESSAGES
// =============================================================================

// refreshMsg signals that one of the state models changed and the views
// should re-read their snapshots.
type refreshMsg struct{}

// busEventMsg carries one event from the error bus into the UI loop.
type busEventMsg struct {
	event events.Event
}

// initDoneMsg reports the outcome of the startup fetches.
type initDoneMsg struct {
	err error
}

// opDoneMsg reports the outcome of a fire-and-forget operation (create,
// rename, delete, save).
type opDoneMsg struct {
	err error
}

// =============================================================================
// LISTENER COMMANDS
// =============================================================================

// waitForRefresh blocks on the coalesced change channel. The channel has
// capacity one, so a burst of callbacks collapses into one redraw.
func waitForRefresh(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return refreshMsg{}
	}
}

// waitForEvent blocks on the bus subscription.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return busEventMsg{event: ev}
	}
}

// notifyChan returns a callback suitable for the state models' SetOnChange
// hooks: it pokes ch without ever blocking the caller.
func notifyChan(ch chan struct{}) func() {
	return func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// runOp wraps a state mutation in a command.
func runOp(ctx context.Context, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: fn(ctx)}
	}
}
