// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the Bubble Tea terminal interface.
//
// The root App model owns three panes (sidebar, transcript, context panel)
// plus a models overlay and a status bar. State lives in the catalog,
// session, contextstack, and downloads packages; their change callbacks are
// funneled into the Bubble Tea loop as refresh messages, so the View
// functions only ever read snapshots.
package ui
