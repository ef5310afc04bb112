// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives the active chat conversation.
//
// A Session is bound to one chat at a time and moves through three states:
// Unloaded (no chat), Loading (history fetch in flight), and Ready. Sends
// are accepted only in Ready. The user's turn is appended optimistically
// with a client timestamp, then a FIFO queue serializes the completion
// requests so replies land in the order the turns were sent. A completion
// failure produces a synthetic assistant turn carrying a fixed error line
// rather than losing the exchange.
package session
