// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the Kage no Koe chat backend.
//
// The backend is a locally hosted REST service (base path /api) that owns
// projects, chats, messages, context items, global settings, and model
// downloads, and performs the actual language-model inference. This package
// is a pure consumer of that contract: it never caches, never retries
// destructively, and reports failures through typed errors so callers can
// decide whether a failure is a conversational turn, a silent no-op, or a
// user-facing acknowledgment.
package api
