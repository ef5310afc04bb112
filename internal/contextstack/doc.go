// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contextstack manages the layered context a completion runs under.
//
// Two pieces live here. The LayerModel tracks the editable global, project,
// and chat context texts with per-layer dirty flags; a save targets the
// entity that was bound when the save started, and rebinding to a different
// entity discards any unsaved draft for that layer. The ItemStore tracks the
// per-chat attachment list (pasted text snippets and uploaded files) and
// keeps it synchronized with the backend.
package contextstack
