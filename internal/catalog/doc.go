// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog maintains the client-side view of projects and chats.
//
// The Catalog holds the two collections plus the selection cursor (current
// project, current chat) and keeps them consistent against the backend:
// mutations are committed to the server first and only applied locally once
// the server accepts them, so the local view never shows a rename or delete
// the backend rejected. A failed refresh keeps the previous lists intact.
package catalog
