// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package downloads tracks model downloads running on the backend.
//
// The backend performs the actual pulls; this tracker polls the progress
// endpoint and mirrors the result wholesale, so the local list is always a
// snapshot the server produced. Starting a download also spawns a bounded
// watcher for that model which refreshes the installed-model list once the
// pull reaches a terminal status.
package downloads
