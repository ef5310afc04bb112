// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface: one-shot questions,
// an interactive terminal chat, status reporting, config management, and
// model downloads. Every command talks to the same backend the TUI does.
package cli
