// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists cosmetic preferences between sessions.
//
// This is the terminal equivalent of the browser's local storage: theme,
// accent color, and the last selected model. Preferences are cosmetic only;
// a missing or corrupt file silently yields defaults and never fails an
// operation.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kagenokoe/kage-tui/internal/util"
)

// AccentColors is the selectable accent palette.
var AccentColors = []struct {
	Name  string
	Value string
}{
	{"Blue", "#79c0ff"},
	{"Purple", "#a371f7"},
	{"Green", "#7ee787"},
	{"Orange", "#ffa657"},
	{"Pink", "#ff7b72"},
	{"Cyan", "#56d4dd"},
}

// Prefs holds the persisted preference values.
type Prefs struct {
	Theme         string `json:"theme"`           // "system", "light", "dark"
	AccentColor   string `json:"accent_color"`    // hex
	BubbleColor   string `json:"ai_bubble_color"` // hex, empty = theme default
	SelectedModel string `json:"selected_model"`
}

// Default returns the default preferences.
func Default() Prefs {
	return Prefs{
		Theme:       "system",
		AccentColor: "#79c0ff",
	}
}

// Store loads and saves preferences from a single JSON file.
type Store struct {
	path string
}

// NewStore creates a store at the default location (~/.kage/prefs.json).
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(home, ".kage", "prefs.json")}, nil
}

// NewStoreWithPath creates a store at a custom path.
func NewStoreWithPath(path string) *Store {
	return &Store{path: path}
}

// Load reads preferences, returning defaults when the file is missing or
// unreadable.
func (s *Store) Load() Prefs {
	p := Default()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return p
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Default()
	}
	if p.Theme == "" {
		p.Theme = "system"
	}
	if p.AccentColor == "" {
		p.AccentColor = Default().AccentColor
	}
	return p
}

// Save writes preferences atomically.
func (s *Store) Save(p Prefs) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(s.path, data, 0600)
}
