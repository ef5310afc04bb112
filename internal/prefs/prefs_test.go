// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists cosmetic preferences between sessions.
package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStoreWithPath(filepath.Join(t.TempDir(), "prefs.json"))

	p := store.Load()
	if p.Theme != "system" {
		t.Errorf("Theme = %q, want 'system'", p.Theme)
	}
	if p.AccentColor != "#79c0ff" {
		t.Errorf("AccentColor = %q, want default blue", p.AccentColor)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := NewStoreWithPath(filepath.Join(t.TempDir(), "prefs.json"))

	p := Prefs{Theme: "dark", AccentColor: "#a371f7", SelectedModel: "tinyllama"}
	if err := store.Save(p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := store.Load()
	if loaded.Theme != "dark" {
		t.Errorf("Theme = %q, want 'dark'", loaded.Theme)
	}
	if loaded.SelectedModel != "tinyllama" {
		t.Errorf("SelectedModel = %q, want 'tinyllama'", loaded.SelectedModel)
	}
}

func TestStore_CorruptFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	p := NewStoreWithPath(path).Load()
	if p.Theme != "system" {
		t.Errorf("corrupt file should yield defaults, got theme %q", p.Theme)
	}
}
