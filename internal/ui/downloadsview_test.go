// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"
	"testing"

	"github.com/kagenokoe/kage-tui/internal/api"
)

func TestProgressBarBounds(t *testing.T) {
	tests := []struct {
		name     string
		progress int
		want     string
	}{
		{"zero", 0, "  0%"},
		{"half", 50, " 50%"},
		{"full", 100, "100%"},
		{"overflow clamps", 140, "100%"},
		{"negative clamps", -5, "  0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progressBar(api.DownloadRecord{Progress: tt.progress}, 20)
			if !strings.HasSuffix(got, tt.want) {
				t.Errorf("progressBar(%d) = %q, want suffix %q", tt.progress, got, tt.want)
			}
		})
	}
}

func TestProgressBarWidth(t *testing.T) {
	got := progressBar(api.DownloadRecord{Progress: 50}, 20)
	bar := strings.TrimSuffix(got, "  50%")
	full := strings.Count(bar, "█")
	empty := strings.Count(bar, "░")
	if full != 10 || empty != 10 {
		t.Errorf("bar fill = %d/%d, want 10/10", full, empty)
	}
}
