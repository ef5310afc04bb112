// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDeriveChatTitle(t *testing.T) {
	assert.Equal(t, "hello", deriveChatTitle("hello"))
	assert.Equal(t, "first line", deriveChatTitle("first line\nsecond line"))

	long := strings.Repeat("a", 60)
	title := deriveChatTitle(long)
	assert.Equal(t, 40, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestDeriveChatTitleMultibyte(t *testing.T) {
	// Runs of multi-byte runes must never be split mid-character
	long := strings.Repeat("影の声", 20)
	title := deriveChatTitle(long)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, 40, utf8.RuneCountInString(title))
}
