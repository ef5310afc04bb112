// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/session"
	"github.com/kagenokoe/kage-tui/internal/ui/styles"
)

// =============================================================================
// CHAT PANE
// =============================================================================

// ChatPane renders the transcript of the bound chat and owns the message
// input line.
type ChatPane struct {
	theme  *styles.Theme
	width  int
	height int

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	renderer *glamour.TermRenderer

	focused bool
}

// NewChatPane creates the transcript pane.
func NewChatPane(theme *styles.Theme) ChatPane {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return ChatPane{
		theme:    theme,
		viewport: viewport.New(0, 0),
		input:    input,
		spinner:  sp,
	}
}

// SetSize updates the pane dimensions and rebuilds the markdown renderer
// for the new wrap width.
func (c *ChatPane) SetSize(width, height int) {
	c.width = width
	c.height = height

	inputHeight := 3
	c.viewport.Width = width - 4
	c.viewport.Height = height - inputHeight - 2
	c.input.Width = width - 8

	wrap := width - 8
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		c.renderer = renderer
	}
}

// Focus routes keyboard input to the message line.
func (c *ChatPane) Focus(focused bool) {
	c.focused = focused
	if focused {
		c.input.Focus()
	} else {
		c.input.Blur()
	}
}

// Input returns the current input line content.
func (c *ChatPane) Input() string {
	return c.input.Value()
}

// ClearInput empties the input line after a send.
func (c *ChatPane) ClearInput() {
	c.input.SetValue("")
}

// Tick returns the spinner tick command.
func (c *ChatPane) Tick() tea.Cmd {
	return c.spinner.Tick
}

// Update handles input and viewport scrolling.
func (c ChatPane) Update(msg tea.Msg) (ChatPane, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		c.spinner, cmd = c.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		if c.focused {
			switch msg.String() {
			case "pgup", "pgdown", "ctrl+u", "ctrl+f":
				c.viewport, cmd = c.viewport.Update(msg)
			default:
				c.input, cmd = c.input.Update(msg)
			}
			cmds = append(cmds, cmd)
		}
	}
	return c, tea.Batch(cmds...)
}

// Rebuild re-renders the transcript from a session snapshot and scrolls to
// the bottom.
func (c *ChatPane) Rebuild(sess *session.Session) {
	c.viewport.SetContent(c.renderTranscript(sess))
	c.viewport.GotoBottom()
}

func (c *ChatPane) renderTranscript(sess *session.Session) string {
	switch sess.State() {
	case session.StateUnloaded:
		return c.theme.EmptyTranscript.Width(c.viewport.Width).
			Render("\nSelect a chat or press ctrl+n to start one.")
	case session.StateLoading:
		return c.theme.PendingTurn.Render("\n  " + c.spinner.View() + " Loading history...")
	}

	turns := sess.Turns()
	if len(turns) == 0 {
		return c.theme.EmptyTranscript.Width(c.viewport.Width).
			Render("\nNo messages yet. Say something.")
	}

	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(c.renderTurn(turn))
		b.WriteString("\n")
	}
	if sess.Busy() {
		b.WriteString(c.theme.PendingTurn.Render(c.spinner.View() + " thinking..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (c *ChatPane) renderTurn(turn session.Turn) string {
	ts := ""
	if turn.Timestamp != "" {
		ts = " " + c.theme.TurnTimestamp.Render(turn.Timestamp)
	}

	if turn.Role == api.RoleUser {
		bubble := c.theme.UserBubble.Width(c.width * 2 / 3).Render(turn.Content)
		return fmt.Sprintf("%s%s\n", bubble, ts)
	}

	label := c.theme.AssistantLabel.Render("kage") + ts
	body := turn.Content
	if strings.HasPrefix(body, "Error:") {
		return label + "\n" + c.theme.ErrorTurn.Render(body) + "\n"
	}
	if c.renderer != nil {
		if rendered, err := c.renderer.Render(body); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}
	return label + "\n" + body + "\n"
}

// View renders the full pane: transcript plus input line.
func (c ChatPane) View() string {
	var b strings.Builder
	b.WriteString(c.viewport.View())
	b.WriteString("\n")
	b.WriteString(c.theme.InputContainer.Width(c.width - 2).Render(c.input.View()))

	style := c.theme.PaneBlur
	if c.focused {
		style = c.theme.PaneFocus
	}
	return style.Width(c.width).Height(c.height).Render(b.String())
}
