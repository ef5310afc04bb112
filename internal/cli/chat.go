// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive terminal chat without the full TUI.
//
// Handles "kage chat": a readline-style loop against one chat on the
// backend. Arrow keys navigate input history, which persists across runs.
//
// In-loop commands:
//   /new [title]   Start a new chat
//   /list          List recent chats
//   /open N        Switch to chat N
//   /model NAME    Switch the completion model
//   /quit          Exit (also ctrl+d)
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/config"
	"github.com/kagenokoe/kage-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// replInput wraps liner with persistent history.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &replInput{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *replInput) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *replInput) close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat runs the interactive terminal chat.
func HandleChat(cfg *config.Config, args Args) int {
	client := newClient(cfg)
	ctx := context.Background()

	if err := client.CheckReachable(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: Could not reach server. Is backend running?")
		return 1
	}

	model := args.Model
	if model == "" {
		model = cfg.DefaultModel
	}

	chat, err := client.CreateChat(ctx, "Terminal Chat", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not create chat: %v\n", err)
		return 1
	}

	input := newReplInput()
	defer input.close()

	if !args.Quiet {
		fmt.Printf("kage chat · model %s · chat %d · /quit to exit\n\n", model, chat.ID)
	}

	for {
		line, err := input.read("you> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				return 0
			}
			fmt.Fprintf(os.Stderr, "input error: %v\n", err)
			return 1
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, newChat, newModel := handleReplCommand(ctx, client, line, chat, model)
			if done {
				return 0
			}
			if newChat != nil {
				chat = newChat
			}
			if newModel != "" {
				model = newModel
			}
			continue
		}

		resp, err := client.Complete(ctx, chat.ID, line, model)
		if err != nil {
			fmt.Println("Error: Could not reach server. Is backend running?")
			continue
		}
		fmt.Println(renderMarkdown(resp.Content, args.Quiet))
		fmt.Println()
	}
}

// handleReplCommand processes /commands. It returns whether to exit, plus
// any chat or model switch.
func handleReplCommand(ctx context.Context, client *api.Client, line string, current *api.Chat, model string) (bool, *api.Chat, string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit", "/q":
		return true, nil, ""

	case "/new":
		title := "Terminal Chat"
		if len(fields) > 1 {
			title = strings.Join(fields[1:], " ")
		}
		chat, err := client.CreateChat(ctx, title, nil)
		if err != nil {
			fmt.Printf("could not create chat: %v\n", err)
			return false, nil, ""
		}
		fmt.Printf("now in chat %d (%s)\n", chat.ID, chat.Title)
		return false, chat, ""

	case "/list":
		chats, err := client.ListChats(ctx)
		if err != nil {
			fmt.Printf("could not list chats: %v\n", err)
			return false, nil, ""
		}
		for _, c := range chats {
			marker := "  "
			if c.ID == current.ID {
				marker = "* "
			}
			fmt.Printf("%s%-5d %s\n", marker, c.ID, util.TruncateWidth(c.Title, 60))
		}
		return false, nil, ""

	case "/open":
		if len(fields) < 2 {
			fmt.Println("usage: /open N")
			return false, nil, ""
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("usage: /open N")
			return false, nil, ""
		}
		chats, err := client.ListChats(ctx)
		if err != nil {
			fmt.Printf("could not list chats: %v\n", err)
			return false, nil, ""
		}
		for i := range chats {
			if chats[i].ID == id {
				fmt.Printf("now in chat %d (%s)\n", id, chats[i].Title)
				replayHistory(ctx, client, id)
				return false, &chats[i], ""
			}
		}
		fmt.Printf("no chat %d\n", id)
		return false, nil, ""

	case "/model":
		if len(fields) < 2 {
			fmt.Printf("current model: %s\n", model)
			return false, nil, ""
		}
		return false, nil, fields[1]

	default:
		fmt.Printf("unknown command %s\n", fields[0])
		return false, nil, ""
	}
}

// replayHistory prints the tail of an opened chat for orientation.
func replayHistory(ctx context.Context, client *api.Client, chatID int) {
	messages, err := client.ListMessages(ctx, chatID)
	if err != nil {
		return
	}
	const tail = 6
	if len(messages) > tail {
		messages = messages[len(messages)-tail:]
	}
	for _, m := range messages {
		prefix := "you"
		if m.Role == api.RoleAssistant {
			prefix = "kage"
		}
		fmt.Printf("%s> %s\n", prefix, util.TruncateWidth(util.FirstLine(m.Content), 100))
	}
}
