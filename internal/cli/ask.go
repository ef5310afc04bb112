// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler.
//
// Handles "kage ask", which creates a throwaway chat, runs one completion,
// prints the rendered answer, and removes the chat again unless --keep is
// given.
//
// Examples:
//   kage ask "summarize the RFC in this repo"
//   kage ask -f notes.md "what are the open questions here?"
//   kage ask --keep "start planning the migration"
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/config"
	"github.com/kagenokoe/kage-tui/internal/util"
)

// MaxAttachSize is the largest file ask will inline with a question.
const MaxAttachSize = 50 * 1024

// HandleAsk runs a single completion and prints the answer.
func HandleAsk(cfg *config.Config, args Args) int {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: kage ask \"question\"")
		return 1
	}

	client := newClient(cfg)
	ctx := context.Background()

	chat, err := client.CreateChat(ctx, askChatTitle(query), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not create chat: %v\n", err)
		return 1
	}
	if !args.Keep {
		defer func() {
			if err := client.DeleteChat(ctx, chat.ID); err != nil && args.Verbose {
				fmt.Fprintf(os.Stderr, "warning: could not remove chat %d: %v\n", chat.ID, err)
			}
		}()
	}

	if args.File != "" {
		if err := attachFile(ctx, client, chat.ID, args.File); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	model := args.Model
	if model == "" {
		model = cfg.DefaultModel
	}

	resp, err := client.Complete(ctx, chat.ID, query, model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if args.JSON {
		out, _ := json.Marshal(map[string]string{
			"model":  model,
			"answer": resp.Content,
		})
		fmt.Println(string(out))
		return 0
	}

	fmt.Println(renderMarkdown(resp.Content, args.Quiet))
	if args.Keep && !args.Quiet {
		fmt.Printf("(kept as chat %d)\n", chat.ID)
	}
	return 0
}

// attachFile registers a local file as a context item on the chat.
func attachFile(ctx context.Context, client *api.Client, chatID int, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	if len(data) > MaxAttachSize {
		return fmt.Errorf("%s is %d bytes, max attachment size is %d", path, len(data), MaxAttachSize)
	}
	extracted, err := client.UploadFile(ctx, path, data)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	_, err = client.CreateContextItem(ctx, chatID, api.ContextItemCreate{
		Name:    extracted.Filename,
		Content: extracted.Content,
		Type:    api.ItemTypeFile,
	})
	if err != nil {
		return fmt.Errorf("could not register context item: %w", err)
	}
	return nil
}

// askChatTitle derives a chat title from the question.
func askChatTitle(query string) string {
	return util.TruncateRunes(util.FirstLine(query), 48)
}

// renderMarkdown renders the answer with glamour, falling back to plain
// text when rendering fails or quiet mode is on.
func renderMarkdown(content string, quiet bool) string {
	if quiet {
		return content
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
