// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the Kage no Koe chat backend.
package api

// =============================================================================
// CATALOG TYPES
// =============================================================================

// Project is a named grouping of chats with one free-text context layer.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ContextText string `json:"context_text,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Chat is a single conversation. Messages and context items are fetched
// separately and lazily; the wire type carries only the chat's own fields.
type Chat struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ProjectID   *int   `json:"project_id"`
	ContextText string `json:"context_text,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Message is one turn in a conversation. Messages are immutable once created
// and the sequence is append-only.
type Message struct {
	ID        int    `json:"id,omitempty"`
	ChatID    int    `json:"chat_id,omitempty"`
	Role      string `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"` // ISO-8601
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// =============================================================================
// CONTEXT TYPES
// =============================================================================

// ContextItem is a named, typed, toggle-able block of context scoped to one
// chat. IsActive gates whether the backend includes it when assembling the
// effective prompt context.
type ContextItem struct {
	ID       int    `json:"id"`
	ChatID   int    `json:"chat_id,omitempty"`
	Name     string `json:"name"`
	Type     string `json:"type"` // "text" or "file"
	Content  string `json:"content"`
	IsActive bool   `json:"is_active"`
}

// Context item types.
const (
	ItemTypeText = "text"
	ItemTypeFile = "file"
)

// Settings is the process-wide singleton carrying the global context layer.
type Settings struct {
	ID                int    `json:"id,omitempty"`
	GlobalContextText string `json:"global_context_text"`
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo describes one installed model.
type ModelInfo struct {
	Name string `json:"name"`
}

// DownloadRecord reports progress for one in-flight or recently finished
// model download. Records are ephemeral: absence from a progress poll means
// no active or recent download for that model.
type DownloadRecord struct {
	ModelName  string `json:"modelName"`
	Status     string `json:"status"` // "downloading", "completed", "failed"
	Progress   int    `json:"progress,omitempty"` // 0-100
	Downloaded string `json:"downloaded,omitempty"`
	Size       string `json:"size,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Download statuses.
const (
	DownloadStatusDownloading = "downloading"
	DownloadStatusCompleted   = "completed"
	DownloadStatusFailed      = "failed"
)

// Terminal reports whether the record has reached a final status.
func (d DownloadRecord) Terminal() bool {
	return d.Status == DownloadStatusCompleted || d.Status == DownloadStatusFailed
}

// =============================================================================
// REQUEST / RESPONSE PAYLOADS
// =============================================================================

// ProjectCreate is the body for POST /projects/.
type ProjectCreate struct {
	Name string `json:"name"`
}

// ProjectUpdate is the body for PUT /projects/{id}. Nil fields are omitted so
// the backend applies a partial update.
type ProjectUpdate struct {
	Name        *string `json:"name,omitempty"`
	ContextText *string `json:"context_text,omitempty"`
}

// ChatCreate is the body for POST /chats/.
type ChatCreate struct {
	Title     string `json:"title"`
	ProjectID *int   `json:"project_id,omitempty"`
}

// ChatUpdate is the body for PUT /chats/{id}.
type ChatUpdate struct {
	Title       *string `json:"title,omitempty"`
	ContextText *string `json:"context_text,omitempty"`
}

// ContextItemCreate is the body for POST /chat_completion/{chatId}/context.
type ContextItemCreate struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// ContextItemUpdate is the body for PUT /chat_completion/context/{itemId}.
type ContextItemUpdate struct {
	Name     *string `json:"name,omitempty"`
	Content  *string `json:"content,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// CompletionRequest is the body for POST /chat_completion/. The backend loads
// the chat's history and assembles the effective context server-side; the
// client only supplies the chat id, the new user message, and the model.
type CompletionRequest struct {
	ChatID      int    `json:"chat_id"`
	UserMessage string `json:"user_message"`
	Model       string `json:"model,omitempty"`
}

// CompletionResponse is the assistant turn returned by the backend.
type CompletionResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	ChatID  int    `json:"chat_id"`
}

// UploadResponse is the extracted text for an uploaded file.
type UploadResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// DownloadStart is the response to a model download request.
type DownloadStart struct {
	Status string `json:"status"` // "started" on acceptance
	Error  string `json:"error,omitempty"`
}

// Started reports whether the backend accepted the download request.
func (d DownloadStart) Started() bool {
	return d.Status == "started"
}

// BackendError is the error envelope some endpoints return on non-2xx.
type BackendError struct {
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Message returns whichever error field the backend populated.
func (e BackendError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Error
}
