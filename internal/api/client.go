// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the Kage no Koe chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnreachable     // connect/transport failure
	ErrTypeTimeout         // context deadline exceeded
	ErrTypeServer          // non-2xx HTTP status
	ErrTypeNotFound        // 404 from the backend
	ErrTypeInvalidResponse // undecodable body
)

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeUnreachable, Message: "backend is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNotFound    = &ClientError{Type: ErrTypeNotFound, Message: "not found"}
)

// IsUnreachable checks if an error indicates the backend is down.
func IsUnreachable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnreachable
	}
	return errors.Is(err, ErrUnreachable)
}

// IsNotFound checks if an error is a backend 404.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsServerError checks if an error is a non-2xx backend response.
func IsServerError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeServer
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL including the /api prefix
	// (default: http://127.0.0.1:8000/api)
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6
	// resolution issues on Windows
	BaseURL string

	// Timeout for catalog and settings requests (default: 15s)
	Timeout time.Duration

	// CompletionTimeout for inference requests, which can run for as long as
	// the local model needs (default: 5m)
	CompletionTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "http://127.0.0.1:8000/api",
		Timeout:           15 * time.Second,
		CompletionTimeout: 5 * time.Minute,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the chat backend.
//
// The Client is thread-safe for concurrent use.
//
// Example:
//
//	client := api.NewClient()
//	projects, err := client.ListProjects(ctx)
type Client struct {
	config           *ClientConfig
	httpClient       *http.Client
	completionClient *http.Client
}

// NewClient creates a new backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.CompletionTimeout == 0 {
		config.CompletionTimeout = 5 * time.Minute
	}

	return &Client{
		config:           config,
		httpClient:       &http.Client{Timeout: config.Timeout},
		completionClient: &http.Client{Timeout: config.CompletionTimeout},
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do issues a JSON request and decodes the response into out (out may be nil
// for endpoints whose body the caller does not need). Every failure maps onto
// the ClientError taxonomy; callers never see raw transport errors.
func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ErrTimeout
		}
		return ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		drain(resp.Body)
		return ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Try to surface the backend's own error message
		var backendErr BackendError
		if err := json.NewDecoder(resp.Body).Decode(&backendErr); err == nil && backendErr.Message() != "" {
			return &ClientError{
				Type:       ErrTypeServer,
				Message:    backendErr.Message(),
				StatusCode: resp.StatusCode,
			}
		}
		return &ClientError{
			Type:       ErrTypeServer,
			Message:    "request failed: " + resp.Status,
			StatusCode: resp.StatusCode,
		}
	}

	if out == nil {
		drain(resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, c.httpClient, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, c.httpClient, http.MethodPost, path, in, out)
}

func (c *Client) put(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, c.httpClient, http.MethodPut, path, in, out)
}

func (c *Client) del(ctx context.Context, path string) error {
	return c.do(ctx, c.httpClient, http.MethodDelete, path, nil, nil)
}

// Helper to drain response bodies so connections can be reused.
func drain(r io.Reader) {
	io.Copy(io.Discard, r)
}

// =============================================================================
// PROJECT OPERATIONS
// =============================================================================

// ListProjects retrieves all projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, "/projects/", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project; the server assigns the id.
func (c *Client) CreateProject(ctx context.Context, name string) (*Project, error) {
	var project Project
	if err := c.post(ctx, "/projects/", ProjectCreate{Name: name}, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject applies a partial update to a project.
func (c *Client) UpdateProject(ctx context.Context, id int, update ProjectUpdate) (*Project, error) {
	var project Project
	if err := c.put(ctx, "/projects/"+strconv.Itoa(id), update, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, id int) error {
	return c.del(ctx, "/projects/"+strconv.Itoa(id))
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// ListChats retrieves all chats.
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	if err := c.get(ctx, "/chats/", &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// CreateChat creates a chat, optionally linked to a project.
func (c *Client) CreateChat(ctx context.Context, title string, projectID *int) (*Chat, error) {
	var chat Chat
	if err := c.post(ctx, "/chats/", ChatCreate{Title: title, ProjectID: projectID}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// UpdateChat applies a partial update to a chat.
func (c *Client) UpdateChat(ctx context.Context, id int, update ChatUpdate) (*Chat, error) {
	var chat Chat
	if err := c.put(ctx, "/chats/"+strconv.Itoa(id), update, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// DeleteChat removes a chat.
func (c *Client) DeleteChat(ctx context.Context, id int) error {
	return c.del(ctx, "/chats/"+strconv.Itoa(id))
}

// ListMessages retrieves the ordered message history for a chat.
func (c *Client) ListMessages(ctx context.Context, chatID int) ([]Message, error) {
	var messages []Message
	if err := c.get(ctx, "/chats/"+strconv.Itoa(chatID)+"/messages", &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// =============================================================================
// SETTINGS AND MODELS
// =============================================================================

// GetSettings retrieves the global settings singleton.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := c.get(ctx, "/settings/", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings persists the global context text.
func (c *Client) UpdateSettings(ctx context.Context, globalContext string) (*Settings, error) {
	var settings Settings
	if err := c.post(ctx, "/settings/", Settings{GlobalContextText: globalContext}, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// ListInstalledModels retrieves the models available for inference.
func (c *Client) ListInstalledModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	if err := c.get(ctx, "/settings/models", &models); err != nil {
		return nil, err
	}
	return models, nil
}

// StartModelDownload asks the backend to begin pulling a model.
func (c *Client) StartModelDownload(ctx context.Context, modelName string) (*DownloadStart, error) {
	var start DownloadStart
	path := "/settings/models/download?model_name=" + url.QueryEscape(modelName)
	if err := c.post(ctx, path, nil, &start); err != nil {
		return nil, err
	}
	return &start, nil
}

// DownloadProgress retrieves the current list of download records. The
// returned list is authoritative: a model absent from it has no active or
// recent download.
func (c *Client) DownloadProgress(ctx context.Context) ([]DownloadRecord, error) {
	var records []DownloadRecord
	if err := c.get(ctx, "/settings/models/download/progress", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete sends a user message for a chat and returns the assistant turn.
// The backend persists both messages and assembles the effective context.
func (c *Client) Complete(ctx context.Context, chatID int, userMessage, model string) (*CompletionResponse, error) {
	req := CompletionRequest{ChatID: chatID, UserMessage: userMessage, Model: model}
	var resp CompletionResponse
	if err := c.do(ctx, c.completionClient, http.MethodPost, "/chat_completion/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// CONTEXT ITEMS
// =============================================================================

// ListContextItems retrieves the ordered context items for a chat.
func (c *Client) ListContextItems(ctx context.Context, chatID int) ([]ContextItem, error) {
	var items []ContextItem
	if err := c.get(ctx, "/chat_completion/"+strconv.Itoa(chatID)+"/context", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateContextItem adds a context item to a chat; the server assigns the id
// and defaults is_active to true.
func (c *Client) CreateContextItem(ctx context.Context, chatID int, create ContextItemCreate) (*ContextItem, error) {
	var item ContextItem
	if err := c.post(ctx, "/chat_completion/"+strconv.Itoa(chatID)+"/context", create, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateContextItem applies a partial update to a context item.
func (c *Client) UpdateContextItem(ctx context.Context, itemID int, update ContextItemUpdate) (*ContextItem, error) {
	var item ContextItem
	if err := c.put(ctx, "/chat_completion/context/"+strconv.Itoa(itemID), update, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteContextItem removes a context item.
func (c *Client) DeleteContextItem(ctx context.Context, itemID int) error {
	return c.del(ctx, "/chat_completion/context/"+strconv.Itoa(itemID))
}

// =============================================================================
// FILE UPLOAD
// =============================================================================

// UploadFile sends raw file bytes to the extraction endpoint and returns the
// extracted plain text. Extraction is format-dependent and opaque to the
// client; this is phase one of creating a file-type context item.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (*UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build multipart body", Cause: err}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build multipart body", Cause: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build multipart body", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat_completion/upload", &buf)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrTimeout
		}
		return nil, ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ClientError{
			Type:       ErrTypeServer,
			Message:    fmt.Sprintf("upload of %q failed: %s", filename, resp.Status),
			StatusCode: resp.StatusCode,
		}
	}

	var upload UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &upload, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// CheckReachable verifies the backend answers on the catalog surface. The
// backend has no dedicated health endpoint; listing projects is the cheapest
// call that exercises the database.
func (c *Client) CheckReachable(ctx context.Context) error {
	_, err := c.ListProjects(ctx)
	return err
}
