// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/catalog"
	"github.com/kagenokoe/kage-tui/internal/config"
	"github.com/kagenokoe/kage-tui/internal/contextstack"
	"github.com/kagenokoe/kage-tui/internal/downloads"
	"github.com/kagenokoe/kage-tui/internal/events"
	"github.com/kagenokoe/kage-tui/internal/prefs"
	"github.com/kagenokoe/kage-tui/internal/session"
	"github.com/kagenokoe/kage-tui/internal/ui/styles"
	"github.com/kagenokoe/kage-tui/internal/util"
)

// =============================================================================
// FOCUS AND VIEWS
// =============================================================================

type focusArea int

const (
	focusSidebar focusArea = iota
	focusInput
	focusContext
)

type viewMode int

const (
	viewChat viewMode = iota
	viewModels
)

// =============================================================================
// APP
// =============================================================================

// Deps bundles the state models the App drives.
type Deps struct {
	Config    *config.Config
	Prefs     *prefs.Store
	Catalog   *catalog.Catalog
	Session   *session.Session
	Layers    *contextstack.LayerModel
	Items     *contextstack.ItemStore
	Downloads *downloads.Tracker
	Bus       *events.Bus
}

// App is the root Bubble Tea model.
type App struct {
	deps  Deps
	theme *styles.Theme
	keys  KeyMap

	ctx    context.Context
	cancel context.CancelFunc

	focus focusArea
	view  viewMode

	sidebar   Sidebar
	chat      ChatPane
	ctxPanel  ContextPanel
	dlView    DownloadsView
	statusBar StatusBar

	refreshCh chan struct{}
	eventCh   <-chan events.Event

	prefsData prefs.Prefs

	width  int
	height int
	ready  bool
}

// NewApp wires the App over its dependencies. Background workers (session
// queue, download poller) are started here and stopped when the app quits.
func NewApp(deps Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())

	prefsData := deps.Prefs.Load()
	theme := styles.NewTheme(prefsData.AccentColor)

	a := &App{
		deps:      deps,
		theme:     theme,
		keys:      DefaultKeyMap(),
		ctx:       ctx,
		cancel:    cancel,
		focus:     focusSidebar,
		sidebar:   NewSidebar(theme),
		chat:      NewChatPane(theme),
		ctxPanel:  NewContextPanel(theme),
		dlView:    NewDownloadsView(theme),
		statusBar: NewStatusBar(theme),
		refreshCh: make(chan struct{}, 1),
		eventCh:   deps.Bus.Subscribe(),
		prefsData: prefsData,
	}

	if a.prefsData.SelectedModel == "" {
		a.prefsData.SelectedModel = deps.Config.DefaultModel
	}
	a.statusBar.SetModel(a.prefsData.SelectedModel)

	notify := notifyChan(a.refreshCh)
	deps.Catalog.SetOnChange(notify)
	deps.Session.SetOnChange(notify)
	deps.Downloads.SetOnChange(notify)

	// Context layer saves keep the catalog's records in step
	deps.Layers.OnProjectSaved = deps.Catalog.ApplyProjectContext
	deps.Layers.OnChatSaved = deps.Catalog.ApplyChatContext

	go deps.Session.Run(ctx)
	go deps.Downloads.Run(ctx)

	a.sidebar.Focus(true)
	return a
}

// Init starts the listeners and the initial fetches.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.initialLoad(),
		waitForRefresh(a.refreshCh),
		waitForEvent(a.eventCh),
		a.chat.Tick(),
	)
}

func (a *App) initialLoad() tea.Cmd {
	return func() tea.Msg {
		if err := a.deps.Catalog.Refresh(a.ctx); err != nil {
			return initDoneMsg{err: err}
		}
		if err := a.deps.Layers.LoadGlobal(a.ctx); err != nil {
			a.deps.Bus.Warnf("settings", "failed to load global context: %v", err)
		}
		if err := a.deps.Downloads.RefreshInstalled(a.ctx); err != nil {
			a.deps.Bus.Warnf("downloads", "failed to list installed models: %v", err)
		}
		return initDoneMsg{}
	}
}

// Update is the main event loop.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		a.rebuildViews()
		return a, nil

	case refreshMsg:
		a.rebuildViews()
		return a, waitForRefresh(a.refreshCh)

	case busEventMsg:
		a.statusBar.ShowEvent(msg.event)
		return a, waitForEvent(a.eventCh)

	case initDoneMsg:
		if msg.err != nil {
			a.deps.Bus.Errorf("startup", "initial load failed: %v", msg.err)
		}
		a.rebuildViews()
		return a, nil

	case opDoneMsg:
		if msg.err != nil {
			a.deps.Bus.Errorf("ui", "%v", msg.err)
		}
		a.rebuildViews()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Non-key messages (spinner ticks) still reach the chat pane
	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	cmds = append(cmds, cmd)
	a.rebuildViews()
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Quit) {
		a.savePrefs()
		a.cancel()
		a.deps.Downloads.StopWatches()
		return a, tea.Quit
	}

	if a.view == viewModels {
		return a.handleModelsKey(msg)
	}

	// While the context panel owns an editor, it gets every key
	if a.focus == focusContext && a.ctxPanel.Editing() {
		return a.handleContextKey(msg)
	}

	switch {
	case key.Matches(msg, a.keys.FocusNext):
		a.cycleFocus()
		return a, nil
	case key.Matches(msg, a.keys.Models):
		a.view = viewModels
		a.dlView.Focus(true)
		return a, nil
	case key.Matches(msg, a.keys.Context):
		a.setFocus(focusContext)
		return a, nil
	case key.Matches(msg, a.keys.NewChat):
		return a, a.newChat()
	case key.Matches(msg, a.keys.NewProject):
		return a, a.newProject()
	case key.Matches(msg, a.keys.Rename):
		return a, a.renameSelected()
	case key.Matches(msg, a.keys.Delete):
		return a, a.deleteSelected()
	}

	switch a.focus {
	case focusSidebar:
		return a.handleSidebarKey(msg)
	case focusInput:
		return a.handleInputKey(msg)
	case focusContext:
		return a.handleContextKey(msg)
	}
	return a, nil
}

// =============================================================================
// PER-PANE KEY HANDLING
// =============================================================================

func (a *App) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		if row, ok := a.sidebar.Selected(); ok {
			return a, a.activateRow(row)
		}
		return a, nil
	}
	a.sidebar = a.sidebar.Update(msg)
	return a, nil
}

func (a *App) activateRow(row sidebarRow) tea.Cmd {
	switch row.kind {
	case rowAllChats:
		a.deps.Catalog.ClearProjectSelection()
		a.deps.Layers.BindProject(nil)
		return nil
	case rowProject:
		if a.deps.Catalog.SelectProject(row.id) {
			if p, ok := a.deps.Catalog.CurrentProject(); ok {
				a.deps.Layers.BindProject(&p)
			}
		}
		return nil
	case rowChat:
		return a.openChat(row.id, false)
	}
	return nil
}

// openChat binds every chat-scoped model to the chat and kicks off the
// concurrent history and item fetches.
func (a *App) openChat(chatID int, fresh bool) tea.Cmd {
	chat, ok := a.deps.Catalog.SelectChat(chatID)
	if !ok {
		return nil
	}
	a.deps.Session.Open(chat, fresh)
	a.deps.Items.BindChat(&chatID)
	a.deps.Layers.BindChat(&chat)
	a.setFocus(focusInput)

	if fresh {
		return nil
	}
	ctx := a.ctx
	loadHistory := func() tea.Msg {
		a.deps.Session.Load(ctx)
		return nil
	}
	loadItems := func() tea.Msg {
		a.deps.Items.Load(ctx)
		a.deps.Session.ItemsLoaded(chatID)
		notifyChan(a.refreshCh)()
		return nil
	}
	return tea.Batch(loadHistory, loadItems)
}

func (a *App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		if a.deps.Session.Send(a.chat.Input(), a.prefsData.SelectedModel) {
			a.chat.ClearInput()
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

func (a *App) handleContextKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var req panelRequest
	var cmd tea.Cmd
	a.ctxPanel, req, cmd = a.ctxPanel.Update(msg, a.deps.Layers)

	switch req.action {
	case panelActionSaveLayer:
		layer := req.layer
		return a, runOp(a.ctx, func(ctx context.Context) error {
			return a.deps.Layers.Save(ctx, layer)
		})
	case panelActionToggleItem:
		id := req.itemID
		return a, runOp(a.ctx, func(ctx context.Context) error {
			return a.deps.Items.ToggleActive(ctx, id)
		})
	case panelActionDeleteItem:
		id := req.itemID
		return a, runOp(a.ctx, func(ctx context.Context) error {
			return a.deps.Items.Delete(ctx, id)
		})
	case panelActionUpload:
		path := req.path
		return a, runOp(a.ctx, func(ctx context.Context) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			_, err = a.deps.Items.UploadFile(ctx, filepath.Base(path), data)
			return err
		})
	}
	return a, cmd
}

func (a *App) handleModelsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.view = viewChat
		a.dlView.Focus(false)
		return a, nil
	case "enter":
		name := a.dlView.TakePullRequest()
		if name == "" {
			return a, nil
		}
		return a, runOp(a.ctx, func(ctx context.Context) error {
			return a.deps.Downloads.Start(ctx, name)
		})
	}
	var cmd tea.Cmd
	a.dlView, cmd = a.dlView.Update(msg)
	return a, cmd
}

// =============================================================================
// MUTATION COMMANDS
// =============================================================================

func (a *App) newChat() tea.Cmd {
	var projectID *int
	if p, ok := a.deps.Catalog.CurrentProject(); ok {
		id := p.ID
		projectID = &id
	}
	return func() tea.Msg {
		chat, err := a.deps.Catalog.CreateChat(a.ctx, "New Chat", projectID)
		if err != nil {
			return opDoneMsg{err: err}
		}
		a.deps.Session.Open(chat, true)
		id := chat.ID
		a.deps.Items.BindChat(&id)
		a.deps.Layers.BindChat(&chat)
		return opDoneMsg{}
	}
}

func (a *App) newProject() tea.Cmd {
	n := len(a.deps.Catalog.Projects()) + 1
	name := fmt.Sprintf("Project %d", n)
	return runOp(a.ctx, func(ctx context.Context) error {
		_, err := a.deps.Catalog.CreateProject(ctx, name)
		return err
	})
}

// renameSelected renames the sidebar row under the cursor. The new name is
// derived rather than prompted; a proper rename dialog is handled by the
// chat title itself being editable server-side.
func (a *App) renameSelected() tea.Cmd {
	row, ok := a.sidebar.Selected()
	if !ok {
		return nil
	}
	switch row.kind {
	case rowChat:
		// Retitle from the first user turn, the common case after "New Chat"
		title := a.firstUserLine(row.id)
		if title == "" {
			return nil
		}
		return runOp(a.ctx, func(ctx context.Context) error {
			return a.deps.Catalog.RenameChat(ctx, row.id, title)
		})
	}
	return nil
}

func (a *App) firstUserLine(chatID int) string {
	if id, ok := a.deps.Session.ChatID(); !ok || id != chatID {
		return ""
	}
	for _, turn := range a.deps.Session.Turns() {
		if turn.Role == api.RoleUser {
			return deriveChatTitle(turn.Content)
		}
	}
	return ""
}

// deriveChatTitle builds a chat title from the first user turn, rune-safe
// for multi-byte input.
func deriveChatTitle(content string) string {
	const maxTitle = 40
	return util.TruncateRunes(util.FirstLine(content), maxTitle)
}

func (a *App) deleteSelected() tea.Cmd {
	row, ok := a.sidebar.Selected()
	if !ok {
		return nil
	}
	switch row.kind {
	case rowProject:
		return runOp(a.ctx, func(ctx context.Context) error {
			return a.deps.Catalog.DeleteProject(ctx, row.id)
		})
	case rowChat:
		id := row.id
		return func() tea.Msg {
			if err := a.deps.Catalog.DeleteChat(a.ctx, id); err != nil {
				return opDoneMsg{err: err}
			}
			if cur, ok := a.deps.Session.ChatID(); ok && cur == id {
				a.deps.Session.Close()
				a.deps.Items.BindChat(nil)
				a.deps.Layers.BindChat(nil)
			}
			return opDoneMsg{}
		}
	}
	return nil
}

// =============================================================================
// LAYOUT AND VIEW
// =============================================================================

func (a *App) cycleFocus() {
	switch a.focus {
	case focusSidebar:
		a.setFocus(focusInput)
	case focusInput:
		a.setFocus(focusContext)
	case focusContext:
		a.setFocus(focusSidebar)
	}
}

func (a *App) setFocus(f focusArea) {
	a.focus = f
	a.sidebar.Focus(f == focusSidebar)
	a.chat.Focus(f == focusInput)
	a.ctxPanel.Focus(f == focusContext)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	statusHeight := 1
	body := height - statusHeight

	sidebarWidth := width / 5
	if sidebarWidth < 24 {
		sidebarWidth = 24
	}
	contextWidth := width / 4
	if contextWidth < 30 {
		contextWidth = 30
	}
	chatWidth := width - sidebarWidth - contextWidth

	a.sidebar.SetSize(sidebarWidth, body)
	a.chat.SetSize(chatWidth, body)
	a.ctxPanel.SetSize(contextWidth, body)
	a.dlView.SetSize(width*2/3, body*2/3)
	a.statusBar.SetSize(width)
}

func (a *App) rebuildViews() {
	a.sidebar.Rebuild(a.deps.Catalog)
	if id, ok := a.deps.Session.ChatID(); ok {
		a.sidebar.MoveCursorToChat(id)
	}
	a.chat.Rebuild(a.deps.Session)
	a.ctxPanel.Rebuild(a.deps.Items)
	a.statusBar.SetDownloading(a.deps.Downloads.Active())
}

func (a *App) savePrefs() {
	if err := a.deps.Prefs.Save(a.prefsData); err != nil {
		a.deps.Bus.Warnf("prefs", "failed to save preferences: %v", err)
	}
}

// View renders the full screen.
func (a *App) View() string {
	if !a.ready {
		return "Starting..."
	}

	if a.view == viewModels {
		overlay := a.dlView.View(a.deps.Downloads)
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, overlay)
	}

	currentChatID, hasChat := a.deps.Session.ChatID()
	_, hasProject := a.deps.Catalog.CurrentProject()

	row := lipgloss.JoinHorizontal(
		lipgloss.Top,
		a.sidebar.View(currentChatID, hasChat),
		a.chat.View(),
		a.ctxPanel.View(a.deps.Layers, hasProject, hasChat),
	)
	return lipgloss.JoinVertical(lipgloss.Left, row, a.statusBar.View())
}
