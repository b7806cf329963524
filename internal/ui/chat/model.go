// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/parley-tui/internal/config"
	"github.com/jeranaias/parley-tui/internal/engine"
	"github.com/jeranaias/parley-tui/internal/session"
	"github.com/jeranaias/parley-tui/internal/storage"
	"github.com/jeranaias/parley-tui/internal/ui/components"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// Instance ids for the two session store surfaces this view renders.
const (
	PageInstance  = "page"
	PanelInstance = "panel"
)

// =============================================================================
// FOCUS
// =============================================================================

type focusArea int

const (
	focusInput focusArea = iota
	focusPanel
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Styling
	theme *styles.Theme
	cfg   *config.Config

	// Domain
	engine      *engine.Engine
	store       *session.Store
	transcripts *storage.TranscriptStore // nil when local storage is disabled

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	renderer *components.MessageRenderer
	panel    *components.SidePanel

	// Render throttling
	limiter *FrameLimiter

	// Key bindings
	keyMap KeyMap

	// View state
	focus     focusArea
	showPanel bool
	statusMsg string

	// Thinking state
	thinkingStart time.Time
}

// New creates the chat model. transcripts may be nil.
func New(theme *styles.Theme, cfg *config.Config, eng *engine.Engine, transcripts *storage.TranscriptStore) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	renderer := components.NewMessageRenderer(theme, 78)

	m := Model{
		theme:       theme,
		cfg:         cfg,
		engine:      eng,
		store:       eng.Store(),
		transcripts: transcripts,
		viewport:    vp,
		input:       ti,
		spin:        sp,
		renderer:    renderer,
		panel:       components.NewSidePanel(theme, 30),
		limiter:     NewFrameLimiter(30),
		keyMap:      DefaultKeyMap(),
		showPanel:   cfg.UI.ShowSidePanel,
	}
	m.configureMarkdown(78)
	return m
}

// Init starts the input cursor, the spinner, and the panel load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, m.loadPanelCmd())
}

// configureMarkdown builds the glamour renderer at the given wrap width.
// Glamour renderers bind their word wrap at construction, so resize
// rebuilds it.
func (m *Model) configureMarkdown(width int) {
	if !m.cfg.UI.Markdown {
		m.renderer.RenderMarkdown = nil
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.renderer.RenderMarkdown = nil
		return
	}
	m.renderer.RenderMarkdown = r.Render
}

// pageSnapshot returns the current main-page session state.
func (m *Model) pageSnapshot() session.Session {
	return m.store.Snapshot(PageInstance)
}

// refreshViewport re-renders the transcript into the viewport and keeps
// the newest content visible.
func (m *Model) refreshViewport() {
	snap := m.pageSnapshot()
	m.viewport.SetContent(m.renderer.RenderAll(snap.Messages))
	m.viewport.GotoBottom()
}
