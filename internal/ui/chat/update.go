// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley-tui/internal/engine"
	"github.com/jeranaias/parley-tui/internal/session"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameTickMsg:
		return m.handleFrameTick()

	case exchangeFinishedMsg:
		return m.handleExchangeFinished(msg)

	case panelLoadedMsg:
		m.panel.SetItems(msg.items)
		return m, nil

	case transcriptLoadedMsg:
		return m.handleTranscriptLoaded(msg)

	case transcriptSavedMsg:
		if msg.err != nil {
			m.statusMsg = "transcript cache write failed"
		}
		return m, m.loadPanelCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleResize fits components to the new terminal size.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	panelWidth := 0
	if m.showPanel {
		panelWidth = m.width / 4
		if panelWidth < 24 {
			panelWidth = 24
		}
	}

	contentWidth := m.width - panelWidth - 2
	// Header, input box, status bar.
	contentHeight := m.height - 6

	m.viewport.Width = contentWidth
	m.viewport.Height = contentHeight
	m.input.Width = contentWidth - 4
	m.panel.SetSize(panelWidth, contentHeight)
	m.renderer.SetWidth(contentWidth - 2)
	m.configureMarkdown(contentWidth - 2)
	m.refreshViewport()
	return m, nil
}

// handleKey routes key presses by current state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.pageSnapshot()

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		if snap.IsStreaming {
			m.engine.Cancel(PageInstance)
		}
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if snap.IsStreaming {
			m.engine.Cancel(PageInstance)
			m.statusMsg = "stopped"
		}
		return m, nil

	case key.Matches(msg, m.keyMap.TogglePanel):
		m.showPanel = !m.showPanel
		if !m.showPanel && m.focus == focusPanel {
			m.focus = focusInput
			m.input.Focus()
		}
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keyMap.FocusNext):
		if m.showPanel {
			if m.focus == focusInput {
				m.focus = focusPanel
				m.input.Blur()
			} else {
				m.focus = focusInput
				m.input.Focus()
			}
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Clear):
		m.store.ClearSession(PageInstance)
		m.refreshViewport()
		m.statusMsg = ""
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	// Tool approval decisions take over y/n while a call is pending.
	if snap.State() == session.StateApprovalPending {
		switch {
		case key.Matches(msg, m.keyMap.Approve):
			m.statusMsg = ""
			return m, tea.Batch(m.resumeCmd(true), frameTick(m.limiter.Interval()))
		case key.Matches(msg, m.keyMap.Reject):
			m.statusMsg = ""
			return m, tea.Batch(m.resumeCmd(false), frameTick(m.limiter.Interval()))
		}
		return m, nil
	}

	if m.focus == focusPanel {
		return m.handlePanelKey(msg)
	}

	if key.Matches(msg, m.keyMap.Submit) {
		return m.handleSubmit(snap)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit sends the typed message unless the page is busy.
func (m Model) handleSubmit(snap session.Session) (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || snap.IsStreaming || snap.PendingToolApproval != nil {
		return m, nil
	}

	m.input.Reset()
	m.statusMsg = ""
	m.thinkingStart = time.Now()
	m.limiter.Reset()

	return m, tea.Batch(
		m.sendCmd(text),
		frameTick(m.limiter.Interval()),
		m.spin.Tick,
	)
}

// handlePanelKey drives the conversation list.
func (m Model) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.panel.MoveUp()
		return m, nil
	case "down", "j":
		m.panel.MoveDown()
		return m, nil
	case "enter":
		if sel := m.panel.Selected(); sel != nil {
			return m, m.loadTranscriptCmd(sel.ID)
		}
		return m, nil
	}
	return m, nil
}

// handleFrameTick refreshes the viewport while a stream is live.
func (m Model) handleFrameTick() (tea.Model, tea.Cmd) {
	snap := m.pageSnapshot()
	if !snap.IsStreaming && snap.State() != session.StateApprovalPending {
		// Stream settled between ticks; the finished handler does the
		// final render.
		return m, nil
	}
	if m.limiter.Allow() {
		m.refreshViewport()
	}
	return m, frameTick(m.limiter.Interval())
}

// handleExchangeFinished runs the final render and caches the transcript.
func (m Model) handleExchangeFinished(msg exchangeFinishedMsg) (tea.Model, tea.Cmd) {
	m.limiter.Reset()
	m.refreshViewport()
	m.thinkingStart = time.Time{}
	// Stream errors land in the session store; ErrBusy never does, so
	// report it here.
	if errors.Is(msg.err, engine.ErrBusy) {
		m.statusMsg = "still streaming; press esc to cancel first"
		return m, nil
	}
	return m, m.saveTranscriptCmd()
}

// handleTranscriptLoaded swaps a cached conversation onto the page. Both
// instances bind to the chosen conversation, so later writes fan out to
// whichever surface the user is looking at.
func (m Model) handleTranscriptLoaded(msg transcriptLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.statusMsg = "failed to load conversation"
		return m, nil
	}

	m.store.ClearSession(PageInstance)
	m.store.SetConversationID(PageInstance, msg.conversationID)
	m.store.SetConversationID(PanelInstance, msg.conversationID)
	m.store.SyncConversation(msg.conversationID, msg.messages)

	m.focus = focusInput
	m.input.Focus()
	m.refreshViewport()
	return m, nil
}
