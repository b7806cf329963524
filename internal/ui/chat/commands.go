// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley-tui/internal/storage"
)

// =============================================================================
// COMMANDS
// =============================================================================

// sendCmd runs one full exchange for the main page. It blocks in its own
// goroutine until the stream settles; the frame ticks render progress
// from the store while it runs.
func (m Model) sendCmd(text string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		err := eng.SendMessage(context.Background(), PageInstance, text, nil)
		return exchangeFinishedMsg{instanceID: PageInstance, err: err}
	}
}

// resumeCmd answers a pending tool approval.
func (m Model) resumeCmd(approved bool) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		err := eng.Resume(context.Background(), PageInstance, approved)
		return exchangeFinishedMsg{instanceID: PageInstance, err: err}
	}
}

// loadPanelCmd fetches the cached conversation list.
func (m Model) loadPanelCmd() tea.Cmd {
	store := m.transcripts
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		items, err := store.List()
		if err != nil {
			return panelLoadedMsg{}
		}
		return panelLoadedMsg{items: items}
	}
}

// loadTranscriptCmd fetches one cached transcript for display.
func (m Model) loadTranscriptCmd(conversationID string) tea.Cmd {
	store := m.transcripts
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		messages, err := store.LoadTranscript(conversationID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return transcriptLoadedMsg{conversationID: conversationID, err: err}
		}
		return transcriptLoadedMsg{conversationID: conversationID, messages: messages}
	}
}

// saveTranscriptCmd caches the page transcript after an exchange settles.
func (m Model) saveTranscriptCmd() tea.Cmd {
	store := m.transcripts
	if store == nil {
		return nil
	}
	snap := m.pageSnapshot()
	if snap.ConversationID == "" {
		return nil
	}
	conversationID := snap.ConversationID
	messages := snap.Messages
	return func() tea.Msg {
		return transcriptSavedMsg{err: store.SaveTranscript(conversationID, messages)}
	}
}
