// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/storage"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// exchangeFinishedMsg reports that a send or resume settled. The session
// store already holds the final state; err mirrors what was recorded
// there for the instance.
type exchangeFinishedMsg struct {
	instanceID string
	err        error
}

// frameTickMsg drives viewport refreshes while a response streams.
type frameTickMsg time.Time

// panelLoadedMsg delivers the cached conversation list to the side panel.
type panelLoadedMsg struct {
	items []storage.ConversationMeta
}

// transcriptLoadedMsg delivers a cached transcript chosen from the panel.
type transcriptLoadedMsg struct {
	conversationID string
	messages       []*model.ChatMessage
	err            error
}

// transcriptSavedMsg reports a background cache write, carried only so
// failures can surface in the status line.
type transcriptSavedMsg struct {
	err error
}
