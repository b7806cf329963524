// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/parley-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// RoleFromString parses a stored role string. Unknown values map to
// RoleAssistant so old rows never render as the user's own words.
func RoleFromString(s string) Role {
	if s == string(RoleUser) {
		return RoleUser
	}
	return RoleAssistant
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// CITATION AND MEDIA TYPES
// =============================================================================

// Source is one retrieval citation attached to an assistant message.
type Source struct {
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Score      float64 `json:"score"`
	ChunkIndex int     `json:"chunk_index"`
	DocumentID string  `json:"document_id"`
}

// MediaAttachment describes one uploaded attachment on a user message.
type MediaAttachment struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// =============================================================================
// CHAT MESSAGE
// =============================================================================

// ChatMessage represents a single turn in a conversation.
//
// IDs are generated client side so that an unsent or still-streaming turn
// can be addressed before the platform has assigned anything.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content is the committed text. While IsStreaming is true, token
	// deltas accumulate in streamContent and are merged into Content on
	// FinalizeStream.
	Content string `json:"content"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`

	// Optional payloads delivered mid-stream
	Sources []Source          `json:"sources,omitempty"`
	Media   []MediaAttachment `json:"media,omitempty"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates a new assistant message in streaming state.
// It is the open target for token deltas until FinalizeStream is called.
func NewAssistantMessage() *ChatMessage {
	return &ChatMessage{
		ID:          uuid.NewString(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendToken appends a token delta to a streaming message.
// A no-op once the message has been finalized.
func (m *ChatMessage) AppendToken(token string) {
	if m.IsStreaming {
		m.streamContent.WriteString(token)
	}
}

// FinalizeStream closes the streaming state and merges the accumulated
// deltas into Content. Safe to call on an already-final message.
func (m *ChatMessage) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content += m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *ChatMessage) GetDisplayContent() string {
	if m.IsStreaming {
		return m.Content + m.streamContent.String()
	}
	return m.Content
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *ChatMessage) Preview(maxLen int) string {
	return util.TruncateRunes(m.GetDisplayContent(), maxLen)
}

// IsEmpty returns true if the message has no content.
func (m *ChatMessage) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// =============================================================================
// MESSAGE UPDATES
// =============================================================================

// MessageUpdate carries a partial set of fields to merge onto an existing
// message. Nil fields leave the current value untouched.
type MessageUpdate struct {
	Content     *string
	IsStreaming *bool
	Sources     []Source
	Media       []MediaAttachment
}

// Apply merges the update onto the message without clobbering unset fields.
func (u MessageUpdate) Apply(m *ChatMessage) {
	if u.Content != nil {
		m.Content = *u.Content
		m.streamContent.Reset()
	}
	if u.IsStreaming != nil {
		if m.IsStreaming && !*u.IsStreaming {
			m.FinalizeStream()
		} else {
			m.IsStreaming = *u.IsStreaming
		}
	}
	if u.Sources != nil {
		m.Sources = u.Sources
	}
	if u.Media != nil {
		m.Media = u.Media
	}
}
