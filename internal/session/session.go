// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/parley-tui/internal/model"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the derived lifecycle phase of one session.
type State int

const (
	// StateIdle means no exchange has started.
	StateIdle State = iota

	// StateStreaming means an assistant response is arriving.
	StateStreaming

	// StateApprovalPending means the stream is paused on a tool call
	// waiting for the user's decision.
	StateApprovalPending

	// StateErrored means the last exchange failed.
	StateErrored

	// StateReady means the last exchange completed normally.
	StateReady
)

// String returns a label for logging and debug views.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateApprovalPending:
		return "approval_pending"
	case StateErrored:
		return "errored"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Session is the chat state one UI instance renders from.
//
// Fields are plain values: the Store owns all mutation and hands out
// copies, so a Session in a caller's hands is a snapshot, not a live
// reference.
type Session struct {
	// Messages is the ordered transcript, oldest first.
	Messages []*model.ChatMessage

	// IsStreaming is true while an assistant response is in flight.
	IsStreaming bool

	// Err holds the failure of the last exchange, if any. Errors are
	// never synchronized to sibling sessions: a dropped connection in
	// a side panel must not paint the main page red.
	Err error

	// ConversationID binds this session to a server conversation. Empty
	// until the first exchange completes and the server assigns one.
	ConversationID string

	// PendingToolApproval is the tool call the stream paused on, nil
	// when nothing is pending.
	PendingToolApproval *model.ToolApproval

	// RejectedToolCall records the most recent rejected tool call so
	// the UI can show what was declined.
	RejectedToolCall *model.RejectedToolCall
}

// State derives the lifecycle phase from the session's fields. Approval
// takes precedence over streaming: a paused stream still has
// IsStreaming set while it waits.
func (s *Session) State() State {
	switch {
	case s.PendingToolApproval != nil:
		return StateApprovalPending
	case s.IsStreaming:
		return StateStreaming
	case s.Err != nil:
		return StateErrored
	case len(s.Messages) > 0:
		return StateReady
	default:
		return StateIdle
	}
}

// LastMessage returns the newest message, or nil for an empty transcript.
func (s *Session) LastMessage() *model.ChatMessage {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// MessageByID finds a message by id, or nil.
func (s *Session) MessageByID(id string) *model.ChatMessage {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// clone copies the session with a fresh message slice. Message pointers
// are shared: messages are mutated only under the Store lock.
func (s *Session) clone() *Session {
	out := *s
	out.Messages = make([]*model.ChatMessage, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}
