// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// TOOL APPROVAL
// =============================================================================

// ToolApproval describes a tool call the platform has paused on, awaiting a
// human approve/reject decision before the stream can resume.
type ToolApproval struct {
	ToolName        string         `json:"tool_name"`
	ToolArgs        map[string]any `json:"tool_args"`
	ToolCallID      string         `json:"tool_call_id"`
	ToolDescription string         `json:"tool_description"`
	ConversationID  string         `json:"conversation_id"`
}

// RejectedToolCall records a declined tool call so the UI can still show
// "you declined X" after the approval prompt is gone.
type RejectedToolCall struct {
	ToolApproval
	RejectedAt time.Time `json:"rejected_at"`
}

// Reject converts a pending approval into its rejected record.
func (a ToolApproval) Reject(at time.Time) *RejectedToolCall {
	return &RejectedToolCall{ToolApproval: a, RejectedAt: at}
}
