// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest is the body for opening a new chat stream.
// Stream is always forced to true before sending.
type ChatRequest struct {
	Message        string   `json:"message"`
	OrganizationID string   `json:"organization_id"`
	TeamID         string   `json:"team_id,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	MediaIDs       []string `json:"media_ids,omitempty"`
	Model          string   `json:"model,omitempty"`
	Stream         bool     `json:"stream"`
}

// ResumeRequest is the body for resuming a stream paused on a tool
// approval. Approved carries the human decision.
type ResumeRequest struct {
	ConversationID string `json:"conversation_id"`
	OrganizationID string `json:"organization_id"`
	TeamID         string `json:"team_id,omitempty"`
	Approved       bool   `json:"approved"`
	Stream         bool   `json:"stream"`
}

// errorBody is the structured error payload the gateway returns on
// non-2xx responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (b errorBody) text() string {
	switch {
	case b.Message != "":
		return b.Message
	case b.Error != "":
		return b.Error
	default:
		return b.Detail
	}
}
