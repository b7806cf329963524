// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"encoding/json"

	"github.com/jeranaias/parley-tui/internal/model"
)

// =============================================================================
// EVENT UNION
// =============================================================================

// EventKind identifies the event variant.
type EventKind int

const (
	KindToken EventKind = iota
	KindTitle
	KindDone
	KindError
	KindToolApproval
	KindSources
	KindGuardrailBlock
)

// String returns the wire label for the kind.
func (k EventKind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindTitle:
		return "title"
	case KindDone:
		return "done"
	case KindError:
		return "error"
	case KindToolApproval:
		return "tool_approval"
	case KindSources:
		return "sources"
	case KindGuardrailBlock:
		return "guardrail_block"
	default:
		return "unknown"
	}
}

// Event is the closed set of typed notifications a stream can produce.
// Each decoded frame yields exactly zero or one Event.
type Event interface {
	Kind() EventKind
}

// TokenEvent carries one text delta for the open assistant message.
type TokenEvent struct {
	Delta string
}

// TitleEvent carries the server-generated conversation title.
type TitleEvent struct {
	Title          string
	ConversationID string
}

// DoneEvent signals normal stream completion and binds the server-assigned
// conversation id.
type DoneEvent struct {
	ConversationID string
}

// ErrorEvent carries a server-reported or decode-level failure message.
// It terminates the stream.
type ErrorEvent struct {
	Message string
}

// ToolApprovalEvent pauses the stream pending a human approve/reject
// decision.
type ToolApprovalEvent struct {
	Approval model.ToolApproval
}

// SourcesEvent attaches retrieval citations to the open assistant message.
type SourcesEvent struct {
	Sources        []model.Source
	ConversationID string
}

// GuardrailBlockEvent reports that a guardrail stopped the response.
type GuardrailBlockEvent struct {
	Message        string
	ConversationID string
}

func (TokenEvent) Kind() EventKind          { return KindToken }
func (TitleEvent) Kind() EventKind          { return KindTitle }
func (DoneEvent) Kind() EventKind           { return KindDone }
func (ErrorEvent) Kind() EventKind          { return KindError }
func (ToolApprovalEvent) Kind() EventKind   { return KindToolApproval }
func (SourcesEvent) Kind() EventKind        { return KindSources }
func (GuardrailBlockEvent) Kind() EventKind { return KindGuardrailBlock }

// =============================================================================
// FRAME DECODING
// =============================================================================

// eventPayload captures every payload field the protocol uses. Decoding into
// one shape keeps the inference rules explicit: pointers distinguish an
// absent field from a zero value.
type eventPayload struct {
	Token           *string        `json:"token"`
	Title           *string        `json:"title"`
	Error           *string        `json:"error"`
	Message         *string        `json:"message"`
	ConversationID  *string        `json:"conversation_id"`
	ToolName        string         `json:"tool_name"`
	ToolArgs        map[string]any `json:"tool_args"`
	ToolCallID      string         `json:"tool_call_id"`
	ToolDescription string         `json:"tool_description"`
	Sources         []model.Source `json:"sources"`
}

func (p eventPayload) conversationID() string {
	if p.ConversationID != nil {
		return *p.ConversationID
	}
	return ""
}

// Decode maps one frame to a typed event.
//
// Priority order:
//  1. An explicit "event:" label maps directly to its variant. Malformed
//     JSON under a declared label becomes an ErrorEvent carrying the decode
//     failure, so a partially successful stream still terminates cleanly.
//  2. Unlabeled frames are inferred from payload shape, narrowest match
//     first: a "token" field wins over everything (so a done frame that
//     also carries a token is a token), then "error", then a
//     "conversation_id" with no other recognized field, which means done.
//  3. Anything else is dropped (ok=false). This tolerates keep-alive and
//     comment frames in the transport.
func Decode(frame Frame) (Event, bool) {
	if frame.IsEmpty() {
		return nil, false
	}

	var payload eventPayload
	parseErr := json.Unmarshal([]byte(frame.Data), &payload)

	if frame.Event != "" {
		if parseErr != nil {
			return ErrorEvent{Message: "malformed " + frame.Event + " event: " + parseErr.Error()}, true
		}
		return decodeLabeled(frame.Event, payload)
	}

	if parseErr != nil {
		return nil, false
	}
	return inferUnlabeled(payload)
}

// decodeLabeled maps a declared event label to its variant.
func decodeLabeled(label string, p eventPayload) (Event, bool) {
	switch label {
	case "token":
		var delta string
		if p.Token != nil {
			delta = *p.Token
		}
		return TokenEvent{Delta: delta}, true

	case "title":
		var title string
		if p.Title != nil {
			title = *p.Title
		}
		return TitleEvent{Title: title, ConversationID: p.conversationID()}, true

	case "done":
		return DoneEvent{ConversationID: p.conversationID()}, true

	case "error":
		return ErrorEvent{Message: errorMessage(p)}, true

	case "tool_approval":
		return ToolApprovalEvent{Approval: model.ToolApproval{
			ToolName:        p.ToolName,
			ToolArgs:        p.ToolArgs,
			ToolCallID:      p.ToolCallID,
			ToolDescription: p.ToolDescription,
			ConversationID:  p.conversationID(),
		}}, true

	case "sources":
		return SourcesEvent{Sources: p.Sources, ConversationID: p.conversationID()}, true

	case "guardrail_block":
		return GuardrailBlockEvent{Message: errorMessage(p), ConversationID: p.conversationID()}, true

	default:
		// Labels outside the vocabulary match nothing and are dropped.
		return nil, false
	}
}

// inferUnlabeled guesses the variant from payload shape for frames the
// producer did not label.
func inferUnlabeled(p eventPayload) (Event, bool) {
	switch {
	case p.Token != nil:
		return TokenEvent{Delta: *p.Token}, true
	case p.Error != nil:
		return ErrorEvent{Message: *p.Error}, true
	case p.ConversationID != nil && !p.hasOtherRecognizedFields():
		// A bare conversation id means done. A conversation id next to
		// any other recognized field is some richer event the producer
		// forgot to label; guessing done there would flip the stream
		// terminal mid-reply, so the frame is dropped instead.
		return DoneEvent{ConversationID: *p.ConversationID}, true
	default:
		return nil, false
	}
}

// hasOtherRecognizedFields reports whether the payload carries any
// recognized field besides conversation_id, token, and error.
func (p eventPayload) hasOtherRecognizedFields() bool {
	return p.Title != nil ||
		p.Message != nil ||
		p.Sources != nil ||
		p.ToolName != "" ||
		p.ToolCallID != "" ||
		p.ToolDescription != "" ||
		p.ToolArgs != nil
}

// errorMessage picks the failure text from whichever field the server used.
func errorMessage(p eventPayload) string {
	if p.Message != nil {
		return *p.Message
	}
	if p.Error != nil {
		return *p.Error
	}
	return ""
}
