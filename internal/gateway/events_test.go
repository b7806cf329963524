// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"testing"
)

func TestDecode_LabeledToken(t *testing.T) {
	event, ok := Decode(Frame{Event: "token", Data: `{"token":"hello"}`})
	if !ok {
		t.Fatal("expected event")
	}
	tok, isToken := event.(TokenEvent)
	if !isToken {
		t.Fatalf("expected TokenEvent, got %T", event)
	}
	if tok.Delta != "hello" {
		t.Errorf("expected delta 'hello', got %q", tok.Delta)
	}
}

func TestDecode_LabelWinsOverShape(t *testing.T) {
	// The payload carries a conversation_id, which alone would infer
	// done, but the explicit label decides.
	event, ok := Decode(Frame{Event: "title", Data: `{"title":"Trip plans","conversation_id":"c1"}`})
	if !ok {
		t.Fatal("expected event")
	}
	title, isTitle := event.(TitleEvent)
	if !isTitle {
		t.Fatalf("expected TitleEvent, got %T", event)
	}
	if title.Title != "Trip plans" || title.ConversationID != "c1" {
		t.Errorf("unexpected title event: %+v", title)
	}
}

func TestDecode_LabeledDone(t *testing.T) {
	event, ok := Decode(Frame{Event: "done", Data: `{"conversation_id":"c9"}`})
	if !ok {
		t.Fatal("expected event")
	}
	done, isDone := event.(DoneEvent)
	if !isDone {
		t.Fatalf("expected DoneEvent, got %T", event)
	}
	if done.ConversationID != "c9" {
		t.Errorf("expected conversation id c9, got %q", done.ConversationID)
	}
}

func TestDecode_LabeledToolApproval(t *testing.T) {
	data := `{"tool_name":"web_search","tool_args":{"query":"weather"},"tool_call_id":"tc1","conversation_id":"c1"}`
	event, ok := Decode(Frame{Event: "tool_approval", Data: data})
	if !ok {
		t.Fatal("expected event")
	}
	approval, isApproval := event.(ToolApprovalEvent)
	if !isApproval {
		t.Fatalf("expected ToolApprovalEvent, got %T", event)
	}
	if approval.Approval.ToolName != "web_search" {
		t.Errorf("expected tool name web_search, got %q", approval.Approval.ToolName)
	}
	if approval.Approval.ToolArgs["query"] != "weather" {
		t.Errorf("unexpected tool args: %v", approval.Approval.ToolArgs)
	}
	if approval.Approval.ToolCallID != "tc1" || approval.Approval.ConversationID != "c1" {
		t.Errorf("unexpected approval: %+v", approval.Approval)
	}
}

func TestDecode_LabeledSources(t *testing.T) {
	data := `{"sources":[{"content":"snippet","source":"doc.pdf","score":0.92}],"conversation_id":"c1"}`
	event, ok := Decode(Frame{Event: "sources", Data: data})
	if !ok {
		t.Fatal("expected event")
	}
	src, isSources := event.(SourcesEvent)
	if !isSources {
		t.Fatalf("expected SourcesEvent, got %T", event)
	}
	if len(src.Sources) != 1 || src.Sources[0].Source != "doc.pdf" {
		t.Errorf("unexpected sources: %+v", src.Sources)
	}
}

func TestDecode_LabeledGuardrailBlock(t *testing.T) {
	event, ok := Decode(Frame{Event: "guardrail_block", Data: `{"message":"blocked by policy","conversation_id":"c1"}`})
	if !ok {
		t.Fatal("expected event")
	}
	block, isBlock := event.(GuardrailBlockEvent)
	if !isBlock {
		t.Fatalf("expected GuardrailBlockEvent, got %T", event)
	}
	if block.Message != "blocked by policy" {
		t.Errorf("unexpected message: %q", block.Message)
	}
}

func TestDecode_MalformedLabeledBecomesError(t *testing.T) {
	event, ok := Decode(Frame{Event: "token", Data: `{"token":`})
	if !ok {
		t.Fatal("expected event")
	}
	if _, isErr := event.(ErrorEvent); !isErr {
		t.Fatalf("expected ErrorEvent for malformed labeled frame, got %T", event)
	}
}

func TestDecode_InferToken(t *testing.T) {
	event, ok := Decode(Frame{Data: `{"token":"t"}`})
	if !ok {
		t.Fatal("expected event")
	}
	if tok, isToken := event.(TokenEvent); !isToken || tok.Delta != "t" {
		t.Fatalf("expected inferred TokenEvent, got %T %+v", event, event)
	}
}

func TestDecode_InferTokenWinsOverConversationID(t *testing.T) {
	event, ok := Decode(Frame{Data: `{"token":"t","conversation_id":"c1"}`})
	if !ok {
		t.Fatal("expected event")
	}
	if _, isToken := event.(TokenEvent); !isToken {
		t.Fatalf("token field should win inference, got %T", event)
	}
}

func TestDecode_InferError(t *testing.T) {
	event, ok := Decode(Frame{Data: `{"error":"model overloaded"}`})
	if !ok {
		t.Fatal("expected event")
	}
	errEvent, isErr := event.(ErrorEvent)
	if !isErr {
		t.Fatalf("expected ErrorEvent, got %T", event)
	}
	if errEvent.Message != "model overloaded" {
		t.Errorf("unexpected message: %q", errEvent.Message)
	}
}

func TestDecode_InferDoneFromBareConversationID(t *testing.T) {
	event, ok := Decode(Frame{Data: `{"conversation_id":"c2"}`})
	if !ok {
		t.Fatal("expected event")
	}
	done, isDone := event.(DoneEvent)
	if !isDone {
		t.Fatalf("expected DoneEvent, got %T", event)
	}
	if done.ConversationID != "c2" {
		t.Errorf("expected conversation id c2, got %q", done.ConversationID)
	}
}

func TestDecode_DoneNotInferredNextToOtherFields(t *testing.T) {
	// A conversation id alongside any other recognized field is not a
	// done frame; inferring done there would end the stream mid-reply.
	cases := []Frame{
		{Data: `{"title":"Weather chat","conversation_id":"c3"}`},
		{Data: `{"message":"blocked","conversation_id":"c3"}`},
		{Data: `{"sources":[],"conversation_id":"c3"}`},
		{Data: `{"tool_name":"shell","conversation_id":"c3"}`},
	}
	for _, frame := range cases {
		if event, ok := Decode(frame); ok {
			t.Errorf("frame %+v should be dropped, decoded to %T", frame, event)
		}
	}
}

func TestDecode_UnmatchedDropped(t *testing.T) {
	cases := []Frame{
		{Data: `{"unrelated":"field"}`},
		{Data: `not json at all`},
		{Event: "mystery", Data: `{"token":"x"}`},
		{},
	}
	for _, frame := range cases {
		if event, ok := Decode(frame); ok {
			t.Errorf("frame %+v should be dropped, decoded to %T", frame, event)
		}
	}
}

func TestDecode_EmptyTokenDeltaPreserved(t *testing.T) {
	event, ok := Decode(Frame{Event: "token", Data: `{"token":""}`})
	if !ok {
		t.Fatal("labeled empty token is still a token event")
	}
	if tok := event.(TokenEvent); tok.Delta != "" {
		t.Errorf("expected empty delta, got %q", tok.Delta)
	}
}
