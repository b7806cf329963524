// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/parley-tui/internal/gateway"
	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/session"
)

// =============================================================================
// ERRORS
// =============================================================================

// timeNow is swapped in tests that assert on rejection timestamps.
var timeNow = time.Now

// ErrBusy is returned when an instance already has a stream in flight.
var ErrBusy = errors.New("a response is already streaming for this instance")

// ErrNoPendingApproval is returned when Resume is called with nothing to
// decide.
var ErrNoPendingApproval = errors.New("no tool approval is pending for this instance")

// StreamError is a failure the server reported inside the stream, as
// opposed to a transport failure opening it.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}

// =============================================================================
// ENGINE
// =============================================================================

// Options configures an Engine.
type Options struct {
	// DefaultModel is sent when a message names no model.
	DefaultModel string

	// OnTitle is called when the server assigns a conversation title.
	// Optional; may be nil.
	OnTitle func(conversationID, title string)
}

// Engine runs chat exchanges against the gateway and writes every state
// transition into the session store.
type Engine struct {
	client  *gateway.Client
	store   *session.Store
	opts    Options
	cancels *cancelRegistry
}

// New creates an engine over a gateway client and a session store.
func New(client *gateway.Client, store *session.Store, opts Options) *Engine {
	return &Engine{
		client:  client,
		store:   store,
		opts:    opts,
		cancels: newCancelRegistry(),
	}
}

// Store exposes the session store for render-side snapshots.
func (e *Engine) Store() *session.Store {
	return e.store
}

// =============================================================================
// SENDING
// =============================================================================

// SendMessage submits user text on behalf of an instance and consumes
// the response stream to completion. It blocks until the stream settles:
// done, server error, tool-approval pause, or cancellation.
//
// Outbound text is NFC-normalized so composed and decomposed input
// produce the same transcript bytes.
func (e *Engine) SendMessage(ctx context.Context, instanceID, text string, mediaIDs []string) error {
	snap := e.store.Snapshot(instanceID)
	if snap.IsStreaming || snap.PendingToolApproval != nil {
		// A paused exchange still owns the instance; the pending tool
		// call has to be decided before a new message goes out.
		return ErrBusy
	}

	text = norm.NFC.String(text)

	userMsg := model.NewUserMessage(text)
	userMsg.Media = mediaRefs(mediaIDs)
	e.store.AddMessage(instanceID, userMsg)
	e.store.SetError(instanceID, nil)

	assistant := model.NewAssistantMessage()
	e.store.AddMessage(instanceID, assistant)
	e.store.SetStreaming(instanceID, true)

	streamCtx, cancel := context.WithCancel(ctx)
	e.cancels.set(instanceID, cancel)
	defer e.cancels.clear(instanceID)

	stream, err := e.client.OpenChatStream(streamCtx, gateway.ChatRequest{
		Message:        text,
		ConversationID: snap.ConversationID,
		MediaIDs:       mediaIDs,
		Model:          e.opts.DefaultModel,
	})
	if err != nil {
		return e.failExchange(instanceID, assistant.ID, err)
	}
	defer stream.Close()

	return e.consume(streamCtx, instanceID, assistant.ID, stream)
}

// Resume answers a pending tool approval and consumes the resumed
// stream. Rejection records the declined call before resuming, so the
// transcript can show what the model was not allowed to do.
func (e *Engine) Resume(ctx context.Context, instanceID string, approved bool) error {
	snap := e.store.Snapshot(instanceID)
	approval := snap.PendingToolApproval
	if approval == nil {
		return ErrNoPendingApproval
	}

	if approved {
		e.store.SetRejectedToolCall(instanceID, nil)
	} else {
		e.store.SetRejectedToolCall(instanceID, approval.Reject(timeNow()))
	}
	e.store.SetPendingToolApproval(instanceID, nil)

	assistant := snap.LastMessage()
	if assistant == nil || assistant.Role != model.RoleAssistant {
		assistant = model.NewAssistantMessage()
		e.store.AddMessage(instanceID, assistant)
	} else {
		// The approval pause finalized this message; re-open it so the
		// resumed stream appends to the same reply.
		reopen := true
		e.store.UpdateMessage(instanceID, assistant.ID, model.MessageUpdate{IsStreaming: &reopen})
	}
	e.store.SetStreaming(instanceID, true)

	streamCtx, cancel := context.WithCancel(ctx)
	e.cancels.set(instanceID, cancel)
	defer e.cancels.clear(instanceID)

	stream, err := e.client.OpenResumeStream(streamCtx, gateway.ResumeRequest{
		ConversationID: approval.ConversationID,
		Approved:       approved,
	})
	if err != nil {
		return e.failExchange(instanceID, assistant.ID, err)
	}
	defer stream.Close()

	return e.consume(streamCtx, instanceID, assistant.ID, stream)
}

// Cancel stops the instance's in-flight stream, if any. Tokens already
// applied stay in the transcript; cancellation never rolls content back.
func (e *Engine) Cancel(instanceID string) {
	e.cancels.cancel(instanceID)
}

// =============================================================================
// EVENT CONSUMPTION
// =============================================================================

// consume applies stream events to the store until the stream settles.
func (e *Engine) consume(ctx context.Context, instanceID, assistantID string, stream *gateway.EventStream) error {
	for {
		event, err := stream.Recv(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				// Stream ended without an explicit done event. Treat as
				// complete; the partial message stands.
				e.settleExchange(instanceID, assistantID)
				return nil
			case gateway.IsCanceled(err):
				e.settleExchange(instanceID, assistantID)
				return nil
			default:
				return e.failExchange(instanceID, assistantID, err)
			}
		}

		switch ev := event.(type) {
		case gateway.TokenEvent:
			e.store.AppendToMessage(instanceID, assistantID, ev.Delta)

		case gateway.SourcesEvent:
			e.store.UpdateMessage(instanceID, assistantID, model.MessageUpdate{Sources: ev.Sources})
			e.bindConversation(instanceID, ev.ConversationID)

		case gateway.TitleEvent:
			e.bindConversation(instanceID, ev.ConversationID)
			if e.opts.OnTitle != nil && ev.Title != "" {
				e.opts.OnTitle(ev.ConversationID, ev.Title)
			}

		case gateway.ToolApprovalEvent:
			approval := ev.Approval
			e.bindConversation(instanceID, approval.ConversationID)
			// Park the call and settle this stream: a paused exchange is
			// not a streaming one. A pending approval and an active
			// stream never hold at the same time; Resume re-opens the
			// assistant message when the user decides.
			e.store.SetPendingToolApproval(instanceID, &approval)
			e.settleExchange(instanceID, assistantID)
			return nil

		case gateway.GuardrailBlockEvent:
			e.bindConversation(instanceID, ev.ConversationID)
			e.store.AppendToMessage(instanceID, assistantID, ev.Message)
			e.settleExchange(instanceID, assistantID)
			return nil

		case gateway.ErrorEvent:
			return e.failExchange(instanceID, assistantID, &StreamError{Message: ev.Message})

		case gateway.DoneEvent:
			e.bindConversation(instanceID, ev.ConversationID)
			e.settleExchange(instanceID, assistantID)
			return nil
		}
	}
}

// bindConversation records a server-assigned conversation id the first
// time one arrives.
func (e *Engine) bindConversation(instanceID, conversationID string) {
	if conversationID == "" {
		return
	}
	if snap := e.store.Snapshot(instanceID); snap.ConversationID == conversationID {
		return
	}
	e.store.SetConversationID(instanceID, conversationID)
}

// settleExchange finalizes the open assistant message and drops the
// streaming flag.
func (e *Engine) settleExchange(instanceID, assistantID string) {
	streaming := false
	e.store.UpdateMessage(instanceID, assistantID, model.MessageUpdate{IsStreaming: &streaming})
	e.store.SetStreaming(instanceID, false)
}

// failExchange settles the message, records the error on this instance
// only, and passes the error up.
func (e *Engine) failExchange(instanceID, assistantID string, err error) error {
	e.settleExchange(instanceID, assistantID)
	e.store.SetError(instanceID, err)
	return err
}

// mediaRefs wraps raw upload ids as attachments on the outgoing message.
func mediaRefs(ids []string) []model.MediaAttachment {
	if len(ids) == 0 {
		return nil
	}
	out := make([]model.MediaAttachment, len(ids))
	for i, id := range ids {
		out[i] = model.MediaAttachment{ID: id}
	}
	return out
}
