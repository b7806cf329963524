// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sort"
	"sync"

	"github.com/jeranaias/parley-tui/internal/model"
)

// =============================================================================
// SESSION STORE
// =============================================================================

// Store is the registry of live sessions, keyed by instance id.
//
// All mutation goes through the Store so the conversation fan-out rules
// apply uniformly: writes to the message list and the streaming flag
// propagate to every session bound to the same conversation, everything
// else stays local. Writers are not ordered beyond the mutex, so when
// two instances race on the same conversation the last writer wins.
//
// The Store is thread-safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// get returns the live session for id, creating a default one on first
// touch. Callers must hold s.mu.
func (s *Store) get(id string) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{}
		s.sessions[id] = sess
	}
	return sess
}

// siblings returns every live session bound to the given conversation,
// including the writer. Callers must hold s.mu.
func (s *Store) siblings(conversationID string) []*Session {
	if conversationID == "" {
		return nil
	}
	var out []*Session
	for _, sess := range s.sessions {
		if sess.ConversationID == conversationID {
			out = append(out, sess)
		}
	}
	return out
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Snapshot returns a copy of the session for id. First access yields a
// default idle session.
func (s *Store) Snapshot(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.get(id).clone()
}

// Instances returns the registered instance ids in stable order.
func (s *Store) Instances() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// SetMessages replaces the transcript for id and fans the new transcript
// out to every sibling session on the same conversation.
func (s *Store) SetMessages(id string, messages []*model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(id)
	sess.Messages = messages
	for _, sib := range s.siblings(sess.ConversationID) {
		sib.Messages = messages
	}
}

// SyncConversation replaces the transcript of every session bound to the
// given conversation, regardless of which instance (if any) originated
// the messages. Unbound sessions and other conversations are untouched.
func (s *Store) SyncConversation(conversationID string, messages []*model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sib := range s.siblings(conversationID) {
		sib.Messages = messages
	}
}

// AddMessage appends one message to the transcript for id.
func (s *Store) AddMessage(id string, message *model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	sess.Messages = append(sess.Messages, message)
}

// UpdateMessage applies a partial update to the message with messageID.
// Missing messages are a no-op: a stale update after ClearSession must
// not resurrect anything.
func (s *Store) UpdateMessage(id, messageID string, update model.MessageUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.get(id).MessageByID(messageID); m != nil {
		update.Apply(m)
	}
}

// AppendToMessage streams one token delta into the message with messageID.
func (s *Store) AppendToMessage(id, messageID, delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.get(id).MessageByID(messageID); m != nil {
		m.AppendToken(delta)
	}
}

// RemoveMessage deletes the message with messageID from the transcript.
func (s *Store) RemoveMessage(id, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(id)
	for i, m := range sess.Messages {
		if m.ID == messageID {
			sess.Messages = append(sess.Messages[:i], sess.Messages[i+1:]...)
			return
		}
	}
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

// SetStreaming flips the streaming flag for id and fans it out to every
// sibling session on the same conversation.
func (s *Store) SetStreaming(id string, streaming bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(id)
	sess.IsStreaming = streaming
	for _, sib := range s.siblings(sess.ConversationID) {
		sib.IsStreaming = streaming
	}
}

// SetError records a failure on the named session only. Errors never
// propagate to siblings.
func (s *Store) SetError(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).Err = err
}

// SetConversationID binds the session to a server conversation. Sessions
// start unbound and join a sibling group the moment the server assigns
// the id.
func (s *Store) SetConversationID(id, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).ConversationID = conversationID
}

// =============================================================================
// TOOL APPROVAL
// =============================================================================

// SetPendingToolApproval parks a tool call awaiting the user's decision.
// Passing nil clears the pending call.
func (s *Store) SetPendingToolApproval(id string, approval *model.ToolApproval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).PendingToolApproval = approval
}

// SetRejectedToolCall records a declined tool call. Passing nil clears
// it. Callers manage the pending/rejected pair themselves: rejecting
// moves the approval here, approving just clears the pending slot.
func (s *Store) SetRejectedToolCall(id string, rejected *model.RejectedToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).RejectedToolCall = rejected
}

// =============================================================================
// RESET
// =============================================================================

// ClearSession resets the session for id back to the default idle state.
// Siblings are untouched; clearing one panel must not blank the page
// next to it.
func (s *Store) ClearSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &Session{}
}
