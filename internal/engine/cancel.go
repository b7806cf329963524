// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL REGISTRY (THREAD-SAFE)
// =============================================================================

// cancelRegistry tracks one cancel function per instance id with mutex
// protection. Cancel functions are stored from the goroutine running the
// stream and invoked from the UI loop, so every access is synchronized.
type cancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{cancels: make(map[string]context.CancelFunc)}
}

// set stores the cancel function for an instance, cancelling any stream
// it was already running so a session never has two live streams.
func (r *cancelRegistry) set(instanceID string, fn context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.cancels[instanceID]; ok && prev != nil {
		prev()
	}
	r.cancels[instanceID] = fn
}

// cancel invokes and clears the instance's cancel function. Safe to call
// when nothing is running.
func (r *cancelRegistry) cancel(instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn, ok := r.cancels[instanceID]; ok && fn != nil {
		fn()
		delete(r.cancels, instanceID)
	}
}

// clear cancels the context if present and removes the entry. Always
// cancelling prevents context leaks when a stream settles on its own.
func (r *cancelRegistry) clear(instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn, ok := r.cancels[instanceID]; ok && fn != nil {
		fn()
		delete(r.cancels, instanceID)
	}
}
