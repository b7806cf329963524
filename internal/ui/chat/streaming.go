// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the parley TUI.
//
// This file implements render throttling for smooth, flicker-free
// output during response streaming. Tokens land in the session store as
// fast as they arrive; the FrameLimiter caps how often the viewport
// re-renders from it, balancing responsiveness with CPU efficiency.
package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// FRAME LIMITER
// =============================================================================

// FrameLimiter caps viewport re-renders at a fixed frame rate.
//
// Without a cap a fast model can push hundreds of store writes per
// second, and re-rendering the transcript for each one causes flicker
// and high CPU usage. 30fps is smooth but not wasteful.
//
// Thread-safety: guarded by a mutex since ticks arrive on the Bubble
// Tea loop while tests may probe from other goroutines.
type FrameLimiter struct {
	mu          sync.Mutex
	lastRender  time.Time
	minInterval time.Duration
}

// NewFrameLimiter creates a limiter capped at maxFPS frames per second.
func NewFrameLimiter(maxFPS int) *FrameLimiter {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = 30
	}
	return &FrameLimiter{
		minInterval: time.Second / time.Duration(maxFPS),
	}
}

// Allow reports whether enough time has passed for another render, and
// if so starts the next frame window.
func (f *FrameLimiter) Allow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if now.Sub(f.lastRender) < f.minInterval {
		return false
	}
	f.lastRender = now
	return true
}

// Reset forces the next Allow to succeed, for the final frame after a
// stream settles.
func (f *FrameLimiter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRender = time.Time{}
}

// Interval returns the frame window, used to schedule ticks.
func (f *FrameLimiter) Interval() time.Duration {
	return f.minInterval
}

// frameTick schedules the next streaming refresh.
func frameTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}
