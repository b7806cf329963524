// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine drives chat exchanges end to end: it opens gateway
// streams, applies each decoded event to the session store, and exposes
// cooperative per-instance cancellation.
//
// One Engine serves every UI instance. SendMessage and Resume block
// until their stream settles (done, error, approval pause, or cancel),
// so callers run them from their own goroutine and render from store
// snapshots.
package engine
