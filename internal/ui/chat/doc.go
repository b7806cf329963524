// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the parley TUI.
//
// The view owns two session instances: "page", the main transcript, and
// "panel", the conversation side panel. Both render from the shared
// session store, so writes to a conversation they both display appear
// in each at the same time.
package chat
