// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable rendering pieces for the parley
// TUI: message bubbles, highlighted code blocks, and the side panel.
package components
