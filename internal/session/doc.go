// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds per-instance chat state and keeps sibling
// instances that display the same conversation in sync.
//
// Each UI surface (the main page, a side panel) owns one Session in the
// Store, keyed by an instance id the caller chooses. Sessions sharing a
// conversation id form a sibling group: message-list and streaming-flag
// writes fan out across the group, while errors stay local to the
// instance that hit them.
package session
