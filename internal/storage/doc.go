// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage caches conversation transcripts locally in SQLite so
// past exchanges survive restarts and can be browsed offline.
package storage
