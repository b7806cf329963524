// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP client for the chat platform's streaming
// endpoints.
//
// A chat or resume request opens one long-lived response whose body is a
// sequence of server-sent event frames. The package splits the body into
// frames (FrameReader), decodes each frame into exactly zero or one typed
// event (Decode), and exposes the whole interaction as a single-pass,
// cancellable event sequence (EventStream).
package gateway
