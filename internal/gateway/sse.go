// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// =============================================================================
// FRAME READER
// =============================================================================

// Frame is one delimited unit of the event stream before decoding: an
// optional "event:" label and the raw JSON payload from its "data:" lines.
type Frame struct {
	Event string
	Data  string
}

// IsEmpty reports whether the frame carries neither a label nor a payload.
// Comment-only keep-alive frames come through like this.
func (f Frame) IsEmpty() bool {
	return f.Event == "" && f.Data == ""
}

// FrameReader splits a streaming response body into frames.
//
// It is lazy, finite, and non-restartable: each call to Next consumes input
// until one complete frame (terminated by a blank line) has been buffered.
// A frame split across multiple reads is buffered until its terminator
// arrives; if the stream closes mid-frame the tail is surfaced as a final
// frame before io.EOF.
type FrameReader struct {
	reader *bufio.Reader
}

// NewFrameReader creates a frame reader over an io.Reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{reader: bufio.NewReader(r)}
}

// Next reads and returns the next frame.
//
// Returns io.EOF once the stream is exhausted, and ctx.Err() if the context
// is cancelled. Cancellation is checked before every line read, i.e. at each
// suspension point, never mid-frame assembly of already-buffered input.
func (r *FrameReader) Next(ctx context.Context) (Frame, error) {
	var frame Frame
	var data []string
	sawField := false

	for {
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		default:
		}

		line, err := r.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Surface the tail buffer if the stream closed without
				// a final delimiter.
				line = strings.TrimRight(line, "\r\n")
				if consumed := r.consumeLine(line, &frame, &data); consumed {
					sawField = true
				}
				if sawField {
					frame.Data = strings.Join(data, "\n")
					return frame, nil
				}
				return Frame{}, io.EOF
			}
			return Frame{}, &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}

		line = strings.TrimRight(line, "\r\n")

		// Blank line terminates the frame.
		if line == "" {
			if !sawField {
				// Leading blank lines between frames.
				continue
			}
			frame.Data = strings.Join(data, "\n")
			return frame, nil
		}

		if r.consumeLine(line, &frame, &data) {
			sawField = true
		}
	}
}

// consumeLine folds one field line into the frame under construction.
// Returns false for comment lines and anything unrecognized.
func (r *FrameReader) consumeLine(line string, frame *Frame, data *[]string) bool {
	switch {
	case line == "":
		return false
	case strings.HasPrefix(line, ":"):
		// Comment / keep-alive line.
		return false
	case strings.HasPrefix(line, "event:"):
		frame.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		return true
	case strings.HasPrefix(line, "data:"):
		*data = append(*data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		return true
	default:
		// Unknown field names are tolerated but contribute nothing.
		return false
	}
}
