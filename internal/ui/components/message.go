// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// MessageRenderer turns chat messages into styled terminal text.
type MessageRenderer struct {
	theme *styles.Theme
	width int

	// RenderMarkdown converts assistant markdown to ANSI text. Nil means
	// plain rendering with highlighted code fences only.
	RenderMarkdown func(string) (string, error)
}

// NewMessageRenderer creates a renderer for the given theme and width.
func NewMessageRenderer(theme *styles.Theme, width int) *MessageRenderer {
	return &MessageRenderer{theme: theme, width: width}
}

// SetWidth updates the wrap width on terminal resize.
func (r *MessageRenderer) SetWidth(width int) {
	if width > 0 {
		r.width = width
	}
}

// Render returns the styled form of one message.
func (r *MessageRenderer) Render(m *model.ChatMessage) string {
	var b strings.Builder

	label := r.theme.AssistantLabel
	if m.Role == model.RoleUser {
		label = r.theme.UserLabel
	}
	b.WriteString(label.Render(m.Role.DisplayName()))
	b.WriteString("  ")
	b.WriteString(r.theme.Timestamp.Render(m.Timestamp.Format("15:04")))
	b.WriteString("\n")

	content := m.GetDisplayContent()
	body := content
	if m.Role == model.RoleAssistant && !m.IsStreaming && r.RenderMarkdown != nil {
		if rendered, err := r.RenderMarkdown(content); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	} else {
		body = ParseCodeBlocks(content, r.width)
	}
	b.WriteString(r.theme.MessageBody.Render(body))

	if m.IsStreaming {
		b.WriteString(r.theme.Spinner.Render("▌"))
	}

	if len(m.Sources) > 0 {
		b.WriteString("\n")
		b.WriteString(r.renderSources(m.Sources))
	}

	return b.String()
}

// RenderAll renders the full transcript separated by blank lines.
func (r *MessageRenderer) RenderAll(messages []*model.ChatMessage) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.IsEmpty() && !m.IsStreaming {
			continue
		}
		parts = append(parts, r.Render(m))
	}
	return strings.Join(parts, "\n\n")
}

// renderSources lists retrieval citations under an assistant message.
func (r *MessageRenderer) renderSources(sources []model.Source) string {
	var b strings.Builder
	for i, src := range sources {
		line := fmt.Sprintf("[%d] %s", i+1, src.Source)
		if src.Score > 0 {
			line += fmt.Sprintf(" (%.0f%%)", src.Score*100)
		}
		b.WriteString(r.theme.SourceRef.Render(TruncateWidth(line, r.width)))
		if i < len(sources)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// =============================================================================
// WIDTH HELPERS
// =============================================================================

// TruncateWidth shortens s to fit maxWidth terminal cells, appending an
// ellipsis when it had to cut.
func TruncateWidth(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth-1, "") + "…"
}
