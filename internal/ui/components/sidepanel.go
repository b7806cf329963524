// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/parley-tui/internal/storage"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// CONVERSATION SIDE PANEL
// =============================================================================

// SidePanel lists cached conversations next to the main chat view. It is
// a second session instance: selecting an entry loads that conversation
// without disturbing the main page until the user switches.
type SidePanel struct {
	theme    *styles.Theme
	width    int
	height   int
	items    []storage.ConversationMeta
	selected int
}

// NewSidePanel creates an empty panel.
func NewSidePanel(theme *styles.Theme, width int) *SidePanel {
	return &SidePanel{theme: theme, width: width}
}

// SetSize updates panel dimensions.
func (p *SidePanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetItems replaces the conversation list, clamping the selection.
func (p *SidePanel) SetItems(items []storage.ConversationMeta) {
	p.items = items
	if p.selected >= len(items) {
		p.selected = len(items) - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}
}

// Selected returns the highlighted conversation, or nil when empty.
func (p *SidePanel) Selected() *storage.ConversationMeta {
	if len(p.items) == 0 {
		return nil
	}
	return &p.items[p.selected]
}

// MoveUp moves the selection toward newer conversations.
func (p *SidePanel) MoveUp() {
	if p.selected > 0 {
		p.selected--
	}
}

// MoveDown moves the selection toward older conversations.
func (p *SidePanel) MoveDown() {
	if p.selected < len(p.items)-1 {
		p.selected++
	}
}

// View renders the panel.
func (p *SidePanel) View() string {
	var b strings.Builder
	b.WriteString(p.theme.PanelTitle.Render("Conversations"))
	b.WriteString("\n\n")

	if len(p.items) == 0 {
		b.WriteString(p.theme.PanelItem.Render("No cached conversations"))
		return p.theme.Panel.Render(b.String())
	}

	inner := p.width - 4
	if inner < 8 {
		inner = 8
	}
	for i, item := range p.items {
		title := item.Title
		if title == "" {
			title = item.ID
		}
		line := TruncateWidth(title, inner)
		if i == p.selected {
			b.WriteString(p.theme.PanelSelected.Render(line))
		} else {
			b.WriteString(p.theme.PanelItem.Render(line))
		}
		if i < len(p.items)-1 {
			b.WriteString("\n")
		}
	}
	return p.theme.Panel.Render(b.String())
}
