// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/session"
	"github.com/jeranaias/parley-tui/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen.
func (m Model) View() string {
	if !m.ready {
		return "starting parley..."
	}

	snap := m.pageSnapshot()

	var b strings.Builder
	b.WriteString(m.renderHeader(snap))
	b.WriteString("\n")

	main := m.viewport.View()
	if m.showPanel {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, m.panel.View())
	}
	b.WriteString(main)
	b.WriteString("\n")

	if snap.State() == session.StateApprovalPending {
		b.WriteString(m.renderApprovalPrompt(snap))
		b.WriteString("\n")
	}

	if snap.Err != nil {
		b.WriteString(m.renderError(snap.Err))
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Width(m.viewport.Width).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar(snap))

	return b.String()
}

// renderHeader shows the brand and the bound conversation.
func (m Model) renderHeader(snap session.Session) string {
	title := m.theme.HeaderTitle.Render("parley")

	meta := "new conversation"
	if snap.ConversationID != "" {
		meta = components.TruncateWidth(snap.ConversationID, 24)
	}
	if m.cfg.Chat.DefaultModel != "" {
		meta += " · " + m.cfg.Chat.DefaultModel
	}

	return m.theme.Header.Width(m.width).Render(
		title + "  " + m.theme.HeaderMeta.Render(meta),
	)
}

// renderApprovalPrompt asks the user to decide a pending tool call.
func (m Model) renderApprovalPrompt(snap session.Session) string {
	approval := snap.PendingToolApproval
	if approval == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.ApprovalTitle.Render("Tool approval required"))
	b.WriteString("\n")
	b.WriteString(m.theme.ApprovalDetail.Render(
		fmt.Sprintf("The assistant wants to run %q", approval.ToolName),
	))
	if approval.ToolDescription != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.ApprovalDetail.Render(approval.ToolDescription))
	}
	if len(approval.ToolArgs) > 0 {
		b.WriteString("\n")
		b.WriteString(m.theme.ApprovalDetail.Render(formatToolArgs(approval.ToolArgs)))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.ApprovalKeys.Render("y approve · n reject"))

	return m.theme.ApprovalBox.Width(m.viewport.Width).Render(b.String())
}

// renderError shows the last failure for this instance.
func (m Model) renderError(err error) string {
	body := m.theme.ErrorTitle.Render("Error") + "\n" + err.Error()
	return m.theme.ErrorBox.Width(m.viewport.Width).Render(body)
}

// renderStatusBar shows state, transient notices, and shortcuts.
func (m Model) renderStatusBar(snap session.Session) string {
	var state string
	switch snap.State() {
	case session.StateStreaming:
		state = m.theme.StatusBusy.Render(m.spin.View() + " streaming")
	case session.StateApprovalPending:
		state = m.theme.StatusBusy.Render("awaiting approval")
	case session.StateErrored:
		state = m.theme.StatusBusy.Render("error")
	default:
		state = m.theme.StatusReady.Render("ready")
	}

	var parts []string
	parts = append(parts, state)
	if m.statusMsg != "" {
		parts = append(parts, m.statusMsg)
	}
	for _, binding := range m.keyMap.ShortHelp() {
		parts = append(parts,
			m.theme.ShortcutKey.Render(binding.Help().Key)+" "+
				m.theme.ShortcutDesc.Render(binding.Help().Desc))
	}

	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// formatToolArgs flattens tool arguments for the approval prompt.
func formatToolArgs(args map[string]any) string {
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return components.TruncateWidth(strings.Join(parts, " "), 76)
}
