// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageBody    lipgloss.Style
	SourceRef      lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusReady  lipgloss.Style
	StatusBusy   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// APPROVAL PROMPT STYLES
	// ==========================================================================

	ApprovalBox    lipgloss.Style
	ApprovalTitle  lipgloss.Style
	ApprovalDetail lipgloss.Style
	ApprovalKeys   lipgloss.Style

	// ==========================================================================
	// SIDE PANEL STYLES
	// ==========================================================================

	Panel         lipgloss.Style
	PanelTitle    lipgloss.Style
	PanelItem     lipgloss.Style
	PanelSelected lipgloss.Style

	// ==========================================================================
	// FEEDBACK STYLES
	// ==========================================================================

	ErrorBox   lipgloss.Style
	ErrorTitle lipgloss.Style
	Spinner    lipgloss.Style
	Thinking   lipgloss.Style
}

// NewTheme builds the theme for the detected terminal.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.MessageBody = lipgloss.NewStyle().
		Foreground(Text)
	t.SourceRef = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextFaint)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextMuted).
		Padding(0, 1)
	t.StatusReady = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.StatusBusy = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextFaint)

	t.ApprovalBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(0, 1)
	t.ApprovalTitle = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.ApprovalDetail = lipgloss.NewStyle().
		Foreground(Text)
	t.ApprovalKeys = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Panel = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(Border).
		Padding(0, 1)
	t.PanelTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.PanelItem = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.PanelSelected = lipgloss.NewStyle().
		Foreground(Text).
		Background(SurfaceBright)

	t.ErrorBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)
	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
	t.Thinking = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	return t
}
