// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}

	if theme.HeaderTitle.Render("parley") == "" {
		t.Error("styled text should not render empty")
	}
	if theme.ApprovalTitle.Render("Tool approval required") == "" {
		t.Error("approval title should not render empty")
	}
}
