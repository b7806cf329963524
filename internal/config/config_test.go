// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Gateway.BaseURL == "" {
		t.Error("default gateway URL should not be empty")
	}
	if cfg.Gateway.StreamTimeoutSecs != 10 {
		t.Errorf("expected stream timeout 10, got %d", cfg.Gateway.StreamTimeoutSecs)
	}
	if !cfg.Storage.Enabled {
		t.Error("storage should be enabled by default")
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("expected dark theme default, got %q", cfg.UI.Theme)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveAndLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Gateway.BaseURL = "https://chat.example.com"
	cfg.Gateway.Token = "secret"
	cfg.Gateway.OrganizationID = "org42"
	cfg.Chat.DefaultModel = "sonnet"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Gateway.BaseURL != "https://chat.example.com" {
		t.Errorf("unexpected base URL: %q", loaded.Gateway.BaseURL)
	}
	if loaded.Gateway.Token != "secret" {
		t.Errorf("token did not round-trip: %q", loaded.Gateway.Token)
	}
	if loaded.Gateway.OrganizationID != "org42" {
		t.Errorf("organization id did not round-trip: %q", loaded.Gateway.OrganizationID)
	}
	if loaded.Chat.DefaultModel != "sonnet" {
		t.Errorf("model did not round-trip: %q", loaded.Chat.DefaultModel)
	}
}

func TestSaveAndLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Gateway.TeamID = "team7"
	if err := SaveJSON(cfg, path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Gateway.TeamID != "team7" {
		t.Errorf("team id did not round-trip: %q", loaded.Gateway.TeamID)
	}
}

func TestSavedFileHasPrivatePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("config file is group/world accessible: %v", perm)
	}
}

func TestLoadFromPath_UnsupportedExtension(t *testing.T) {
	if _, err := LoadFromPath("/tmp/config.yaml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Gateway.BaseURL = "" }},
		{"bad scheme", func(c *Config) { c.Gateway.BaseURL = "ftp://example.com" }},
		{"negative timeout", func(c *Config) { c.Gateway.StreamTimeoutSecs = -1 }},
		{"negative rate", func(c *Config) { c.Gateway.SendsPerSecond = -0.5 }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Gateway.BaseURL == "" {
		t.Error("base URL should be defaulted")
	}
	if cfg.Gateway.StreamTimeoutSecs == 0 {
		t.Error("stream timeout should be defaulted")
	}
}

func TestSetDefaults_TrimsTrailingSlash(t *testing.T) {
	cfg := Default()
	cfg.Gateway.BaseURL = "https://chat.example.com/"
	cfg.SetDefaults()

	if cfg.Gateway.BaseURL != "https://chat.example.com" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.Gateway.BaseURL)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PARLEY_GATEWAY_URL", "https://env.example.com")
	t.Setenv("PARLEY_TOKEN", "env-token")
	t.Setenv("PARLEY_ORG_ID", "env-org")
	t.Setenv("PARLEY_MODEL", "haiku")
	t.Setenv("PARLEY_NO_STORAGE", "1")
	t.Setenv("PARLEY_DEBUG", "true")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Gateway.BaseURL != "https://env.example.com" {
		t.Errorf("unexpected base URL: %q", cfg.Gateway.BaseURL)
	}
	if cfg.Gateway.Token != "env-token" {
		t.Errorf("unexpected token: %q", cfg.Gateway.Token)
	}
	if cfg.Gateway.OrganizationID != "env-org" {
		t.Errorf("unexpected org id: %q", cfg.Gateway.OrganizationID)
	}
	if cfg.Chat.DefaultModel != "haiku" {
		t.Errorf("unexpected model: %q", cfg.Chat.DefaultModel)
	}
	if cfg.Storage.Enabled {
		t.Error("PARLEY_NO_STORAGE=1 should disable storage")
	}
	if !cfg.Debug {
		t.Error("PARLEY_DEBUG=true should enable debug logging")
	}
}

func TestGlobalSetAndReset(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	cfg := Default()
	cfg.Gateway.OrganizationID = "global-org"
	SetGlobal(cfg)

	if Global().Gateway.OrganizationID != "global-org" {
		t.Error("SetGlobal should replace the global instance")
	}
}
