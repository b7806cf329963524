// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for parley.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.parley/config.toml
//   - ~/.parley/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/parley-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete parley configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Gateway configuration
	Gateway GatewayConfig `toml:"gateway" json:"gateway"`

	// Chat defaults
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Local transcript storage
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Debug enables the debug log file at ~/.parley/debug.log.
	Debug bool `toml:"debug" json:"debug"`
}

// GatewayConfig contains chat gateway connection settings.
type GatewayConfig struct {
	// BaseURL is the gateway base URL, without a trailing slash.
	BaseURL string `toml:"base_url" json:"base_url"`
	// Token is the bearer token sent with every request.
	Token string `toml:"token" json:"token"`
	// OrganizationID scopes requests to a tenant.
	OrganizationID string `toml:"organization_id" json:"organization_id"`
	// TeamID optionally narrows the tenant scope.
	TeamID string `toml:"team_id" json:"team_id"`
	// StreamTimeoutSecs bounds connection establishment (default: 10).
	StreamTimeoutSecs int `toml:"stream_timeout_secs" json:"stream_timeout_secs"`
	// SendsPerSecond throttles outbound stream openings (default: 2).
	SendsPerSecond float64 `toml:"sends_per_second" json:"sends_per_second"`
}

// ChatConfig contains chat behavior defaults.
type ChatConfig struct {
	// DefaultModel is sent when a message names no model. Empty lets
	// the gateway choose.
	DefaultModel string `toml:"default_model" json:"default_model"`
}

// StorageConfig contains local transcript cache settings.
type StorageConfig struct {
	// Enabled toggles the local transcript cache.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the SQLite database file (empty = ~/.parley/transcripts.db).
	Path string `toml:"path" json:"path"`
}

// UIConfig contains user interface configuration.
type UIConfig struct {
	// Theme is the color theme name ("dark" or "light").
	Theme string `toml:"theme" json:"theme"`
	// Markdown enables rendering assistant responses as markdown.
	Markdown bool `toml:"markdown" json:"markdown"`
	// SyntaxHighlight enables code block highlighting.
	SyntaxHighlight bool `toml:"syntax_highlight" json:"syntax_highlight"`
	// ShowSidePanel opens the conversation side panel at startup.
	ShowSidePanel bool `toml:"show_side_panel" json:"show_side_panel"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// CurrentVersion is the config schema version.
const CurrentVersion = "1.0"

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Gateway: GatewayConfig{
			BaseURL:           "http://127.0.0.1:8080",
			StreamTimeoutSecs: 10,
			SendsPerSecond:    2,
		},
		Chat: ChatConfig{},
		Storage: StorageConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:           "dark",
			Markdown:        true,
			SyntaxHighlight: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the parley configuration directory (~/.parley).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
}

// ConfigPathTOML returns the TOML config file path.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the JSON config file path.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config file permissions to 0600.
// The file carries a bearer token, so it must not be group/world readable.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0077 != 0 {
		return os.Chmod(path, 0600)
	}
	return nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the standard locations: TOML first, JSON
// as fallback, built-in defaults when neither exists. Environment
// overrides apply on top of whichever source won.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	return finishLoad(cfg)
}

// finishLoad applies overrides, defaults, and validation to a loaded config.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// Checks and fixes file permissions on load: the token must stay private.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file, picking the
// decoder from the extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	case ".json":
		if err := LoadJSON(cfg, path); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	return finishLoad(cfg)
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default TOML location.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML with an atomic replace.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode TOML: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as JSON with an atomic replace.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates all validation failures.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Gateway.BaseURL == "" {
		errs = append(errs, ValidationError{"gateway.base_url", "must not be empty"})
	} else if u, err := url.Parse(c.Gateway.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{"gateway.base_url", "must be an http or https URL"})
	}

	if c.Gateway.StreamTimeoutSecs < 0 {
		errs = append(errs, ValidationError{"gateway.stream_timeout_secs", "must not be negative"})
	}
	if c.Gateway.SendsPerSecond < 0 {
		errs = append(errs, ValidationError{"gateway.sends_per_second", "must not be negative"})
	}

	switch c.UI.Theme {
	case "", "dark", "light":
	default:
		errs = append(errs, ValidationError{"ui.theme", "must be \"dark\" or \"light\""})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values with defaults after loading.
func (c *Config) SetDefaults() {
	def := Default()

	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = def.Gateway.BaseURL
	}
	if c.Gateway.StreamTimeoutSecs == 0 {
		c.Gateway.StreamTimeoutSecs = def.Gateway.StreamTimeoutSecs
	}
	if c.Gateway.SendsPerSecond == 0 {
		c.Gateway.SendsPerSecond = def.Gateway.SendsPerSecond
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	c.Gateway.BaseURL = strings.TrimRight(c.Gateway.BaseURL, "/")
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies PARLEY_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PARLEY_GATEWAY_URL"); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv("PARLEY_TOKEN"); v != "" {
		c.Gateway.Token = v
	}
	if v := os.Getenv("PARLEY_ORG_ID"); v != "" {
		c.Gateway.OrganizationID = v
	}
	if v := os.Getenv("PARLEY_TEAM_ID"); v != "" {
		c.Gateway.TeamID = v
	}
	if v := os.Getenv("PARLEY_MODEL"); v != "" {
		c.Chat.DefaultModel = v
	}
	if v := os.Getenv("PARLEY_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("PARLEY_NO_STORAGE"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Storage.Enabled = !enabled
		}
	}
	if v := os.Getenv("PARLEY_DEBUG"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Debug = enabled
		}
	}
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// ReloadGlobal re-reads the configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// ResetGlobalForTesting clears the global instance.
func ResetGlobalForTesting() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = nil
}
