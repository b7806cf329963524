// parley TUI - a terminal client for streaming multi-tenant chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/parley-tui/internal/config"
	"github.com/jeranaias/parley-tui/internal/engine"
	"github.com/jeranaias/parley-tui/internal/gateway"
	"github.com/jeranaias/parley-tui/internal/session"
	"github.com/jeranaias/parley-tui/internal/storage"
	"github.com/jeranaias/parley-tui/internal/ui/chat"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// clientConfig maps the file configuration onto the gateway client's.
func clientConfig(cfg *config.Config) *gateway.ClientConfig {
	return &gateway.ClientConfig{
		BaseURL:        cfg.Gateway.BaseURL,
		Token:          cfg.Gateway.Token,
		OrganizationID: cfg.Gateway.OrganizationID,
		TeamID:         cfg.Gateway.TeamID,
		StreamTimeout:  time.Duration(cfg.Gateway.StreamTimeoutSecs) * time.Second,
		SendsPerSecond: cfg.Gateway.SendsPerSecond,
	}
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "version") {
		fmt.Printf("parley %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "parley requires an interactive terminal")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	if cfg.Debug {
		if dir, err := config.ConfigDir(); err == nil {
			if f, err := tea.LogToFile(filepath.Join(dir, "debug.log"), "parley"); err == nil {
				defer f.Close()
			}
		}
	}

	client := gateway.NewClient(clientConfig(cfg))

	var transcripts *storage.TranscriptStore
	if cfg.Storage.Enabled {
		path := cfg.Storage.Path
		if path == "" {
			if path, err = storage.DefaultPath(); err != nil {
				fmt.Fprintf(os.Stderr, "Error resolving storage path: %v\n", err)
				os.Exit(1)
			}
		}
		if transcripts, err = storage.Open(path); err != nil {
			// The cache is a convenience; run without it rather than
			// refusing to start.
			fmt.Fprintf(os.Stderr, "Warning: transcript cache unavailable: %v\n", err)
		} else {
			defer transcripts.Close()
		}
	}

	store := session.NewStore()
	opts := engine.Options{DefaultModel: cfg.Chat.DefaultModel}
	if transcripts != nil {
		cache := transcripts
		opts.OnTitle = func(conversationID, title string) {
			_ = cache.SetTitle(conversationID, title)
		}
	}
	eng := engine.New(client, store, opts)

	// Pick up config edits (new token, different gateway) without a
	// restart: the next stream the client opens uses the new settings.
	onReload := func(updated *config.Config) {
		client.UpdateConfig(clientConfig(updated))
	}
	if watcher, err := config.NewWatcher(500*time.Millisecond, onReload); err == nil {
		if err := watcher.Watch(); err == nil {
			defer watcher.Close()
		}
	}

	theme := styles.NewTheme()
	m := chat.New(theme, cfg, eng, transcripts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running parley: %v\n", err)
		os.Exit(1)
	}
}
