// redcon - a terminal console for a security-testing assistant backend.
//
// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/redconhq/redcon/internal/api"
	"github.com/redconhq/redcon/internal/audit"
	"github.com/redconhq/redcon/internal/config"
	"github.com/redconhq/redcon/internal/session"
	"github.com/redconhq/redcon/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a config file (default ~/.redcon/config.toml)")
		apiURL      = flag.String("api-url", "", "backend base URL, overrides config")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("redcon %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: redcon needs an interactive terminal")
		os.Exit(1)
	}

	if err := run(*configPath, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, apiURL string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if apiURL != "" {
		cfg.API.URL = apiURL
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid -api-url: %w", err)
		}
	}

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:           cfg.API.URL,
		Token:             cfg.API.Token,
		Timeout:           time.Duration(cfg.API.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	})

	var recorder session.Recorder
	var trail *audit.Trail
	if cfg.Audit.Enabled {
		dbPath := cfg.Audit.DBPath
		if dbPath == "" {
			dbPath, err = audit.DefaultPath()
			if err != nil {
				return fmt.Errorf("resolving audit path: %w", err)
			}
		}
		trail, err = audit.Open(dbPath, cfg.Audit.RetentionDays)
		if err != nil {
			// A broken local trail must not keep the console from
			// starting; the backend log remains authoritative.
			fmt.Fprintf(os.Stderr, "Warning: audit trail disabled: %v\n", err)
			trail = nil
		} else {
			defer trail.Close()
			recorder = trail
		}
	}

	store := session.NewStore()
	ctrl := session.NewController(store, client, recorder)

	opts := ui.Options{
		Theme:                cfg.UI.Theme,
		ConfirmEmergencyStop: cfg.UI.ConfirmEmergencyStop,
	}
	if trail != nil {
		opts.AuditToggle = trail.SetEnabled
	}

	app := ui.NewApp(ctrl, opts)
	program := tea.NewProgram(app, tea.WithAltScreen())

	// Hot-reload the config file so theme changes land without a restart.
	if path := watchablePath(configPath); path != "" {
		watcher, werr := config.NewWatcher(path, func(next *config.Config) {
			program.Send(ui.ConfigReloadedMsg{Theme: next.UI.Theme})
		})
		if werr == nil {
			if werr = watcher.Watch(); werr == nil {
				defer watcher.Close()
			}
		}
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running console: %w", err)
	}
	return nil
}

// watchablePath resolves the config file to watch: the explicit -config
// path, or the default TOML location when it exists.
func watchablePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
