// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Spinner wraps the bubbles spinner for in-flight operations.
type Spinner struct {
	model  spinner.Model
	active bool
}

// NewSpinner creates a spinner for in-flight operations. The frame stays
// unstyled so the status bar can measure it with plain rune widths.
func NewSpinner() *Spinner {
	m := spinner.New()
	m.Spinner = spinner.Dot
	return &Spinner{model: m}
}

// Start activates the spinner and returns its tick command.
func (s *Spinner) Start() tea.Cmd {
	s.active = true
	return s.model.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.active = false
}

// Active reports whether the spinner is running.
func (s *Spinner) Active() bool {
	return s.active
}

// Update advances the spinner animation. Tick messages are ignored when the
// spinner is stopped, ending the tick loop.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	if !s.active {
		return nil
	}
	var cmd tea.Cmd
	s.model, cmd = s.model.Update(msg)
	return cmd
}

// View renders the current spinner frame, or an empty string when stopped.
func (s *Spinner) View() string {
	if !s.active {
		return ""
	}
	return s.model.View()
}
