// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/redconhq/redcon/internal/ui/styles"
)

// StatusBar displays the bottom bar: current view on the left, status or
// error message in the center, key hints on the right.
type StatusBar struct {
	mode     string
	message  string
	keyHints string
	width    int
	theme    *styles.Theme
	isError  bool
	busy     bool
	frame    string
}

// NewStatusBar creates a new status bar.
func NewStatusBar(width int) *StatusBar {
	return &StatusBar{
		mode:     "Dashboard",
		message:  "Ready",
		keyHints: "? help | 1-4 views | q quit",
		width:    width,
		theme:    styles.DefaultTheme(),
	}
}

// SetMode sets the current view name to display.
func (s *StatusBar) SetMode(mode string) {
	s.mode = mode
}

// SetMessage sets the status message to display.
func (s *StatusBar) SetMessage(message string) {
	s.message = message
	s.isError = false
}

// SetError sets an error message to display.
func (s *StatusBar) SetError(message string) {
	s.message = message
	s.isError = true
}

// SetBusy marks an operation in flight; the spinner frame is rendered by
// the app and prefixes the message.
func (s *StatusBar) SetBusy(busy bool) {
	s.busy = busy
}

// Busy reports the in-flight marker.
func (s *StatusBar) Busy() bool {
	return s.busy
}

// SetSpinnerFrame sets the current spinner frame shown before the message
// while an operation is in flight. An empty frame hides the spinner.
func (s *StatusBar) SetSpinnerFrame(frame string) {
	s.frame = frame
}

// SetKeyHints sets the key hints shown on the right.
func (s *StatusBar) SetKeyHints(hints string) {
	s.keyHints = hints
}

// SetWidth sets the width of the status bar.
func (s *StatusBar) SetWidth(width int) {
	if width > 0 {
		s.width = width
	}
}

// SetTheme sets the theme for the status bar.
func (s *StatusBar) SetTheme(theme *styles.Theme) {
	if theme != nil {
		s.theme = theme
	}
}

// Clear clears the status message.
func (s *StatusBar) Clear() {
	s.message = ""
	s.isError = false
}

// Render renders the status bar to a string.
func (s *StatusBar) Render() string {
	leftStyle := lipgloss.NewStyle().
		Background(s.theme.Primary).
		Foreground(lipgloss.Color("#000000")).
		Bold(true).
		Padding(0, 1)
	rightStyle := lipgloss.NewStyle().
		Foreground(s.theme.Muted).
		Padding(0, 1)

	leftSection := leftStyle.Render(s.mode)
	rightSection := rightStyle.Render(s.keyHints)

	leftWidth := lipgloss.Width(leftSection)
	rightWidth := lipgloss.Width(rightSection)

	availableCenter := s.width - leftWidth - rightWidth - 2
	if availableCenter < 1 {
		availableCenter = 1
	}

	var centerStyle lipgloss.Style
	if s.isError {
		centerStyle = s.theme.StatusError.Padding(0, 1)
	} else {
		centerStyle = lipgloss.NewStyle().
			Foreground(s.theme.Muted).
			Padding(0, 1)
	}

	message := s.message
	if s.frame != "" {
		message = s.frame + " " + message
	}
	if runewidth.StringWidth(message) > availableCenter {
		message = Truncate(message, availableCenter)
	} else {
		pad := (availableCenter - runewidth.StringWidth(message)) / 2
		message = strings.Repeat(" ", pad) + message +
			strings.Repeat(" ", availableCenter-runewidth.StringWidth(message)-pad)
	}

	bar := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftSection,
		centerStyle.Render(message),
		rightSection,
	)

	if w := lipgloss.Width(bar); w < s.width {
		bar += strings.Repeat(" ", s.width-w)
	}

	return lipgloss.NewStyle().
		Width(s.width).
		Background(lipgloss.Color("#000000")).
		Render(bar)
}
