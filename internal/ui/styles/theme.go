// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles defines the color palette and lipgloss styles shared by
// all console views.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme defines the color palette and styles for the console.
type Theme struct {
	// Color palette
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Danger  lipgloss.Color
	Muted   lipgloss.Color
	Info    lipgloss.Color

	// Panel styles
	PanelStyle        lipgloss.Style
	FocusedPanelStyle lipgloss.Style
	TitleStyle        lipgloss.Style

	// Severity styles
	SeverityCritical lipgloss.Style
	SeverityHigh     lipgloss.Style
	SeverityMedium   lipgloss.Style
	SeverityLow      lipgloss.Style
	SeverityInfo     lipgloss.Style

	// Safety status styles
	SafetyActive   lipgloss.Style
	SafetyDegraded lipgloss.Style
	SafetyStopped  lipgloss.Style

	// Operation status styles
	StatusPending lipgloss.Style
	StatusError   lipgloss.Style
	StatusOK      lipgloss.Style
}

// DefaultTheme returns the dark console theme.
func DefaultTheme() *Theme {
	theme := &Theme{
		Primary: lipgloss.Color("#E05252"),
		Success: lipgloss.Color("#52E085"),
		Warning: lipgloss.Color("#E0B052"),
		Danger:  lipgloss.Color("#FF4040"),
		Muted:   lipgloss.Color("#6B6B6B"),
		Info:    lipgloss.Color("#5297E0"),
	}

	theme.PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Muted).
		Padding(0, 1)

	theme.FocusedPanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Padding(0, 1)

	theme.TitleStyle = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	theme.SeverityCritical = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(theme.Danger).
		Bold(true)

	theme.SeverityHigh = lipgloss.NewStyle().
		Foreground(theme.Danger).
		Bold(true)

	theme.SeverityMedium = lipgloss.NewStyle().
		Foreground(theme.Warning)

	theme.SeverityLow = lipgloss.NewStyle().
		Foreground(theme.Info)

	theme.SeverityInfo = lipgloss.NewStyle().
		Foreground(theme.Muted)

	theme.SafetyActive = lipgloss.NewStyle().
		Foreground(theme.Success).
		Bold(true)

	theme.SafetyDegraded = lipgloss.NewStyle().
		Foreground(theme.Warning).
		Bold(true)

	theme.SafetyStopped = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(theme.Danger).
		Bold(true)

	theme.StatusPending = lipgloss.NewStyle().
		Foreground(theme.Warning).
		Italic(true)

	theme.StatusError = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(theme.Danger).
		Bold(true)

	theme.StatusOK = lipgloss.NewStyle().
		Foreground(theme.Success)

	return theme
}

// LightTheme returns a palette usable on light terminal backgrounds.
func LightTheme() *Theme {
	theme := DefaultTheme()
	theme.Muted = lipgloss.Color("#8A8A8A")
	theme.Info = lipgloss.Color("#1F5FAF")
	theme.PanelStyle = theme.PanelStyle.BorderForeground(theme.Muted)
	return theme
}

// ForName resolves a configured theme name. "auto" probes the terminal
// background; unknown names fall back to the dark theme.
func ForName(name string) *Theme {
	switch strings.ToLower(name) {
	case "light":
		return LightTheme()
	case "auto":
		if termenv.HasDarkBackground() {
			return DefaultTheme()
		}
		return LightTheme()
	default:
		return DefaultTheme()
	}
}

// SeverityStyle returns the appropriate style for a severity label.
func (t *Theme) SeverityStyle(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "critical":
		return t.SeverityCritical
	case "high":
		return t.SeverityHigh
	case "medium":
		return t.SeverityMedium
	case "low":
		return t.SeverityLow
	case "informational", "info":
		return t.SeverityInfo
	default:
		return lipgloss.NewStyle()
	}
}

// RiskStyle returns the style for a chatbot test risk level.
func (t *Theme) RiskStyle(risk string) lipgloss.Style {
	switch strings.ToLower(risk) {
	case "critical", "high":
		return t.SeverityHigh
	case "medium":
		return t.SeverityMedium
	case "low", "minimal":
		return t.SeverityLow
	default:
		return lipgloss.NewStyle()
	}
}
