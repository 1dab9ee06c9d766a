// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/redconhq/redcon/internal/ui/styles"
)

// Header displays the title bar at the top of the screen, with an optional
// subtitle and a right-aligned safety indicator.
type Header struct {
	title     string
	subtitle  string
	indicator string
	width     int
	theme     *styles.Theme
}

// NewHeader creates a new header with the given title.
func NewHeader(title string) *Header {
	return &Header{
		title: title,
		width: 80,
		theme: styles.DefaultTheme(),
	}
}

// SetTitle sets the header title.
func (h *Header) SetTitle(title string) {
	h.title = title
}

// SetSubtitle sets an optional subtitle displayed next to the title.
func (h *Header) SetSubtitle(subtitle string) {
	h.subtitle = subtitle
}

// SetIndicator sets the right-aligned indicator text (safety status).
func (h *Header) SetIndicator(indicator string) {
	h.indicator = indicator
}

// SetWidth sets the width of the header.
func (h *Header) SetWidth(width int) {
	if width > 0 {
		h.width = width
	}
}

// SetTheme sets the theme for the header.
func (h *Header) SetTheme(theme *styles.Theme) {
	if theme != nil {
		h.theme = theme
	}
}

// Render renders the header to a string.
func (h *Header) Render() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(h.theme.Primary)
	subtitleStyle := lipgloss.NewStyle().Foreground(h.theme.Muted)
	sepStyle := lipgloss.NewStyle().Foreground(h.theme.Muted)

	var parts []string
	parts = append(parts, titleStyle.Render(h.title))
	if h.subtitle != "" {
		parts = append(parts, sepStyle.Render(" | "))
		parts = append(parts, subtitleStyle.Render(h.subtitle))
	}
	content := strings.Join(parts, "")

	right := ""
	if h.indicator != "" {
		right = h.indicator + " "
	}

	contentWidth := lipgloss.Width(content)
	rightWidth := lipgloss.Width(right)
	remaining := h.width - contentWidth - rightWidth - 1
	if remaining < 0 {
		remaining = 0
	}

	line := " " + content + strings.Repeat(" ", remaining) + right

	headerStyle := lipgloss.NewStyle().
		Width(h.width).
		Background(lipgloss.Color("#000000"))
	headerLine := headerStyle.Render(line)

	borderStyle := lipgloss.NewStyle().
		Width(h.width).
		Foreground(h.theme.Muted)
	borderLine := borderStyle.Render(strings.Repeat("─", maxInt(h.width, 1)))

	return headerLine + "\n" + borderLine
}

// Height returns the height of the header in lines.
func (h *Header) Height() int {
	return 2
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
