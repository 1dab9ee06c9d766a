// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable building blocks of the console
// layout: panels, header, status bar and spinner.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/redconhq/redcon/internal/ui/styles"
)

// Panel is a bordered container with a title and content. It supports a
// focus state with a highlighted border.
type Panel struct {
	title   string
	content string
	width   int
	height  int
	focused bool
	theme   *styles.Theme
}

// NewPanel creates a new Panel with the given title.
func NewPanel(title string) *Panel {
	return &Panel{
		title:  title,
		width:  40,
		height: 10,
		theme:  styles.DefaultTheme(),
	}
}

// SetContent sets the content of the panel. Content exceeding the panel
// dimensions is truncated with an indicator line.
func (p *Panel) SetContent(content string) {
	p.content = content
}

// SetSize sets the dimensions of the panel, border included.
func (p *Panel) SetSize(width, height int) {
	if width > 0 {
		p.width = width
	}
	if height > 0 {
		p.height = height
	}
}

// Width returns the panel's outer width.
func (p *Panel) Width() int {
	return p.width
}

// SetFocused sets the focus state of the panel.
func (p *Panel) SetFocused(focused bool) {
	p.focused = focused
}

// Focused returns whether the panel is currently focused.
func (p *Panel) Focused() bool {
	return p.focused
}

// Title returns the panel's title.
func (p *Panel) Title() string {
	return p.title
}

// SetTitle sets the panel's title.
func (p *Panel) SetTitle(title string) {
	p.title = title
}

// SetTheme sets the theme for the panel.
func (p *Panel) SetTheme(theme *styles.Theme) {
	if theme != nil {
		p.theme = theme
	}
}

// Render renders the panel with borders, title, and content.
func (p *Panel) Render() string {
	const (
		topLeft     = "┌"
		topRight    = "┐"
		bottomLeft  = "└"
		bottomRight = "┘"
		horizontal  = "─"
		vertical    = "│"
	)

	// border(1) + padding(1) on each side
	contentWidth := p.width - 4
	contentHeight := p.height - 2
	if contentWidth < 1 {
		contentWidth = 1
	}
	if contentHeight < 1 {
		contentHeight = 1
	}

	borderColor := p.theme.Muted
	if p.focused {
		borderColor = p.theme.Primary
	}
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := p.theme.TitleStyle

	innerWidth := p.width - 2
	var topBorder string
	if p.title != "" {
		titleText := " " + p.title + " "
		remaining := innerWidth - runewidth.StringWidth(titleText)
		if remaining > 0 {
			topBorder = borderStyle.Render(topLeft) +
				titleStyle.Render(titleText) +
				borderStyle.Render(strings.Repeat(horizontal, remaining)+topRight)
		} else {
			topBorder = borderStyle.Render(topLeft + strings.Repeat(horizontal, innerWidth) + topRight)
		}
	} else {
		topBorder = borderStyle.Render(topLeft + strings.Repeat(horizontal, innerWidth) + topRight)
	}
	bottomBorder := borderStyle.Render(bottomLeft + strings.Repeat(horizontal, innerWidth) + bottomRight)

	lines := strings.Split(p.content, "\n")
	hasMore := len(lines) > contentHeight

	displayLines := lines
	if hasMore {
		if contentHeight > 1 {
			displayLines = lines[:contentHeight-1]
		} else {
			displayLines = lines[:1]
		}
	}

	visible := make([]string, 0, contentHeight)
	for _, line := range displayLines {
		visible = append(visible, FitLine(line, contentWidth))
	}
	if hasMore && contentHeight > 0 {
		visible = append(visible, FitLine("...", contentWidth))
	}
	for len(visible) < contentHeight {
		visible = append(visible, strings.Repeat(" ", contentWidth))
	}

	rows := make([]string, 0, contentHeight+2)
	rows = append(rows, topBorder)
	for _, line := range visible {
		rows = append(rows, borderStyle.Render(vertical)+" "+line+" "+borderStyle.Render(vertical))
	}
	rows = append(rows, bottomBorder)

	return strings.Join(rows, "\n")
}

// FitLine truncates or pads a line to exactly the given display width,
// measuring wide runes correctly.
func FitLine(line string, width int) string {
	w := runewidth.StringWidth(line)
	if w > width {
		if width > 3 {
			truncated := runewidth.Truncate(line, width-3, "")
			pad := width - runewidth.StringWidth(truncated) - 3
			if pad < 0 {
				pad = 0
			}
			return truncated + "..." + strings.Repeat(" ", pad)
		}
		return runewidth.Truncate(line, width, "")
	}
	return line + strings.Repeat(" ", width-w)
}

// Truncate shortens a string to maxLen display cells, appending "..." when
// it had to cut.
func Truncate(s string, maxLen int) string {
	if runewidth.StringWidth(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return runewidth.Truncate(s, maxLen, "")
	}
	return runewidth.Truncate(s, maxLen-3, "") + "..."
}
