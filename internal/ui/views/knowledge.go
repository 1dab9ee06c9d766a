// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/redconhq/redcon/internal/api"
	"github.com/redconhq/redcon/internal/session"
	"github.com/redconhq/redcon/internal/ui/components"
	"github.com/redconhq/redcon/internal/ui/styles"
)

// knowledgeInput tracks which text input, if any, owns the keyboard.
type knowledgeInput int

const (
	inputNone knowledgeInput = iota
	inputSearch
	inputLearnURL
)

// KnowledgeView browses the technique knowledge base: a cursor-driven list
// with server-side search, a learn-from-URL prompt and a markdown detail
// pane for the selected technique.
type KnowledgeView struct {
	listPanel   *components.Panel
	detailPanel *components.Panel

	searchInput textinput.Model
	learnInput  textinput.Model
	activeInput knowledgeInput

	cursor     int
	showDetail bool
	showVulns  bool

	ctrl  *session.Controller
	theme *styles.Theme

	width  int
	height int
}

// NewKnowledgeView creates the knowledge view.
func NewKnowledgeView(ctrl *session.Controller, theme *styles.Theme) *KnowledgeView {
	if theme == nil {
		theme = styles.DefaultTheme()
	}

	search := textinput.New()
	search.Placeholder = "search techniques"
	search.CharLimit = 200

	learn := textinput.New()
	learn.Placeholder = "https://example.com/writeup"
	learn.CharLimit = 500

	return &KnowledgeView{
		listPanel:   components.NewPanel("Techniques"),
		detailPanel: components.NewPanel("Detail"),
		searchInput: search,
		learnInput:  learn,
		ctrl:        ctrl,
		theme:       theme,
		width:       80,
		height:      24,
	}
}

// Init implements the view contract.
func (v *KnowledgeView) Init() tea.Cmd {
	return nil
}

// Update handles view-local input.
func (v *KnowledgeView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case OpDoneMsg:
		v.clampCursor()
		return nil
	case tea.KeyMsg:
		if v.activeInput != inputNone {
			return v.updateInput(msg)
		}
		return v.handleKey(msg)
	}
	return nil
}

func (v *KnowledgeView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "j", "down":
		v.cursor++
		v.clampCursor()
	case "k", "up":
		v.cursor--
		v.clampCursor()
	case "g", "home":
		v.cursor = 0
	case "G", "end":
		v.cursor = len(v.techniques()) - 1
		v.clampCursor()
	case "/":
		v.activeInput = inputSearch
		v.searchInput.Focus()
		return textinput.Blink
	case "l":
		v.activeInput = inputLearnURL
		v.learnInput.Focus()
		return textinput.Blink
	case "v":
		v.showVulns = !v.showVulns
		v.cursor = 0
		if v.showVulns {
			v.listPanel.SetTitle("Vulnerabilities")
			return LoadVulnsCmd(v.ctrl)
		}
		v.listPanel.SetTitle("Techniques")
	case "enter":
		if len(v.techniques()) > 0 {
			v.showDetail = true
		}
	case "esc":
		if v.showDetail {
			v.showDetail = false
		} else if query, _ := v.ctrl.Store().SearchResults(); query != "" {
			v.ctrl.Store().ClearSearchResults()
			v.cursor = 0
		}
	}
	return nil
}

func (v *KnowledgeView) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		switch v.activeInput {
		case inputSearch:
			query := strings.TrimSpace(v.searchInput.Value())
			v.closeInputs()
			v.cursor = 0
			return SearchCmd(v.ctrl, query)
		case inputLearnURL:
			url := strings.TrimSpace(v.learnInput.Value())
			v.closeInputs()
			v.learnInput.SetValue("")
			return LearnCmd(v.ctrl, url)
		}
		return nil
	case "esc":
		v.closeInputs()
		return nil
	}

	var cmd tea.Cmd
	switch v.activeInput {
	case inputSearch:
		v.searchInput, cmd = v.searchInput.Update(msg)
	case inputLearnURL:
		v.learnInput, cmd = v.learnInput.Update(msg)
	}
	return cmd
}

func (v *KnowledgeView) closeInputs() {
	v.activeInput = inputNone
	v.searchInput.Blur()
	v.learnInput.Blur()
}

// techniques returns the collection the list currently shows: search
// results when a query is active, the full catalog otherwise.
func (v *KnowledgeView) techniques() []api.Technique {
	if query, results := v.ctrl.Store().SearchResults(); query != "" {
		return results
	}
	return v.ctrl.Store().Techniques()
}

func (v *KnowledgeView) clampCursor() {
	n := len(v.techniques())
	if v.showVulns {
		n = len(v.ctrl.Store().Vulnerabilities())
	}
	if n == 0 {
		v.cursor = 0
		return
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	if v.cursor >= n {
		v.cursor = n - 1
	}
}

// SetSize splits the view into list and detail columns.
func (v *KnowledgeView) SetSize(width, height int) {
	v.width = width
	v.height = height

	listWidth := width * 2 / 5
	if listWidth < 30 {
		listWidth = minInt(30, width)
	}
	v.listPanel.SetSize(listWidth, height)
	v.detailPanel.SetSize(width-listWidth, height)
	v.searchInput.Width = listWidth - 8
	v.learnInput.Width = listWidth - 8
}

// SetTheme propagates a theme change.
func (v *KnowledgeView) SetTheme(theme *styles.Theme) {
	if theme == nil {
		return
	}
	v.theme = theme
	v.listPanel.SetTheme(theme)
	v.detailPanel.SetTheme(theme)
}

// StatusHint returns the key hints for the status bar.
func (v *KnowledgeView) StatusHint() string {
	if v.activeInput != inputNone {
		return "enter submit | esc cancel"
	}
	return "/ search | l learn url | v vulns | enter detail"
}

// InputActive reports whether a prompt is capturing keystrokes.
func (v *KnowledgeView) InputActive() bool {
	return v.activeInput != inputNone
}

// View renders the knowledge browser.
func (v *KnowledgeView) View() string {
	if v.showVulns {
		vulns := v.ctrl.Store().Vulnerabilities()
		v.listPanel.SetContent(v.vulnListContent(vulns))
		v.detailPanel.SetContent(v.vulnDetailContent(vulns))
	} else {
		techniques := v.techniques()
		v.listPanel.SetContent(v.listContent(techniques))
		v.detailPanel.SetContent(v.detailContent(techniques))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		v.listPanel.Render(),
		v.detailPanel.Render(),
	)
}

func (v *KnowledgeView) vulnListContent(vulns []api.Vulnerability) string {
	if len(vulns) == 0 {
		return "No vulnerabilities cataloged.\n\nPress v to return to techniques."
	}
	var b strings.Builder
	for i, vuln := range vulns {
		marker := "  "
		if i == v.cursor {
			marker = v.theme.TitleStyle.Render("> ")
		}
		label := v.theme.SeverityStyle(string(vuln.Severity)).Render(severityTag(vuln.Severity))
		fmt.Fprintf(&b, "%s%s %s\n", marker, label, vuln.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *KnowledgeView) vulnDetailContent(vulns []api.Vulnerability) string {
	if len(vulns) == 0 || v.cursor >= len(vulns) {
		return ""
	}
	vuln := vulns[v.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nSeverity: %s\n", vuln.Name, vuln.Severity)
	if len(vuln.Tags) > 0 {
		fmt.Fprintf(&b, "Tags:     %s\n", strings.Join(vuln.Tags, ", "))
	}
	fmt.Fprintf(&b, "\n%s", vuln.Description)
	return b.String()
}

func (v *KnowledgeView) listContent(techniques []api.Technique) string {
	var b strings.Builder

	switch v.activeInput {
	case inputSearch:
		fmt.Fprintf(&b, "Search: %s\n\n", v.searchInput.View())
	case inputLearnURL:
		fmt.Fprintf(&b, "Learn:  %s\n\n", v.learnInput.View())
	default:
		if query, _ := v.ctrl.Store().SearchResults(); query != "" {
			fmt.Fprintf(&b, "Results for %q (esc to clear)\n\n", query)
		}
	}

	if len(techniques) == 0 {
		b.WriteString("No techniques.\n\nPress l to learn from a URL.")
		return b.String()
	}

	for i, t := range techniques {
		marker := "  "
		if i == v.cursor {
			marker = v.theme.TitleStyle.Render("> ")
		}
		label := v.theme.SeverityStyle(string(t.Severity)).Render(severityTag(t.Severity))
		fmt.Fprintf(&b, "%s%s %s\n", marker, label, t.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *KnowledgeView) detailContent(techniques []api.Technique) string {
	if len(techniques) == 0 || v.cursor >= len(techniques) {
		return ""
	}
	t := techniques[v.cursor]
	if !v.showDetail {
		return fmt.Sprintf("%s\n\nCategory: %s\nSeverity: %s\n\nPress enter for the full write-up.",
			t.Name, t.Category, t.Severity)
	}
	return renderTechnique(t, v.detailPanel.Width()-4)
}

// renderTechnique renders a technique write-up as markdown. Rendering
// failures fall back to the raw text.
func renderTechnique(t api.Technique, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Name)
	fmt.Fprintf(&b, "**Category:** %s  \n**Severity:** %s\n\n", t.Category, t.Severity)
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(t.Tags, ", "))
	}
	b.WriteString(t.Description)
	if t.SourceURL != "" {
		fmt.Fprintf(&b, "\n\n[source](%s)", t.SourceURL)
	}

	if width < 20 {
		width = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return b.String()
	}
	out, err := renderer.Render(b.String())
	if err != nil {
		return b.String()
	}
	return strings.TrimSpace(out)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
