// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package views implements the four console views: dashboard, knowledge,
// attack and safety. Each view reads from the session store and dispatches
// operations through the session controller.
package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/redconhq/redcon/internal/api"
	"github.com/redconhq/redcon/internal/session"
	"github.com/redconhq/redcon/internal/ui/components"
	"github.com/redconhq/redcon/internal/ui/styles"
)

// DashboardView shows the operation overview in four panels: knowledge
// base counts, declared attack plans, safety posture and recent activity.
type DashboardView struct {
	knowledgePanel *components.Panel
	attackPanel    *components.Panel
	safetyPanel    *components.Panel
	activityPanel  *components.Panel

	focusedPanel int

	ctrl  *session.Controller
	theme *styles.Theme

	width  int
	height int
}

// NewDashboardView creates the dashboard view.
func NewDashboardView(ctrl *session.Controller, theme *styles.Theme) *DashboardView {
	if theme == nil {
		theme = styles.DefaultTheme()
	}
	v := &DashboardView{
		knowledgePanel: components.NewPanel("Knowledge Base"),
		attackPanel:    components.NewPanel("Attack Plans"),
		safetyPanel:    components.NewPanel("Safety"),
		activityPanel:  components.NewPanel("Recent Activity"),
		ctrl:           ctrl,
		theme:          theme,
		width:          80,
		height:         24,
	}
	v.knowledgePanel.SetFocused(true)
	return v
}

// Init implements the view contract.
func (v *DashboardView) Init() tea.Cmd {
	v.refreshPanels()
	return nil
}

// Update handles view-local key presses and store change notifications.
func (v *DashboardView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case OpDoneMsg:
		v.refreshPanels()
	case tea.KeyMsg:
		switch msg.String() {
		case "tab":
			v.cycleFocus()
		}
	}
	return nil
}

// SetSize lays the four panels out in a 2x2 grid.
func (v *DashboardView) SetSize(width, height int) {
	v.width = width
	v.height = height

	panelWidth := width / 2
	panelHeight := height / 2
	if panelWidth < 20 {
		panelWidth = 20
	}
	if panelHeight < 5 {
		panelHeight = 5
	}

	v.knowledgePanel.SetSize(panelWidth, panelHeight)
	v.attackPanel.SetSize(width-panelWidth, panelHeight)
	v.safetyPanel.SetSize(panelWidth, height-panelHeight)
	v.activityPanel.SetSize(width-panelWidth, height-panelHeight)
}

// SetTheme propagates a theme change to all panels.
func (v *DashboardView) SetTheme(theme *styles.Theme) {
	if theme == nil {
		return
	}
	v.theme = theme
	v.knowledgePanel.SetTheme(theme)
	v.attackPanel.SetTheme(theme)
	v.safetyPanel.SetTheme(theme)
	v.activityPanel.SetTheme(theme)
	v.refreshPanels()
}

// StatusHint returns the key hints for the status bar.
func (v *DashboardView) StatusHint() string {
	return "tab focus | r refresh | ? help"
}

// InputActive implements the view contract; the dashboard has no text input.
func (v *DashboardView) InputActive() bool {
	return false
}

// View renders the dashboard.
func (v *DashboardView) View() string {
	v.refreshPanels()

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		v.knowledgePanel.Render(),
		v.attackPanel.Render(),
	)
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		v.safetyPanel.Render(),
		v.activityPanel.Render(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, topRow, bottomRow)
}

func (v *DashboardView) cycleFocus() {
	panels := []*components.Panel{v.knowledgePanel, v.attackPanel, v.safetyPanel, v.activityPanel}
	panels[v.focusedPanel].SetFocused(false)
	v.focusedPanel = (v.focusedPanel + 1) % len(panels)
	panels[v.focusedPanel].SetFocused(true)
}

func (v *DashboardView) refreshPanels() {
	store := v.ctrl.Store()
	v.knowledgePanel.SetContent(v.knowledgeContent(store))
	v.attackPanel.SetContent(v.attackContent(store))
	v.safetyPanel.SetContent(v.safetyContent(store))
	v.activityPanel.SetContent(v.activityContent(store))
}

func (v *DashboardView) knowledgeContent(store *session.Store) string {
	techniques := store.Techniques()
	stats := store.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "Techniques:      %d\n", len(techniques))
	if stats != nil {
		fmt.Fprintf(&b, "Vulnerabilities: %d\n", stats.TotalVulnerabilities)
		if len(stats.Categories) > 0 {
			fmt.Fprintf(&b, "Categories:      %d\n", len(stats.Categories))
		}
		if stats.LastUpdated != "" {
			fmt.Fprintf(&b, "Last updated:    %s\n", shortTime(stats.LastUpdated))
		}
	}

	if len(techniques) > 0 {
		b.WriteString("\nLatest:\n")
		for i := len(techniques) - 1; i >= 0 && i >= len(techniques)-3; i-- {
			t := techniques[i]
			label := v.theme.SeverityStyle(string(t.Severity)).Render(severityTag(t.Severity))
			fmt.Fprintf(&b, " %s %s\n", label, t.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *DashboardView) attackContent(store *session.Store) string {
	plans := store.Plans()
	if len(plans) == 0 {
		return "No attack plans declared.\n\nPress 3 then n to create one."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plans: %d\n\n", len(plans))
	shown := plans
	if len(shown) > 5 {
		shown = shown[len(shown)-5:]
	}
	for _, p := range shown {
		name := p.Target.Name
		if name == "" {
			name = p.Target.URL
		}
		fmt.Fprintf(&b, " [%s] %s\n", p.Status, name)
		if line := p.ObjectivesLine(); line != "" {
			fmt.Fprintf(&b, "   %s\n", line)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *DashboardView) safetyContent(store *session.Store) string {
	cfg := store.SafetyConfig()
	if cfg == nil {
		return "Safety config not loaded.\n\nPress r to refresh."
	}

	var b strings.Builder
	b.WriteString("Status: ")
	if cfg.EmergencyStopEnabled {
		b.WriteString(v.theme.SafetyActive.Render("Active"))
	} else {
		b.WriteString(v.theme.SafetyDegraded.Render("Degraded"))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Require authorization: %s\n", onOff(cfg.RequireAuthorization))
	fmt.Fprintf(&b, "Log all activities:    %s\n", onOff(cfg.LogAllActivities))
	fmt.Fprintf(&b, "Block unauthorized:    %s\n", onOff(cfg.BlockUnauthorizedTargets))
	fmt.Fprintf(&b, "Max concurrent:        %d\n", cfg.MaxConcurrentAttacks)

	if stop := store.LastStop(); stop != nil {
		fmt.Fprintf(&b, "\n%s %s",
			v.theme.SafetyStopped.Render(" STOPPED "),
			stop.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *DashboardView) activityContent(store *session.Store) string {
	entries := store.AuditEntries()
	if len(entries) == 0 {
		if err := store.LastError(); err != nil {
			return v.theme.StatusError.Render(" ERROR ") + " " + err.Message
		}
		return "No activity loaded.\n\nPress 4 then g to load the audit log."
	}

	var b strings.Builder
	shown := entries
	if len(shown) > 8 {
		shown = shown[:8]
	}
	for _, e := range shown {
		fmt.Fprintf(&b, " %s  %s\n", shortTime(e.Timestamp), e.ActivityType)
	}
	if err := store.LastError(); err != nil {
		fmt.Fprintf(&b, "\n%s %s", v.theme.StatusError.Render(" ERROR "), err.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// severityTag renders a fixed-width severity marker.
func severityTag(s api.Severity) string {
	switch api.Severity(strings.ToLower(string(s))) {
	case api.SeverityCritical:
		return "CRIT"
	case api.SeverityHigh:
		return "HIGH"
	case api.SeverityMedium:
		return "MED "
	case api.SeverityLow:
		return "LOW "
	default:
		return "INFO"
	}
}

// shortTime trims a backend timestamp to date and minute for list display.
func shortTime(ts string) string {
	t, err := api.ParseTimestamp(ts)
	if err != nil {
		if len(ts) > 16 {
			return ts[:16]
		}
		return ts
	}
	return t.Format("2006-01-02 15:04")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
