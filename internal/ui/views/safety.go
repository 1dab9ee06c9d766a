// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/redconhq/redcon/internal/api"
	"github.com/redconhq/redcon/internal/session"
	"github.com/redconhq/redcon/internal/ui/components"
	"github.com/redconhq/redcon/internal/ui/styles"
)

// safetyRow identifies a selectable guardrail row.
type safetyRow int

const (
	rowRequireAuth safetyRow = iota
	rowLogActivities
	rowBlockUnauthorized
	rowMaxConcurrent
	safetyRowCount
)

// SafetyView controls the backend guardrails: toggles edited locally and
// pushed wholesale, the authorization registry, the backend audit log and
// the emergency stop status. The emergency stop itself is a global key so
// it works from any view.
type SafetyView struct {
	configPanel *components.Panel
	rightPanel  *components.Panel

	// draft holds local edits until pushed with s. Nil until the config
	// has loaded. EmergencyStopEnabled is never edited locally; the
	// backend's value is authoritative.
	draft  *api.SafetyConfig
	cursor safetyRow

	// rightContent selects what the right panel shows.
	showTargets bool

	// Authorize form: target URL, authorized by, expiry date, scope.
	authInputs []textinput.Model
	formOpen   bool
	formField  int

	ctrl  *session.Controller
	theme *styles.Theme

	width  int
	height int
}

// NewSafetyView creates the safety view.
func NewSafetyView(ctrl *session.Controller, theme *styles.Theme) *SafetyView {
	if theme == nil {
		theme = styles.DefaultTheme()
	}

	authInputs := make([]textinput.Model, 4)
	for i := range authInputs {
		authInputs[i] = textinput.New()
		authInputs[i].CharLimit = 300
	}
	authInputs[0].Placeholder = "https://target.example.com"
	authInputs[1].Placeholder = "security lead"
	authInputs[2].Placeholder = "2026-12-31 (optional)"
	authInputs[3].Placeholder = "scope, comma separated (optional)"

	return &SafetyView{
		configPanel: components.NewPanel("Guardrails"),
		rightPanel:  components.NewPanel("Audit Log"),
		authInputs:  authInputs,
		ctrl:        ctrl,
		theme:       theme,
		width:       80,
		height:      24,
	}
}

// Init implements the view contract.
func (v *SafetyView) Init() tea.Cmd {
	return nil
}

// Update handles view-local input.
func (v *SafetyView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case OpDoneMsg:
		// Re-seed the draft from the authoritative snapshot whenever the
		// config has been re-fetched.
		if msg.Err == nil {
			switch msg.Op {
			case session.OpRefresh, session.OpUpdateSafety, session.OpEmergencyStop:
				v.draft = v.ctrl.Store().SafetyConfig()
			case session.OpAuthorize:
				// The controller re-fetched the registry; show it.
				v.showTargets = true
				v.rightPanel.SetTitle("Authorized Targets")
			}
		}
		return nil
	case tea.KeyMsg:
		if v.formOpen {
			return v.updateForm(msg)
		}
		return v.handleKey(msg)
	}
	return nil
}

func (v *SafetyView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "j", "down":
		if v.cursor < safetyRowCount-1 {
			v.cursor++
		}
	case "k", "up":
		if v.cursor > 0 {
			v.cursor--
		}
	case " ", "space":
		v.toggleSelected()
	case "+", "=":
		v.adjustMaxConcurrent(1)
	case "-":
		v.adjustMaxConcurrent(-1)
	case "s":
		if v.draft != nil {
			return UpdateSafetyCmd(v.ctrl, *v.draft)
		}
	case "a":
		v.showTargets = true
		v.rightPanel.SetTitle("Authorized Targets")
		return LoadTargetsCmd(v.ctrl)
	case "g":
		v.showTargets = false
		v.rightPanel.SetTitle("Audit Log")
		return LoadAuditCmd(v.ctrl, 50, 0)
	case "n":
		v.openForm()
		return textinput.Blink
	}
	return nil
}

func (v *SafetyView) openForm() {
	v.formOpen = true
	v.formField = 0
	v.rightPanel.SetTitle("Authorize Target")
	for i := range v.authInputs {
		v.authInputs[i].Blur()
	}
	v.authInputs[0].Focus()
}

func (v *SafetyView) closeForm() {
	for i := range v.authInputs {
		v.authInputs[i].Blur()
	}
	v.formOpen = false
	if v.showTargets {
		v.rightPanel.SetTitle("Authorized Targets")
	} else {
		v.rightPanel.SetTitle("Audit Log")
	}
}

func (v *SafetyView) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		v.closeForm()
		return nil
	case "tab", "shift+tab":
		v.authInputs[v.formField].Blur()
		if msg.String() == "tab" {
			v.formField = (v.formField + 1) % len(v.authInputs)
		} else {
			v.formField = (v.formField + len(v.authInputs) - 1) % len(v.authInputs)
		}
		v.authInputs[v.formField].Focus()
		return textinput.Blink
	case "enter":
		return v.submitForm()
	}

	var cmd tea.Cmd
	v.authInputs[v.formField], cmd = v.authInputs[v.formField].Update(msg)
	return cmd
}

func (v *SafetyView) submitForm() tea.Cmd {
	target := api.Target{
		URL: strings.TrimSpace(v.authInputs[0].Value()),
	}
	details := api.AuthorizationDetails{
		AuthorizedBy: strings.TrimSpace(v.authInputs[1].Value()),
		ExpiryDate:   strings.TrimSpace(v.authInputs[2].Value()),
		Scope:        splitObjectives(v.authInputs[3].Value()),
	}
	v.closeForm()
	return AuthorizeTargetCmd(v.ctrl, target, details)
}

func (v *SafetyView) ensureDraft() {
	if v.draft == nil {
		v.draft = v.ctrl.Store().SafetyConfig()
	}
}

func (v *SafetyView) toggleSelected() {
	v.ensureDraft()
	if v.draft == nil {
		return
	}
	switch v.cursor {
	case rowRequireAuth:
		v.draft.RequireAuthorization = !v.draft.RequireAuthorization
	case rowLogActivities:
		v.draft.LogAllActivities = !v.draft.LogAllActivities
	case rowBlockUnauthorized:
		v.draft.BlockUnauthorizedTargets = !v.draft.BlockUnauthorizedTargets
	}
}

func (v *SafetyView) adjustMaxConcurrent(delta int) {
	v.ensureDraft()
	if v.draft == nil {
		return
	}
	next := v.draft.MaxConcurrentAttacks + delta
	if next < 1 {
		next = 1
	}
	v.draft.MaxConcurrentAttacks = next
}

// SetSize splits the view into config and registry columns.
func (v *SafetyView) SetSize(width, height int) {
	v.width = width
	v.height = height

	configWidth := width / 2
	if configWidth < 34 {
		configWidth = minInt(34, width)
	}
	v.configPanel.SetSize(configWidth, height)
	v.rightPanel.SetSize(width-configWidth, height)

	for i := range v.authInputs {
		v.authInputs[i].Width = width - configWidth - 20
	}
}

// SetTheme propagates a theme change.
func (v *SafetyView) SetTheme(theme *styles.Theme) {
	if theme == nil {
		return
	}
	v.theme = theme
	v.configPanel.SetTheme(theme)
	v.rightPanel.SetTheme(theme)
}

// StatusHint returns the key hints for the status bar.
func (v *SafetyView) StatusHint() string {
	if v.formOpen {
		return "tab next field | enter submit | esc cancel"
	}
	return "space toggle | +/- limit | s push | n authorize | a targets | g audit | ctrl+x stop"
}

// InputActive reports whether the authorize form is capturing keystrokes.
func (v *SafetyView) InputActive() bool {
	return v.formOpen
}

// View renders the safety console.
func (v *SafetyView) View() string {
	v.configPanel.SetContent(v.configContent())
	switch {
	case v.formOpen:
		v.rightPanel.SetContent(v.formContent())
	case v.showTargets:
		v.rightPanel.SetContent(v.targetsContent())
	default:
		v.rightPanel.SetContent(v.auditContent())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		v.configPanel.Render(),
		v.rightPanel.Render(),
	)
}

func (v *SafetyView) configContent() string {
	v.ensureDraft()
	current := v.ctrl.Store().SafetyConfig()
	if v.draft == nil || current == nil {
		return "Safety config not loaded.\n\nPress r to refresh."
	}

	var b strings.Builder
	b.WriteString("Status: ")
	if current.EmergencyStopEnabled {
		b.WriteString(v.theme.SafetyActive.Render("Active"))
	} else {
		b.WriteString(v.theme.SafetyDegraded.Render("Degraded"))
	}
	b.WriteString("\n\n")

	rows := []struct {
		row   safetyRow
		label string
		value string
	}{
		{rowRequireAuth, "Require authorization", onOff(v.draft.RequireAuthorization)},
		{rowLogActivities, "Log all activities", onOff(v.draft.LogAllActivities)},
		{rowBlockUnauthorized, "Block unauthorized", onOff(v.draft.BlockUnauthorizedTargets)},
		{rowMaxConcurrent, "Max concurrent attacks", fmt.Sprintf("%d", v.draft.MaxConcurrentAttacks)},
	}
	for _, r := range rows {
		marker := "  "
		if r.row == v.cursor {
			marker = v.theme.TitleStyle.Render("> ")
		}
		fmt.Fprintf(&b, "%s%-23s %s\n", marker, r.label, r.value)
	}

	if v.dirty(current) {
		b.WriteString("\n" + v.theme.StatusPending.Render("unsaved changes, press s to push"))
	}

	if stop := v.ctrl.Store().LastStop(); stop != nil {
		fmt.Fprintf(&b, "\n\n%s\n", v.theme.SafetyStopped.Render(" EMERGENCY STOP "))
		fmt.Fprintf(&b, "Reason: %s\n", stop.Reason)
		if stop.Timestamp != "" {
			fmt.Fprintf(&b, "At:     %s\n", shortTime(stop.Timestamp))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// dirty reports whether the draft differs from the backend snapshot in
// any locally editable field.
func (v *SafetyView) dirty(current *api.SafetyConfig) bool {
	return v.draft.RequireAuthorization != current.RequireAuthorization ||
		v.draft.LogAllActivities != current.LogAllActivities ||
		v.draft.BlockUnauthorizedTargets != current.BlockUnauthorizedTargets ||
		v.draft.MaxConcurrentAttacks != current.MaxConcurrentAttacks
}

func (v *SafetyView) formContent() string {
	var b strings.Builder
	b.WriteString(v.theme.TitleStyle.Render("Authorize Target") + "\n\n")
	labels := []string{"URL:          ", "Authorized by:", "Expires:      ", "Scope:        "}
	for i, in := range v.authInputs {
		fmt.Fprintf(&b, "%s %s\n", labels[i], in.View())
	}
	b.WriteString("\nThe backend derives the domain from the URL and records\nthe authorization in the registry.")
	return b.String()
}

func (v *SafetyView) targetsContent() string {
	targets := v.ctrl.Store().AuthorizedTargets()
	if len(targets) == 0 {
		return "No authorized targets loaded.\n\nPress a to load the registry."
	}
	var b strings.Builder
	for _, t := range targets {
		fmt.Fprintf(&b, " %-30s %s\n", t.Domain, t.Status)
		if t.Expiry != "" {
			fmt.Fprintf(&b, "   expires %s\n", shortTime(t.Expiry))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *SafetyView) auditContent() string {
	entries := v.ctrl.Store().AuditEntries()
	if len(entries) == 0 {
		return "No audit entries loaded.\n\nPress g to load the backend log."
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, " %s  %s\n", shortTime(e.Timestamp), e.ActivityType)
		if e.UserID != "" || e.IPAddress != "" {
			fmt.Fprintf(&b, "   %s %s\n", e.UserID, e.IPAddress)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
