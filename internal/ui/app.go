// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the console: a four-view terminal frontend over
// the session store and controller.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/redconhq/redcon/internal/session"
	"github.com/redconhq/redcon/internal/ui/components"
	"github.com/redconhq/redcon/internal/ui/styles"
	"github.com/redconhq/redcon/internal/ui/views"
)

// View is the contract every console view satisfies.
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
	SetSize(width, height int)
	SetTheme(theme *styles.Theme)
	StatusHint() string
	InputActive() bool
}

// Options configures the App beyond its required dependencies.
type Options struct {
	// Theme names the initial color theme ("dark", "light", "auto").
	Theme string
	// ConfirmEmergencyStop gates ctrl+x behind a confirmation overlay.
	ConfirmEmergencyStop bool
	// AuditToggle, when set, is called with log_all_activities every time
	// a fresh safety config lands, keeping the local trail in step with
	// the backend's logging guardrail.
	AuditToggle func(enabled bool)
}

// App is the root model. It owns the header, status bar and help overlay,
// routes keys between global bindings and the active view, and mirrors
// the session store's pending/error state into the chrome.
type App struct {
	ctrl *session.Controller
	opts Options

	mode    AppMode
	views   map[AppMode]View
	header  *components.Header
	status  *components.StatusBar
	spinner *components.Spinner
	keyMap  KeyMap
	theme   *styles.Theme

	showHelp    bool
	confirmStop bool

	width  int
	height int
}

// NewApp builds the console around an initialized controller.
func NewApp(ctrl *session.Controller, opts Options) *App {
	theme := styles.ForName(opts.Theme)

	app := &App{
		ctrl:    ctrl,
		opts:    opts,
		mode:    ModeDashboard,
		header:  components.NewHeader("redcon"),
		status:  components.NewStatusBar(80),
		spinner: components.NewSpinner(),
		keyMap:  DefaultKeyMap(),
		theme:   theme,
		width:   80,
		height:  24,
	}
	app.header.SetSubtitle("security testing console")
	app.header.SetTheme(theme)
	app.status.SetTheme(theme)

	app.views = map[AppMode]View{
		ModeDashboard: views.NewDashboardView(ctrl, theme),
		ModeKnowledge: views.NewKnowledgeView(ctrl, theme),
		ModeAttack:    views.NewAttackView(ctrl, theme),
		ModeSafety:    views.NewSafetyView(ctrl, theme),
	}
	return app
}

// Mode returns the active view mode.
func (a *App) Mode() AppMode {
	return a.mode
}

// Init starts the initial refresh alongside every view's own init.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{views.RefreshCmd(a.ctrl)}
	for _, v := range a.views {
		if cmd := v.Init(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.handleWindowResize(msg)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case views.OpStartedMsg:
		a.status.SetMessage(msg.Note)
		a.status.SetBusy(true)
		return a, a.spinner.Start()

	case views.OpDoneMsg:
		return a, a.handleOpDone(msg)

	case ConfigReloadedMsg:
		a.setTheme(styles.ForName(msg.Theme))
		a.status.SetMessage("Configuration reloaded")
		return a, nil

	case StatusMsg:
		a.status.SetMessage(msg.Text)
		return a, nil

	case SwitchModeMsg:
		a.setMode(msg.Mode)
		return a, nil
	}

	if cmd := a.spinner.Update(msg); cmd != nil {
		a.status.SetSpinnerFrame(a.spinner.View())
		return a, cmd
	}
	a.status.SetSpinnerFrame("")
	return a, a.routeToActiveView(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The confirmation overlay swallows everything except its answer.
	if a.confirmStop {
		switch msg.String() {
		case "y", "Y", "enter":
			a.confirmStop = false
			return a, views.EmergencyStopCmd(a.ctrl, "operator initiated")
		default:
			a.confirmStop = false
			a.status.SetMessage("Emergency stop cancelled")
			return a, nil
		}
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	// Text inputs own most keys; only quit-on-ctrl+c, emergency stop and
	// view switching stay global while one is focused.
	if key.Matches(msg, a.keyMap.EmergencyStop) {
		if a.opts.ConfirmEmergencyStop {
			a.confirmStop = true
			return a, nil
		}
		return a, views.EmergencyStopCmd(a.ctrl, "operator initiated")
	}
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.inputCaptured() {
		return a, a.routeToActiveView(msg)
	}

	switch {
	case key.Matches(msg, a.keyMap.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keyMap.Help):
		a.showHelp = true
		return a, nil
	case key.Matches(msg, a.keyMap.Refresh):
		return a, views.RefreshCmd(a.ctrl)
	}

	if mode, ok := ModeFromKey(msg.String()); ok {
		a.setMode(mode)
		return a, nil
	}

	return a, a.routeToActiveView(msg)
}

// inputCaptured reports whether the active view is in a text-entry state,
// in which case printable keys must not trigger global bindings.
func (a *App) inputCaptured() bool {
	return a.views[a.mode].InputActive()
}

// handleOpDone fans a completed operation out to every view and updates
// the chrome from the store's pending/error state.
func (a *App) handleOpDone(msg views.OpDoneMsg) tea.Cmd {
	var cmds []tea.Cmd
	for _, v := range a.views {
		if cmd := v.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if !a.ctrl.Store().Busy() {
		a.spinner.Stop()
		a.status.SetBusy(false)
		a.status.SetSpinnerFrame("")
	}

	if msg.Err != nil {
		if lastErr := a.ctrl.Store().LastError(); lastErr != nil {
			a.status.SetError(fmt.Sprintf("%s failed: %s", lastErr.Op, lastErr.Message))
		} else {
			a.status.SetError(msg.Err.Error())
		}
	} else {
		a.status.SetMessage(doneMessage(msg.Op))
	}

	if cfg := a.ctrl.Store().SafetyConfig(); cfg != nil {
		a.header.SetIndicator(a.safetyIndicator())
		if a.opts.AuditToggle != nil {
			a.opts.AuditToggle(cfg.LogAllActivities)
		}
	}
	return tea.Batch(cmds...)
}

// doneMessage maps a completed operation to its status line.
func doneMessage(op session.Operation) string {
	switch op {
	case session.OpRefresh:
		return "Refreshed"
	case session.OpLearn:
		return "Knowledge extracted"
	case session.OpCreatePlan:
		return "Attack plan declared"
	case session.OpTestChatbot:
		return "Chatbot test complete"
	case session.OpEmergencyStop:
		return "EMERGENCY STOP acknowledged"
	case session.OpUpdateSafety:
		return "Safety config pushed"
	case session.OpSearch:
		return "Search complete"
	case session.OpLoadAudit:
		return "Audit log loaded"
	case session.OpLoadTargets:
		return "Authorized targets loaded"
	case session.OpLoadVulns:
		return "Vulnerabilities loaded"
	case session.OpAuthorize:
		return "Target authorized"
	case session.OpSimulate:
		return "Attack step simulated"
	default:
		return "Done"
	}
}

func (a *App) routeToActiveView(msg tea.Msg) tea.Cmd {
	cmd := a.views[a.mode].Update(msg)
	a.status.SetKeyHints(a.views[a.mode].StatusHint())
	return cmd
}

func (a *App) setMode(mode AppMode) {
	a.mode = mode
	a.status.SetMode(mode.String())
	a.status.SetKeyHints(a.views[mode].StatusHint())
}

func (a *App) setTheme(theme *styles.Theme) {
	a.theme = theme
	a.header.SetTheme(theme)
	a.status.SetTheme(theme)
	for _, v := range a.views {
		v.SetTheme(theme)
	}
}

func (a *App) handleWindowResize(msg tea.WindowSizeMsg) {
	a.width = msg.Width
	a.height = msg.Height
	a.header.SetWidth(msg.Width)
	a.status.SetWidth(msg.Width)

	viewHeight := msg.Height - a.header.Height() - 1
	if viewHeight < 1 {
		viewHeight = 1
	}
	for _, v := range a.views {
		v.SetSize(msg.Width, viewHeight)
	}
}

// safetyIndicator renders the header's right-aligned safety status.
func (a *App) safetyIndicator() string {
	cfg := a.ctrl.Store().SafetyConfig()
	if cfg == nil {
		return ""
	}
	if stop := a.ctrl.Store().LastStop(); stop != nil {
		return a.theme.SafetyStopped.Render(" STOPPED ")
	}
	if cfg.EmergencyStopEnabled {
		return a.theme.SafetyActive.Render("safety: active")
	}
	return a.theme.SafetyDegraded.Render("safety: degraded")
}

// View implements tea.Model.
func (a *App) View() string {
	if a.showHelp {
		return a.helpView()
	}
	if a.confirmStop {
		return a.confirmStopView()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.header.Render(),
		a.views[a.mode].View(),
		a.status.Render(),
	)
}

func (a *App) helpView() string {
	var b strings.Builder
	b.WriteString(a.theme.TitleStyle.Render("redcon console") + "\n\n")
	for _, line := range a.keyMap.HelpText() {
		b.WriteString(line + "\n")
	}
	b.WriteString("\npress any key to close")

	box := a.theme.PanelStyle.Width(minInt(a.width-4, 70)).Render(b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

func (a *App) confirmStopView() string {
	body := a.theme.SafetyStopped.Render(" EMERGENCY STOP ") + "\n\n" +
		"Halt all backend activity?\n\n" +
		"y / enter  confirm\n" +
		"any other  cancel"
	box := a.theme.FocusedPanelStyle.Width(minInt(a.width-4, 44)).Render(body)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}
