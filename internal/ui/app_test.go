// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redconhq/redcon/internal/api"
	"github.com/redconhq/redcon/internal/session"
	"github.com/redconhq/redcon/internal/ui/views"
)

// nullService is a backend stub that succeeds with empty payloads.
type nullService struct{}

func (nullService) ListTechniques(context.Context) ([]api.Technique, error)      { return nil, nil }
func (nullService) SearchTechniques(context.Context, string) ([]api.Technique, error) {
	return nil, nil
}
func (nullService) ListVulnerabilities(context.Context) ([]api.Vulnerability, error) {
	return nil, nil
}
func (nullService) GetKnowledgeStats(context.Context) (*api.KnowledgeStats, error) {
	return &api.KnowledgeStats{}, nil
}
func (nullService) LearnFromURL(context.Context, string) ([]api.Technique, error) { return nil, nil }
func (nullService) ListAttackPlans(context.Context) ([]api.AttackPlan, error)     { return nil, nil }
func (nullService) CreateAttackPlan(context.Context, api.Target, []string) (*api.AttackPlan, error) {
	return &api.AttackPlan{}, nil
}
func (nullService) TestChatbot(context.Context, string, string) (*api.ChatbotTestResult, error) {
	return &api.ChatbotTestResult{}, nil
}
func (nullService) GetSafetyConfig(context.Context) (*api.SafetyConfig, error) {
	return &api.SafetyConfig{EmergencyStopEnabled: true, MaxConcurrentAttacks: 3}, nil
}
func (nullService) UpdateSafetyConfig(_ context.Context, cfg api.SafetyConfig) (*api.SafetyConfig, error) {
	return &cfg, nil
}
func (nullService) ListAuthorizedTargets(context.Context) ([]api.AuthorizedTarget, error) {
	return nil, nil
}
func (nullService) AuthorizeTarget(context.Context, api.Target, api.AuthorizationDetails) (*api.AuthorizedTarget, error) {
	return &api.AuthorizedTarget{Status: "active"}, nil
}
func (nullService) SimulateAttack(_ context.Context, attackID int64, phase, technique string) (*api.SimulationResult, error) {
	return &api.SimulationResult{AttackID: attackID, Phase: phase, Technique: technique, Status: "simulated"}, nil
}
func (nullService) GetAuditLog(context.Context, int, int) ([]api.AuditEntry, error) {
	return nil, nil
}
func (nullService) ValidateAttack(context.Context, api.Target, []string) (*api.ValidationResult, error) {
	return &api.ValidationResult{Valid: true}, nil
}
func (nullService) EmergencyStop(_ context.Context, reason string) (*api.StopEvent, error) {
	return &api.StopEvent{Timestamp: "2025-06-01T12:00:00", Reason: reason}, nil
}

func newTestApp(opts Options) *App {
	ctrl := session.NewController(session.NewStore(), nullService{}, nil)
	app := NewApp(ctrl, opts)
	app.handleWindowResize(tea.WindowSizeMsg{Width: 100, Height: 30})
	return app
}

// drain executes a command tree synchronously and feeds every message
// back into the app, mimicking the program loop.
func drain(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			drain(t, app, c)
		}
		return
	}
	if msg == nil {
		return
	}
	// Spinner ticks would chain forever; the animation is not under test.
	if _, ok := msg.(spinner.TickMsg); ok {
		return
	}
	_, next := app.Update(msg)
	drain(t, app, next)
}

func press(app *App, key tea.KeyMsg) tea.Cmd {
	_, cmd := app.Update(key)
	return cmd
}

func TestApp_ModeSwitching(t *testing.T) {
	app := newTestApp(Options{})

	assert.Equal(t, ModeDashboard, app.Mode())
	press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	assert.Equal(t, ModeKnowledge, app.Mode())
	press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("4")})
	assert.Equal(t, ModeSafety, app.Mode())
	press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	assert.Equal(t, ModeDashboard, app.Mode())
}

func TestApp_HelpOverlay(t *testing.T) {
	app := newTestApp(Options{})

	press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Contains(t, app.View(), "emergency stop")

	// Any key closes the overlay.
	press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.NotContains(t, app.View(), "press any key to close")
}

func TestApp_QuitKeys(t *testing.T) {
	app := newTestApp(Options{})

	cmd := press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	cmd = press(app, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_ActiveInputSuppressesGlobalKeys(t *testing.T) {
	app := newTestApp(Options{})

	press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, app.inputCaptured())

	// Printable globals go to the focused input instead of quitting or
	// switching views.
	cmd := press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		assert.NotEqual(t, tea.Quit(), cmd())
	}
	press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	assert.Equal(t, ModeKnowledge, app.Mode())

	press(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, app.inputCaptured())
}

func TestApp_EmergencyStopConfirmFlow(t *testing.T) {
	app := newTestApp(Options{ConfirmEmergencyStop: true})

	cmd := press(app, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Nil(t, cmd)
	assert.Contains(t, app.View(), "Halt all backend activity?")

	// Anything but y / enter cancels.
	press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.NotContains(t, app.View(), "Halt all backend activity?")

	press(app, tea.KeyMsg{Type: tea.KeyCtrlX})
	cmd = press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)
	drain(t, app, cmd)

	assert.NotNil(t, app.ctrl.Store().LastStop())
	assert.Contains(t, app.View(), "EMERGENCY STOP acknowledged")
}

func TestApp_EmergencyStopWithoutConfirm(t *testing.T) {
	app := newTestApp(Options{})

	cmd := press(app, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.NotNil(t, cmd)
	drain(t, app, cmd)

	stop := app.ctrl.Store().LastStop()
	require.NotNil(t, stop)
	assert.Equal(t, "operator initiated", stop.Reason)
}

func TestApp_RefreshUpdatesIndicator(t *testing.T) {
	app := newTestApp(Options{})

	drain(t, app, press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}))

	require.NotNil(t, app.ctrl.Store().SafetyConfig())
	assert.Contains(t, app.View(), "safety: active")
}

func TestApp_AuditToggleMirrorsBackend(t *testing.T) {
	var got []bool
	app := newTestApp(Options{AuditToggle: func(enabled bool) { got = append(got, enabled) }})

	drain(t, app, press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}))

	// nullService reports log_all_activities false.
	require.NotEmpty(t, got)
	assert.False(t, got[len(got)-1])
}

func TestApp_OpStartedShowsBusyState(t *testing.T) {
	app := newTestApp(Options{})

	app.Update(views.OpStartedMsg{Op: session.OpRefresh, Note: "Refreshing..."})
	assert.True(t, app.spinner.Active())
	assert.Contains(t, app.View(), "Refreshing...")
}

func TestModeFromKey(t *testing.T) {
	for key, want := range map[string]AppMode{
		"1": ModeDashboard,
		"2": ModeKnowledge,
		"3": ModeAttack,
		"4": ModeSafety,
	} {
		mode, ok := ModeFromKey(key)
		assert.True(t, ok)
		assert.Equal(t, want, mode)
	}
	_, ok := ModeFromKey("5")
	assert.False(t, ok)
}
