// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"context"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/redconhq/redcon/internal/api"
	"github.com/redconhq/redcon/internal/session"
	"github.com/redconhq/redcon/internal/ui/styles"
)

// fakeService is an in-memory backend for view tests. All calls succeed
// unless an error is armed for the method name.
type fakeService struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error

	techniques []api.Technique
	vulns      []api.Vulnerability
	plans      []api.AttackPlan
	config     api.SafetyConfig
	stats      api.KnowledgeStats
	targets    []api.AuthorizedTarget
	auditLog   []api.AuditEntry
	verdict    api.ValidationResult
	chatbot    api.ChatbotTestResult
}

func newFakeService() *fakeService {
	return &fakeService{
		calls: make(map[string]int),
		errs:  make(map[string]error),
		config: api.SafetyConfig{
			RequireAuthorization:     true,
			LogAllActivities:         true,
			BlockUnauthorizedTargets: true,
			MaxConcurrentAttacks:     3,
			EmergencyStopEnabled:     true,
		},
		verdict: api.ValidationResult{Valid: true},
	}
}

func (f *fakeService) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.errs[name]
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) ListTechniques(ctx context.Context) ([]api.Technique, error) {
	if err := f.hit("ListTechniques"); err != nil {
		return nil, err
	}
	return f.techniques, nil
}

func (f *fakeService) SearchTechniques(ctx context.Context, query string) ([]api.Technique, error) {
	if err := f.hit("SearchTechniques"); err != nil {
		return nil, err
	}
	var out []api.Technique
	for _, t := range f.techniques {
		if t.Category == query || t.Name == query {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeService) ListVulnerabilities(ctx context.Context) ([]api.Vulnerability, error) {
	if err := f.hit("ListVulnerabilities"); err != nil {
		return nil, err
	}
	return f.vulns, nil
}

func (f *fakeService) GetKnowledgeStats(ctx context.Context) (*api.KnowledgeStats, error) {
	if err := f.hit("GetKnowledgeStats"); err != nil {
		return nil, err
	}
	st := f.stats
	return &st, nil
}

func (f *fakeService) LearnFromURL(ctx context.Context, url string) ([]api.Technique, error) {
	if err := f.hit("LearnFromURL"); err != nil {
		return nil, err
	}
	return f.techniques, nil
}

func (f *fakeService) ListAttackPlans(ctx context.Context) ([]api.AttackPlan, error) {
	if err := f.hit("ListAttackPlans"); err != nil {
		return nil, err
	}
	return f.plans, nil
}

func (f *fakeService) CreateAttackPlan(ctx context.Context, target api.Target, objectives []string) (*api.AttackPlan, error) {
	if err := f.hit("CreateAttackPlan"); err != nil {
		return nil, err
	}
	plan := api.AttackPlan{
		ID:         int64(len(f.plans) + 1),
		Target:     target,
		Objectives: objectives,
		Status:     api.PlanStatusPlanned,
	}
	f.mu.Lock()
	f.plans = append(f.plans, plan)
	f.mu.Unlock()
	return &plan, nil
}

func (f *fakeService) TestChatbot(ctx context.Context, url, testType string) (*api.ChatbotTestResult, error) {
	if err := f.hit("TestChatbot"); err != nil {
		return nil, err
	}
	r := f.chatbot
	r.Target = url
	r.TestType = testType
	return &r, nil
}

func (f *fakeService) GetSafetyConfig(ctx context.Context) (*api.SafetyConfig, error) {
	if err := f.hit("GetSafetyConfig"); err != nil {
		return nil, err
	}
	cfg := f.config
	return &cfg, nil
}

func (f *fakeService) UpdateSafetyConfig(ctx context.Context, cfg api.SafetyConfig) (*api.SafetyConfig, error) {
	if err := f.hit("UpdateSafetyConfig"); err != nil {
		return nil, err
	}
	stop := f.config.EmergencyStopEnabled
	f.mu.Lock()
	f.config = cfg
	f.config.EmergencyStopEnabled = stop
	f.mu.Unlock()
	out := f.config
	return &out, nil
}

func (f *fakeService) AuthorizeTarget(ctx context.Context, target api.Target, details api.AuthorizationDetails) (*api.AuthorizedTarget, error) {
	if err := f.hit("AuthorizeTarget"); err != nil {
		return nil, err
	}
	auth := api.AuthorizedTarget{
		ID:         int64(len(f.targets) + 1),
		Domain:     strings.TrimPrefix(strings.TrimPrefix(target.URL, "https://"), "http://"),
		Status:     "active",
		Authorized: details.AuthorizedBy,
		Expiry:     details.ExpiryDate,
	}
	f.mu.Lock()
	f.targets = append(f.targets, auth)
	f.mu.Unlock()
	return &auth, nil
}

func (f *fakeService) SimulateAttack(ctx context.Context, attackID int64, phase, technique string) (*api.SimulationResult, error) {
	if err := f.hit("SimulateAttack"); err != nil {
		return nil, err
	}
	return &api.SimulationResult{
		AttackID:  attackID,
		Phase:     phase,
		Technique: technique,
		Timestamp: "2025-06-01T12:00:00",
		Status:    "simulated",
		Results: api.SimulationFindings{
			Success:  true,
			Findings: []string{"Simulated execution of " + technique},
		},
	}, nil
}

func (f *fakeService) ListAuthorizedTargets(ctx context.Context) ([]api.AuthorizedTarget, error) {
	if err := f.hit("ListAuthorizedTargets"); err != nil {
		return nil, err
	}
	return f.targets, nil
}

func (f *fakeService) GetAuditLog(ctx context.Context, limit, offset int) ([]api.AuditEntry, error) {
	if err := f.hit("GetAuditLog"); err != nil {
		return nil, err
	}
	return f.auditLog, nil
}

func (f *fakeService) ValidateAttack(ctx context.Context, target api.Target, objectives []string) (*api.ValidationResult, error) {
	if err := f.hit("ValidateAttack"); err != nil {
		return nil, err
	}
	v := f.verdict
	return &v, nil
}

func (f *fakeService) EmergencyStop(ctx context.Context, reason string) (*api.StopEvent, error) {
	if err := f.hit("EmergencyStop"); err != nil {
		return nil, err
	}
	return &api.StopEvent{Timestamp: "2025-06-01T12:00:00", Reason: reason}, nil
}

// newTestController wires a controller over the fake.
func newTestController(svc *fakeService) *session.Controller {
	return session.NewController(session.NewStore(), svc, nil)
}

// seedTechniques returns a small representative catalog.
func seedTechniques() []api.Technique {
	return []api.Technique{
		{ID: 1, Name: "Prompt Injection", Category: "llm", Severity: api.SeverityCritical,
			Description: "Override system instructions through user input."},
		{ID: 2, Name: "SQL Injection", Category: "web", Severity: api.SeverityHigh,
			Description: "Inject SQL through unsanitized parameters."},
		{ID: 3, Name: "Directory Listing", Category: "web", Severity: api.SeverityLow,
			Description: "Enumerate exposed directories."},
	}
}

// runCmd executes a command synchronously, expanding batches, and returns
// every message produced. Safe here because the fake service never blocks.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// deliver runs a command and feeds every resulting message back into the
// view, mimicking one turn of the program loop.
func deliver(v interface{ Update(tea.Msg) tea.Cmd }, cmd tea.Cmd) {
	for _, msg := range runCmd(cmd) {
		if next := v.Update(msg); next != nil {
			deliver(v, next)
		}
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testTheme() *styles.Theme {
	return styles.DefaultTheme()
}
