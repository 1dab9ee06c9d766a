// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redconhq/redcon/internal/api"
)

// =============================================================================
// FAKE SERVICE
// =============================================================================

// fakeService counts calls and serves canned payloads. Any method whose
// err field is set fails with it.
type fakeService struct {
	mu    sync.Mutex
	calls map[string]int

	techniques []api.Technique
	vulns      []api.Vulnerability
	plans      []api.AttackPlan
	config     api.SafetyConfig
	stats      api.KnowledgeStats
	verdict    api.ValidationResult

	errs map[string]error
}

func newFakeService() *fakeService {
	return &fakeService{
		calls: make(map[string]int),
		errs:  make(map[string]error),
		techniques: []api.Technique{
			{ID: 1, Name: "Prompt Injection", Category: "llm", Severity: api.SeverityHigh},
		},
		plans: []api.AttackPlan{
			{ID: 1, Target: api.Target{Name: "Test App"}, Objectives: []string{"Identify vulnerabilities"}, Status: api.PlanStatusPlanned},
		},
		config: api.SafetyConfig{
			RequireAuthorization: true,
			LogAllActivities:     true,
			MaxConcurrentAttacks: 3,
			EmergencyStopEnabled: true,
		},
		stats:   api.KnowledgeStats{TotalTechniques: 1},
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

func (f *fakeService) failWith(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
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
	return f.techniques, nil
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
	plan := api.AttackPlan{ID: 99, Target: target, Objectives: objectives, Status: api.PlanStatusPlanned}
	return &plan, nil
}

func (f *fakeService) TestChatbot(ctx context.Context, url, testType string) (*api.ChatbotTestResult, error) {
	if err := f.hit("TestChatbot"); err != nil {
		return nil, err
	}
	return &api.ChatbotTestResult{
		Target:      url,
		TestType:    testType,
		TestSummary: api.TestSummary{TotalTests: 5, VulnerabilitiesFound: 1, RiskLevel: "medium"},
	}, nil
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
	f.mu.Lock()
	f.config = cfg
	f.mu.Unlock()
	return &cfg, nil
}

func (f *fakeService) ListAuthorizedTargets(ctx context.Context) ([]api.AuthorizedTarget, error) {
	if err := f.hit("ListAuthorizedTargets"); err != nil {
		return nil, err
	}
	return []api.AuthorizedTarget{{ID: 1, Domain: "test.example.com", Status: "active"}}, nil
}

func (f *fakeService) GetAuditLog(ctx context.Context, limit, offset int) ([]api.AuditEntry, error) {
	if err := f.hit("GetAuditLog"); err != nil {
		return nil, err
	}
	return []api.AuditEntry{{ID: 1, ActivityType: "attack_plan_created"}}, nil
}

func (f *fakeService) ValidateAttack(ctx context.Context, target api.Target, objectives []string) (*api.ValidationResult, error) {
	if err := f.hit("ValidateAttack"); err != nil {
		return nil, err
	}
	v := f.verdict
	return &v, nil
}

func (f *fakeService) AuthorizeTarget(ctx context.Context, target api.Target, details api.AuthorizationDetails) (*api.AuthorizedTarget, error) {
	if err := f.hit("AuthorizeTarget"); err != nil {
		return nil, err
	}
	return &api.AuthorizedTarget{ID: 2, Domain: "new.example.com", Status: "active", Authorized: details.AuthorizedBy}, nil
}

func (f *fakeService) SimulateAttack(ctx context.Context, attackID int64, phase, technique string) (*api.SimulationResult, error) {
	if err := f.hit("SimulateAttack"); err != nil {
		return nil, err
	}
	return &api.SimulationResult{
		AttackID:  attackID,
		Phase:     phase,
		Technique: technique,
		Status:    "simulated",
		Results:   api.SimulationFindings{Success: true, Findings: []string{"Simulated execution of " + technique}},
	}, nil
}

func (f *fakeService) EmergencyStop(ctx context.Context, reason string) (*api.StopEvent, error) {
	if err := f.hit("EmergencyStop"); err != nil {
		return nil, err
	}
	return &api.StopEvent{Timestamp: "2026-01-15T10:30:00", Reason: reason}, nil
}

// memRecorder captures audit records in memory.
type memRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *memRecorder) Record(op Operation, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, string(op)+":"+detail)
}

func newController() (*Controller, *fakeService, *memRecorder) {
	svc := newFakeService()
	rec := &memRecorder{}
	return NewController(NewStore(), svc, rec), svc, rec
}

// =============================================================================
// REFRESH
// =============================================================================

func TestRefresh_ReplacesAllCollections(t *testing.T) {
	c, svc, _ := newController()
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))

	assert.Len(t, c.Store().Techniques(), 1)
	assert.Len(t, c.Store().Plans(), 1)
	require.NotNil(t, c.Store().SafetyConfig())
	assert.True(t, c.Store().SafetyConfig().EmergencyStopEnabled)
	assert.Equal(t, 1, svc.count("ListTechniques"))
	assert.False(t, c.Store().Busy())

	// Second refresh replaces, never appends.
	svc.mu.Lock()
	svc.techniques = []api.Technique{
		{ID: 2, Name: "A"}, {ID: 3, Name: "B"},
	}
	svc.mu.Unlock()
	require.NoError(t, c.Refresh(ctx))
	assert.Len(t, c.Store().Techniques(), 2)
}

func TestRefresh_FailureLeavesSnapshotIntact(t *testing.T) {
	c, svc, _ := newController()
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	before := c.Store().Techniques()

	svc.failWith("ListTechniques", api.ErrUnreachable)
	err := c.Refresh(ctx)
	require.Error(t, err)

	assert.Equal(t, before, c.Store().Techniques(), "failed refresh must not touch collections")
	assert.False(t, c.Store().Busy())
	lastErr := c.Store().LastError()
	require.NotNil(t, lastErr)
	assert.Equal(t, api.ErrKindTransport, lastErr.Kind)
	assert.Equal(t, OpRefresh, lastErr.Op)
}

func TestErrorClearedOnlyByNextSuccess(t *testing.T) {
	c, svc, _ := newController()
	ctx := context.Background()

	svc.failWith("ListTechniques", api.ErrTimeout)
	require.Error(t, c.Refresh(ctx))
	require.NotNil(t, c.Store().LastError())
	assert.Equal(t, api.ErrKindTimeout, c.Store().LastError().Kind)

	// Another failure overwrites the record but never clears it.
	require.Error(t, c.Refresh(ctx))
	require.NotNil(t, c.Store().LastError())

	svc.failWith("ListTechniques", nil)
	require.NoError(t, c.Refresh(ctx))
	assert.Nil(t, c.Store().LastError())
}

// =============================================================================
// PENDING SLOT
// =============================================================================

func TestSingleOperationPending(t *testing.T) {
	c, _, _ := newController()

	require.NoError(t, c.Store().Begin(OpRefresh, false))
	assert.True(t, c.Store().Busy())

	err := c.LearnFromURL(context.Background(), "https://example.com/x")
	assert.ErrorIs(t, err, ErrOperationInFlight)

	// Emergency stop is exempt from the busy check.
	require.NoError(t, c.EmergencyStop(context.Background(), "now"))
	require.NotNil(t, c.Store().LastStop())
}

func TestEmergencyStop_ConfigOnlyRefresh(t *testing.T) {
	c, svc, rec := newController()
	ctx := context.Background()

	require.NoError(t, c.EmergencyStop(ctx, "operator panic"))

	assert.Equal(t, 1, svc.count("EmergencyStop"))
	assert.Equal(t, 1, svc.count("GetSafetyConfig"), "stop must re-sync the safety config")
	assert.Zero(t, svc.count("ListTechniques"), "stop must not refresh techniques")
	assert.Zero(t, svc.count("ListAttackPlans"), "stop must not refresh plans")
	require.NotNil(t, c.Store().SafetyConfig())
	assert.Contains(t, rec.entries, "emergency_stop:operator panic")
}

func TestEmergencyStop_RefetchFailureDoesNotFailStop(t *testing.T) {
	c, svc, _ := newController()
	svc.failWith("GetSafetyConfig", api.ErrUnreachable)

	require.NoError(t, c.EmergencyStop(context.Background(), "x"))
	require.NotNil(t, c.Store().LastStop())
	assert.Nil(t, c.Store().SafetyConfig())
}

// =============================================================================
// LEARN FROM URL
// =============================================================================

func TestLearnFromURL_EmptyURLNeverDispatches(t *testing.T) {
	c, svc, _ := newController()

	err := c.LearnFromURL(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	assert.Zero(t, svc.count("LearnFromURL"))
	assert.Zero(t, svc.count("ListTechniques"))
	assert.False(t, c.Store().Busy(), "validation failure must not enter loading state")
	require.NotNil(t, c.Store().LastError())
	assert.Equal(t, api.ErrKindValidation, c.Store().LastError().Kind)
}

func TestLearnFromURL_RefreshesExactlyOnce(t *testing.T) {
	c, svc, rec := newController()

	require.NoError(t, c.LearnFromURL(context.Background(), "https://example.com/writeup"))

	assert.Equal(t, 1, svc.count("LearnFromURL"))
	assert.Equal(t, 1, svc.count("ListTechniques"), "exactly one refresh after a successful write")
	assert.Equal(t, 1, svc.count("ListAttackPlans"))
	assert.Contains(t, rec.entries, "learn_from_url:https://example.com/writeup")
}

func TestLearnFromURL_BackendFailureNoRefresh(t *testing.T) {
	c, svc, _ := newController()
	svc.failWith("LearnFromURL", &api.ClientError{Kind: api.ErrKindSemantic, Message: "extraction failed"})

	err := c.LearnFromURL(context.Background(), "https://example.com/x")
	require.Error(t, err)
	assert.Zero(t, svc.count("ListTechniques"), "failed write must not trigger refresh")
	assert.Equal(t, api.ErrKindSemantic, c.Store().LastError().Kind)
}

// =============================================================================
// CREATE ATTACK PLAN
// =============================================================================

func TestCreateAttackPlan_LocalValidation(t *testing.T) {
	c, svc, _ := newController()
	ctx := context.Background()

	err := c.CreateAttackPlan(ctx, api.Target{}, []string{"x"})
	assert.True(t, api.IsValidation(err))

	err = c.CreateAttackPlan(ctx, api.Target{Name: "app"}, nil)
	assert.True(t, api.IsValidation(err))

	assert.Zero(t, svc.count("ValidateAttack"))
	assert.Zero(t, svc.count("CreateAttackPlan"))
	assert.False(t, c.Store().Busy())
}

func TestCreateAttackPlan_SafetyVeto(t *testing.T) {
	c, svc, _ := newController()
	svc.verdict = api.ValidationResult{Valid: false, Errors: []string{"target not authorized"}}

	err := c.CreateAttackPlan(context.Background(), api.Target{Name: "app", URL: "https://x.example.com"}, []string{"probe"})
	require.Error(t, err)
	assert.Zero(t, svc.count("CreateAttackPlan"), "vetoed plan must not be created")
	assert.Contains(t, c.Store().LastError().Message, "target not authorized")
}

func TestCreateAttackPlan_RefreshAfterWrite(t *testing.T) {
	c, svc, rec := newController()

	require.NoError(t, c.CreateAttackPlan(context.Background(),
		api.Target{Name: "Test App", URL: "https://test.example.com", Type: "web"},
		[]string{"Identify vulnerabilities", "Test security controls"}))

	assert.Equal(t, 1, svc.count("ValidateAttack"))
	assert.Equal(t, 1, svc.count("CreateAttackPlan"))
	assert.Equal(t, 1, svc.count("ListAttackPlans"))
	assert.Contains(t, rec.entries, "create_attack_plan:Test App")
}

// =============================================================================
// CHATBOT TEST
// =============================================================================

func TestTestChatbot_StoresResultWithoutRefresh(t *testing.T) {
	c, svc, _ := newController()

	require.NoError(t, c.TestChatbot(context.Background(), "https://bot.example.com/chat", "basic"))

	result := c.Store().ChatbotResult()
	require.NotNil(t, result)
	assert.Equal(t, 5, result.TestSummary.TotalTests)
	assert.Zero(t, svc.count("ListTechniques"), "chatbot test is summary-only, no refresh")
}

func TestTestChatbot_EmptyURL(t *testing.T) {
	c, svc, _ := newController()

	err := c.TestChatbot(context.Background(), "", "basic")
	assert.True(t, api.IsValidation(err))
	assert.Zero(t, svc.count("TestChatbot"))
}

// =============================================================================
// SAFETY CONFIG UPDATE
// =============================================================================

func TestUpdateSafetyConfig_RefetchesAfterPush(t *testing.T) {
	c, svc, _ := newController()

	cfg := api.SafetyConfig{
		RequireAuthorization: true,
		LogAllActivities:     false,
		MaxConcurrentAttacks: 5,
		EmergencyStopEnabled: true,
	}
	require.NoError(t, c.UpdateSafetyConfig(context.Background(), cfg))

	assert.Equal(t, 1, svc.count("UpdateSafetyConfig"))
	assert.Equal(t, 1, svc.count("GetSafetyConfig"))
	require.NotNil(t, c.Store().SafetyConfig())
	assert.Equal(t, 5, c.Store().SafetyConfig().MaxConcurrentAttacks)
}

func TestLoadVulnerabilities_OnDemand(t *testing.T) {
	c, svc, _ := newController()
	svc.vulns = []api.Vulnerability{{ID: 1, Name: "Leaked System Prompt", Severity: api.SeverityMedium}}

	require.NoError(t, c.Refresh(context.Background()))
	assert.Zero(t, svc.count("ListVulnerabilities"), "refresh must not load the catalog")

	require.NoError(t, c.LoadVulnerabilities(context.Background()))
	assert.Equal(t, 1, svc.count("ListVulnerabilities"))

	vulns := c.Store().Vulnerabilities()
	require.Len(t, vulns, 1)
	assert.Equal(t, "Leaked System Prompt", vulns[0].Name)
}

// =============================================================================
// AUTHORIZE TARGET
// =============================================================================

func TestAuthorizeTarget_RefetchesRegistry(t *testing.T) {
	c, svc, rec := newController()

	require.NoError(t, c.AuthorizeTarget(context.Background(),
		api.Target{Name: "New App", URL: "https://new.example.com", Type: "web"},
		api.AuthorizationDetails{AuthorizedBy: "J. Reyes", Scope: []string{"web"}}))

	assert.Equal(t, 1, svc.count("AuthorizeTarget"))
	assert.Equal(t, 1, svc.count("ListAuthorizedTargets"), "registry must be re-fetched after the write")
	assert.NotEmpty(t, c.Store().AuthorizedTargets())
	assert.Contains(t, rec.entries, "authorize_target:new.example.com")
}

func TestAuthorizeTarget_LocalValidation(t *testing.T) {
	c, svc, _ := newController()
	ctx := context.Background()

	err := c.AuthorizeTarget(ctx, api.Target{Name: "no url"}, api.AuthorizationDetails{AuthorizedBy: "x"})
	assert.True(t, api.IsValidation(err))

	err = c.AuthorizeTarget(ctx, api.Target{URL: "https://x.example.com"}, api.AuthorizationDetails{})
	assert.True(t, api.IsValidation(err))

	assert.Zero(t, svc.count("AuthorizeTarget"))
	assert.False(t, c.Store().Busy())
}

// =============================================================================
// SIMULATE ATTACK
// =============================================================================

func TestSimulateAttack_StoresResultAndRefreshesPlans(t *testing.T) {
	c, svc, rec := newController()

	require.NoError(t, c.SimulateAttack(context.Background(), 1, "exploitation", "SQL injection"))

	result := c.Store().SimulationResult()
	require.NotNil(t, result)
	assert.Equal(t, "simulated", result.Status)
	assert.True(t, result.Results.Success)
	assert.Equal(t, 1, svc.count("ListAttackPlans"), "plan history must be re-fetched")
	assert.Zero(t, svc.count("ListTechniques"), "simulation must not refresh the knowledge base")
	assert.Contains(t, rec.entries, "simulate_attack:exploitation/SQL injection on plan 1")
}

func TestSimulateAttack_LocalValidation(t *testing.T) {
	c, svc, _ := newController()
	ctx := context.Background()

	assert.True(t, api.IsValidation(c.SimulateAttack(ctx, 0, "exploitation", "x")))
	assert.True(t, api.IsValidation(c.SimulateAttack(ctx, 1, "", "x")))
	assert.True(t, api.IsValidation(c.SimulateAttack(ctx, 1, "exploitation", " ")))
	assert.Zero(t, svc.count("SimulateAttack"))
}

// =============================================================================
// STALE RESPONSES
// =============================================================================

func TestStaleResponseDiscarded(t *testing.T) {
	st := NewStore()

	slow := st.BeginFetch(ResTechniques)
	fresh := st.BeginFetch(ResTechniques)

	require.True(t, st.SetTechniques(fresh, []api.Technique{{ID: 2, Name: "fresh"}}))
	require.False(t, st.SetTechniques(slow, []api.Technique{{ID: 1, Name: "stale"}}),
		"older token must be rejected")

	techniques := st.Techniques()
	require.Len(t, techniques, 1)
	assert.Equal(t, "fresh", techniques[0].Name)
}

func TestStoreReadsReturnCopies(t *testing.T) {
	st := NewStore()
	tok := st.BeginFetch(ResTechniques)
	st.SetTechniques(tok, []api.Technique{{ID: 1, Name: "original"}})

	got := st.Techniques()
	got[0].Name = "mutated"

	assert.Equal(t, "original", st.Techniques()[0].Name)
}
