// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/redconhq/redcon/internal/api"
)

// Service is the backend surface the controller drives. *api.Client
// satisfies it; tests substitute a fake.
type Service interface {
	ListTechniques(ctx context.Context) ([]api.Technique, error)
	SearchTechniques(ctx context.Context, query string) ([]api.Technique, error)
	ListVulnerabilities(ctx context.Context) ([]api.Vulnerability, error)
	GetKnowledgeStats(ctx context.Context) (*api.KnowledgeStats, error)
	LearnFromURL(ctx context.Context, url string) ([]api.Technique, error)
	ListAttackPlans(ctx context.Context) ([]api.AttackPlan, error)
	CreateAttackPlan(ctx context.Context, target api.Target, objectives []string) (*api.AttackPlan, error)
	TestChatbot(ctx context.Context, url, testType string) (*api.ChatbotTestResult, error)
	GetSafetyConfig(ctx context.Context) (*api.SafetyConfig, error)
	UpdateSafetyConfig(ctx context.Context, cfg api.SafetyConfig) (*api.SafetyConfig, error)
	ListAuthorizedTargets(ctx context.Context) ([]api.AuthorizedTarget, error)
	GetAuditLog(ctx context.Context, limit, offset int) ([]api.AuditEntry, error)
	ValidateAttack(ctx context.Context, target api.Target, objectives []string) (*api.ValidationResult, error)
	AuthorizeTarget(ctx context.Context, target api.Target, details api.AuthorizationDetails) (*api.AuthorizedTarget, error)
	SimulateAttack(ctx context.Context, attackID int64, phase, technique string) (*api.SimulationResult, error)
	EmergencyStop(ctx context.Context, reason string) (*api.StopEvent, error)
}

// Recorder receives one entry per completed client-initiated operation.
// The local audit trail implements it; a nil recorder disables recording.
type Recorder interface {
	Record(op Operation, detail string)
}

// Controller sequences backend operations against the store. Every
// operation follows the same shape: acquire the pending slot, perform the
// network work, apply the payload wholesale, release the slot as success
// or failure. Methods block and are meant to run inside command
// goroutines, one call per user action.
type Controller struct {
	store    *Store
	svc      Service
	recorder Recorder
}

// NewController wires a controller to its store and backend service.
func NewController(store *Store, svc Service, recorder Recorder) *Controller {
	return &Controller{store: store, svc: svc, recorder: recorder}
}

// Store exposes the underlying store for read access.
func (c *Controller) Store() *Store {
	return c.store
}

func (c *Controller) record(op Operation, detail string) {
	if c.recorder != nil {
		c.recorder.Record(op, detail)
	}
}

// fail normalizes an operation error into the store record.
func (c *Controller) fail(op Operation, err error) error {
	c.store.Fail(op, err.Error(), api.KindOf(err))
	return err
}

// =============================================================================
// REFRESH
// =============================================================================

// Refresh re-fetches techniques, attack plans, safety config and knowledge
// stats, replacing each collection wholesale. The first failed fetch aborts
// the operation; collections already applied stay applied.
func (c *Controller) Refresh(ctx context.Context) error {
	if err := c.store.Begin(OpRefresh, false); err != nil {
		return err
	}
	if err := c.fetchAll(ctx); err != nil {
		return c.fail(OpRefresh, err)
	}
	c.store.Succeed(OpRefresh)
	return nil
}

// fetchAll performs the four collection fetches under fresh generation
// tokens. Caller owns the pending slot.
func (c *Controller) fetchAll(ctx context.Context) error {
	techTok := c.store.BeginFetch(ResTechniques)
	techniques, err := c.svc.ListTechniques(ctx)
	if err != nil {
		return err
	}
	c.store.SetTechniques(techTok, techniques)

	planTok := c.store.BeginFetch(ResPlans)
	plans, err := c.svc.ListAttackPlans(ctx)
	if err != nil {
		return err
	}
	c.store.SetPlans(planTok, plans)

	cfgTok := c.store.BeginFetch(ResSafetyConfig)
	cfg, err := c.svc.GetSafetyConfig(ctx)
	if err != nil {
		return err
	}
	c.store.SetSafetyConfig(cfgTok, cfg)

	statsTok := c.store.BeginFetch(ResStats)
	stats, err := c.svc.GetKnowledgeStats(ctx)
	if err != nil {
		return err
	}
	c.store.SetStats(statsTok, stats)

	return nil
}

// refreshSafetyConfig re-fetches only the safety config. Used after an
// emergency stop so emergency_stop_enabled reflects the backend's
// authoritative state, and after a config update.
func (c *Controller) refreshSafetyConfig(ctx context.Context) error {
	tok := c.store.BeginFetch(ResSafetyConfig)
	cfg, err := c.svc.GetSafetyConfig(ctx)
	if err != nil {
		return err
	}
	c.store.SetSafetyConfig(tok, cfg)
	return nil
}

// =============================================================================
// KNOWLEDGE OPERATIONS
// =============================================================================

// LearnFromURL submits a URL for knowledge extraction. An empty URL is
// rejected before the pending slot is even taken, so no loading state is
// entered and no request is made. On success the collections are
// re-fetched exactly once.
func (c *Controller) LearnFromURL(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		err := &api.ClientError{Kind: api.ErrKindValidation, Message: "URL is required"}
		c.store.Fail(OpLearn, err.Message, err.Kind)
		return err
	}
	if err := c.store.Begin(OpLearn, false); err != nil {
		return err
	}
	if _, err := c.svc.LearnFromURL(ctx, url); err != nil {
		return c.fail(OpLearn, err)
	}
	if err := c.fetchAll(ctx); err != nil {
		return c.fail(OpLearn, err)
	}
	c.store.Succeed(OpLearn)
	c.record(OpLearn, url)
	return nil
}

// SearchTechniques runs a server-side knowledge base search.
func (c *Controller) SearchTechniques(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		c.store.ClearSearchResults()
		return nil
	}
	if err := c.store.Begin(OpSearch, false); err != nil {
		return err
	}
	tok := c.store.BeginFetch(ResSearchResults)
	results, err := c.svc.SearchTechniques(ctx, query)
	if err != nil {
		return c.fail(OpSearch, err)
	}
	c.store.SetSearchResults(tok, query, results)
	c.store.Succeed(OpSearch)
	return nil
}

// LoadVulnerabilities fetches the vulnerability catalog. It is loaded on
// demand, not as part of Refresh.
func (c *Controller) LoadVulnerabilities(ctx context.Context) error {
	if err := c.store.Begin(OpLoadVulns, false); err != nil {
		return err
	}
	tok := c.store.BeginFetch(ResVulnerabilities)
	vulns, err := c.svc.ListVulnerabilities(ctx)
	if err != nil {
		return c.fail(OpLoadVulns, err)
	}
	c.store.SetVulnerabilities(tok, vulns)
	c.store.Succeed(OpLoadVulns)
	return nil
}

// =============================================================================
// ATTACK OPERATIONS
// =============================================================================

// CreateAttackPlan vets and declares a new attack plan. The target and
// objectives are validated locally, then by the backend safety layer; only
// a passing validation proceeds to plan creation. On success the
// collections are re-fetched exactly once.
func (c *Controller) CreateAttackPlan(ctx context.Context, target api.Target, objectives []string) error {
	if target.IsZero() {
		err := &api.ClientError{Kind: api.ErrKindValidation, Message: "target requires a name or URL"}
		c.store.Fail(OpCreatePlan, err.Message, err.Kind)
		return err
	}
	if len(objectives) == 0 {
		err := &api.ClientError{Kind: api.ErrKindValidation, Message: "at least one objective is required"}
		c.store.Fail(OpCreatePlan, err.Message, err.Kind)
		return err
	}
	if err := c.store.Begin(OpCreatePlan, false); err != nil {
		return err
	}

	verdict, err := c.svc.ValidateAttack(ctx, target, objectives)
	if err != nil {
		return c.fail(OpCreatePlan, err)
	}
	if !verdict.Valid {
		msg := "attack rejected by safety layer"
		if len(verdict.Errors) > 0 {
			msg = msg + ": " + strings.Join(verdict.Errors, "; ")
		}
		err := &api.ClientError{Kind: api.ErrKindSemantic, Message: msg}
		return c.fail(OpCreatePlan, err)
	}

	if _, err := c.svc.CreateAttackPlan(ctx, target, objectives); err != nil {
		return c.fail(OpCreatePlan, err)
	}
	if err := c.fetchAll(ctx); err != nil {
		return c.fail(OpCreatePlan, err)
	}
	c.store.Succeed(OpCreatePlan)
	detail := target.Name
	if detail == "" {
		detail = target.URL
	}
	c.record(OpCreatePlan, detail)
	return nil
}

// SimulateAttack runs one simulated step of a declared plan and stores the
// outcome. The plan collection is re-fetched so the plan record's appended
// simulation history stays current.
func (c *Controller) SimulateAttack(ctx context.Context, attackID int64, phase, technique string) error {
	if attackID <= 0 {
		err := &api.ClientError{Kind: api.ErrKindValidation, Message: "select a plan to simulate"}
		c.store.Fail(OpSimulate, err.Message, err.Kind)
		return err
	}
	if strings.TrimSpace(phase) == "" || strings.TrimSpace(technique) == "" {
		err := &api.ClientError{Kind: api.ErrKindValidation, Message: "phase and technique are required"}
		c.store.Fail(OpSimulate, err.Message, err.Kind)
		return err
	}
	if err := c.store.Begin(OpSimulate, false); err != nil {
		return err
	}
	simTok := c.store.BeginFetch(ResSimulation)
	result, err := c.svc.SimulateAttack(ctx, attackID, phase, technique)
	if err != nil {
		return c.fail(OpSimulate, err)
	}
	c.store.SetSimulationResult(simTok, result)

	planTok := c.store.BeginFetch(ResPlans)
	plans, err := c.svc.ListAttackPlans(ctx)
	if err != nil {
		return c.fail(OpSimulate, err)
	}
	c.store.SetPlans(planTok, plans)
	c.store.Succeed(OpSimulate)
	c.record(OpSimulate, fmt.Sprintf("%s/%s on plan %d", phase, technique, attackID))
	return nil
}

// TestChatbot probes a chatbot endpoint. The result is a self-contained
// summary, so no collection refresh follows.
func (c *Controller) TestChatbot(ctx context.Context, url, testType string) error {
	if strings.TrimSpace(url) == "" {
		err := &api.ClientError{Kind: api.ErrKindValidation, Message: "chatbot URL is required"}
		c.store.Fail(OpTestChatbot, err.Message, err.Kind)
		return err
	}
	if err := c.store.Begin(OpTestChatbot, false); err != nil {
		return err
	}
	tok := c.store.BeginFetch(ResChatbotResult)
	result, err := c.svc.TestChatbot(ctx, url, testType)
	if err != nil {
		return c.fail(OpTestChatbot, err)
	}
	c.store.SetChatbotResult(tok, result)
	c.store.Succeed(OpTestChatbot)
	c.record(OpTestChatbot, url)
	return nil
}

// =============================================================================
// SAFETY OPERATIONS
// =============================================================================

// EmergencyStop halts all backend activity. It is exempt from the
// single-pending-operation rule: a stop must never wait behind routine
// work. On acknowledgment only the safety config is re-fetched; no
// technique or plan refresh happens on this path. A failed re-fetch does
// not fail the stop, the acknowledgment already happened.
func (c *Controller) EmergencyStop(ctx context.Context, reason string) error {
	if err := c.store.Begin(OpEmergencyStop, true); err != nil {
		return err
	}
	ev, err := c.svc.EmergencyStop(ctx, reason)
	if err != nil {
		return c.fail(OpEmergencyStop, err)
	}
	c.store.SetLastStop(ev)
	_ = c.refreshSafetyConfig(ctx)
	c.store.Succeed(OpEmergencyStop)
	c.record(OpEmergencyStop, ev.Reason)
	return nil
}

// UpdateSafetyConfig pushes new guardrail settings, then re-fetches the
// config so the snapshot reflects whatever the backend actually accepted.
func (c *Controller) UpdateSafetyConfig(ctx context.Context, cfg api.SafetyConfig) error {
	if err := c.store.Begin(OpUpdateSafety, false); err != nil {
		return err
	}
	if _, err := c.svc.UpdateSafetyConfig(ctx, cfg); err != nil {
		return c.fail(OpUpdateSafety, err)
	}
	if err := c.refreshSafetyConfig(ctx); err != nil {
		return c.fail(OpUpdateSafety, err)
	}
	c.store.Succeed(OpUpdateSafety)
	c.record(OpUpdateSafety, "safety config updated")
	return nil
}

// AuthorizeTarget registers a new testing authorization, then re-fetches
// the registry so the snapshot shows the backend-assigned record.
func (c *Controller) AuthorizeTarget(ctx context.Context, target api.Target, details api.AuthorizationDetails) error {
	if strings.TrimSpace(target.URL) == "" {
		err := &api.ClientError{Kind: api.ErrKindValidation, Message: "target URL is required"}
		c.store.Fail(OpAuthorize, err.Message, err.Kind)
		return err
	}
	if strings.TrimSpace(details.AuthorizedBy) == "" {
		err := &api.ClientError{Kind: api.ErrKindValidation, Message: "authorized_by is required"}
		c.store.Fail(OpAuthorize, err.Message, err.Kind)
		return err
	}
	if err := c.store.Begin(OpAuthorize, false); err != nil {
		return err
	}
	auth, err := c.svc.AuthorizeTarget(ctx, target, details)
	if err != nil {
		return c.fail(OpAuthorize, err)
	}

	tok := c.store.BeginFetch(ResAuthorizedTargets)
	targets, err := c.svc.ListAuthorizedTargets(ctx)
	if err != nil {
		return c.fail(OpAuthorize, err)
	}
	c.store.SetAuthorizedTargets(tok, targets)
	c.store.Succeed(OpAuthorize)
	c.record(OpAuthorize, auth.Domain)
	return nil
}

// LoadAuthorizedTargets fetches the authorization registry.
func (c *Controller) LoadAuthorizedTargets(ctx context.Context) error {
	if err := c.store.Begin(OpLoadTargets, false); err != nil {
		return err
	}
	tok := c.store.BeginFetch(ResAuthorizedTargets)
	targets, err := c.svc.ListAuthorizedTargets(ctx)
	if err != nil {
		return c.fail(OpLoadTargets, err)
	}
	c.store.SetAuthorizedTargets(tok, targets)
	c.store.Succeed(OpLoadTargets)
	return nil
}

// LoadAuditLog fetches a page of the backend activity log.
func (c *Controller) LoadAuditLog(ctx context.Context, limit, offset int) error {
	if err := c.store.Begin(OpLoadAudit, false); err != nil {
		return err
	}
	tok := c.store.BeginFetch(ResAuditLog)
	entries, err := c.svc.GetAuditLog(ctx, limit, offset)
	if err != nil {
		return c.fail(OpLoadAudit, err)
	}
	c.store.SetAuditEntries(tok, entries)
	c.store.Succeed(OpLoadAudit)
	return nil
}
