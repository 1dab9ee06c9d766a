// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/redconhq/redcon/internal/api"
	"github.com/redconhq/redcon/internal/session"
)

// opTimeout bounds every backend operation dispatched from the console.
// Learn and chatbot tests involve backend-side crawling, so the ceiling is
// generous; the per-request client timeout still applies underneath.
const opTimeout = 120 * time.Second

// OpStartedMsg announces that an operation was just dispatched, so the
// chrome can show the in-flight state before the result lands.
type OpStartedMsg struct {
	Op   session.Operation
	Note string
}

// OpDoneMsg reports a completed orchestration operation. Receivers re-read
// the session store; the message itself carries no payload.
type OpDoneMsg struct {
	Op  session.Operation
	Err error
}

func dispatch(op session.Operation, note string, run func(ctx context.Context) error) tea.Cmd {
	started := func() tea.Msg {
		return OpStartedMsg{Op: op, Note: note}
	}
	done := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return OpDoneMsg{Op: op, Err: run(ctx)}
	}
	return tea.Batch(started, done)
}

// RefreshCmd re-fetches all collections.
func RefreshCmd(c *session.Controller) tea.Cmd {
	return dispatch(session.OpRefresh, "Refreshing...", c.Refresh)
}

// LearnCmd submits a URL for knowledge extraction.
func LearnCmd(c *session.Controller, url string) tea.Cmd {
	return dispatch(session.OpLearn, "Extracting knowledge...", func(ctx context.Context) error {
		return c.LearnFromURL(ctx, url)
	})
}

// SearchCmd runs a server-side knowledge base search.
func SearchCmd(c *session.Controller, query string) tea.Cmd {
	return dispatch(session.OpSearch, "Searching...", func(ctx context.Context) error {
		return c.SearchTechniques(ctx, query)
	})
}

// CreatePlanCmd vets and declares a new attack plan.
func CreatePlanCmd(c *session.Controller, target api.Target, objectives []string) tea.Cmd {
	return dispatch(session.OpCreatePlan, "Vetting attack plan...", func(ctx context.Context) error {
		return c.CreateAttackPlan(ctx, target, objectives)
	})
}

// TestChatbotCmd probes a chatbot endpoint.
func TestChatbotCmd(c *session.Controller, url, testType string) tea.Cmd {
	return dispatch(session.OpTestChatbot, "Testing chatbot...", func(ctx context.Context) error {
		return c.TestChatbot(ctx, url, testType)
	})
}

// EmergencyStopCmd halts all backend activity. Dispatched regardless of
// any pending operation.
func EmergencyStopCmd(c *session.Controller, reason string) tea.Cmd {
	return dispatch(session.OpEmergencyStop, "Stopping...", func(ctx context.Context) error {
		return c.EmergencyStop(ctx, reason)
	})
}

// UpdateSafetyCmd pushes new guardrail settings.
func UpdateSafetyCmd(c *session.Controller, cfg api.SafetyConfig) tea.Cmd {
	return dispatch(session.OpUpdateSafety, "Pushing safety config...", func(ctx context.Context) error {
		return c.UpdateSafetyConfig(ctx, cfg)
	})
}

// AuthorizeTargetCmd registers a new testing authorization.
func AuthorizeTargetCmd(c *session.Controller, target api.Target, details api.AuthorizationDetails) tea.Cmd {
	return dispatch(session.OpAuthorize, "Authorizing target...", func(ctx context.Context) error {
		return c.AuthorizeTarget(ctx, target, details)
	})
}

// SimulateCmd runs one simulated step of a declared plan.
func SimulateCmd(c *session.Controller, attackID int64, phase, technique string) tea.Cmd {
	return dispatch(session.OpSimulate, "Simulating attack step...", func(ctx context.Context) error {
		return c.SimulateAttack(ctx, attackID, phase, technique)
	})
}

// LoadTargetsCmd fetches the authorization registry.
func LoadTargetsCmd(c *session.Controller) tea.Cmd {
	return dispatch(session.OpLoadTargets, "Loading authorized targets...", c.LoadAuthorizedTargets)
}

// LoadVulnsCmd fetches the vulnerability catalog.
func LoadVulnsCmd(c *session.Controller) tea.Cmd {
	return dispatch(session.OpLoadVulns, "Loading vulnerabilities...", c.LoadVulnerabilities)
}

// LoadAuditCmd fetches a page of the backend activity log.
func LoadAuditCmd(c *session.Controller, limit, offset int) tea.Cmd {
	return dispatch(session.OpLoadAudit, "Loading audit log...", func(ctx context.Context) error {
		return c.LoadAuditLog(ctx, limit, offset)
	})
}
