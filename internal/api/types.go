// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity is an ordinal label attached to techniques and findings.
// The backend treats it as an open string; ordering is by convention only.
type Severity string

const (
	SeverityInformational Severity = "informational"
	SeverityLow           Severity = "low"
	SeverityMedium        Severity = "medium"
	SeverityHigh          Severity = "high"
	SeverityCritical      Severity = "critical"
)

// Rank returns the conventional ordering of a severity (higher is worse).
// Unknown labels rank below informational so they sort last, not first.
func (s Severity) Rank() int {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInformational:
		return 1
	default:
		return 0
	}
}

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

// Technique is a cataloged attack or testing method. Instances are created
// by the backend; the client never mutates one in place — the whole
// collection is replaced on refresh.
type Technique struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Severity    Severity `json:"severity,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// Vulnerability is a cataloged weakness stored alongside techniques.
type Vulnerability struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// KnowledgeStats summarizes the knowledge base.
type KnowledgeStats struct {
	TotalTechniques      int      `json:"total_techniques"`
	TotalVulnerabilities int      `json:"total_vulnerabilities"`
	Categories           []string `json:"categories,omitempty"`
	LastUpdated          string   `json:"last_updated,omitempty"`
}

// =============================================================================
// ATTACK ENGINE
// =============================================================================

// Target identifies what an attack plan is declared against.
// The backend passes this through opaquely; the client parses it into a
// typed record and rejects plans whose target has no name and no URL.
type Target struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// IsZero reports whether the target carries no identifying information.
func (t Target) IsZero() bool {
	return t.Name == "" && t.URL == ""
}

// PlanStatus is a backend-defined lifecycle label. The client applies no
// transition logic; unknown values are carried through unchanged.
type PlanStatus string

const (
	PlanStatusPlanned   PlanStatus = "planned"
	PlanStatusRunning   PlanStatus = "running"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusFailed    PlanStatus = "failed"
)

// PhasePlan describes one phase of a generated attack plan.
type PhasePlan struct {
	Techniques       []string `json:"techniques,omitempty"`
	Tools            []string `json:"tools,omitempty"`
	ExpectedOutcomes []string `json:"expected_outcomes,omitempty"`
}

// Phases maps phase name (reconnaissance, exploitation, ...) to its plan.
// The backend sometimes emits a bare list instead of an object for plans
// whose generation failed, so decoding is tolerant: anything that is not
// a JSON object decodes to an empty map rather than an error.
type Phases map[string]PhasePlan

// UnmarshalJSON accepts either a phase object or any other shape.
func (p *Phases) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		*p = Phases{}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Phases, len(raw))
	for name, msg := range raw {
		var phase PhasePlan
		if err := json.Unmarshal(msg, &phase); err != nil {
			// Quarantine malformed phases instead of failing the plan.
			continue
		}
		out[name] = phase
	}
	*p = out
	return nil
}

// AttackPlan is a declared, backend-tracked intent to test a target.
// Plans are never updated or deleted locally, only re-fetched wholesale.
type AttackPlan struct {
	ID         int64      `json:"id"`
	Target     Target     `json:"target"`
	Objectives []string   `json:"objectives"`
	Status     PlanStatus `json:"status"`
	Timestamp  string     `json:"timestamp,omitempty"`
	Phases     Phases     `json:"phases,omitempty"`
}

// ObjectivesLine joins the plan objectives for single-line display.
func (p AttackPlan) ObjectivesLine() string {
	return strings.Join(p.Objectives, ", ")
}

// =============================================================================
// CHATBOT TESTING
// =============================================================================

// VulnerabilityFinding is one issue discovered by a chatbot test.
type VulnerabilityFinding struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// TestSummary aggregates a chatbot test run.
type TestSummary struct {
	TotalTests           int    `json:"total_tests"`
	VulnerabilitiesFound int    `json:"vulnerabilities_found"`
	RiskLevel            string `json:"risk_level"`
}

// ChatbotTestResult is the structured outcome of a chatbot probe.
type ChatbotTestResult struct {
	Target               string                 `json:"target"`
	TestType             string                 `json:"test_type"`
	Timestamp            string                 `json:"timestamp,omitempty"`
	VulnerabilitiesFound []VulnerabilityFinding `json:"vulnerabilities_found"`
	TestSummary          TestSummary            `json:"test_summary"`
}

// SimulationFindings carries the outcome of one simulated attack step.
type SimulationFindings struct {
	Success         bool     `json:"success"`
	Findings        []string `json:"findings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// SimulationResult records a simulated execution of one technique within
// one phase of a declared plan. The backend appends it to the plan record.
type SimulationResult struct {
	AttackID  int64              `json:"attack_id"`
	Phase     string             `json:"phase"`
	Technique string             `json:"technique"`
	Timestamp string             `json:"timestamp,omitempty"`
	Status    string             `json:"status"`
	Results   SimulationFindings `json:"results"`
}

// =============================================================================
// SAFETY LAYER
// =============================================================================

// SafetyConfig is the singleton record of guardrail toggles. The client
// reads it and may push updates, but emergency_stop_enabled is only ever
// refreshed from the backend's authoritative value.
type SafetyConfig struct {
	RequireAuthorization     bool `json:"require_authorization"`
	LogAllActivities         bool `json:"log_all_activities"`
	BlockUnauthorizedTargets bool `json:"block_unauthorized_targets"`
	MaxConcurrentAttacks     int  `json:"max_concurrent_attacks"`
	EmergencyStopEnabled     bool `json:"emergency_stop_enabled"`
}

// AuthorizedTarget records a testing authorization held by the backend.
type AuthorizedTarget struct {
	ID         int64    `json:"id"`
	Domain     string   `json:"domain"`
	Status     string   `json:"status"`
	Authorized string   `json:"authorized_by,omitempty"`
	Expiry     string   `json:"expiry_date,omitempty"`
	Scope      []string `json:"scope,omitempty"`
}

// AuthorizationDetails describes who granted a testing authorization and
// under what terms.
type AuthorizationDetails struct {
	AuthorizedBy string   `json:"authorized_by"`
	ExpiryDate   string   `json:"expiry_date,omitempty"`
	Scope        []string `json:"scope,omitempty"`
}

// AuditEntry is one row of the backend activity log.
type AuditEntry struct {
	ID           int64  `json:"id"`
	Timestamp    string `json:"timestamp"`
	ActivityType string `json:"activity_type"`
	UserID       string `json:"user_id,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
}

// ValidationResult is the safety layer's verdict on a proposed attack.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	Warnings        []string `json:"warnings,omitempty"`
	Errors          []string `json:"errors,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// StopEvent acknowledges an emergency stop.
type StopEvent struct {
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason"`
	StoppedBy string `json:"stopped_by,omitempty"`
}

// =============================================================================
// WIRE ENVELOPES
// =============================================================================

// The backend wraps every response in a status envelope:
//
//	{"status": "success", "count": 3, "techniques": [...]}
//	{"status": "error", "message": "..."}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type techniquesResponse struct {
	envelope
	Count      int         `json:"count"`
	Techniques []Technique `json:"techniques"`
}

type searchResponse struct {
	envelope
	Query   string      `json:"query"`
	Count   int         `json:"count"`
	Results []Technique `json:"results"`
}

type vulnerabilitiesResponse struct {
	envelope
	Count           int             `json:"count"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

type statsResponse struct {
	envelope
	Stats KnowledgeStats `json:"stats"`
}

type learnResponse struct {
	envelope
	Techniques []Technique `json:"techniques"`
	SourceURL  string      `json:"source_url"`
}

type plansResponse struct {
	envelope
	Count int          `json:"count"`
	Plans []AttackPlan `json:"attack_plans"`
}

type createPlanResponse struct {
	envelope
	Plan AttackPlan `json:"attack_plan"`
}

type chatbotTestResponse struct {
	envelope
	Results ChatbotTestResult `json:"results"`
}

type safetyConfigResponse struct {
	envelope
	SafetyConfig SafetyConfig `json:"safety_config"`
}

type authorizedTargetsResponse struct {
	envelope
	Count   int                `json:"count"`
	Targets []AuthorizedTarget `json:"authorized_targets"`
}

type auditLogResponse struct {
	envelope
	Count   int          `json:"count"`
	Total   int          `json:"total"`
	Entries []AuditEntry `json:"audit_log"`
}

type validateResponse struct {
	envelope
	Validation ValidationResult `json:"validation"`
}

type authorizeResponse struct {
	envelope
	Authorization AuthorizedTarget `json:"authorization"`
}

type simulateResponse struct {
	envelope
	Result SimulationResult `json:"result"`
}

type emergencyStopResponse struct {
	envelope
	StopEvent StopEvent `json:"stop_event"`
}

// Request bodies.

type learnRequest struct {
	URL string `json:"url"`
}

type createPlanRequest struct {
	Target     Target   `json:"target"`
	Objectives []string `json:"objectives"`
}

type chatbotTestRequest struct {
	URL      string `json:"url"`
	TestType string `json:"test_type"`
}

type emergencyStopRequest struct {
	Reason string `json:"reason"`
}

type authorizeRequest struct {
	TargetInfo           Target               `json:"target_info"`
	AuthorizationDetails AuthorizationDetails `json:"authorization_details"`
}

type simulateRequest struct {
	AttackID  int64  `json:"attack_id"`
	Phase     string `json:"phase"`
	Technique string `json:"technique"`
}

// ParseTimestamp parses the backend's ISO-8601 timestamps, tolerating the
// fractional-seconds and timezone variants Python's isoformat produces.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
