// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the console's in-memory state and the orchestration
// operations that mutate it. The store is the single source of truth for
// every view; nothing outside this package writes to it.
package session

import (
	"errors"
	"sync"

	"github.com/redconhq/redcon/internal/api"
)

// ErrOperationInFlight is returned when an operation is requested while
// another one is still pending. Emergency stop is exempt.
var ErrOperationInFlight = errors.New("another operation is in progress")

// Resource identifies one independently refreshed collection in the store.
// Each resource carries its own generation counter so a slow response for
// one cannot clobber a newer response for another.
type Resource int

const (
	ResTechniques Resource = iota
	ResSearchResults
	ResVulnerabilities
	ResPlans
	ResStats
	ResSafetyConfig
	ResAuthorizedTargets
	ResAuditLog
	ResChatbotResult
	ResSimulation
	resourceCount
)

// Operation names the orchestration entry points for status display and
// the local audit trail.
type Operation string

const (
	OpNone          Operation = ""
	OpRefresh       Operation = "refresh"
	OpLearn         Operation = "learn_from_url"
	OpCreatePlan    Operation = "create_attack_plan"
	OpTestChatbot   Operation = "test_chatbot"
	OpEmergencyStop Operation = "emergency_stop"
	OpSearch        Operation = "search_techniques"
	OpUpdateSafety  Operation = "update_safety_config"
	OpLoadAudit     Operation = "load_audit_log"
	OpLoadTargets   Operation = "load_authorized_targets"
	OpLoadVulns     Operation = "load_vulnerabilities"
	OpAuthorize     Operation = "authorize_target"
	OpSimulate      Operation = "simulate_attack"
)

// OpError is the stored record of the last failed operation. The message
// is what views render; the kind survives for programmatic checks.
type OpError struct {
	Op      Operation
	Message string
	Kind    api.ErrorKind
}

// Store is the session state snapshot. All methods are safe for concurrent
// use; read accessors return copies so callers can never alias internal
// slices.
type Store struct {
	mu sync.Mutex

	techniques        []api.Technique
	searchResults     []api.Technique
	searchQuery       string
	vulnerabilities   []api.Vulnerability
	plans             []api.AttackPlan
	stats             *api.KnowledgeStats
	safetyConfig      *api.SafetyConfig
	authorizedTargets []api.AuthorizedTarget
	auditEntries      []api.AuditEntry
	chatbotResult     *api.ChatbotTestResult
	simulation        *api.SimulationResult
	lastStop          *api.StopEvent

	pending Operation
	lastErr *OpError

	// generations[r] is bumped every time a fetch for resource r begins.
	// A payload is applied only if it still carries the latest token, so
	// a stale in-flight response can never overwrite fresher data.
	generations [resourceCount]uint64
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{}
}

// =============================================================================
// OPERATION LIFECYCLE
// =============================================================================

// Begin marks op as the pending operation. It fails with
// ErrOperationInFlight if another operation is already pending, unless
// exempt is set (emergency stop must never queue behind routine work).
func (s *Store) Begin(op Operation, exempt bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != OpNone && !exempt {
		return ErrOperationInFlight
	}
	if s.pending == OpNone {
		s.pending = op
	}
	return nil
}

// Succeed clears the pending marker and the last error. The error is
// cleared only here: by the next successful operation, never by a timer.
func (s *Store) Succeed(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == op {
		s.pending = OpNone
	}
	s.lastErr = nil
}

// Fail clears the pending marker and records the failure. Collections are
// untouched; a failed refresh leaves the previous snapshot visible.
func (s *Store) Fail(op Operation, message string, kind api.ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == op {
		s.pending = OpNone
	}
	s.lastErr = &OpError{Op: op, Message: message, Kind: kind}
}

// Busy reports whether an operation is pending.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != OpNone
}

// Pending returns the pending operation, or OpNone.
func (s *Store) Pending() Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// LastError returns the last recorded failure, or nil.
func (s *Store) LastError() *OpError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return nil
	}
	e := *s.lastErr
	return &e
}

// =============================================================================
// GENERATION TOKENS
// =============================================================================

// BeginFetch issues a new generation token for a resource. Any response
// holding an older token is stale and will be discarded on apply.
func (s *Store) BeginFetch(r Resource) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[r]++
	return s.generations[r]
}

// current reports whether token is still the latest for r. Callers must
// hold s.mu.
func (s *Store) current(r Resource, token uint64) bool {
	return s.generations[r] == token
}

// =============================================================================
// WRITES (full replacement only)
// =============================================================================

// SetTechniques replaces the technique collection. Returns false if the
// token is stale and the payload was discarded.
func (s *Store) SetTechniques(token uint64, ts []api.Technique) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResTechniques, token) {
		return false
	}
	s.techniques = append([]api.Technique(nil), ts...)
	return true
}

// SetSearchResults replaces the server-side search results.
func (s *Store) SetSearchResults(token uint64, query string, ts []api.Technique) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResSearchResults, token) {
		return false
	}
	s.searchQuery = query
	s.searchResults = append([]api.Technique(nil), ts...)
	return true
}

// ClearSearchResults drops the current search snapshot.
func (s *Store) ClearSearchResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[ResSearchResults]++
	s.searchQuery = ""
	s.searchResults = nil
}

// SetVulnerabilities replaces the vulnerability collection.
func (s *Store) SetVulnerabilities(token uint64, vs []api.Vulnerability) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResVulnerabilities, token) {
		return false
	}
	s.vulnerabilities = append([]api.Vulnerability(nil), vs...)
	return true
}

// SetPlans replaces the attack plan collection.
func (s *Store) SetPlans(token uint64, ps []api.AttackPlan) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResPlans, token) {
		return false
	}
	s.plans = append([]api.AttackPlan(nil), ps...)
	return true
}

// SetStats replaces the knowledge stats.
func (s *Store) SetStats(token uint64, st *api.KnowledgeStats) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResStats, token) {
		return false
	}
	if st == nil {
		s.stats = nil
		return true
	}
	cp := *st
	s.stats = &cp
	return true
}

// SetSafetyConfig replaces the safety configuration.
func (s *Store) SetSafetyConfig(token uint64, cfg *api.SafetyConfig) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResSafetyConfig, token) {
		return false
	}
	if cfg == nil {
		s.safetyConfig = nil
		return true
	}
	cp := *cfg
	s.safetyConfig = &cp
	return true
}

// SetAuthorizedTargets replaces the authorization registry snapshot.
func (s *Store) SetAuthorizedTargets(token uint64, ts []api.AuthorizedTarget) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResAuthorizedTargets, token) {
		return false
	}
	s.authorizedTargets = append([]api.AuthorizedTarget(nil), ts...)
	return true
}

// SetAuditEntries replaces the audit log page.
func (s *Store) SetAuditEntries(token uint64, es []api.AuditEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResAuditLog, token) {
		return false
	}
	s.auditEntries = append([]api.AuditEntry(nil), es...)
	return true
}

// SetChatbotResult replaces the last chatbot test result.
func (s *Store) SetChatbotResult(token uint64, r *api.ChatbotTestResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResChatbotResult, token) {
		return false
	}
	if r == nil {
		s.chatbotResult = nil
		return true
	}
	cp := *r
	s.chatbotResult = &cp
	return true
}

// SetSimulationResult replaces the last simulated attack step.
func (s *Store) SetSimulationResult(token uint64, r *api.SimulationResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ResSimulation, token) {
		return false
	}
	if r == nil {
		s.simulation = nil
		return true
	}
	cp := *r
	s.simulation = &cp
	return true
}

// SetLastStop records the acknowledged emergency stop event.
func (s *Store) SetLastStop(ev *api.StopEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev == nil {
		s.lastStop = nil
		return
	}
	cp := *ev
	s.lastStop = &cp
}

// =============================================================================
// READS (copies only)
// =============================================================================

// Techniques returns a copy of the technique collection.
func (s *Store) Techniques() []api.Technique {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Technique(nil), s.techniques...)
}

// SearchResults returns the current search query and a copy of its results.
func (s *Store) SearchResults() (string, []api.Technique) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchQuery, append([]api.Technique(nil), s.searchResults...)
}

// Vulnerabilities returns a copy of the vulnerability collection.
func (s *Store) Vulnerabilities() []api.Vulnerability {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Vulnerability(nil), s.vulnerabilities...)
}

// Plans returns a copy of the attack plan collection.
func (s *Store) Plans() []api.AttackPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.AttackPlan(nil), s.plans...)
}

// Stats returns a copy of the knowledge stats, or nil before first load.
func (s *Store) Stats() *api.KnowledgeStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats == nil {
		return nil
	}
	cp := *s.stats
	return &cp
}

// SafetyConfig returns a copy of the safety config, or nil before first load.
func (s *Store) SafetyConfig() *api.SafetyConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.safetyConfig == nil {
		return nil
	}
	cp := *s.safetyConfig
	return &cp
}

// AuthorizedTargets returns a copy of the authorization registry.
func (s *Store) AuthorizedTargets() []api.AuthorizedTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.AuthorizedTarget(nil), s.authorizedTargets...)
}

// AuditEntries returns a copy of the loaded audit page.
func (s *Store) AuditEntries() []api.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.AuditEntry(nil), s.auditEntries...)
}

// ChatbotResult returns a copy of the last test result, or nil.
func (s *Store) ChatbotResult() *api.ChatbotTestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatbotResult == nil {
		return nil
	}
	cp := *s.chatbotResult
	return &cp
}

// SimulationResult returns a copy of the last simulated step, or nil.
func (s *Store) SimulationResult() *api.SimulationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.simulation == nil {
		return nil
	}
	cp := *s.simulation
	return &cp
}

// LastStop returns a copy of the last stop event, or nil.
func (s *Store) LastStop() *api.StopEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStop == nil {
		return nil
	}
	cp := *s.lastStop
	return &cp
}
