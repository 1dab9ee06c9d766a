// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for communicating with the redcon
// backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorKind categorizes client errors for handling.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	// ErrKindValidation: the request was rejected locally, before any
	// network traffic.
	ErrKindValidation
	// ErrKindTransport: the backend could not be reached.
	ErrKindTransport
	// ErrKindTimeout: the request was dispatched but did not complete in
	// time. Kept distinct from transport failures so callers can tell
	// "backend down" from "backend slow".
	ErrKindTimeout
	// ErrKindSemantic: the backend answered with its error envelope.
	ErrKindSemantic
	// ErrKindInvalidResponse: the backend answered with something the
	// client could not interpret.
	ErrKindInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Kind: ErrKindTransport, Message: "backend is unreachable"}
	ErrTimeout     = &ClientError{Kind: ErrKindTimeout, Message: "request timed out"}
)

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Kind == ErrKindTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsUnreachable checks if an error indicates the backend could not be reached.
func IsUnreachable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Kind == ErrKindTransport
	}
	return errors.Is(err, ErrUnreachable)
}

// IsValidation checks if an error is a local pre-dispatch rejection.
func IsValidation(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Kind == ErrKindValidation
	}
	return false
}

// KindOf extracts the error kind, or ErrKindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Kind
	}
	return ErrKindUnknown
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL of the backend API (default: http://127.0.0.1:5000)
	BaseURL string

	// Token sent as a Bearer credential when non-empty.
	Token string

	// Timeout per request (default: 30s)
	Timeout time.Duration

	// UserAgent sent with every request (default: "redcon/" + version)
	UserAgent string

	// RequestsPerSecond caps outgoing request rate (default: 10).
	// A security console must not itself become a request storm.
	RequestsPerSecond float64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "http://127.0.0.1:5000",
		Timeout:           30 * time.Second,
		UserAgent:         "redcon",
		RequestsPerSecond: 10,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the redcon backend API.
//
// The Client is safe for concurrent use. It performs no retries and no
// caching; every call reflects one round trip.
//
// Example:
//
//	client := api.NewClient()
//	techniques, err := client.ListTechniques(ctx)
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:5000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "redcon"
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 10
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	// Sub-1 rates truncate to a zero burst, which would reject every
	// request outright instead of spacing them out.
	burst := int(config.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do performs one round trip and decodes the enveloped response into out.
// out must embed envelope so the status field is visible after decoding.
func (c *Client) do(ctx context.Context, method, path string, reqBody any, out interface {
	status() string
	message() string
}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return &ClientError{Kind: ErrKindTransport, Message: "request not dispatched", Cause: err}
	}

	var body *bytes.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return &ClientError{Kind: ErrKindInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Kind: ErrKindTransport, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return ErrTimeout
		}
		return ErrUnreachable
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A reverse proxy answering for a dead backend sends a non-JSON
		// error page; that is a reachability problem, not a protocol one.
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &ClientError{
				Kind:    ErrKindTransport,
				Message: "backend returned HTTP " + resp.Status,
				Cause:   err,
			}
		}
		return &ClientError{Kind: ErrKindInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	if out.status() == "error" {
		msg := out.message()
		if msg == "" {
			msg = "backend reported an error (" + resp.Status + ")"
		}
		return &ClientError{Kind: ErrKindSemantic, Message: msg}
	}
	if out.status() != "success" {
		return &ClientError{
			Kind:    ErrKindInvalidResponse,
			Message: fmt.Sprintf("unexpected response status %q (%s)", out.status(), resp.Status),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ClientError{
			Kind:    ErrKindInvalidResponse,
			Message: "success envelope with HTTP " + resp.Status,
		}
	}

	return nil
}

func (e envelope) status() string  { return e.Status }
func (e envelope) message() string { return e.Message }

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

// ListTechniques retrieves the full technique catalog.
func (c *Client) ListTechniques(ctx context.Context) ([]Technique, error) {
	var result techniquesResponse
	if err := c.do(ctx, http.MethodGet, "/api/knowledge/techniques", nil, &result); err != nil {
		return nil, err
	}
	return result.Techniques, nil
}

// SearchTechniques queries the knowledge base by keyword.
func (c *Client) SearchTechniques(ctx context.Context, query string) ([]Technique, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ClientError{Kind: ErrKindValidation, Message: "search query is required"}
	}
	var result searchResponse
	path := "/api/knowledge/techniques/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// ListVulnerabilities retrieves the cataloged vulnerabilities.
func (c *Client) ListVulnerabilities(ctx context.Context) ([]Vulnerability, error) {
	var result vulnerabilitiesResponse
	if err := c.do(ctx, http.MethodGet, "/api/knowledge/vulnerabilities", nil, &result); err != nil {
		return nil, err
	}
	return result.Vulnerabilities, nil
}

// GetKnowledgeStats retrieves knowledge base summary counts.
func (c *Client) GetKnowledgeStats(ctx context.Context) (*KnowledgeStats, error) {
	var result statsResponse
	if err := c.do(ctx, http.MethodGet, "/api/knowledge/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result.Stats, nil
}

// LearnFromURL asks the backend to extract techniques from a web resource.
// The URL must be non-empty and parse as http(s); anything else is rejected
// before dispatch.
func (c *Client) LearnFromURL(ctx context.Context, rawURL string) ([]Technique, error) {
	if err := validateHTTPURL(rawURL); err != nil {
		return nil, err
	}
	var result learnResponse
	if err := c.do(ctx, http.MethodPost, "/api/knowledge/learn/url", learnRequest{URL: rawURL}, &result); err != nil {
		return nil, err
	}
	return result.Techniques, nil
}

// =============================================================================
// ATTACK ENGINE
// =============================================================================

// ListAttackPlans retrieves all declared attack plans.
func (c *Client) ListAttackPlans(ctx context.Context) ([]AttackPlan, error) {
	var result plansResponse
	if err := c.do(ctx, http.MethodGet, "/api/attack/plans", nil, &result); err != nil {
		return nil, err
	}
	return result.Plans, nil
}

// CreateAttackPlan declares a new plan against a target. The target must
// carry at least a name or URL and there must be at least one objective.
func (c *Client) CreateAttackPlan(ctx context.Context, target Target, objectives []string) (*AttackPlan, error) {
	if target.IsZero() {
		return nil, &ClientError{Kind: ErrKindValidation, Message: "target requires a name or URL"}
	}
	if len(objectives) == 0 {
		return nil, &ClientError{Kind: ErrKindValidation, Message: "at least one objective is required"}
	}
	var result createPlanResponse
	body := createPlanRequest{Target: target, Objectives: objectives}
	if err := c.do(ctx, http.MethodPost, "/api/attack/plan", body, &result); err != nil {
		return nil, err
	}
	return &result.Plan, nil
}

// SimulateAttack runs one simulated step of a declared plan: a single
// technique within a single phase. The backend appends the outcome to the
// plan record.
func (c *Client) SimulateAttack(ctx context.Context, attackID int64, phase, technique string) (*SimulationResult, error) {
	if attackID <= 0 {
		return nil, &ClientError{Kind: ErrKindValidation, Message: "attack plan id is required"}
	}
	if strings.TrimSpace(phase) == "" || strings.TrimSpace(technique) == "" {
		return nil, &ClientError{Kind: ErrKindValidation, Message: "phase and technique are required"}
	}
	var result simulateResponse
	body := simulateRequest{AttackID: attackID, Phase: phase, Technique: technique}
	if err := c.do(ctx, http.MethodPost, "/api/attack/simulate", body, &result); err != nil {
		return nil, err
	}
	return &result.Result, nil
}

// TestChatbot runs a vulnerability probe against a chatbot endpoint.
// An empty testType means "basic".
func (c *Client) TestChatbot(ctx context.Context, rawURL, testType string) (*ChatbotTestResult, error) {
	if err := validateHTTPURL(rawURL); err != nil {
		return nil, err
	}
	if testType == "" {
		testType = "basic"
	}
	var result chatbotTestResponse
	body := chatbotTestRequest{URL: rawURL, TestType: testType}
	if err := c.do(ctx, http.MethodPost, "/api/attack/chatbot/test", body, &result); err != nil {
		return nil, err
	}
	return &result.Results, nil
}

// =============================================================================
// SAFETY LAYER
// =============================================================================

// GetSafetyConfig retrieves the current guardrail configuration.
func (c *Client) GetSafetyConfig(ctx context.Context) (*SafetyConfig, error) {
	var result safetyConfigResponse
	if err := c.do(ctx, http.MethodGet, "/api/safety/config", nil, &result); err != nil {
		return nil, err
	}
	return &result.SafetyConfig, nil
}

// UpdateSafetyConfig pushes a new guardrail configuration. The backend is
// authoritative; callers should re-fetch after a successful update.
func (c *Client) UpdateSafetyConfig(ctx context.Context, cfg SafetyConfig) (*SafetyConfig, error) {
	if cfg.MaxConcurrentAttacks < 1 {
		return nil, &ClientError{Kind: ErrKindValidation, Message: "max_concurrent_attacks must be at least 1"}
	}
	var result safetyConfigResponse
	if err := c.do(ctx, http.MethodPut, "/api/safety/config", cfg, &result); err != nil {
		return nil, err
	}
	return &result.SafetyConfig, nil
}

// AuthorizeTarget registers a new testing authorization. The backend
// derives the registry domain from the target URL, so the URL is required;
// so is the name of whoever granted the authorization.
func (c *Client) AuthorizeTarget(ctx context.Context, target Target, details AuthorizationDetails) (*AuthorizedTarget, error) {
	if err := validateHTTPURL(target.URL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(details.AuthorizedBy) == "" {
		return nil, &ClientError{Kind: ErrKindValidation, Message: "authorized_by is required"}
	}
	var result authorizeResponse
	body := authorizeRequest{TargetInfo: target, AuthorizationDetails: details}
	if err := c.do(ctx, http.MethodPost, "/api/safety/authorize", body, &result); err != nil {
		return nil, err
	}
	return &result.Authorization, nil
}

// ListAuthorizedTargets retrieves the authorization registry.
func (c *Client) ListAuthorizedTargets(ctx context.Context) ([]AuthorizedTarget, error) {
	var result authorizedTargetsResponse
	if err := c.do(ctx, http.MethodGet, "/api/safety/authorized-targets", nil, &result); err != nil {
		return nil, err
	}
	return result.Targets, nil
}

// GetAuditLog retrieves a page of backend activity records.
func (c *Client) GetAuditLog(ctx context.Context, limit, offset int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var result auditLogResponse
	path := "/api/safety/audit-log?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// ValidateAttack asks the safety layer to vet a proposed attack before it
// is declared.
func (c *Client) ValidateAttack(ctx context.Context, target Target, objectives []string) (*ValidationResult, error) {
	if target.IsZero() {
		return nil, &ClientError{Kind: ErrKindValidation, Message: "target requires a name or URL"}
	}
	var result validateResponse
	body := createPlanRequest{Target: target, Objectives: objectives}
	if err := c.do(ctx, http.MethodPost, "/api/safety/validate", body, &result); err != nil {
		return nil, err
	}
	return &result.Validation, nil
}

// EmergencyStop halts all backend attack activity. The reason is recorded
// in the backend audit log.
func (c *Client) EmergencyStop(ctx context.Context, reason string) (*StopEvent, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "operator initiated"
	}
	var result emergencyStopResponse
	if err := c.do(ctx, http.MethodPost, "/api/safety/emergency-stop", emergencyStopRequest{Reason: reason}, &result); err != nil {
		return nil, err
	}
	return &result.StopEvent, nil
}

// =============================================================================
// VALIDATION HELPERS
// =============================================================================

func validateHTTPURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return &ClientError{Kind: ErrKindValidation, Message: "URL is required"}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return &ClientError{Kind: ErrKindValidation, Message: "invalid URL", Cause: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ClientError{Kind: ErrKindValidation, Message: "URL must use http or https"}
	}
	if u.Host == "" {
		return &ClientError{Kind: ErrKindValidation, Message: "URL has no host"}
	}
	return nil
}
