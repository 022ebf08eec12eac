package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidSyncJobStatusTransition = errors.New("core: invalid sync job status transition")
	ErrIntegrationNotFound            = errors.New("core: integration not found")
	ErrCustomConfigNotFound           = errors.New("core: custom execution config not found")
	ErrSyncJobNotFound                = errors.New("core: sync job not found")
	ErrConnectorNotRegistered         = errors.New("core: connector not registered")
)

const ConnectorTypeCustom = "custom"

type IntegrationStatus string

const (
	IntegrationStatusPendingSetup IntegrationStatus = "pending_setup"
	IntegrationStatusActive       IntegrationStatus = "active"
	IntegrationStatusError        IntegrationStatus = "error"
	IntegrationStatusInactive     IntegrationStatus = "inactive"
)

func (s IntegrationStatus) Valid() bool {
	switch s {
	case IntegrationStatusPendingSetup, IntegrationStatusActive, IntegrationStatusError, IntegrationStatusInactive:
		return true
	}
	return false
}

type SyncFrequency string

const (
	SyncFrequencyManual SyncFrequency = "manual"
	SyncFrequencyHourly SyncFrequency = "hourly"
	SyncFrequencyDaily  SyncFrequency = "daily"
	SyncFrequencyWeekly SyncFrequency = "weekly"
)

func (f SyncFrequency) Valid() bool {
	switch f {
	case SyncFrequencyManual, SyncFrequencyHourly, SyncFrequencyDaily, SyncFrequencyWeekly:
		return true
	}
	return false
}

type Integration struct {
	ID                 string
	OrganizationID     string
	ConnectorType      string
	Name               string
	Config             map[string]any
	SyncFrequency      SyncFrequency
	Status             IntegrationStatus
	LastSyncAt         *time.Time
	LastSyncStatus     string
	LastError          string
	TotalEvidenceCount int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (i Integration) IsCustom() bool {
	return strings.EqualFold(strings.TrimSpace(i.ConnectorType), ConnectorTypeCustom)
}

// SyncBookkeeping is the last-sync projection written back to an integration
// after every run.
type SyncBookkeeping struct {
	LastSyncAt       time.Time
	LastSyncStatus   string
	Status           IntegrationStatus
	LastError        string
	EvidenceIncrease int
}

type AuthoringMode string

const (
	AuthoringModeVisual AuthoringMode = "visual"
	AuthoringModeCode   AuthoringMode = "code"
)

type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeOAuth2 AuthType = "oauth2"
)

// AuthSpec is a decrypted auth configuration ready for header building.
// CacheKey scopes any token cache entry, usually the integration id.
type AuthSpec struct {
	Type     AuthType
	Params   map[string]any
	CacheKey string
}

type ResponseMapping struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Data        string `json:"data,omitempty"`
}

type EndpointSpec struct {
	Name            string            `json:"name,omitempty"`
	Description     string            `json:"description,omitempty"`
	Method          string            `json:"method"`
	Path            string            `json:"path"`
	Headers         map[string]string `json:"headers,omitempty"`
	Params          map[string]string `json:"params,omitempty"`
	Body            any               `json:"body,omitempty"`
	ResponseMapping *ResponseMapping  `json:"responseMapping,omitempty"`
	EvidenceType    string            `json:"evidenceType,omitempty"`
}

func (e EndpointSpec) Label(index int) string {
	if name := strings.TrimSpace(e.Name); name != "" {
		return name
	}
	if path := strings.TrimSpace(e.Path); path != "" {
		return strings.ToUpper(strings.TrimSpace(e.Method)) + " " + path
	}
	return fmt.Sprintf("endpoint %d", index)
}

type TestStatus string

const (
	TestStatusPassed TestStatus = "passed"
	TestStatusFailed TestStatus = "failed"
)

type CustomExecutionConfig struct {
	ID             string
	IntegrationID  string
	Mode           AuthoringMode
	BaseURL        string
	Endpoints      []EndpointSpec
	AuthType       AuthType
	AuthConfig     map[string]any
	Script         string
	LastTestStatus TestStatus
	LastTestError  string
	LastTestAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TestOutcome struct {
	Status TestStatus
	Error  string
	At     time.Time
}

type EvidenceItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Data        any    `json:"data"`
	Type        string `json:"type,omitempty"`
}

// SyncResult is the transient output shared by every engine and connector.
// Errors carries non-fatal, per-call failures.
type SyncResult struct {
	Evidence []EvidenceItem `json:"evidence"`
	Errors   []string       `json:"errors,omitempty"`
	Logs     []string       `json:"-"`
}

type Evidence struct {
	ID             string
	OrganizationID string
	IntegrationID  string
	SyncJobID      string
	Title          string
	Description    string
	Type           string
	Source         string
	BlobPath       string
	Metadata       map[string]any
	CreatedAt      time.Time
}

type SyncJobStatus string

const (
	SyncJobStatusRunning   SyncJobStatus = "running"
	SyncJobStatusCompleted SyncJobStatus = "completed"
	SyncJobStatusFailed    SyncJobStatus = "failed"
	SyncJobStatusCancelled SyncJobStatus = "cancelled"
)

func (s SyncJobStatus) Terminal() bool {
	return s == SyncJobStatusCompleted || s == SyncJobStatusFailed || s == SyncJobStatusCancelled
}

type SyncTrigger string

const (
	SyncTriggerManual    SyncTrigger = "manual"
	SyncTriggerScheduled SyncTrigger = "scheduled"
)

type SyncJob struct {
	ID              string
	IntegrationID   string
	OrganizationID  string
	ConnectorType   string
	Trigger         SyncTrigger
	Status          SyncJobStatus
	ItemsProcessed  int
	EvidenceCreated int
	Logs            []string
	Error           string
	StartedAt       time.Time
	CompletedAt     *time.Time
}

func (j *SyncJob) TransitionTo(status SyncJobStatus, now time.Time) error {
	if j == nil {
		return nil
	}
	if j.Status == status {
		return nil
	}
	if !syncJobTransitionAllowed(j.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSyncJobStatusTransition, j.Status, status)
	}
	j.Status = status
	if status.Terminal() {
		completed := now
		j.CompletedAt = &completed
	}
	return nil
}

func syncJobTransitionAllowed(current, next SyncJobStatus) bool {
	allowed := map[SyncJobStatus]map[SyncJobStatus]struct{}{
		"": {
			SyncJobStatusRunning: {},
		},
		SyncJobStatusRunning: {
			SyncJobStatusCompleted: {},
			SyncJobStatusFailed:    {},
			SyncJobStatusCancelled: {},
		},
		SyncJobStatusCompleted: {},
		SyncJobStatusFailed:    {},
		SyncJobStatusCancelled: {},
	}
	_, ok := allowed[current][next]
	return ok
}

type AuditEntry struct {
	ID             string
	OrganizationID string
	Action         string
	ResourceType   string
	ResourceID     string
	ActorID        string
	Metadata       map[string]any
	CreatedAt      time.Time
}

type SyncFailureNotice struct {
	IntegrationID   string    `json:"integration_id"`
	OrganizationID  string    `json:"organization_id"`
	ConnectorType   string    `json:"connector_type"`
	IntegrationName string    `json:"integration_name"`
	JobID           string    `json:"job_id"`
	Error           string    `json:"error"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type SyncOutcome struct {
	Success         bool           `json:"success"`
	JobID           string         `json:"jobId,omitempty"`
	Message         string         `json:"message"`
	EvidenceCreated int            `json:"evidenceCreated"`
	Errors          []string       `json:"errors,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
}

type EndpointTestResult struct {
	Success        bool   `json:"success"`
	StatusCode     int    `json:"statusCode,omitempty"`
	ResponseTimeMS int64  `json:"responseTime"`
	Data           any    `json:"data,omitempty"`
	Error          string `json:"error,omitempty"`
}

type CodeValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
