package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-integrations/core"
)

type integrationRecord struct {
	bun.BaseModel `bun:"table:integrations,alias:i"`

	ID                 string         `bun:"id,pk"`
	OrganizationID     string         `bun:"organization_id,notnull"`
	ConnectorType      string         `bun:"connector_type,notnull"`
	Name               string         `bun:"name,notnull"`
	Config             map[string]any `bun:"config,type:jsonb,notnull"`
	SyncFrequency      string         `bun:"sync_frequency,notnull"`
	Status             string         `bun:"status,notnull"`
	LastSyncAt         *time.Time     `bun:"last_sync_at,nullzero"`
	LastSyncStatus     string         `bun:"last_sync_status,notnull"`
	LastError          string         `bun:"last_error,notnull"`
	TotalEvidenceCount int            `bun:"total_evidence_count,notnull"`
	CreatedAt          time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type customExecutionConfigRecord struct {
	bun.BaseModel `bun:"table:custom_execution_configs,alias:cec"`

	ID             string              `bun:"id,pk"`
	IntegrationID  string              `bun:"integration_id,notnull"`
	Mode           string              `bun:"mode,notnull"`
	BaseURL        string              `bun:"base_url,notnull"`
	Endpoints      []core.EndpointSpec `bun:"endpoints,type:jsonb,notnull"`
	AuthType       string              `bun:"auth_type,notnull"`
	AuthConfig     map[string]any      `bun:"auth_config,type:jsonb,notnull"`
	Script         string              `bun:"script,notnull"`
	LastTestStatus string              `bun:"last_test_status,notnull"`
	LastTestError  string              `bun:"last_test_error,notnull"`
	LastTestAt     *time.Time          `bun:"last_test_at,nullzero"`
	CreatedAt      time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type syncJobRecord struct {
	bun.BaseModel `bun:"table:integration_sync_jobs,alias:isj"`

	ID              string     `bun:"id,pk"`
	IntegrationID   string     `bun:"integration_id,notnull"`
	OrganizationID  string     `bun:"organization_id,notnull"`
	ConnectorType   string     `bun:"connector_type,notnull"`
	Trigger         string     `bun:"trigger_source,notnull"`
	Status          string     `bun:"status,notnull"`
	ItemsProcessed  int        `bun:"items_processed,notnull"`
	EvidenceCreated int        `bun:"evidence_created,notnull"`
	Logs            []string   `bun:"logs,type:jsonb,notnull"`
	Error           string     `bun:"error,notnull"`
	StartedAt       time.Time  `bun:"started_at,nullzero,notnull,default:current_timestamp"`
	CompletedAt     *time.Time `bun:"completed_at,nullzero"`
}

type evidenceRecord struct {
	bun.BaseModel `bun:"table:evidence,alias:ev"`

	ID             string         `bun:"id,pk"`
	OrganizationID string         `bun:"organization_id,notnull"`
	IntegrationID  string         `bun:"integration_id,notnull"`
	SyncJobID      string         `bun:"sync_job_id,notnull"`
	Title          string         `bun:"title,notnull"`
	Description    string         `bun:"description,notnull"`
	Type           string         `bun:"type,notnull"`
	Source         string         `bun:"source,notnull"`
	BlobPath       string         `bun:"blob_path,notnull"`
	Metadata       map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type auditEntryRecord struct {
	bun.BaseModel `bun:"table:integration_audit_logs,alias:ial"`

	ID             string         `bun:"id,pk"`
	OrganizationID string         `bun:"organization_id,notnull"`
	Action         string         `bun:"action,notnull"`
	ResourceType   string         `bun:"resource_type,notnull"`
	ResourceID     string         `bun:"resource_id,notnull"`
	ActorID        string         `bun:"actor_id,notnull"`
	Metadata       map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
