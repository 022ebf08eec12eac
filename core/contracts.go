package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type IntegrationStore interface {
	Create(ctx context.Context, in Integration) (Integration, error)
	Get(ctx context.Context, id string) (Integration, error)
	UpdateConfig(ctx context.Context, id string, config map[string]any, status IntegrationStatus) (Integration, error)
	RecordSync(ctx context.Context, id string, in SyncBookkeeping) error
}

type CustomConfigStore interface {
	GetByIntegration(ctx context.Context, integrationID string) (CustomExecutionConfig, error)
	Upsert(ctx context.Context, in CustomExecutionConfig) (CustomExecutionConfig, error)
	RecordTest(ctx context.Context, integrationID string, outcome TestOutcome) error
}

type SyncJobStore interface {
	Create(ctx context.Context, job SyncJob) (SyncJob, error)
	Get(ctx context.Context, id string) (SyncJob, error)
	// Finalize writes the single terminal update of a job.
	Finalize(ctx context.Context, job SyncJob) (SyncJob, error)
}

type EvidenceStore interface {
	Create(ctx context.Context, in Evidence) (Evidence, error)
	ListBySyncJob(ctx context.Context, syncJobID string) ([]Evidence, error)
}

type BlobObject struct {
	Path        string
	ContentType string
	Size        int64
}

type BlobStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (BlobObject, error)
}

type AuditLogger interface {
	Append(ctx context.Context, entry AuditEntry) error
}

type FailureNotifier interface {
	NotifySyncFailure(ctx context.Context, notice SyncFailureNotice) error
}

// ConnectorRequest is handed to builtin connectors with decrypted config.
type ConnectorRequest struct {
	Integration Integration
	Config      ConnectorConfig
}

type Connector interface {
	Type() string
	Sync(ctx context.Context, req ConnectorRequest) (SyncResult, error)
}

type ConnectorRegistry interface {
	Register(connector Connector) error
	Get(connectorType string) (Connector, bool)
	List() []Connector
}

// ConfigCipher is the vault surface the orchestration layer depends on.
type ConfigCipher interface {
	EncryptConfig(config map[string]any) (map[string]any, error)
	DecryptConfig(config map[string]any) map[string]any
	MaskConfig(config map[string]any) map[string]any
}

type HeaderBuilder interface {
	Build(ctx context.Context, spec AuthSpec) map[string]string
	QueryParams(spec AuthSpec) map[string]string
}

type TransportRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	Timeout time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
	Duration   time.Duration
}

type TransportAdapter interface {
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
