package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-integrations/core"
)

// ConfigReader serves display-safe configuration. Secrets come back masked.
type ConfigReader interface {
	MaskedIntegrationConfig(ctx context.Context, integrationID string) (map[string]any, error)
	MaskedCustomExecution(ctx context.Context, integrationID string) (core.CustomExecutionConfig, error)
}

type SyncJobReader interface {
	Get(ctx context.Context, id string) (core.SyncJob, error)
}

type SyncHistoryReader interface {
	ListByIntegration(ctx context.Context, integrationID string, limit int) ([]core.SyncJob, error)
}

type EvidenceReader interface {
	ListBySyncJob(ctx context.Context, syncJobID string) ([]core.Evidence, error)
}

type GetIntegrationConfigQuery struct {
	reader ConfigReader
}

func NewGetIntegrationConfigQuery(reader ConfigReader) *GetIntegrationConfigQuery {
	return &GetIntegrationConfigQuery{reader: reader}
}

func (q *GetIntegrationConfigQuery) Query(ctx context.Context, msg GetIntegrationConfigMessage) (map[string]any, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: config reader is required")
	}
	return q.reader.MaskedIntegrationConfig(ctx, strings.TrimSpace(msg.IntegrationID))
}

type GetCustomExecutionQuery struct {
	reader ConfigReader
}

func NewGetCustomExecutionQuery(reader ConfigReader) *GetCustomExecutionQuery {
	return &GetCustomExecutionQuery{reader: reader}
}

func (q *GetCustomExecutionQuery) Query(ctx context.Context, msg GetCustomExecutionMessage) (core.CustomExecutionConfig, error) {
	if q == nil || q.reader == nil {
		return core.CustomExecutionConfig{}, queryDependencyError("query: config reader is required")
	}
	return q.reader.MaskedCustomExecution(ctx, strings.TrimSpace(msg.IntegrationID))
}

type GetSyncJobQuery struct {
	reader SyncJobReader
}

func NewGetSyncJobQuery(reader SyncJobReader) *GetSyncJobQuery {
	return &GetSyncJobQuery{reader: reader}
}

func (q *GetSyncJobQuery) Query(ctx context.Context, msg GetSyncJobMessage) (core.SyncJob, error) {
	if q == nil || q.reader == nil {
		return core.SyncJob{}, queryDependencyError("query: sync job reader is required")
	}
	return q.reader.Get(ctx, strings.TrimSpace(msg.SyncJobID))
}

type ListSyncJobsQuery struct {
	reader SyncHistoryReader
}

func NewListSyncJobsQuery(reader SyncHistoryReader) *ListSyncJobsQuery {
	return &ListSyncJobsQuery{reader: reader}
}

func (q *ListSyncJobsQuery) Query(ctx context.Context, msg ListSyncJobsMessage) ([]core.SyncJob, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: sync history reader is required")
	}
	return q.reader.ListByIntegration(ctx, strings.TrimSpace(msg.IntegrationID), msg.Limit)
}

type ListEvidenceQuery struct {
	reader EvidenceReader
}

func NewListEvidenceQuery(reader EvidenceReader) *ListEvidenceQuery {
	return &ListEvidenceQuery{reader: reader}
}

func (q *ListEvidenceQuery) Query(ctx context.Context, msg ListEvidenceMessage) ([]core.Evidence, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: evidence reader is required")
	}
	return q.reader.ListBySyncJob(ctx, strings.TrimSpace(msg.SyncJobID))
}
