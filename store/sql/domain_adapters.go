package sqlstore

import (
	"time"

	"github.com/goliatone/go-integrations/core"
)

func newIntegrationRecord(in core.Integration) *integrationRecord {
	return &integrationRecord{
		ID:                 in.ID,
		OrganizationID:     in.OrganizationID,
		ConnectorType:      in.ConnectorType,
		Name:               in.Name,
		Config:             copyAnyMap(in.Config),
		SyncFrequency:      string(in.SyncFrequency),
		Status:             string(in.Status),
		LastSyncAt:         copyTime(in.LastSyncAt),
		LastSyncStatus:     in.LastSyncStatus,
		LastError:          in.LastError,
		TotalEvidenceCount: in.TotalEvidenceCount,
		CreatedAt:          in.CreatedAt,
		UpdatedAt:          in.UpdatedAt,
	}
}

func (r *integrationRecord) toDomain() core.Integration {
	if r == nil {
		return core.Integration{}
	}
	return core.Integration{
		ID:                 r.ID,
		OrganizationID:     r.OrganizationID,
		ConnectorType:      r.ConnectorType,
		Name:               r.Name,
		Config:             copyAnyMap(r.Config),
		SyncFrequency:      core.SyncFrequency(r.SyncFrequency),
		Status:             core.IntegrationStatus(r.Status),
		LastSyncAt:         copyTime(r.LastSyncAt),
		LastSyncStatus:     r.LastSyncStatus,
		LastError:          r.LastError,
		TotalEvidenceCount: r.TotalEvidenceCount,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func newCustomExecutionConfigRecord(in core.CustomExecutionConfig) *customExecutionConfigRecord {
	return &customExecutionConfigRecord{
		ID:             in.ID,
		IntegrationID:  in.IntegrationID,
		Mode:           string(in.Mode),
		BaseURL:        in.BaseURL,
		Endpoints:      copyEndpoints(in.Endpoints),
		AuthType:       string(in.AuthType),
		AuthConfig:     copyAnyMap(in.AuthConfig),
		Script:         in.Script,
		LastTestStatus: string(in.LastTestStatus),
		LastTestError:  in.LastTestError,
		LastTestAt:     copyTime(in.LastTestAt),
		CreatedAt:      in.CreatedAt,
		UpdatedAt:      in.UpdatedAt,
	}
}

func (r *customExecutionConfigRecord) toDomain() core.CustomExecutionConfig {
	if r == nil {
		return core.CustomExecutionConfig{}
	}
	return core.CustomExecutionConfig{
		ID:             r.ID,
		IntegrationID:  r.IntegrationID,
		Mode:           core.AuthoringMode(r.Mode),
		BaseURL:        r.BaseURL,
		Endpoints:      copyEndpoints(r.Endpoints),
		AuthType:       core.AuthType(r.AuthType),
		AuthConfig:     copyAnyMap(r.AuthConfig),
		Script:         r.Script,
		LastTestStatus: core.TestStatus(r.LastTestStatus),
		LastTestError:  r.LastTestError,
		LastTestAt:     copyTime(r.LastTestAt),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newSyncJobRecord(job core.SyncJob) *syncJobRecord {
	return &syncJobRecord{
		ID:              job.ID,
		IntegrationID:   job.IntegrationID,
		OrganizationID:  job.OrganizationID,
		ConnectorType:   job.ConnectorType,
		Trigger:         string(job.Trigger),
		Status:          string(job.Status),
		ItemsProcessed:  job.ItemsProcessed,
		EvidenceCreated: job.EvidenceCreated,
		Logs:            copyStrings(job.Logs),
		Error:           job.Error,
		StartedAt:       job.StartedAt,
		CompletedAt:     copyTime(job.CompletedAt),
	}
}

func (r *syncJobRecord) toDomain() core.SyncJob {
	if r == nil {
		return core.SyncJob{}
	}
	return core.SyncJob{
		ID:              r.ID,
		IntegrationID:   r.IntegrationID,
		OrganizationID:  r.OrganizationID,
		ConnectorType:   r.ConnectorType,
		Trigger:         core.SyncTrigger(r.Trigger),
		Status:          core.SyncJobStatus(r.Status),
		ItemsProcessed:  r.ItemsProcessed,
		EvidenceCreated: r.EvidenceCreated,
		Logs:            copyStrings(r.Logs),
		Error:           r.Error,
		StartedAt:       r.StartedAt,
		CompletedAt:     copyTime(r.CompletedAt),
	}
}

func newEvidenceRecord(in core.Evidence) *evidenceRecord {
	return &evidenceRecord{
		ID:             in.ID,
		OrganizationID: in.OrganizationID,
		IntegrationID:  in.IntegrationID,
		SyncJobID:      in.SyncJobID,
		Title:          in.Title,
		Description:    in.Description,
		Type:           in.Type,
		Source:         in.Source,
		BlobPath:       in.BlobPath,
		Metadata:       copyAnyMap(in.Metadata),
		CreatedAt:      in.CreatedAt,
	}
}

func (r *evidenceRecord) toDomain() core.Evidence {
	if r == nil {
		return core.Evidence{}
	}
	return core.Evidence{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		IntegrationID:  r.IntegrationID,
		SyncJobID:      r.SyncJobID,
		Title:          r.Title,
		Description:    r.Description,
		Type:           r.Type,
		Source:         r.Source,
		BlobPath:       r.BlobPath,
		Metadata:       copyAnyMap(r.Metadata),
		CreatedAt:      r.CreatedAt,
	}
}

func newAuditEntryRecord(in core.AuditEntry) *auditEntryRecord {
	return &auditEntryRecord{
		ID:             in.ID,
		OrganizationID: in.OrganizationID,
		Action:         in.Action,
		ResourceType:   in.ResourceType,
		ResourceID:     in.ResourceID,
		ActorID:        in.ActorID,
		Metadata:       copyAnyMap(in.Metadata),
		CreatedAt:      in.CreatedAt,
	}
}

func (r *auditEntryRecord) toDomain() core.AuditEntry {
	if r == nil {
		return core.AuditEntry{}
	}
	return core.AuditEntry{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Action:         r.Action,
		ResourceType:   r.ResourceType,
		ResourceID:     r.ResourceID,
		ActorID:        r.ActorID,
		Metadata:       copyAnyMap(r.Metadata),
		CreatedAt:      r.CreatedAt,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyEndpoints(in []core.EndpointSpec) []core.EndpointSpec {
	out := make([]core.EndpointSpec, len(in))
	copy(out, in)
	return out
}

func copyTime(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	value := in.UTC()
	return &value
}
