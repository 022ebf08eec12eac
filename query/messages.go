package query

import "strings"

const (
	TypeGetIntegrationConfig = "integrations.query.config.get"
	TypeGetCustomExecution   = "integrations.query.custom_execution.get"
	TypeGetSyncJob           = "integrations.query.sync_job.get"
	TypeListSyncJobs         = "integrations.query.sync_job.list"
	TypeListEvidence         = "integrations.query.evidence.list"

	maxListLimit = 200
)

type GetIntegrationConfigMessage struct {
	IntegrationID string
}

func (GetIntegrationConfigMessage) Type() string { return TypeGetIntegrationConfig }

func (m GetIntegrationConfigMessage) Validate() error {
	return requireField("integrationId", m.IntegrationID)
}

type GetCustomExecutionMessage struct {
	IntegrationID string
}

func (GetCustomExecutionMessage) Type() string { return TypeGetCustomExecution }

func (m GetCustomExecutionMessage) Validate() error {
	return requireField("integrationId", m.IntegrationID)
}

type GetSyncJobMessage struct {
	SyncJobID string
}

func (GetSyncJobMessage) Type() string { return TypeGetSyncJob }

func (m GetSyncJobMessage) Validate() error {
	return requireField("syncJobId", m.SyncJobID)
}

type ListSyncJobsMessage struct {
	IntegrationID string
	Limit         int
}

func (ListSyncJobsMessage) Type() string { return TypeListSyncJobs }

func (m ListSyncJobsMessage) Validate() error {
	if err := requireField("integrationId", m.IntegrationID); err != nil {
		return err
	}
	if m.Limit < 0 || m.Limit > maxListLimit {
		return queryValidationError("limit", "must be between 0 and 200")
	}
	return nil
}

type ListEvidenceMessage struct {
	SyncJobID string
}

func (ListEvidenceMessage) Type() string { return TypeListEvidence }

func (m ListEvidenceMessage) Validate() error {
	return requireField("syncJobId", m.SyncJobID)
}

func requireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return queryValidationError(field, "is required")
	}
	return nil
}
