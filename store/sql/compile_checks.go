package sqlstore

import "github.com/goliatone/go-integrations/core"

var (
	_ core.IntegrationStore  = (*IntegrationStore)(nil)
	_ core.CustomConfigStore = (*CustomConfigStore)(nil)
	_ core.SyncJobStore      = (*SyncJobStore)(nil)
	_ core.EvidenceStore     = (*EvidenceStore)(nil)
	_ core.AuditLogger       = (*AuditStore)(nil)
)
