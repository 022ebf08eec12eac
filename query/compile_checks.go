package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-integrations/configure"
	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/store/memory"
	sqlstore "github.com/goliatone/go-integrations/store/sql"
)

var (
	_ gocmd.Querier[GetIntegrationConfigMessage, map[string]any]           = (*GetIntegrationConfigQuery)(nil)
	_ gocmd.Querier[GetCustomExecutionMessage, core.CustomExecutionConfig] = (*GetCustomExecutionQuery)(nil)
	_ gocmd.Querier[GetSyncJobMessage, core.SyncJob]                       = (*GetSyncJobQuery)(nil)
	_ gocmd.Querier[ListSyncJobsMessage, []core.SyncJob]                   = (*ListSyncJobsQuery)(nil)
	_ gocmd.Querier[ListEvidenceMessage, []core.Evidence]                  = (*ListEvidenceQuery)(nil)

	_ ConfigReader      = (*configure.Service)(nil)
	_ SyncHistoryReader = (*sqlstore.SyncJobStore)(nil)
	_ SyncHistoryReader = (*memory.SyncJobStore)(nil)
)
