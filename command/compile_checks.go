package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-integrations/configure"
	integrationsync "github.com/goliatone/go-integrations/sync"
)

var (
	_ gocmd.Commander[CreateIntegrationMessage]        = (*CreateIntegrationCommand)(nil)
	_ gocmd.Commander[ConfigureIntegrationMessage]     = (*ConfigureIntegrationCommand)(nil)
	_ gocmd.Commander[ConfigureCustomExecutionMessage] = (*ConfigureCustomExecutionCommand)(nil)
	_ gocmd.Commander[SyncIntegrationMessage]          = (*SyncIntegrationCommand)(nil)
	_ gocmd.Commander[TestEndpointMessage]             = (*TestEndpointCommand)(nil)
	_ gocmd.Commander[TestSyncMessage]                 = (*TestSyncCommand)(nil)
	_ gocmd.Commander[ValidateCodeMessage]             = (*ValidateCodeCommand)(nil)

	_ ConfigureService = (*configure.Service)(nil)
	_ SyncService      = (*integrationsync.Orchestrator)(nil)
)
