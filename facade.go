package integrations

import (
	"fmt"

	"github.com/goliatone/go-integrations/command"
)

type Commands struct {
	CreateIntegration        *command.CreateIntegrationCommand
	ConfigureIntegration     *command.ConfigureIntegrationCommand
	ConfigureCustomExecution *command.ConfigureCustomExecutionCommand
	SyncIntegration          *command.SyncIntegrationCommand
	TestEndpoint             *command.TestEndpointCommand
	TestSync                 *command.TestSyncCommand
	ValidateCode             *command.ValidateCodeCommand
}

// Facade exposes the subsystem as go-command handlers.
type Facade struct {
	sync      command.SyncService
	configure command.ConfigureService
	commands  Commands
}

func NewFacade(syncSvc command.SyncService, configureSvc command.ConfigureService) (*Facade, error) {
	if syncSvc == nil {
		return nil, fmt.Errorf("integrations: sync service is required")
	}
	if configureSvc == nil {
		return nil, fmt.Errorf("integrations: configure service is required")
	}
	return &Facade{
		sync:      syncSvc,
		configure: configureSvc,
		commands: Commands{
			CreateIntegration:        command.NewCreateIntegrationCommand(configureSvc),
			ConfigureIntegration:     command.NewConfigureIntegrationCommand(configureSvc),
			ConfigureCustomExecution: command.NewConfigureCustomExecutionCommand(configureSvc),
			SyncIntegration:          command.NewSyncIntegrationCommand(syncSvc),
			TestEndpoint:             command.NewTestEndpointCommand(syncSvc),
			TestSync:                 command.NewTestSyncCommand(syncSvc),
			ValidateCode:             command.NewValidateCodeCommand(syncSvc),
		},
	}, nil
}

// Facade wires the runtime's orchestrator and configure service.
func (r *Runtime) Facade() (*Facade, error) {
	if r == nil {
		return nil, fmt.Errorf("integrations: runtime is nil")
	}
	return NewFacade(r.Orchestrator, r.Configure)
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) SyncService() command.SyncService {
	if f == nil {
		return nil
	}
	return f.sync
}

func (f *Facade) ConfigureService() command.ConfigureService {
	if f == nil {
		return nil
	}
	return f.configure
}
