package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-integrations/configure"
	"github.com/goliatone/go-integrations/core"
	integrationsync "github.com/goliatone/go-integrations/sync"
)

type ConfigureService interface {
	CreateIntegration(ctx context.Context, req configure.CreateIntegrationRequest) (core.Integration, error)
	ConfigureIntegration(ctx context.Context, req configure.ConfigureIntegrationRequest) (core.Integration, error)
	ConfigureCustomExecution(ctx context.Context, req configure.CustomExecutionRequest) (core.CustomExecutionConfig, error)
}

type SyncService interface {
	ExecuteSync(ctx context.Context, req integrationsync.SyncRequest) (core.SyncOutcome, error)
	TestEndpoint(ctx context.Context, integrationID string, index int) (core.EndpointTestResult, error)
	TestSync(ctx context.Context, integrationID string) (core.SyncOutcome, error)
	ValidateCode(source string) core.CodeValidationResult
}

type CreateIntegrationCommand struct {
	service ConfigureService
}

func NewCreateIntegrationCommand(service ConfigureService) *CreateIntegrationCommand {
	return &CreateIntegrationCommand{service: service}
}

func (c *CreateIntegrationCommand) Execute(ctx context.Context, msg CreateIntegrationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: configure service is required")
	}
	out, err := c.service.CreateIntegration(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConfigureIntegrationCommand struct {
	service ConfigureService
}

func NewConfigureIntegrationCommand(service ConfigureService) *ConfigureIntegrationCommand {
	return &ConfigureIntegrationCommand{service: service}
}

func (c *ConfigureIntegrationCommand) Execute(ctx context.Context, msg ConfigureIntegrationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: configure service is required")
	}
	out, err := c.service.ConfigureIntegration(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConfigureCustomExecutionCommand struct {
	service ConfigureService
}

func NewConfigureCustomExecutionCommand(service ConfigureService) *ConfigureCustomExecutionCommand {
	return &ConfigureCustomExecutionCommand{service: service}
}

func (c *ConfigureCustomExecutionCommand) Execute(ctx context.Context, msg ConfigureCustomExecutionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: configure service is required")
	}
	out, err := c.service.ConfigureCustomExecution(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

// SyncIntegrationCommand runs a sync. A failed run is still a stored
// outcome; only errors before a job exists are returned.
type SyncIntegrationCommand struct {
	service SyncService
}

func NewSyncIntegrationCommand(service SyncService) *SyncIntegrationCommand {
	return &SyncIntegrationCommand{service: service}
}

func (c *SyncIntegrationCommand) Execute(ctx context.Context, msg SyncIntegrationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	trigger := msg.Trigger
	if trigger == "" {
		trigger = core.SyncTriggerManual
	}
	out, err := c.service.ExecuteSync(ctx, integrationsync.SyncRequest{
		IntegrationID: msg.IntegrationID,
		Trigger:       trigger,
		ActorID:       msg.ActorID,
	})
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type TestEndpointCommand struct {
	service SyncService
}

func NewTestEndpointCommand(service SyncService) *TestEndpointCommand {
	return &TestEndpointCommand{service: service}
}

func (c *TestEndpointCommand) Execute(ctx context.Context, msg TestEndpointMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	out, err := c.service.TestEndpoint(ctx, msg.IntegrationID, msg.EndpointIndex)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type TestSyncCommand struct {
	service SyncService
}

func NewTestSyncCommand(service SyncService) *TestSyncCommand {
	return &TestSyncCommand{service: service}
}

func (c *TestSyncCommand) Execute(ctx context.Context, msg TestSyncMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	out, err := c.service.TestSync(ctx, msg.IntegrationID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ValidateCodeCommand struct {
	service SyncService
}

func NewValidateCodeCommand(service SyncService) *ValidateCodeCommand {
	return &ValidateCodeCommand{service: service}
}

func (c *ValidateCodeCommand) Execute(ctx context.Context, msg ValidateCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	storeResult(ctx, c.service.ValidateCode(msg.Script))
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
