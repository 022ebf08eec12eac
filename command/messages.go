package command

import (
	"strings"

	"github.com/goliatone/go-integrations/configure"
	"github.com/goliatone/go-integrations/core"
)

const (
	TypeCreateIntegration        = "integrations.command.integration.create"
	TypeConfigureIntegration     = "integrations.command.integration.configure"
	TypeConfigureCustomExecution = "integrations.command.custom.configure"
	TypeSyncIntegration          = "integrations.command.sync"
	TypeTestEndpoint             = "integrations.command.test_endpoint"
	TypeTestSync                 = "integrations.command.test_sync"
	TypeValidateCode             = "integrations.command.validate_code"
)

type CreateIntegrationMessage struct {
	Request configure.CreateIntegrationRequest
}

func (CreateIntegrationMessage) Type() string { return TypeCreateIntegration }

func (m CreateIntegrationMessage) Validate() error {
	if strings.TrimSpace(m.Request.ConnectorType) == "" {
		return commandValidationError("connectorType", "connector type is required")
	}
	return nil
}

type ConfigureIntegrationMessage struct {
	Request configure.ConfigureIntegrationRequest
}

func (ConfigureIntegrationMessage) Type() string { return TypeConfigureIntegration }

func (m ConfigureIntegrationMessage) Validate() error {
	return requireIntegrationID(m.Request.IntegrationID)
}

type ConfigureCustomExecutionMessage struct {
	Request configure.CustomExecutionRequest
}

func (ConfigureCustomExecutionMessage) Type() string { return TypeConfigureCustomExecution }

func (m ConfigureCustomExecutionMessage) Validate() error {
	if err := requireIntegrationID(m.Request.IntegrationID); err != nil {
		return err
	}
	switch m.Request.Mode {
	case core.AuthoringModeVisual, core.AuthoringModeCode:
		return nil
	default:
		return commandValidationError("mode", "mode must be visual or code")
	}
}

type SyncIntegrationMessage struct {
	IntegrationID string
	Trigger       core.SyncTrigger
	ActorID       string
}

func (SyncIntegrationMessage) Type() string { return TypeSyncIntegration }

func (m SyncIntegrationMessage) Validate() error {
	if err := requireIntegrationID(m.IntegrationID); err != nil {
		return err
	}
	switch m.Trigger {
	case "", core.SyncTriggerManual, core.SyncTriggerScheduled:
		return nil
	default:
		return commandValidationError("trigger", "trigger must be manual or scheduled")
	}
}

type TestEndpointMessage struct {
	IntegrationID string
	EndpointIndex int
}

func (TestEndpointMessage) Type() string { return TypeTestEndpoint }

func (m TestEndpointMessage) Validate() error {
	if err := requireIntegrationID(m.IntegrationID); err != nil {
		return err
	}
	if m.EndpointIndex < 0 {
		return commandValidationError("endpointIndex", "endpoint index must not be negative")
	}
	return nil
}

type TestSyncMessage struct {
	IntegrationID string
}

func (TestSyncMessage) Type() string { return TypeTestSync }

func (m TestSyncMessage) Validate() error {
	return requireIntegrationID(m.IntegrationID)
}

type ValidateCodeMessage struct {
	Script string
}

func (ValidateCodeMessage) Type() string { return TypeValidateCode }

func (m ValidateCodeMessage) Validate() error {
	if strings.TrimSpace(m.Script) == "" {
		return commandValidationError("script", "script is required")
	}
	return nil
}

func requireIntegrationID(id string) error {
	if strings.TrimSpace(id) == "" {
		return commandValidationError("integrationId", "integration id is required")
	}
	return nil
}
