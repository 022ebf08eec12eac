package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/engine/declarative"
	"github.com/goliatone/go-integrations/engine/script"
)

func (o *Orchestrator) loadIntegration(ctx context.Context, integrationID string) (core.Integration, error) {
	integrationID = strings.TrimSpace(integrationID)
	if integrationID == "" {
		return core.Integration{}, core.ConfigurationError("sync: integration id is required", nil)
	}
	integration, err := o.Integrations.Get(ctx, integrationID)
	if err != nil {
		if isNotFound(err) {
			return core.Integration{}, core.ConfigurationError(
				fmt.Sprintf("sync: integration %s not found", integrationID),
				map[string]any{"integration_id": integrationID},
			)
		}
		return core.Integration{}, core.ExecutionError(err, "sync: could not load integration", map[string]any{"integration_id": integrationID})
	}
	return integration, nil
}

func (o *Orchestrator) loadCustomConfig(ctx context.Context, integrationID string) (core.CustomExecutionConfig, error) {
	config, err := o.CustomConfigs.GetByIntegration(ctx, integrationID)
	if err != nil {
		if isNotFound(err) {
			return core.CustomExecutionConfig{}, core.ConfigurationError(
				"sync: custom integration has no execution config",
				map[string]any{"integration_id": integrationID},
			)
		}
		return core.CustomExecutionConfig{}, core.ExecutionError(err, "sync: could not load custom execution config", map[string]any{"integration_id": integrationID})
	}
	return config, nil
}

// dispatch runs the engine or connector for an integration and reports which
// path was taken.
func (o *Orchestrator) dispatch(ctx context.Context, integration core.Integration) (core.SyncResult, string, error) {
	if integration.IsCustom() {
		config, err := o.loadCustomConfig(ctx, integration.ID)
		if err != nil {
			return core.SyncResult{}, "", err
		}
		result, err := o.runCustom(ctx, integration, config)
		return result, string(config.Mode), err
	}
	result, err := o.runBuiltin(ctx, integration)
	return result, "builtin", err
}

func (o *Orchestrator) runCustom(ctx context.Context, integration core.Integration, config core.CustomExecutionConfig) (core.SyncResult, error) {
	auth := o.authSpec(integration.ID, config)
	switch config.Mode {
	case core.AuthoringModeVisual:
		if o.Declarative == nil {
			return core.SyncResult{}, core.ConfigurationError("sync: declarative engine is not configured", nil)
		}
		return o.Declarative.Run(ctx, declarative.RunRequest{
			IntegrationID: integration.ID,
			BaseURL:       config.BaseURL,
			Endpoints:     o.decryptEndpoints(config.Endpoints),
			Auth:          auth,
		})
	case core.AuthoringModeCode:
		if o.Script == nil {
			return core.SyncResult{}, core.ConfigurationError("sync: script engine is not configured", nil)
		}
		return o.Script.Run(ctx, script.RunRequest{
			IntegrationID: integration.ID,
			BaseURL:       config.BaseURL,
			Auth:          auth,
			Script:        config.Script,
		})
	default:
		return core.SyncResult{}, core.ConfigurationError(
			fmt.Sprintf("sync: unknown authoring mode %q", config.Mode),
			map[string]any{"integration_id": integration.ID},
		)
	}
}

func (o *Orchestrator) runBuiltin(ctx context.Context, integration core.Integration) (core.SyncResult, error) {
	if o.Connectors == nil {
		return core.SyncResult{}, core.ConfigurationError("sync: connector registry is not configured", nil)
	}
	connector, ok := o.Connectors.Get(integration.ConnectorType)
	if !ok {
		return core.SyncResult{}, core.ConfigurationError(
			fmt.Sprintf("sync: no connector registered for %q", integration.ConnectorType),
			map[string]any{"connector_type": integration.ConnectorType},
		)
	}
	config, err := core.DecodeConnectorConfig(integration.ConnectorType, o.decrypt(integration.Config))
	if err != nil {
		return core.SyncResult{}, err
	}
	return connector.Sync(ctx, core.ConnectorRequest{Integration: integration, Config: config})
}

func (o *Orchestrator) authSpec(integrationID string, config core.CustomExecutionConfig) core.AuthSpec {
	authType := config.AuthType
	if authType == "" {
		authType = core.AuthTypeNone
	}
	return core.AuthSpec{
		Type:     authType,
		Params:   o.decrypt(config.AuthConfig),
		CacheKey: integrationID,
	}
}

func (o *Orchestrator) decryptEndpoints(endpoints []core.EndpointSpec) []core.EndpointSpec {
	if o.Cipher == nil {
		return endpoints
	}
	return core.DecryptEndpoints(o.Cipher, endpoints)
}

func (o *Orchestrator) decrypt(config map[string]any) map[string]any {
	if o.Cipher == nil {
		return config
	}
	return o.Cipher.DecryptConfig(config)
}

// TestEndpoint calls one configured endpoint of a custom visual integration
// and records the outcome as the integration's last test. It creates no job
// and no evidence.
func (o *Orchestrator) TestEndpoint(ctx context.Context, integrationID string, index int) (result core.EndpointTestResult, err error) {
	startedAt := time.Now()
	defer func() {
		o.observer().Observe(ctx, startedAt, "test_endpoint", err, map[string]any{
			"integration_id": integrationID,
			"index":          index,
		})
	}()

	if err := o.ready(); err != nil {
		return core.EndpointTestResult{}, err
	}
	integration, config, err := o.loadCustom(ctx, integrationID)
	if err != nil {
		return core.EndpointTestResult{}, err
	}
	if o.Declarative == nil {
		return core.EndpointTestResult{}, core.ConfigurationError("sync: declarative engine is not configured", nil)
	}
	result, err = o.Declarative.TestEndpoint(ctx, declarative.RunRequest{
		IntegrationID: integration.ID,
		BaseURL:       config.BaseURL,
		Endpoints:     o.decryptEndpoints(config.Endpoints),
		Auth:          o.authSpec(integration.ID, config),
	}, index)
	if err != nil {
		return core.EndpointTestResult{}, err
	}
	o.recordTest(ctx, integration.ID, result.Success, result.Error)
	return result, nil
}

// TestSync dry-runs the configured engine or connector. Evidence is returned
// as a preview in the outcome data and nothing is persisted apart from the
// last test outcome of custom integrations.
func (o *Orchestrator) TestSync(ctx context.Context, integrationID string) (outcome core.SyncOutcome, err error) {
	startedAt := time.Now()
	defer func() {
		o.observer().Observe(ctx, startedAt, "test_sync", err, map[string]any{"integration_id": integrationID})
	}()

	if err := o.ready(); err != nil {
		return core.SyncOutcome{Success: false, Message: core.ErrorMessage(err)}, err
	}
	integration, err := o.loadIntegration(ctx, integrationID)
	if err != nil {
		return core.SyncOutcome{Success: false, Message: core.ErrorMessage(err)}, err
	}

	result, _, runErr := o.dispatch(ctx, integration)
	if runErr != nil {
		message := core.ErrorMessage(runErr)
		if integration.IsCustom() {
			o.recordTest(ctx, integration.ID, false, message)
		}
		return core.SyncOutcome{
			Success: false,
			Message: message,
			Errors:  []string{message},
			Data:    map[string]any{"logs": result.Logs},
		}, nil
	}

	if integration.IsCustom() {
		o.recordTest(ctx, integration.ID, true, "")
	}
	preview := result.Evidence
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	return core.SyncOutcome{
		Success: true,
		Message: fmt.Sprintf("Test sync produced %d evidence items", len(result.Evidence)),
		Errors:  result.Errors,
		Data: map[string]any{
			"itemCount": len(result.Evidence),
			"preview":   preview,
			"logs":      result.Logs,
		},
	}, nil
}

// ValidateCode statically checks a script without running it.
func (o *Orchestrator) ValidateCode(source string) core.CodeValidationResult {
	if o != nil && o.Script != nil {
		return o.Script.Validate(source)
	}
	return script.Validate(source)
}

func (o *Orchestrator) loadCustom(ctx context.Context, integrationID string) (core.Integration, core.CustomExecutionConfig, error) {
	integration, err := o.loadIntegration(ctx, integrationID)
	if err != nil {
		return core.Integration{}, core.CustomExecutionConfig{}, err
	}
	if !integration.IsCustom() {
		return core.Integration{}, core.CustomExecutionConfig{}, core.ConfigurationError(
			fmt.Sprintf("sync: integration %s is not a custom integration", integration.ID),
			map[string]any{"connector_type": integration.ConnectorType},
		)
	}
	config, err := o.loadCustomConfig(ctx, integration.ID)
	if err != nil {
		return core.Integration{}, core.CustomExecutionConfig{}, err
	}
	return integration, config, nil
}

func (o *Orchestrator) recordTest(ctx context.Context, integrationID string, passed bool, message string) {
	outcome := core.TestOutcome{Status: core.TestStatusPassed, At: o.now()}
	if !passed {
		outcome.Status = core.TestStatusFailed
		outcome.Error = message
	}
	if err := o.CustomConfigs.RecordTest(context.WithoutCancel(ctx), integrationID, outcome); err != nil {
		o.Logger.Warn("sync: could not record test outcome", "integration_id", integrationID, "error", err.Error())
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrIntegrationNotFound) ||
		errors.Is(err, core.ErrCustomConfigNotFound) ||
		core.HasTextCode(err, core.ErrorNotFound)
}
