package configure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/engine/declarative"
	"github.com/goliatone/go-integrations/engine/script"
	"github.com/goliatone/go-integrations/security"
)

type CreateIntegrationRequest struct {
	OrganizationID string
	ConnectorType  string
	Name           string
	SyncFrequency  core.SyncFrequency
	Config         map[string]any
}

type ConfigureIntegrationRequest struct {
	IntegrationID string
	Config        map[string]any
}

type CustomExecutionRequest struct {
	IntegrationID string
	Mode          core.AuthoringMode
	BaseURL       string
	Endpoints     []core.EndpointSpec
	AuthType      core.AuthType
	AuthConfig    map[string]any
	Script        string
}

type Option func(*Service)

func WithLogger(logger core.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

func WithScriptValidator(validate func(string) core.CodeValidationResult) Option {
	return func(s *Service) {
		if validate != nil {
			s.validateScript = validate
		}
	}
}

// Service is the write path for integration configuration. Every sensitive
// value it stores has passed through the cipher.
type Service struct {
	integrations   core.IntegrationStore
	customConfigs  core.CustomConfigStore
	cipher         core.ConfigCipher
	logger         core.Logger
	metrics        core.MetricsRecorder
	validateScript func(string) core.CodeValidationResult
}

func NewService(integrations core.IntegrationStore, customConfigs core.CustomConfigStore, cipher core.ConfigCipher, opts ...Option) (*Service, error) {
	if integrations == nil || customConfigs == nil {
		return nil, core.ConfigurationError("configure: integration and custom config stores are required", nil)
	}
	if cipher == nil {
		return nil, core.ConfigurationError("configure: a config cipher is required", nil)
	}
	service := &Service{
		integrations:   integrations,
		customConfigs:  customConfigs,
		cipher:         cipher,
		logger:         glog.Nop(),
		metrics:        core.NopMetricsRecorder{},
		validateScript: script.Validate,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(service)
	}
	return service, nil
}

func (s *Service) CreateIntegration(ctx context.Context, req CreateIntegrationRequest) (integration core.Integration, err error) {
	startedAt := time.Now()
	defer func() {
		s.observer().Observe(ctx, startedAt, "create_integration", err, map[string]any{
			"connector_type": req.ConnectorType,
			"integration_id": integration.ID,
		})
	}()

	connectorType := strings.ToLower(strings.TrimSpace(req.ConnectorType))
	if connectorType == "" {
		return core.Integration{}, core.ValidationError("configure: connector type is required",
			goerrors.FieldError{Field: "connectorType", Message: "is required"})
	}
	frequency := req.SyncFrequency
	if frequency == "" {
		frequency = core.SyncFrequencyManual
	}
	if !frequency.Valid() {
		return core.Integration{}, core.ValidationError("configure: sync frequency is invalid",
			goerrors.FieldError{Field: "syncFrequency", Message: fmt.Sprintf("unsupported value %q", frequency)})
	}

	status := core.IntegrationStatusPendingSetup
	var stored map[string]any
	if len(req.Config) > 0 {
		if _, err := core.DecodeConnectorConfig(connectorType, req.Config); err != nil {
			return core.Integration{}, err
		}
		stored, err = s.cipher.EncryptConfig(req.Config)
		if err != nil {
			return core.Integration{}, err
		}
		status = core.IntegrationStatusActive
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = connectorType
	}
	return s.integrations.Create(ctx, core.Integration{
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		ConnectorType:  connectorType,
		Name:           name,
		SyncFrequency:  frequency,
		Status:         status,
		Config:         stored,
	})
}

// ConfigureIntegration validates config against the connector's typed shape,
// encrypts it and stores it. Masked values sent back from a display read keep
// the stored secret.
func (s *Service) ConfigureIntegration(ctx context.Context, req ConfigureIntegrationRequest) (integration core.Integration, err error) {
	startedAt := time.Now()
	defer func() {
		s.observer().Observe(ctx, startedAt, "configure_integration", err, map[string]any{
			"integration_id": req.IntegrationID,
			"connector_type": integration.ConnectorType,
		})
	}()

	current, err := s.integrations.Get(ctx, strings.TrimSpace(req.IntegrationID))
	if err != nil {
		return core.Integration{}, err
	}
	merged := keepMaskedSecrets(req.Config, current.Config)
	if _, err := core.DecodeConnectorConfig(current.ConnectorType, s.cipher.DecryptConfig(merged)); err != nil {
		return core.Integration{}, err
	}
	encrypted, err := s.cipher.EncryptConfig(merged)
	if err != nil {
		return core.Integration{}, err
	}
	return s.integrations.UpdateConfig(ctx, current.ID, encrypted, core.IntegrationStatusActive)
}

// ConfigureCustomExecution validates and stores the endpoint list or script of
// a custom integration. Invalid input is rejected before anything is written.
func (s *Service) ConfigureCustomExecution(ctx context.Context, req CustomExecutionRequest) (config core.CustomExecutionConfig, err error) {
	startedAt := time.Now()
	defer func() {
		s.observer().Observe(ctx, startedAt, "configure_custom_execution", err, map[string]any{
			"integration_id": req.IntegrationID,
			"mode":           string(req.Mode),
		})
	}()

	integration, err := s.integrations.Get(ctx, strings.TrimSpace(req.IntegrationID))
	if err != nil {
		return core.CustomExecutionConfig{}, err
	}
	if !integration.IsCustom() {
		return core.CustomExecutionConfig{}, core.ConfigurationError(
			fmt.Sprintf("configure: integration %s is not a custom integration", integration.ID),
			map[string]any{"connector_type": integration.ConnectorType},
		)
	}
	authType, err := normalizeAuthType(req.AuthType)
	if err != nil {
		return core.CustomExecutionConfig{}, err
	}

	var existing core.CustomExecutionConfig
	if stored, getErr := s.customConfigs.GetByIntegration(ctx, integration.ID); getErr == nil {
		existing = stored
	}
	authConfig := keepMaskedSecrets(req.AuthConfig, existing.AuthConfig)

	next := core.CustomExecutionConfig{
		IntegrationID: integration.ID,
		Mode:          req.Mode,
		BaseURL:       strings.TrimSpace(req.BaseURL),
		AuthType:      authType,
	}
	switch req.Mode {
	case core.AuthoringModeVisual:
		endpoints := normalizeEndpoints(req.Endpoints)
		if err := declarative.Validate(declarative.RunRequest{
			IntegrationID: integration.ID,
			BaseURL:       next.BaseURL,
			Endpoints:     endpoints,
		}); err != nil {
			return core.CustomExecutionConfig{}, err
		}
		next.Endpoints, err = core.EncryptEndpoints(s.cipher, keepMaskedEndpointSecrets(endpoints, existing.Endpoints))
		if err != nil {
			return core.CustomExecutionConfig{}, err
		}
	case core.AuthoringModeCode:
		result := s.validateScript(req.Script)
		if !result.Valid {
			fields := make([]goerrors.FieldError, 0, len(result.Errors))
			for _, message := range result.Errors {
				fields = append(fields, goerrors.FieldError{Field: "script", Message: message})
			}
			return core.CustomExecutionConfig{}, core.ValidationError("configure: script is invalid", fields...)
		}
		next.Script = req.Script
	default:
		return core.CustomExecutionConfig{}, core.ValidationError("configure: authoring mode is invalid",
			goerrors.FieldError{Field: "mode", Message: fmt.Sprintf("unsupported value %q", req.Mode)})
	}

	next.AuthConfig, err = s.cipher.EncryptConfig(authConfig)
	if err != nil {
		return core.CustomExecutionConfig{}, err
	}
	config, err = s.customConfigs.Upsert(ctx, next)
	if err != nil {
		return core.CustomExecutionConfig{}, err
	}
	if integration.Status == core.IntegrationStatusPendingSetup {
		if _, err := s.integrations.UpdateConfig(ctx, integration.ID, integration.Config, core.IntegrationStatusActive); err != nil {
			s.logger.Warn("configure: could not activate integration", "integration_id", integration.ID, "error", err.Error())
		}
	}
	return config, nil
}

// MaskedIntegrationConfig returns the stored config decrypted then masked for
// display.
func (s *Service) MaskedIntegrationConfig(ctx context.Context, integrationID string) (map[string]any, error) {
	integration, err := s.integrations.Get(ctx, strings.TrimSpace(integrationID))
	if err != nil {
		return nil, err
	}
	return s.cipher.MaskConfig(s.cipher.DecryptConfig(integration.Config)), nil
}

func (s *Service) MaskedCustomExecution(ctx context.Context, integrationID string) (core.CustomExecutionConfig, error) {
	config, err := s.customConfigs.GetByIntegration(ctx, strings.TrimSpace(integrationID))
	if err != nil {
		return core.CustomExecutionConfig{}, err
	}
	config.AuthConfig = s.cipher.MaskConfig(s.cipher.DecryptConfig(config.AuthConfig))
	config.Endpoints = core.MaskEndpoints(s.cipher, config.Endpoints)
	return config, nil
}

func (s *Service) observer() core.Observer {
	return core.Observer{Logger: s.logger, Metrics: s.metrics}
}

func normalizeAuthType(value core.AuthType) (core.AuthType, error) {
	switch core.AuthType(strings.ToLower(strings.TrimSpace(string(value)))) {
	case "", core.AuthTypeNone:
		return core.AuthTypeNone, nil
	case core.AuthTypeAPIKey, "apikey", "api-key":
		return core.AuthTypeAPIKey, nil
	case core.AuthTypeBearer:
		return core.AuthTypeBearer, nil
	case core.AuthTypeBasic:
		return core.AuthTypeBasic, nil
	case core.AuthTypeOAuth2, "oauth", "oauth2_client_credentials":
		return core.AuthTypeOAuth2, nil
	}
	return "", core.ValidationError("configure: auth type is invalid",
		goerrors.FieldError{Field: "authType", Message: fmt.Sprintf("unsupported value %q", value)})
}

func normalizeEndpoints(endpoints []core.EndpointSpec) []core.EndpointSpec {
	out := make([]core.EndpointSpec, len(endpoints))
	for i, endpoint := range endpoints {
		endpoint.Method = strings.ToUpper(strings.TrimSpace(endpoint.Method))
		if endpoint.Method == "" {
			endpoint.Method = http.MethodGet
		}
		endpoint.Path = strings.TrimSpace(endpoint.Path)
		out[i] = endpoint
	}
	return out
}

// keepMaskedSecrets replaces masked values in incoming with the value stored
// under the same key, so a display round-trip never overwrites a secret with
// its mask.
func keepMaskedSecrets(incoming, stored map[string]any) map[string]any {
	if incoming == nil {
		return nil
	}
	out := make(map[string]any, len(incoming))
	for key, value := range incoming {
		switch typed := value.(type) {
		case string:
			if security.IsMasked(typed) {
				if previous, ok := stored[key]; ok {
					out[key] = previous
					continue
				}
			}
			out[key] = typed
		case map[string]any:
			nested, _ := stored[key].(map[string]any)
			out[key] = keepMaskedSecrets(typed, nested)
		default:
			out[key] = value
		}
	}
	return out
}

// keepMaskedEndpointSecrets applies keepMaskedSecrets to the headers and
// params of endpoints that kept their position and label.
func keepMaskedEndpointSecrets(incoming, stored []core.EndpointSpec) []core.EndpointSpec {
	out := make([]core.EndpointSpec, len(incoming))
	for i, endpoint := range incoming {
		if i < len(stored) && stored[i].Label(i) == endpoint.Label(i) {
			endpoint.Headers = keepMaskedStrings(endpoint.Headers, stored[i].Headers)
			endpoint.Params = keepMaskedStrings(endpoint.Params, stored[i].Params)
		}
		out[i] = endpoint
	}
	return out
}

func keepMaskedStrings(incoming, stored map[string]string) map[string]string {
	if incoming == nil {
		return nil
	}
	out := make(map[string]string, len(incoming))
	for key, value := range incoming {
		if previous, ok := stored[key]; ok && security.IsMasked(value) {
			out[key] = previous
			continue
		}
		out[key] = value
	}
	return out
}
