package core

import (
	"strings"

	"github.com/go-viper/mapstructure/v2"
	goerrors "github.com/goliatone/go-errors"
)

// ConnectorConfig is the decoded, validated shape of an integration config.
// Builtin connector types get a narrow struct; custom and unknown types fall
// back to GenericConnectorConfig.
type ConnectorConfig interface {
	ConnectorType() string
	Validate() error
}

type AWSConnectorConfig struct {
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	SessionToken    string `mapstructure:"sessionToken"`
	Region          string `mapstructure:"region"`
	RoleARN         string `mapstructure:"roleArn"`
}

func (AWSConnectorConfig) ConnectorType() string { return "aws" }

func (c AWSConnectorConfig) Validate() error {
	var fields []goerrors.FieldError
	fields = requireField(fields, "accessKeyId", c.AccessKeyID)
	fields = requireField(fields, "secretAccessKey", c.SecretAccessKey)
	fields = requireField(fields, "region", c.Region)
	return fieldErrors("aws connector config is invalid", fields)
}

type GitHubConnectorConfig struct {
	Token        string `mapstructure:"token"`
	Organization string `mapstructure:"organization"`
	BaseURL      string `mapstructure:"baseUrl"`
}

func (GitHubConnectorConfig) ConnectorType() string { return "github" }

func (c GitHubConnectorConfig) Validate() error {
	return fieldErrors("github connector config is invalid", requireField(nil, "token", c.Token))
}

type OktaConnectorConfig struct {
	Domain   string `mapstructure:"domain"`
	APIToken string `mapstructure:"apiToken"`
}

func (OktaConnectorConfig) ConnectorType() string { return "okta" }

func (c OktaConnectorConfig) Validate() error {
	var fields []goerrors.FieldError
	fields = requireField(fields, "domain", c.Domain)
	fields = requireField(fields, "apiToken", c.APIToken)
	return fieldErrors("okta connector config is invalid", fields)
}

type JiraConnectorConfig struct {
	BaseURL    string `mapstructure:"baseUrl"`
	Email      string `mapstructure:"email"`
	APIToken   string `mapstructure:"apiToken"`
	ProjectKey string `mapstructure:"projectKey"`
}

func (JiraConnectorConfig) ConnectorType() string { return "jira" }

func (c JiraConnectorConfig) Validate() error {
	var fields []goerrors.FieldError
	fields = requireField(fields, "baseUrl", c.BaseURL)
	fields = requireField(fields, "email", c.Email)
	fields = requireField(fields, "apiToken", c.APIToken)
	return fieldErrors("jira connector config is invalid", fields)
}

type GenericConnectorConfig struct {
	Type   string
	Values map[string]any
}

func (c GenericConnectorConfig) ConnectorType() string { return c.Type }

func (GenericConnectorConfig) Validate() error { return nil }

// DecodeConnectorConfig decodes a decrypted config map into the typed shape
// registered for connectorType and validates it.
func DecodeConnectorConfig(connectorType string, raw map[string]any) (ConnectorConfig, error) {
	var target ConnectorConfig
	switch normalizeConnectorType(connectorType) {
	case "aws":
		cfg := AWSConnectorConfig{}
		if err := decodeInto(raw, &cfg); err != nil {
			return nil, err
		}
		target = cfg
	case "github":
		cfg := GitHubConnectorConfig{}
		if err := decodeInto(raw, &cfg); err != nil {
			return nil, err
		}
		target = cfg
	case "okta":
		cfg := OktaConnectorConfig{}
		if err := decodeInto(raw, &cfg); err != nil {
			return nil, err
		}
		target = cfg
	case "jira":
		cfg := JiraConnectorConfig{}
		if err := decodeInto(raw, &cfg); err != nil {
			return nil, err
		}
		target = cfg
	default:
		values := make(map[string]any, len(raw))
		for key, value := range raw {
			values[key] = value
		}
		target = GenericConnectorConfig{Type: normalizeConnectorType(connectorType), Values: values}
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return target, nil
}

func decodeInto(raw map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ExecutionError(err, "connector config decoder setup failed", nil)
	}
	if err := decoder.Decode(raw); err != nil {
		return ValidationError("connector config could not be decoded", goerrors.FieldError{
			Field:   "config",
			Message: err.Error(),
		})
	}
	return nil
}

func requireField(fields []goerrors.FieldError, name string, value string) []goerrors.FieldError {
	if strings.TrimSpace(value) != "" {
		return fields
	}
	return append(fields, goerrors.FieldError{Field: name, Message: "is required"})
}

func fieldErrors(message string, fields []goerrors.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return ValidationError(message, fields...)
}
