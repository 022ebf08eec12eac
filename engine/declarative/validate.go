package declarative

import (
	"fmt"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-integrations/core"
)

// Validate checks every endpoint before any network activity.
func Validate(req RunRequest) error {
	if len(req.Endpoints) == 0 {
		return core.ValidationError("declarative: at least one endpoint is required",
			fieldError("endpoints", "must not be empty"))
	}
	var fields []goerrors.FieldError
	for index, endpoint := range req.Endpoints {
		fields = append(fields, endpointFieldErrors(req.BaseURL, endpoint, index)...)
	}
	if len(fields) > 0 {
		return core.ValidationError(
			fmt.Sprintf("declarative: %d invalid endpoint field(s)", len(fields)),
			fields...,
		)
	}
	return nil
}

func validateEndpoint(baseURL string, endpoint core.EndpointSpec, index int) error {
	fields := endpointFieldErrors(baseURL, endpoint, index)
	if len(fields) == 0 {
		return nil
	}
	return core.ValidationError(fmt.Sprintf("declarative: endpoint %d is invalid", index), fields...)
}

func endpointFieldErrors(baseURL string, endpoint core.EndpointSpec, index int) []goerrors.FieldError {
	prefix := fmt.Sprintf("endpoints[%d]", index)
	var fields []goerrors.FieldError

	method := strings.ToUpper(strings.TrimSpace(endpoint.Method))
	if _, ok := allowedMethods[method]; !ok {
		fields = append(fields, fieldError(prefix+".method", fmt.Sprintf("unsupported method %q", endpoint.Method)))
	}
	path := strings.TrimSpace(endpoint.Path)
	if path == "" {
		return append(fields, fieldError(prefix+".path", "is required"))
	}
	if parsed, err := url.Parse(path); err == nil && parsed.IsAbs() {
		return fields
	}
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if strings.TrimSpace(baseURL) == "" || err != nil || !base.IsAbs() {
		fields = append(fields, fieldError("baseUrl", "an absolute base URL is required for relative path "+path))
	}
	return fields
}

func fieldError(field, message string) goerrors.FieldError {
	return goerrors.FieldError{Field: field, Message: message}
}
