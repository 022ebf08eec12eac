package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorConfiguration = "INTEGRATIONS_CONFIGURATION"
	ErrorValidation    = "INTEGRATIONS_VALIDATION"
	ErrorTransport     = "INTEGRATIONS_TRANSPORT"
	ErrorExecution     = "INTEGRATIONS_EXECUTION"
	ErrorCryptographic = "INTEGRATIONS_CRYPTOGRAPHIC"
	ErrorNotFound      = "INTEGRATIONS_NOT_FOUND"
	ErrorInternal      = "INTEGRATIONS_INTERNAL"
)

// ConfigurationError reports a missing or invalid master secret, integration
// or config. Callers must not have mutated anything when returning it.
func ConfigurationError(message string, metadata map[string]any) *goerrors.Error {
	return newError(message, goerrors.CategoryBadInput, ErrorConfiguration, metadata)
}

func ValidationError(message string, fields ...goerrors.FieldError) *goerrors.Error {
	err := goerrors.NewValidation(message, fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorValidation)
	return err
}

func TransportError(err error, message string, metadata map[string]any) *goerrors.Error {
	return wrapError(err, goerrors.CategoryExternal, ErrorTransport, message, metadata)
}

func ExecutionError(err error, message string, metadata map[string]any) *goerrors.Error {
	if err == nil {
		return newError(message, goerrors.CategoryOperation, ErrorExecution, metadata)
	}
	return wrapError(err, goerrors.CategoryOperation, ErrorExecution, message, metadata)
}

func CryptographicError(err error, message string, metadata map[string]any) *goerrors.Error {
	return wrapError(err, goerrors.CategoryInternal, ErrorCryptographic, message, metadata)
}

func NotFoundError(message string, metadata map[string]any) *goerrors.Error {
	return newError(message, goerrors.CategoryNotFound, ErrorNotFound, metadata)
}

// MissingError wraps a not-found sentinel such as ErrIntegrationNotFound so
// both errors.Is and HasTextCode(err, ErrorNotFound) match.
func MissingError(sentinel error, message string, metadata map[string]any) *goerrors.Error {
	return wrapError(sentinel, goerrors.CategoryNotFound, ErrorNotFound, message, metadata)
}

func newError(message string, category goerrors.Category, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(httpStatus(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapError(
	source error,
	category goerrors.Category,
	textCode string,
	message string,
	metadata map[string]any,
) *goerrors.Error {
	if source == nil {
		return newError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(httpStatus(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// HasTextCode reports whether err carries the given integrations text code.
func HasTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

// ErrorMessage returns the human-readable message of err without the
// wrapped source chain.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && strings.TrimSpace(richErr.Message) != "" {
		return richErr.Message
	}
	return err.Error()
}

// MapError normalizes any error into the go-errors envelope used at the
// public surface (CLI output, command results).
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureEnvelope(richErr)
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newError(err.Error(), goerrors.CategoryNotFound, ErrorNotFound, nil)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newError(err.Error(), goerrors.CategoryValidation, ErrorValidation, nil)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return newError(err.Error(), goerrors.CategoryExternal, ErrorTransport, nil)
	}
	return ensureEnvelope(goerrors.MapToError(err, goerrors.DefaultErrorMappers()))
}

func ensureEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryValidation:
		return ErrorValidation
	case goerrors.CategoryBadInput:
		return ErrorConfiguration
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryExternal:
		return ErrorTransport
	case goerrors.CategoryOperation:
		return ErrorExecution
	default:
		return ErrorInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
