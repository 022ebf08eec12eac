package core

import (
	stderrors "errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestTaxonomy_AssignsStableCodes(t *testing.T) {
	cases := []struct {
		name     string
		err      *goerrors.Error
		textCode string
		status   int
	}{
		{"configuration", ConfigurationError("integration missing", nil), ErrorConfiguration, http.StatusBadRequest},
		{"validation", ValidationError("bad endpoint", goerrors.FieldError{Field: "path", Message: "is required"}), ErrorValidation, http.StatusBadRequest},
		{"transport", TransportError(stderrors.New("dial tcp"), "call failed", nil), ErrorTransport, http.StatusBadGateway},
		{"execution", ExecutionError(nil, "boom", nil), ErrorExecution, http.StatusUnprocessableEntity},
		{"cryptographic", CryptographicError(stderrors.New("auth failed"), "decrypt failed", nil), ErrorCryptographic, http.StatusInternalServerError},
		{"not found", NotFoundError("job missing", nil), ErrorNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		if tc.err.TextCode != tc.textCode {
			t.Fatalf("%s: expected text code %q, got %q", tc.name, tc.textCode, tc.err.TextCode)
		}
		if tc.err.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.name, tc.status, tc.err.Code)
		}
		if !HasTextCode(tc.err, tc.textCode) {
			t.Fatalf("%s: expected HasTextCode to match", tc.name)
		}
	}
}

func TestMapError_ClassifiesPlainErrors(t *testing.T) {
	mapped := MapError(stderrors.New("integration not found"))
	if mapped.TextCode != ErrorNotFound {
		t.Fatalf("expected not found text code, got %q", mapped.TextCode)
	}
	mapped = MapError(stderrors.New("base url is required"))
	if mapped.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", mapped.Category)
	}
	mapped = MapError(ConfigurationError("master secret missing", nil))
	if mapped.TextCode != ErrorConfiguration {
		t.Fatalf("expected rich error to keep its text code, got %q", mapped.TextCode)
	}
	if MapError(nil) != nil {
		t.Fatalf("expected nil mapping for nil error")
	}
}

func TestErrorMessage_PrefersEnvelopeMessage(t *testing.T) {
	if got := ErrorMessage(ExecutionError(stderrors.New("source detail"), "boom", nil)); got != "boom" {
		t.Fatalf("expected envelope message, got %q", got)
	}
	if got := ErrorMessage(stderrors.New("plain")); got != "plain" {
		t.Fatalf("expected plain message, got %q", got)
	}
	if ErrorMessage(nil) != "" {
		t.Fatalf("expected empty message for nil")
	}
}
