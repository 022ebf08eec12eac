package core

import "strings"

const RedactedValue = "[REDACTED]"

var sensitiveKeyTokens = []string{
	"key",
	"secret",
	"password",
	"passwd",
	"token",
	"credential",
	"private",
	"passphrase",
	"authorization",
	"signature",
}

// IsSensitiveKey reports whether a config key names secret material. Keys
// are compared case-insensitively with '_', '-' and '.' removed, so
// "clientSecret", "client_secret" and "Client-Secret" all match.
func IsSensitiveKey(key string) bool {
	normalized := normalizeSensitiveKey(key)
	if normalized == "" || isPublicKey(normalized) {
		return false
	}
	for _, token := range sensitiveKeyTokens {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}

func normalizeSensitiveKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "", ".", "", " ", "").Replace(key)
}

// isPublicKey lists names that match a token but never hold secrets.
func isPublicKey(normalized string) bool {
	switch normalized {
	case "keyname",
		"keylocation",
		"tokenurl",
		"tokentype",
		"tokenendpoint",
		"idempotencykey",
		"projectkey",
		"publickeyid":
		return true
	default:
		return false
	}
}

// RedactSensitiveMap returns a copy of metadata safe for logs and audit rows.
func RedactSensitiveMap(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(metadata)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if IsSensitiveKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

// RedactHeaders masks header values that carry credentials.
func RedactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if IsSensitiveKey(name) || strings.EqualFold(name, "cookie") {
			out[name] = RedactedValue
			continue
		}
		out[name] = value
	}
	return out
}
