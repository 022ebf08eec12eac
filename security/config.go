package security

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-integrations/core"
)

const MaskPrefix = "********"

// EncryptConfig returns a copy of config with every sensitive leaf encrypted.
// Leaves below a sensitive key inherit sensitivity. Values already in the
// encrypted form and empty strings are left untouched.
func (v *Vault) EncryptConfig(config map[string]any) (map[string]any, error) {
	if config == nil {
		return nil, nil
	}
	out, err := v.encryptMap(config, false)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (v *Vault) encryptMap(source map[string]any, inherited bool) (map[string]any, error) {
	target := make(map[string]any, len(source))
	for key, value := range source {
		encrypted, err := v.encryptValue(value, inherited || core.IsSensitiveKey(key))
		if err != nil {
			return nil, fmt.Errorf("security: encrypt %q: %w", key, err)
		}
		target[key] = encrypted
	}
	return target, nil
}

func (v *Vault) encryptValue(value any, sensitive bool) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		return v.encryptMap(typed, sensitive)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			encrypted, err := v.encryptValue(typed[i], sensitive)
			if err != nil {
				return nil, err
			}
			out[i] = encrypted
		}
		return out, nil
	case nil:
		return nil, nil
	case string:
		if !sensitive || typed == "" || IsEncrypted(typed) {
			return typed, nil
		}
		return v.Encrypt(typed)
	default:
		if !sensitive {
			return value, nil
		}
		return v.Encrypt(fmt.Sprint(typed))
	}
}

// DecryptConfig returns a copy of config with every encrypted sensitive leaf
// opened. It never fails; undecryptable values pass through.
func (v *Vault) DecryptConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}
	return v.decryptMap(config, false)
}

func (v *Vault) decryptMap(source map[string]any, inherited bool) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		target[key] = v.decryptValue(value, inherited || core.IsSensitiveKey(key))
	}
	return target
}

func (v *Vault) decryptValue(value any, sensitive bool) any {
	switch typed := value.(type) {
	case map[string]any:
		return v.decryptMap(typed, sensitive)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = v.decryptValue(typed[i], sensitive)
		}
		return out
	case string:
		if !sensitive {
			return typed
		}
		return v.Decrypt(typed)
	default:
		return value
	}
}

// MaskConfig returns a display-safe copy of a decrypted config.
func (v *Vault) MaskConfig(config map[string]any) map[string]any {
	return MaskConfig(config)
}

// MaskConfig replaces every sensitive leaf with Mask of its value.
func MaskConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}
	return maskMap(config, false)
}

func maskMap(source map[string]any, inherited bool) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		target[key] = maskValue(value, inherited || core.IsSensitiveKey(key))
	}
	return target
}

func maskValue(value any, sensitive bool) any {
	switch typed := value.(type) {
	case map[string]any:
		return maskMap(typed, sensitive)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = maskValue(typed[i], sensitive)
		}
		return out
	case nil:
		return nil
	case string:
		if !sensitive {
			return typed
		}
		return Mask(typed)
	default:
		if !sensitive {
			return value
		}
		return Mask(fmt.Sprint(typed))
	}
}

// Mask keeps the last four characters of value behind a fixed redaction.
// Already masked values and ciphertext never leak characters.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if IsMasked(value) {
		return value
	}
	if IsEncrypted(value) {
		return MaskPrefix
	}
	if utf8.RuneCountInString(value) <= 4 {
		return MaskPrefix
	}
	runes := []rune(value)
	return MaskPrefix + string(runes[len(runes)-4:])
}

// IsMasked reports whether value has the exact shape Mask produces:
// MaskPrefix followed by at most four characters.
func IsMasked(value string) bool {
	if !strings.HasPrefix(value, MaskPrefix) {
		return false
	}
	return utf8.RuneCountInString(value[len(MaskPrefix):]) <= 4
}

var _ core.ConfigCipher = (*Vault)(nil)
