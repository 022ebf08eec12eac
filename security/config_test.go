package security

import (
	"testing"
)

func TestEncryptConfig_OnlySensitiveLeaves(t *testing.T) {
	vault := newTestVault(t)
	config := map[string]any{
		"keyName":  "X-API-Key",
		"keyValue": "abc123456",
		"location": "header",
		"oauth": map[string]any{
			"clientId":     "client",
			"clientSecret": "shh-secret",
			"tokenUrl":     "https://auth.example.com/token",
		},
		"credentials": map[string]any{
			"username": "svc",
			"pass":     "hunter22",
		},
		"tokens": []any{"one-token", "two-token"},
		"port":   8443,
		"apiKey": 12345,
	}

	encrypted, err := vault.EncryptConfig(config)
	if err != nil {
		t.Fatalf("encrypt config: %v", err)
	}
	if encrypted["keyName"] != "X-API-Key" || encrypted["location"] != "header" || encrypted["port"] != 8443 {
		t.Fatalf("expected public leaves unchanged: %#v", encrypted)
	}
	if !IsEncrypted(encrypted["keyValue"].(string)) {
		t.Fatalf("expected keyValue to be encrypted")
	}
	oauth := encrypted["oauth"].(map[string]any)
	if !IsEncrypted(oauth["clientSecret"].(string)) || oauth["clientId"] != "client" || oauth["tokenUrl"] != "https://auth.example.com/token" {
		t.Fatalf("unexpected nested oauth encryption: %#v", oauth)
	}
	creds := encrypted["credentials"].(map[string]any)
	if !IsEncrypted(creds["username"].(string)) || !IsEncrypted(creds["pass"].(string)) {
		t.Fatalf("expected leaves below a sensitive key to be encrypted: %#v", creds)
	}
	for _, token := range encrypted["tokens"].([]any) {
		if !IsEncrypted(token.(string)) {
			t.Fatalf("expected slice entries below sensitive key to be encrypted")
		}
	}
	if !IsEncrypted(encrypted["apiKey"].(string)) {
		t.Fatalf("expected numeric secret to be stringified and encrypted")
	}
	if config["keyValue"] != "abc123456" {
		t.Fatalf("expected input map to be left untouched")
	}

	decrypted := vault.DecryptConfig(encrypted)
	if decrypted["keyValue"] != "abc123456" {
		t.Fatalf("unexpected decrypted keyValue: %v", decrypted["keyValue"])
	}
	if decrypted["oauth"].(map[string]any)["clientSecret"] != "shh-secret" {
		t.Fatalf("unexpected decrypted client secret")
	}
	if decrypted["credentials"].(map[string]any)["pass"] != "hunter22" {
		t.Fatalf("unexpected decrypted nested credential")
	}
	if decrypted["apiKey"] != "12345" {
		t.Fatalf("expected stringified numeric secret, got %#v", decrypted["apiKey"])
	}
}

func TestEncryptConfig_DoesNotDoubleEncrypt(t *testing.T) {
	vault := newTestVault(t)
	once, err := vault.EncryptConfig(map[string]any{"token": "abc"})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	twice, err := vault.EncryptConfig(once)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if once["token"] != twice["token"] {
		t.Fatalf("expected already-encrypted value to be kept")
	}
	if got := vault.DecryptConfig(twice)["token"]; got != "abc" {
		t.Fatalf("expected single decrypt to recover plaintext, got %v", got)
	}
}

func TestDecryptConfig_MixedLegacyValues(t *testing.T) {
	vault := newTestVault(t)
	decrypted := vault.DecryptConfig(map[string]any{
		"password": "legacy-plaintext",
		"region":   "us-east-1",
	})
	if decrypted["password"] != "legacy-plaintext" {
		t.Fatalf("expected legacy secret to pass through, got %v", decrypted["password"])
	}
}

func TestMask_Idempotent(t *testing.T) {
	for _, value := range []string{"abcdefgh1234", "abc", "", "12345", "ünïcødé-key"} {
		once := Mask(value)
		if twice := Mask(once); twice != once {
			t.Fatalf("mask not idempotent for %q: %q then %q", value, once, twice)
		}
	}
	if got := Mask("sk_live_abcd1234"); got != MaskPrefix+"1234" {
		t.Fatalf("expected last four characters kept, got %q", got)
	}
	if got := Mask("abc"); got != MaskPrefix {
		t.Fatalf("expected short values fully masked, got %q", got)
	}
}

func TestMask_SecretWithMaskLikePrefixIsStillMasked(t *testing.T) {
	secret := MaskPrefix + "realsecretvalue"
	if got := Mask(secret); got != MaskPrefix+"alue" {
		t.Fatalf("expected prefixed secret masked, got %q", got)
	}
	if !IsMasked(MaskPrefix) || !IsMasked(MaskPrefix+"1234") {
		t.Fatalf("expected mask output to be recognised")
	}
	if IsMasked(secret) || IsMasked("1234") {
		t.Fatalf("expected %q not to count as masked", secret)
	}
}

func TestMaskConfig_DoesNotLeakCiphertext(t *testing.T) {
	vault := newTestVault(t)
	encrypted, err := vault.Encrypt("top-secret-value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	masked := vault.MaskConfig(map[string]any{
		"clientSecret": encrypted,
		"password":     "hunter2-long",
		"clientId":     "visible",
	})
	if masked["clientSecret"] != MaskPrefix {
		t.Fatalf("expected ciphertext to be fully masked, got %v", masked["clientSecret"])
	}
	if masked["password"] != MaskPrefix+"long" {
		t.Fatalf("unexpected masked password: %v", masked["password"])
	}
	if masked["clientId"] != "visible" {
		t.Fatalf("expected public values unchanged")
	}
}
