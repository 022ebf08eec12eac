package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/crypto/argon2"

	"github.com/goliatone/go-integrations/core"
)

const (
	ivSize  = 16
	tagSize = 16

	argon2Time        = 3
	argon2Memory      = 64 * 1024
	argon2Parallelism = 4
	argon2KeyLength   = 32

	DefaultSalt = "go-integrations.vault.v1"
)

type Option func(*Vault)

func WithSalt(salt string) Option {
	return func(v *Vault) {
		if trimmed := strings.TrimSpace(salt); trimmed != "" {
			v.salt = trimmed
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(v *Vault) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func WithRandom(reader io.Reader) Option {
	return func(v *Vault) {
		if reader != nil {
			v.random = reader
		}
	}
}

// Vault encrypts individual config values with AES-256-GCM. It keeps only the
// derived key; plaintext never outlives the call that produced it.
type Vault struct {
	aead   cipher.AEAD
	salt   string
	logger core.Logger
	random io.Reader
}

// NewVault derives the vault key from masterSecret. A secret shorter than
// core.MinMasterSecretLength characters is a configuration error.
func NewVault(masterSecret string, opts ...Option) (*Vault, error) {
	if strings.TrimSpace(masterSecret) == "" {
		return nil, core.ConfigurationError("security: master secret is required", nil)
	}
	if utf8.RuneCountInString(masterSecret) < core.MinMasterSecretLength {
		return nil, core.ConfigurationError(
			fmt.Sprintf("security: master secret must be at least %d characters", core.MinMasterSecretLength),
			map[string]any{"length": utf8.RuneCountInString(masterSecret)},
		)
	}
	vault := &Vault{
		salt:   DefaultSalt,
		logger: glog.Nop(),
		random: rand.Reader,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(vault)
	}

	key := argon2.IDKey([]byte(masterSecret), []byte(vault.salt), argon2Time, argon2Memory, argon2Parallelism, argon2KeyLength)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, core.CryptographicError(err, "security: create cipher", nil)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, core.CryptographicError(err, "security: create gcm", nil)
	}
	vault.aead = aead
	return vault, nil
}

// NewVaultFromConfig builds a vault from the vault section of cfg.
func NewVaultFromConfig(cfg core.VaultConfig, opts ...Option) (*Vault, error) {
	return NewVault(cfg.MasterSecret, append([]Option{WithSalt(cfg.Salt)}, opts...)...)
}

// Encrypt returns "<ivHex>:<authTagHex>:<cipherHex>".
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if v == nil || v.aead == nil {
		return "", core.ConfigurationError("security: vault is not initialized", nil)
	}
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(v.random, iv); err != nil {
		return "", core.CryptographicError(err, "security: iv generation failed", nil)
	}
	sealed := v.aead.Seal(nil, iv, []byte(plaintext), nil)
	cipherText := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(cipherText), nil
}

// Decrypt returns the plaintext of an encrypted value. Values that are not in
// the encrypted form are returned as-is (legacy plaintext); values that are
// in the form but fail to open are returned as-is with a warning.
func (v *Vault) Decrypt(value string) string {
	iv, tag, cipherText, ok := parseEncrypted(value)
	if !ok {
		return value
	}
	if v == nil || v.aead == nil {
		return value
	}
	sealed := make([]byte, 0, len(cipherText)+len(tag))
	sealed = append(sealed, cipherText...)
	sealed = append(sealed, tag...)
	plain, err := v.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		v.warn(core.CryptographicError(err, "security: decrypt failed, passing value through", nil))
		return value
	}
	return string(plain)
}

// IsEncrypted reports whether value has the encrypted envelope shape.
func IsEncrypted(value string) bool {
	_, _, _, ok := parseEncrypted(value)
	return ok
}

func parseEncrypted(value string) (iv, tag, cipherText []byte, ok bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return nil, nil, nil, false
	}
	if len(parts[0]) != ivSize*2 || len(parts[1]) != tagSize*2 {
		return nil, nil, nil, false
	}
	var err error
	if iv, err = hex.DecodeString(parts[0]); err != nil {
		return nil, nil, nil, false
	}
	if tag, err = hex.DecodeString(parts[1]); err != nil {
		return nil, nil, nil, false
	}
	if cipherText, err = hex.DecodeString(parts[2]); err != nil {
		return nil, nil, nil, false
	}
	return iv, tag, cipherText, true
}

func (v *Vault) warn(err *goerrors.Error) {
	if v == nil || v.logger == nil {
		return
	}
	v.logger.Warn(err.Message, "error_code", err.TextCode, "error", err.Error())
}
