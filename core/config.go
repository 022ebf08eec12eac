package core

import (
	"fmt"
	"strings"
	"time"
)

const MinMasterSecretLength = 32

type VaultConfig struct {
	MasterSecret string `koanf:"master_secret" mapstructure:"master_secret"`
	Salt         string `koanf:"salt" mapstructure:"salt"`
}

type HTTPConfig struct {
	RequestTimeout       time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
	RateLimitPerSecond   float64       `koanf:"rate_limit_per_second" mapstructure:"rate_limit_per_second"`
	RateLimitBurst       int           `koanf:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

type ScriptConfig struct {
	Timeout          time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxCallStackSize int           `koanf:"max_call_stack_size" mapstructure:"max_call_stack_size"`
	MaxFetchCalls    int           `koanf:"max_fetch_calls" mapstructure:"max_fetch_calls"`
}

type OAuthConfig struct {
	TokenCacheTTL time.Duration `koanf:"token_cache_ttl" mapstructure:"token_cache_ttl"`
	RenewBefore   time.Duration `koanf:"renew_before" mapstructure:"renew_before"`
	DisableCache  bool          `koanf:"disable_cache" mapstructure:"disable_cache"`
}

type SyncConfig struct {
	Concurrency int    `koanf:"concurrency" mapstructure:"concurrency"`
	BlobPrefix  string `koanf:"blob_prefix" mapstructure:"blob_prefix"`
}

type NotifyConfig struct {
	Subject string `koanf:"subject" mapstructure:"subject"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
	Debug  bool   `koanf:"debug" mapstructure:"debug"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Vault       VaultConfig    `koanf:"vault" mapstructure:"vault"`
	HTTP        HTTPConfig     `koanf:"http" mapstructure:"http"`
	Script      ScriptConfig   `koanf:"script" mapstructure:"script"`
	OAuth       OAuthConfig    `koanf:"oauth" mapstructure:"oauth"`
	Sync        SyncConfig     `koanf:"sync" mapstructure:"sync"`
	Notify      NotifyConfig   `koanf:"notify" mapstructure:"notify"`
	Database    DatabaseConfig `koanf:"database" mapstructure:"database"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "integrations",
		Vault: VaultConfig{
			Salt: "go-integrations.vault.v1",
		},
		HTTP: HTTPConfig{
			RequestTimeout:       30 * time.Second,
			MaxResponseBodyBytes: 10 << 20,
		},
		Script: ScriptConfig{
			Timeout:          30 * time.Second,
			MaxCallStackSize: 1024,
			MaxFetchCalls:    100,
		},
		OAuth: OAuthConfig{
			TokenCacheTTL: 55 * time.Minute,
			RenewBefore:   30 * time.Second,
		},
		Sync: SyncConfig{
			Concurrency: 1,
			BlobPrefix:  "integrations",
		},
		Notify: NotifyConfig{
			Subject: "integrations.sync.failed",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
		},
	}
}

// Validate checks structural settings only; the master secret is checked by
// security.NewVault.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.HTTP.RequestTimeout < 0 {
		return fmt.Errorf("core: http.request_timeout must be positive")
	}
	if c.HTTP.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: http.max_response_body_bytes must be positive")
	}
	if c.Script.Timeout < 0 {
		return fmt.Errorf("core: script.timeout must be positive")
	}
	if c.Script.MaxFetchCalls < 0 {
		return fmt.Errorf("core: script.max_fetch_calls must be positive")
	}
	if c.Sync.Concurrency < 0 {
		return fmt.Errorf("core: sync.concurrency must be positive")
	}
	switch strings.TrimSpace(c.Database.Driver) {
	case "", "sqlite3", "postgres":
	default:
		return fmt.Errorf("core: database.driver %q is not supported", c.Database.Driver)
	}
	return nil
}
