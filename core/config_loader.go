package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StaticRawConfigLoader serves a fixed map, typically decoded from a config
// file by the caller.
type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, ConfigurationError("config could not be loaded: "+err.Error(), nil)
	}
	return cfg, nil
}

// GoOptionsResolver layers defaults < loaded config < runtime overrides.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// ResolveConfig loads config through provider and layers runtime overrides on
// top of it.
func ResolveConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	vault := map[string]any{}
	if includeZero || cfg.Vault.MasterSecret != "" {
		vault["master_secret"] = cfg.Vault.MasterSecret
	}
	if includeZero || strings.TrimSpace(cfg.Vault.Salt) != "" {
		vault["salt"] = cfg.Vault.Salt
	}
	setSection(layer, "vault", vault)

	httpSection := map[string]any{}
	if includeZero || cfg.HTTP.RequestTimeout > 0 {
		httpSection["request_timeout"] = cfg.HTTP.RequestTimeout
	}
	if includeZero || cfg.HTTP.MaxResponseBodyBytes > 0 {
		httpSection["max_response_body_bytes"] = cfg.HTTP.MaxResponseBodyBytes
	}
	if includeZero || cfg.HTTP.RateLimitPerSecond > 0 {
		httpSection["rate_limit_per_second"] = cfg.HTTP.RateLimitPerSecond
	}
	if includeZero || cfg.HTTP.RateLimitBurst > 0 {
		httpSection["rate_limit_burst"] = cfg.HTTP.RateLimitBurst
	}
	setSection(layer, "http", httpSection)

	script := map[string]any{}
	if includeZero || cfg.Script.Timeout > 0 {
		script["timeout"] = cfg.Script.Timeout
	}
	if includeZero || cfg.Script.MaxCallStackSize > 0 {
		script["max_call_stack_size"] = cfg.Script.MaxCallStackSize
	}
	if includeZero || cfg.Script.MaxFetchCalls > 0 {
		script["max_fetch_calls"] = cfg.Script.MaxFetchCalls
	}
	setSection(layer, "script", script)

	oauth := map[string]any{}
	if includeZero || cfg.OAuth.TokenCacheTTL > 0 {
		oauth["token_cache_ttl"] = cfg.OAuth.TokenCacheTTL
	}
	if includeZero || cfg.OAuth.RenewBefore > 0 {
		oauth["renew_before"] = cfg.OAuth.RenewBefore
	}
	if includeZero || cfg.OAuth.DisableCache {
		oauth["disable_cache"] = cfg.OAuth.DisableCache
	}
	setSection(layer, "oauth", oauth)

	syncSection := map[string]any{}
	if includeZero || cfg.Sync.Concurrency > 0 {
		syncSection["concurrency"] = cfg.Sync.Concurrency
	}
	if includeZero || strings.TrimSpace(cfg.Sync.BlobPrefix) != "" {
		syncSection["blob_prefix"] = cfg.Sync.BlobPrefix
	}
	setSection(layer, "sync", syncSection)

	if includeZero || strings.TrimSpace(cfg.Notify.Subject) != "" {
		layer["notify"] = map[string]any{"subject": cfg.Notify.Subject}
	}

	database := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Database.Driver) != "" {
		database["driver"] = cfg.Database.Driver
	}
	if includeZero || strings.TrimSpace(cfg.Database.DSN) != "" {
		database["dsn"] = cfg.Database.DSN
	}
	if includeZero || cfg.Database.Debug {
		database["debug"] = cfg.Database.Debug
	}
	setSection(layer, "database", database)
	return layer
}

func setSection(layer map[string]any, name string, section map[string]any) {
	if len(section) == 0 {
		return
	}
	layer[name] = section
}
