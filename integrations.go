package integrations

import (
	"context"
	"net/http"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-integrations/adapters/gologger"
	"github.com/goliatone/go-integrations/auth"
	"github.com/goliatone/go-integrations/configure"
	awsconnector "github.com/goliatone/go-integrations/connectors/aws"
	githubconnector "github.com/goliatone/go-integrations/connectors/github"
	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/engine/declarative"
	"github.com/goliatone/go-integrations/engine/script"
	"github.com/goliatone/go-integrations/security"
	"github.com/goliatone/go-integrations/store/memory"
	integrationsync "github.com/goliatone/go-integrations/sync"
	"github.com/goliatone/go-integrations/transport"
)

type Config = core.Config

type SyncRequest = integrationsync.SyncRequest

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// LoadConfig resolves defaults < raw values < runtime overrides.
func LoadConfig(ctx context.Context, raw map[string]any, runtime Config) (Config, error) {
	provider := core.NewCfgxConfigProvider(core.StaticRawConfigLoader{Values: raw})
	return core.ResolveConfig(ctx, provider, core.GoOptionsResolver{}, runtime)
}

// Dependencies are the collaborators New cannot derive from Config. Stores
// are required; the rest fall back to no-op or in-process defaults.
type Dependencies struct {
	Integrations  core.IntegrationStore
	CustomConfigs core.CustomConfigStore
	Jobs          core.SyncJobStore
	Evidence      core.EvidenceStore
	Blobs         core.BlobStore

	Audit          core.AuditLogger
	Notifier       core.FailureNotifier
	Metrics        core.MetricsRecorder
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	HTTPClient     *http.Client
	TokenCache     repositorycache.CacheService
	Extensions     *ExtensionHooks
}

// MemoryDependencies backs every store with the in-process implementations.
func MemoryDependencies() Dependencies {
	return Dependencies{
		Integrations:  memory.NewIntegrationStore(),
		CustomConfigs: memory.NewCustomConfigStore(),
		Jobs:          memory.NewSyncJobStore(),
		Evidence:      memory.NewEvidenceStore(),
		Blobs:         memory.NewBlobStore(),
		Audit:         memory.NewAuditLog(),
	}
}

// Runtime is the assembled subsystem.
type Runtime struct {
	Config       Config
	Vault        *security.Vault
	Headers      *auth.HeaderBuilder
	Transport    *transport.RESTAdapter
	Declarative  *declarative.Runner
	Script       *script.Runner
	Connectors   *core.ConnectorCatalog
	Summarizers  *core.SummarizerRegistry
	Orchestrator *integrationsync.Orchestrator
	Configure    *configure.Service
	Logger       core.Logger
	// Loggers exposes the resolved logger to go-job workers.
	Loggers gologger.Bridge
}

func New(cfg Config, deps Dependencies) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Integrations == nil || deps.CustomConfigs == nil || deps.Jobs == nil || deps.Evidence == nil || deps.Blobs == nil {
		return nil, core.ConfigurationError("integrations: every store dependency is required", nil)
	}
	loggers := gologger.NewBridge(cfg.ServiceName, deps.LoggerProvider, deps.Logger)
	logger := loggers.Logger
	metrics := deps.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	vault, err := security.NewVaultFromConfig(cfg.Vault, security.WithLogger(loggers.For("vault", "")))
	if err != nil {
		return nil, err
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTP.RequestTimeout}
	}
	headerOpts := []auth.Option{
		auth.WithHTTPClient(httpClient),
		auth.WithRenewBefore(cfg.OAuth.RenewBefore),
		auth.WithLogger(loggers.For("auth", "")),
	}
	if !cfg.OAuth.DisableCache {
		cache := deps.TokenCache
		if cache == nil {
			cacheConfig := repositorycache.DefaultConfig()
			cacheConfig.TTL = cfg.OAuth.TokenCacheTTL
			cache, err = repositorycache.NewCacheService(cacheConfig)
			if err != nil {
				return nil, core.ConfigurationError("integrations: token cache: "+err.Error(), nil)
			}
		}
		headerOpts = append(headerOpts, auth.WithTokenCache(cache))
	}
	headers := auth.NewHeaderBuilder(headerOpts...)

	rest := transport.NewRESTAdapterFromConfig(cfg.HTTP, httpClient)
	declarativeRunner := declarative.NewRunner(rest, headers,
		declarative.WithLogger(loggers.For("declarative", "")),
		declarative.WithMetrics(metrics),
		declarative.WithRequestTimeout(cfg.HTTP.RequestTimeout),
		declarative.WithConcurrency(cfg.Sync.Concurrency),
	)
	scriptRunner := script.NewRunner(rest, headers,
		script.WithLogger(loggers.For("script", "")),
		script.WithMetrics(metrics),
		script.WithTimeout(cfg.Script.Timeout),
		script.WithRequestTimeout(cfg.HTTP.RequestTimeout),
		script.WithMaxCallStackSize(cfg.Script.MaxCallStackSize),
		script.WithMaxFetchCalls(cfg.Script.MaxFetchCalls),
	)

	connectors := core.NewConnectorCatalog()
	summarizers := core.DefaultSummarizers()
	if err := BuiltinConnectors().Apply(connectors, summarizers); err != nil {
		return nil, err
	}
	if err := deps.Extensions.Apply(connectors, summarizers); err != nil {
		return nil, err
	}

	orchestrator := integrationsync.NewOrchestrator(
		deps.Integrations,
		deps.CustomConfigs,
		deps.Jobs,
		deps.Evidence,
		deps.Blobs,
		integrationsync.WithDeclarativeEngine(declarativeRunner),
		integrationsync.WithScriptEngine(scriptRunner),
		integrationsync.WithConnectors(connectors),
		integrationsync.WithCipher(vault),
		integrationsync.WithAuditLogger(deps.Audit),
		integrationsync.WithFailureNotifier(deps.Notifier),
		integrationsync.WithSummarizers(summarizers),
		integrationsync.WithLogger(loggers.For("sync", "")),
		integrationsync.WithMetrics(metrics),
		integrationsync.WithBlobPrefix(cfg.Sync.BlobPrefix),
	)

	configureSvc, err := configure.NewService(deps.Integrations, deps.CustomConfigs, vault,
		configure.WithLogger(loggers.For("configure", "")),
		configure.WithMetrics(metrics),
		configure.WithScriptValidator(scriptRunner.Validate),
	)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config:       cfg,
		Vault:        vault,
		Headers:      headers,
		Transport:    rest,
		Declarative:  declarativeRunner,
		Script:       scriptRunner,
		Connectors:   connectors,
		Summarizers:  summarizers,
		Orchestrator: orchestrator,
		Configure:    configureSvc,
		Logger:       logger,
		Loggers:      loggers,
	}, nil
}

// BuiltinConnectors is the pack holding the AWS and GitHub connectors.
func BuiltinConnectors() *ExtensionHooks {
	hooks := NewExtensionHooks()
	_ = hooks.RegisterConnectorPack(ConnectorPack{
		Name: "builtin",
		Connectors: []core.Connector{
			awsconnector.New(),
			githubconnector.New(),
		},
	})
	return hooks
}

func (r *Runtime) ExecuteSync(ctx context.Context, req SyncRequest) (core.SyncOutcome, error) {
	return r.Orchestrator.ExecuteSync(ctx, req)
}

func (r *Runtime) TestEndpoint(ctx context.Context, integrationID string, index int) (core.EndpointTestResult, error) {
	return r.Orchestrator.TestEndpoint(ctx, integrationID, index)
}

func (r *Runtime) TestSync(ctx context.Context, integrationID string) (core.SyncOutcome, error) {
	return r.Orchestrator.TestSync(ctx, integrationID)
}

func (r *Runtime) ValidateCode(source string) core.CodeValidationResult {
	return r.Orchestrator.ValidateCode(source)
}
