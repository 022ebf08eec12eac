package gocommand

import (
	"context"
	"fmt"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	"github.com/goliatone/go-integrations/command"
	"github.com/goliatone/go-integrations/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(gocmd.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *gocmd.Registry
}

func NewRegistryAdapter(registry *gocmd.Registry) *RegistryAdapter {
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *gocmd.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver gocmd.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors every registered command into queueRegistry so it
// can also run from a go-job worker.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd gocmd.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry gocmd.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

// DispatchWithResult dispatches msg and returns the value its handler stored.
func DispatchWithResult[T any, R any](ctx context.Context, msg T) (R, error) {
	var zero R
	if ctx == nil {
		ctx = context.Background()
	}
	result := gocmd.NewResult[R]()
	if err := commanddispatcher.Dispatch(gocmd.ContextWithResult(ctx, result), msg); err != nil {
		return zero, err
	}
	value, ok := result.Load()
	if !ok {
		return zero, fmt.Errorf("gocommand: handler for %T stored no result", msg)
	}
	return value, nil
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd gocmd.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry gocmd.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// IntegrationReaders are the stores behind the read-side queries.
type IntegrationReaders struct {
	Configs  query.ConfigReader
	Jobs     query.SyncJobReader
	History  query.SyncHistoryReader
	Evidence query.EvidenceReader
}

// RegisterIntegrationQueries registers and subscribes every integrations
// query. On failure the subscriptions made so far are released.
func RegisterIntegrationQueries(
	adapter *RegistryAdapter,
	readers IntegrationReaders,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if readers.Configs == nil || readers.Jobs == nil || readers.History == nil || readers.Evidence == nil {
		return nil, fmt.Errorf("gocommand: every integration reader is required")
	}
	var subs []commanddispatcher.Subscription
	register := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			return err
		}
		subs = append(subs, sub)
		return nil
	}
	steps := []func() error{
		func() error {
			return register(RegisterAndSubscribeQuery(adapter, query.NewGetIntegrationConfigQuery(readers.Configs), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribeQuery(adapter, query.NewGetCustomExecutionQuery(readers.Configs), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribeQuery(adapter, query.NewGetSyncJobQuery(readers.Jobs), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribeQuery(adapter, query.NewListSyncJobsQuery(readers.History), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribeQuery(adapter, query.NewListEvidenceQuery(readers.Evidence), runnerOpts...))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			Unsubscribe(subs)
			return nil, err
		}
	}
	return subs, nil
}

// RegisterIntegrationCommands registers and subscribes every integrations
// command. On failure the subscriptions made so far are released.
func RegisterIntegrationCommands(
	adapter *RegistryAdapter,
	syncSvc command.SyncService,
	configureSvc command.ConfigureService,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if syncSvc == nil || configureSvc == nil {
		return nil, fmt.Errorf("gocommand: sync and configure services are required")
	}
	var subs []commanddispatcher.Subscription
	register := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			return err
		}
		subs = append(subs, sub)
		return nil
	}
	steps := []func() error{
		func() error {
			return register(RegisterAndSubscribe(adapter, command.NewCreateIntegrationCommand(configureSvc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe(adapter, command.NewConfigureIntegrationCommand(configureSvc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe(adapter, command.NewConfigureCustomExecutionCommand(configureSvc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe(adapter, command.NewSyncIntegrationCommand(syncSvc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe(adapter, command.NewTestEndpointCommand(syncSvc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe(adapter, command.NewTestSyncCommand(syncSvc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe(adapter, command.NewValidateCodeCommand(syncSvc), runnerOpts...))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			Unsubscribe(subs)
			return nil, err
		}
	}
	return subs, nil
}

func Unsubscribe(subs []commanddispatcher.Subscription) {
	for _, sub := range subs {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}
