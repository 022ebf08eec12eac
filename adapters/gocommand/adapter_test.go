package gocommand

import (
	"context"
	"errors"
	"testing"

	gocmd "github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	"github.com/goliatone/go-integrations/command"
	"github.com/goliatone/go-integrations/configure"
	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/query"
	"github.com/goliatone/go-integrations/store/memory"
	integrationsync "github.com/goliatone/go-integrations/sync"
)

type okMessage struct{}

func (okMessage) Type() string { return "integrations.test.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "integrations.test.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type queueMessage struct{}

func (queueMessage) Type() string { return "integrations.test.queue" }

type fakeSync struct {
	requests []integrationsync.SyncRequest
}

func (f *fakeSync) ExecuteSync(_ context.Context, req integrationsync.SyncRequest) (core.SyncOutcome, error) {
	f.requests = append(f.requests, req)
	return core.SyncOutcome{Success: true, JobID: "job_1", EvidenceCreated: 2}, nil
}

func (f *fakeSync) TestEndpoint(context.Context, string, int) (core.EndpointTestResult, error) {
	return core.EndpointTestResult{Success: true, StatusCode: 200}, nil
}

func (f *fakeSync) TestSync(context.Context, string) (core.SyncOutcome, error) {
	return core.SyncOutcome{Success: true}, nil
}

func (f *fakeSync) ValidateCode(string) core.CodeValidationResult {
	return core.CodeValidationResult{Valid: true}
}

type fakeConfigure struct{}

func (fakeConfigure) CreateIntegration(_ context.Context, req configure.CreateIntegrationRequest) (core.Integration, error) {
	return core.Integration{ID: "int_new", Name: req.Name}, nil
}

func (fakeConfigure) ConfigureIntegration(context.Context, configure.ConfigureIntegrationRequest) (core.Integration, error) {
	return core.Integration{ID: "int_1"}, nil
}

func (fakeConfigure) ConfigureCustomExecution(context.Context, configure.CustomExecutionRequest) (core.CustomExecutionConfig, error) {
	return core.CustomExecutionConfig{IntegrationID: "int_1"}, nil
}

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
	if err := ValidateMessageContract(command.SyncIntegrationMessage{}); err == nil {
		t.Fatalf("expected missing integration id to fail")
	}
}

func TestRegisterIntegrationCommands_DispatchesSync(t *testing.T) {
	adapter := NewRegistryAdapter(nil)
	syncSvc := &fakeSync{}

	subs, err := RegisterIntegrationCommands(adapter, syncSvc, fakeConfigure{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer Unsubscribe(subs)
	if len(subs) != 7 {
		t.Fatalf("expected seven subscriptions, got %d", len(subs))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	outcome, err := DispatchWithResult[command.SyncIntegrationMessage, core.SyncOutcome](
		context.Background(),
		command.SyncIntegrationMessage{IntegrationID: "int_1", ActorID: "user_1"},
	)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !outcome.Success || outcome.EvidenceCreated != 2 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(syncSvc.requests) != 1 || syncSvc.requests[0].Trigger != core.SyncTriggerManual {
		t.Fatalf("expected one manual sync request, got %+v", syncSvc.requests)
	}

	created, err := DispatchWithResult[command.CreateIntegrationMessage, core.Integration](
		context.Background(),
		command.CreateIntegrationMessage{Request: configure.CreateIntegrationRequest{
			OrganizationID: "org_1",
			ConnectorType:  "custom",
			Name:           "Okta export",
		}},
	)
	if err != nil {
		t.Fatalf("dispatch create: %v", err)
	}
	if created.ID != "int_new" || created.Name != "Okta export" {
		t.Fatalf("unexpected integration %+v", created)
	}
}

func TestRegisterIntegrationCommands_RequiresServices(t *testing.T) {
	if _, err := RegisterIntegrationCommands(NewRegistryAdapter(nil), nil, fakeConfigure{}); err == nil {
		t.Fatalf("expected missing sync service to fail")
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(gocmd.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	cmd := gocmd.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if !adapter.HasResolver("queue") {
		t.Fatalf("expected queue resolver to be registered")
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get("integrations.test.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
}

type maskedConfigs struct{}

func (maskedConfigs) MaskedIntegrationConfig(context.Context, string) (map[string]any, error) {
	return map[string]any{"token": "********abcd"}, nil
}

func (maskedConfigs) MaskedCustomExecution(context.Context, string) (core.CustomExecutionConfig, error) {
	return core.CustomExecutionConfig{}, nil
}

func TestRegisterIntegrationQueries_QueriesHistory(t *testing.T) {
	ctx := context.Background()
	jobs := memory.NewSyncJobStore()
	if _, err := jobs.Create(ctx, core.SyncJob{ID: "job_1", IntegrationID: "int_1"}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	adapter := NewRegistryAdapter(nil)
	subs, err := RegisterIntegrationQueries(adapter, IntegrationReaders{
		Configs:  maskedConfigs{},
		Jobs:     jobs,
		History:  jobs,
		Evidence: memory.NewEvidenceStore(),
	})
	if err != nil {
		t.Fatalf("register queries: %v", err)
	}
	defer Unsubscribe(subs)

	history, err := Query[query.ListSyncJobsMessage, []core.SyncJob](ctx, query.ListSyncJobsMessage{IntegrationID: "int_1"})
	if err != nil {
		t.Fatalf("query history: %v", err)
	}
	if len(history) != 1 || history[0].ID != "job_1" {
		t.Fatalf("unexpected history %+v", history)
	}

	config, err := Query[query.GetIntegrationConfigMessage, map[string]any](ctx, query.GetIntegrationConfigMessage{IntegrationID: "int_1"})
	if err != nil {
		t.Fatalf("query config: %v", err)
	}
	if config["token"] != "********abcd" {
		t.Fatalf("expected masked config, got %+v", config)
	}
}

func TestRegisterIntegrationQueries_RequiresReaders(t *testing.T) {
	if _, err := RegisterIntegrationQueries(NewRegistryAdapter(nil), IntegrationReaders{}); err == nil {
		t.Fatalf("expected missing readers to fail")
	}
}
