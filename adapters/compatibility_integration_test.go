package adapters_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	"github.com/goliatone/go-integrations/adapters/gocommand"
	"github.com/goliatone/go-integrations/adapters/gojob"
	"github.com/goliatone/go-integrations/adapters/gologger"
	"github.com/goliatone/go-integrations/command"
	"github.com/goliatone/go-integrations/configure"
	"github.com/goliatone/go-integrations/core"
	integrationsync "github.com/goliatone/go-integrations/sync"
)

// A scheduled sync goes out through the gojob enqueuer, comes back as a
// delivery and runs against the same service the command bus dispatches to.
func TestRuntimeCompatibility_CommandAndQueueShareSyncService(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	provider := gologger.NewSlogProvider(gologger.NewTextLogger(&logs, "debug", "text"))
	bridge := gologger.NewBridge("integrations", provider, nil)
	if bridge.JobProvider == nil {
		t.Fatalf("expected go-job provider bridge")
	}

	svc := &compatSyncService{}
	adapter := gocommand.NewRegistryAdapter(nil)
	queueRegistry := jobqueuecommand.NewRegistry()
	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	subs, err := gocommand.RegisterIntegrationCommands(adapter, svc, compatConfigureService{})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	defer gocommand.Unsubscribe(subs)
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if _, ok := queueRegistry.Get(command.TypeSyncIntegration); !ok {
		t.Fatalf("expected sync command mirrored into queue registry")
	}

	if err := gocommand.Dispatch(ctx, command.SyncIntegrationMessage{IntegrationID: "int_1"}); err != nil {
		t.Fatalf("dispatch manual sync: %v", err)
	}

	enqueuer := &compatEnqueuer{}
	if err := gojob.NewSyncEnqueuer(enqueuer).EnqueueSync(ctx, integrationsync.SyncRequest{IntegrationID: "int_1"}); err != nil {
		t.Fatalf("enqueue scheduled sync: %v", err)
	}
	delivery := &compatDelivery{msg: enqueuer.last}
	handler := gojob.NewSyncHandler(svc, gojob.WithLogger(bridge.For("gojob", "")))
	if err := handler.Handle(ctx, delivery, 1); err != nil {
		t.Fatalf("handle delivery: %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected delivery to be acked")
	}

	if len(svc.requests) != 2 {
		t.Fatalf("expected two sync runs, got %d", len(svc.requests))
	}
	if svc.requests[0].Trigger != core.SyncTriggerManual || svc.requests[1].Trigger != core.SyncTriggerScheduled {
		t.Fatalf("unexpected triggers %+v", svc.requests)
	}
	if !strings.Contains(logs.String(), "gojob: sync delivered") {
		t.Fatalf("expected slog output from queue handler, got %q", logs.String())
	}
}

type compatSyncService struct {
	requests []integrationsync.SyncRequest
}

func (s *compatSyncService) ExecuteSync(_ context.Context, req integrationsync.SyncRequest) (core.SyncOutcome, error) {
	s.requests = append(s.requests, req)
	return core.SyncOutcome{Success: true, JobID: "job_1"}, nil
}

func (s *compatSyncService) TestEndpoint(context.Context, string, int) (core.EndpointTestResult, error) {
	return core.EndpointTestResult{Success: true}, nil
}

func (s *compatSyncService) TestSync(context.Context, string) (core.SyncOutcome, error) {
	return core.SyncOutcome{Success: true}, nil
}

func (s *compatSyncService) ValidateCode(string) core.CodeValidationResult {
	return core.CodeValidationResult{Valid: true}
}

type compatConfigureService struct{}

func (compatConfigureService) CreateIntegration(context.Context, configure.CreateIntegrationRequest) (core.Integration, error) {
	return core.Integration{}, nil
}

func (compatConfigureService) ConfigureIntegration(context.Context, configure.ConfigureIntegrationRequest) (core.Integration, error) {
	return core.Integration{}, nil
}

func (compatConfigureService) ConfigureCustomExecution(context.Context, configure.CustomExecutionRequest) (core.CustomExecutionConfig, error) {
	return core.CustomExecutionConfig{}, nil
}

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}

type compatDelivery struct {
	msg   *job.ExecutionMessage
	acked bool
}

func (d *compatDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *compatDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *compatDelivery) Nack(context.Context, queue.NackOptions) error { return nil }
