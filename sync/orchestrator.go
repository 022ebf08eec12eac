package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/engine/declarative"
	"github.com/goliatone/go-integrations/engine/script"
)

const (
	AuditActionSyncCompleted = "integration.sync.completed"
	AuditActionSyncFailed    = "integration.sync.failed"
	AuditActionSyncCancelled = "integration.sync.cancelled"

	defaultBlobPrefix = "integrations"
	previewLimit      = 5
)

type DeclarativeEngine interface {
	Run(ctx context.Context, req declarative.RunRequest) (core.SyncResult, error)
	TestEndpoint(ctx context.Context, req declarative.RunRequest, index int) (core.EndpointTestResult, error)
}

type ScriptEngine interface {
	Run(ctx context.Context, req script.RunRequest) (core.SyncResult, error)
	Validate(source string) core.CodeValidationResult
}

type SyncRequest struct {
	IntegrationID string
	Trigger       core.SyncTrigger
	ActorID       string
}

type Option func(*Orchestrator)

func WithDeclarativeEngine(engine DeclarativeEngine) Option {
	return func(o *Orchestrator) { o.Declarative = engine }
}

func WithScriptEngine(engine ScriptEngine) Option {
	return func(o *Orchestrator) { o.Script = engine }
}

func WithConnectors(registry core.ConnectorRegistry) Option {
	return func(o *Orchestrator) { o.Connectors = registry }
}

func WithCipher(cipher core.ConfigCipher) Option {
	return func(o *Orchestrator) { o.Cipher = cipher }
}

func WithAuditLogger(audit core.AuditLogger) Option {
	return func(o *Orchestrator) { o.Audit = audit }
}

func WithFailureNotifier(notifier core.FailureNotifier) Option {
	return func(o *Orchestrator) { o.Notifier = notifier }
}

func WithSummarizers(summarizers *core.SummarizerRegistry) Option {
	return func(o *Orchestrator) {
		if summarizers != nil {
			o.Summarizers = summarizers
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(o *Orchestrator) {
		if metrics != nil {
			o.Metrics = metrics
		}
	}
}

func WithBlobPrefix(prefix string) Option {
	return func(o *Orchestrator) {
		if trimmed := strings.Trim(strings.TrimSpace(prefix), "/"); trimmed != "" {
			o.BlobPrefix = trimmed
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.Now = now
		}
	}
}

// Orchestrator runs syncs: it resolves the integration, dispatches to an
// engine or builtin connector, persists evidence and owns the SyncJob from
// creation to its single terminal update.
type Orchestrator struct {
	Integrations  core.IntegrationStore
	CustomConfigs core.CustomConfigStore
	Jobs          core.SyncJobStore
	Evidence      core.EvidenceStore
	Blobs         core.BlobStore

	Declarative DeclarativeEngine
	Script      ScriptEngine
	Connectors  core.ConnectorRegistry
	Cipher      core.ConfigCipher
	Audit       core.AuditLogger
	Notifier    core.FailureNotifier
	Summarizers *core.SummarizerRegistry

	Logger     core.Logger
	Metrics    core.MetricsRecorder
	BlobPrefix string
	Now        func() time.Time
	NewID      func() string

	stampMu   stdsync.Mutex
	lastStamp int64
}

func NewOrchestrator(
	integrations core.IntegrationStore,
	customConfigs core.CustomConfigStore,
	jobs core.SyncJobStore,
	evidence core.EvidenceStore,
	blobs core.BlobStore,
	opts ...Option,
) *Orchestrator {
	orchestrator := &Orchestrator{
		Integrations:  integrations,
		CustomConfigs: customConfigs,
		Jobs:          jobs,
		Evidence:      evidence,
		Blobs:         blobs,
		Connectors:    core.NewConnectorCatalog(),
		Summarizers:   core.DefaultSummarizers(),
		Logger:        glog.Nop(),
		Metrics:       core.NopMetricsRecorder{},
		BlobPrefix:    defaultBlobPrefix,
		Now: func() time.Time {
			return time.Now().UTC()
		},
		NewID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(orchestrator)
	}
	return orchestrator
}

// ExecuteSync runs one sync. It returns an error only when no SyncJob could
// be created; every later failure is reported through the outcome and the
// job record.
func (o *Orchestrator) ExecuteSync(ctx context.Context, req SyncRequest) (outcome core.SyncOutcome, err error) {
	startedAt := time.Now()
	fields := map[string]any{"integration_id": req.IntegrationID}
	defer func() {
		var observed error
		if err != nil {
			observed = err
		} else if !outcome.Success {
			observed = core.ExecutionError(nil, outcome.Message, nil)
		}
		fields["job_id"] = outcome.JobID
		fields["evidence_created"] = outcome.EvidenceCreated
		o.observer().Observe(ctx, startedAt, "sync", observed, fields)
	}()

	if err := o.ready(); err != nil {
		return core.SyncOutcome{Success: false, Message: core.ErrorMessage(err)}, err
	}
	integration, err := o.loadIntegration(ctx, req.IntegrationID)
	if err != nil {
		return core.SyncOutcome{Success: false, Message: core.ErrorMessage(err)}, err
	}
	fields["connector_type"] = integration.ConnectorType

	trigger := req.Trigger
	if trigger == "" {
		trigger = core.SyncTriggerManual
	}
	job := core.SyncJob{
		ID:             o.NewID(),
		IntegrationID:  integration.ID,
		OrganizationID: integration.OrganizationID,
		ConnectorType:  integration.ConnectorType,
		Trigger:        trigger,
		StartedAt:      o.now(),
	}
	if err := job.TransitionTo(core.SyncJobStatusRunning, job.StartedAt); err != nil {
		return core.SyncOutcome{Success: false, Message: err.Error()}, err
	}
	job, err = o.Jobs.Create(ctx, job)
	if err != nil {
		wrapped := core.ExecutionError(err, "sync: could not create sync job", map[string]any{"integration_id": integration.ID})
		return core.SyncOutcome{Success: false, Message: core.ErrorMessage(wrapped)}, wrapped
	}

	result, mode, runErr := o.dispatch(ctx, integration)
	if mode != "" {
		fields["mode"] = mode
	}
	run := runState{job: job, integration: integration, actorID: req.ActorID, logs: append([]string(nil), result.Logs...)}
	run.errors = append(run.errors, result.Errors...)

	if runErr == nil && ctx.Err() == nil {
		o.persistEvidence(ctx, &run, result.Evidence)
	}

	// Terminal writes must land even when the caller has gone away.
	finalizeCtx := context.WithoutCancel(ctx)
	switch {
	case ctx.Err() != nil:
		return o.finishCancelled(finalizeCtx, run, ctx.Err()), nil
	case runErr != nil:
		return o.finishFailed(finalizeCtx, run, runErr), nil
	default:
		return o.finishCompleted(finalizeCtx, run, len(result.Evidence)), nil
	}
}

type runState struct {
	job         core.SyncJob
	integration core.Integration
	actorID     string
	created     int
	logs        []string
	errors      []string
}

func (o *Orchestrator) persistEvidence(ctx context.Context, run *runState, items []core.EvidenceItem) {
	stamp := o.reserveStamp()
	for index, item := range items {
		if ctx.Err() != nil {
			run.logs = append(run.logs, fmt.Sprintf("persist stopped after %d of %d items: %v", run.created, len(items), ctx.Err()))
			return
		}
		path := BlobPath(o.BlobPrefix, run.integration.ConnectorType, run.integration.ID, stamp, index, len(items))
		if err := o.persistItem(ctx, run, item, path); err != nil {
			message := fmt.Sprintf("evidence %q: %s", item.Title, core.ErrorMessage(err))
			run.errors = append(run.errors, message)
			run.logs = append(run.logs, "persist failed: "+message)
			o.Logger.Warn("sync: evidence persist failed",
				"integration_id", run.integration.ID,
				"job_id", run.job.ID,
				"blob_path", path,
				"error", err.Error(),
			)
			continue
		}
		run.created++
	}
}

func (o *Orchestrator) persistItem(ctx context.Context, run *runState, item core.EvidenceItem, path string) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return core.ExecutionError(err, "sync: evidence payload is not serializable", nil)
	}
	object, err := o.Blobs.Put(ctx, path, "application/json", payload)
	if err != nil {
		return err
	}
	evidenceType := strings.TrimSpace(item.Type)
	if evidenceType == "" {
		evidenceType = run.integration.ConnectorType
	}
	_, err = o.Evidence.Create(ctx, core.Evidence{
		ID:             o.NewID(),
		OrganizationID: run.integration.OrganizationID,
		IntegrationID:  run.integration.ID,
		SyncJobID:      run.job.ID,
		Title:          item.Title,
		Description:    item.Description,
		Type:           evidenceType,
		Source:         run.integration.ConnectorType,
		BlobPath:       object.Path,
		Metadata:       o.Summarizers.Summarize(run.integration.ConnectorType, item),
		CreatedAt:      o.now(),
	})
	return err
}

func (o *Orchestrator) finishCompleted(ctx context.Context, run runState, itemsProcessed int) core.SyncOutcome {
	now := o.now()
	run.job.ItemsProcessed = itemsProcessed
	run.job.EvidenceCreated = run.created
	run.job.Logs = run.logs
	o.finalizeJob(ctx, &run.job, core.SyncJobStatusCompleted, now)

	o.recordSync(ctx, run.integration.ID, core.SyncBookkeeping{
		LastSyncAt:       now,
		LastSyncStatus:   string(core.SyncJobStatusCompleted),
		Status:           core.IntegrationStatusActive,
		EvidenceIncrease: run.created,
	})
	o.appendAudit(ctx, run, AuditActionSyncCompleted, map[string]any{
		"items_processed": itemsProcessed,
		"errors":          len(run.errors),
	})

	return core.SyncOutcome{
		Success:         true,
		JobID:           run.job.ID,
		Message:         fmt.Sprintf("Sync completed: %d evidence items created", run.created),
		EvidenceCreated: run.created,
		Errors:          run.errors,
		Data: map[string]any{
			"itemsProcessed": itemsProcessed,
			"connectorType":  run.integration.ConnectorType,
		},
	}
}

func (o *Orchestrator) finishFailed(ctx context.Context, run runState, cause error) core.SyncOutcome {
	now := o.now()
	message := core.ErrorMessage(cause)
	run.job.EvidenceCreated = run.created
	run.job.Error = message
	run.job.Logs = append(run.logs, "sync failed: "+message)
	o.finalizeJob(ctx, &run.job, core.SyncJobStatusFailed, now)

	o.recordSync(ctx, run.integration.ID, core.SyncBookkeeping{
		LastSyncAt:       now,
		LastSyncStatus:   string(core.SyncJobStatusFailed),
		Status:           core.IntegrationStatusError,
		LastError:        message,
		EvidenceIncrease: run.created,
	})
	if o.Notifier != nil {
		if err := o.Notifier.NotifySyncFailure(ctx, core.SyncFailureNotice{
			IntegrationID:   run.integration.ID,
			OrganizationID:  run.integration.OrganizationID,
			ConnectorType:   run.integration.ConnectorType,
			IntegrationName: run.integration.Name,
			JobID:           run.job.ID,
			Error:           message,
			OccurredAt:      now,
		}); err != nil {
			o.Logger.Error("sync: failure notification failed", "integration_id", run.integration.ID, "error", err.Error())
		}
	}
	o.appendAudit(ctx, run, AuditActionSyncFailed, map[string]any{"error": message})

	return core.SyncOutcome{
		Success:         false,
		JobID:           run.job.ID,
		Message:         message,
		EvidenceCreated: run.created,
		Errors:          []string{message},
	}
}

func (o *Orchestrator) finishCancelled(ctx context.Context, run runState, cause error) core.SyncOutcome {
	now := o.now()
	message := "sync cancelled: " + cause.Error()
	run.job.EvidenceCreated = run.created
	run.job.Error = message
	run.job.Logs = append(run.logs, message)
	o.finalizeJob(ctx, &run.job, core.SyncJobStatusCancelled, now)

	o.recordSync(ctx, run.integration.ID, core.SyncBookkeeping{
		LastSyncAt:       now,
		LastSyncStatus:   string(core.SyncJobStatusCancelled),
		Status:           run.integration.Status,
		EvidenceIncrease: run.created,
	})
	o.appendAudit(ctx, run, AuditActionSyncCancelled, nil)

	return core.SyncOutcome{
		Success:         false,
		JobID:           run.job.ID,
		Message:         message,
		EvidenceCreated: run.created,
		Errors:          append(run.errors, message),
	}
}

func (o *Orchestrator) finalizeJob(ctx context.Context, job *core.SyncJob, status core.SyncJobStatus, now time.Time) {
	if err := job.TransitionTo(status, now); err != nil {
		o.Logger.Error("sync: invalid job transition", "job_id", job.ID, "error", err.Error())
		return
	}
	if _, err := o.Jobs.Finalize(ctx, *job); err != nil {
		o.Logger.Error("sync: job finalize failed", "job_id", job.ID, "status", string(status), "error", err.Error())
	}
}

func (o *Orchestrator) recordSync(ctx context.Context, integrationID string, bookkeeping core.SyncBookkeeping) {
	if err := o.Integrations.RecordSync(ctx, integrationID, bookkeeping); err != nil {
		o.Logger.Error("sync: integration bookkeeping failed", "integration_id", integrationID, "error", err.Error())
	}
}

func (o *Orchestrator) appendAudit(ctx context.Context, run runState, action string, metadata map[string]any) {
	if o.Audit == nil {
		return
	}
	entryMetadata := map[string]any{
		"job_id":           run.job.ID,
		"connector_type":   run.integration.ConnectorType,
		"evidence_created": run.created,
		"trigger":          string(run.job.Trigger),
	}
	for key, value := range metadata {
		entryMetadata[key] = value
	}
	actor := strings.TrimSpace(run.actorID)
	if actor == "" {
		actor = "system"
	}
	if err := o.Audit.Append(ctx, core.AuditEntry{
		ID:             o.NewID(),
		OrganizationID: run.integration.OrganizationID,
		Action:         action,
		ResourceType:   "integration",
		ResourceID:     run.integration.ID,
		ActorID:        actor,
		Metadata:       core.RedactSensitiveMap(entryMetadata),
		CreatedAt:      o.now(),
	}); err != nil {
		o.Logger.Error("sync: audit append failed", "integration_id", run.integration.ID, "action", action, "error", err.Error())
	}
}

// BlobPath returns <prefix>/<connectorType>/<integrationId>/<epochMillis>[-index].json.
// The index suffix is only used when a run produced more than one item.
// reserveStamp returns the run's blob timestamp, bumped past the last one
// handed out so runs that share a millisecond never share a path.
func (o *Orchestrator) reserveStamp() int64 {
	stamp := o.now().UnixMilli()
	o.stampMu.Lock()
	defer o.stampMu.Unlock()
	if stamp <= o.lastStamp {
		stamp = o.lastStamp + 1
	}
	o.lastStamp = stamp
	return stamp
}

func BlobPath(prefix, connectorType, integrationID string, epochMillis int64, index, total int) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = defaultBlobPrefix
	}
	name := fmt.Sprintf("%d", epochMillis)
	if total > 1 {
		name = fmt.Sprintf("%d-%d", epochMillis, index)
	}
	return fmt.Sprintf("%s/%s/%s/%s.json", prefix, connectorType, integrationID, name)
}

func (o *Orchestrator) ready() error {
	if o == nil || o.Integrations == nil || o.CustomConfigs == nil || o.Jobs == nil || o.Evidence == nil || o.Blobs == nil {
		return core.ConfigurationError("sync: orchestrator requires integration, custom config, job, evidence and blob stores", nil)
	}
	return nil
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) observer() core.Observer {
	return core.Observer{Logger: o.Logger, Metrics: o.Metrics}
}

var (
	_ DeclarativeEngine = (*declarative.Runner)(nil)
	_ ScriptEngine      = (*script.Runner)(nil)
)
