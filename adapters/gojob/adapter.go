// Package gojob queues sync runs on go-job and handles their deliveries.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-integrations/core"
	integrationsync "github.com/goliatone/go-integrations/sync"
)

const (
	JobIDSync          = "integrations.sync"
	ParamIntegrationID = "integration_id"
	ParamTrigger       = "trigger"
	ParamActorID       = "actor_id"
)

// RetryPolicy bounds how a failed delivery is retried.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		BaseDelay:       5 * time.Second,
		MaxDelay:        5 * time.Minute,
		DeadLetterOnMax: true,
	}
}

// NormalizeAttempt clamps a nack for the given attempt number.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// Backoff doubles BaseDelay per attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// NewSyncMessage builds the go-job message for one sync run.
func NewSyncMessage(req integrationsync.SyncRequest) *job.ExecutionMessage {
	trigger := req.Trigger
	if trigger == "" {
		trigger = core.SyncTriggerScheduled
	}
	params := map[string]any{
		ParamIntegrationID: strings.TrimSpace(req.IntegrationID),
		ParamTrigger:       string(trigger),
	}
	if actor := strings.TrimSpace(req.ActorID); actor != "" {
		params[ParamActorID] = actor
	}
	return &job.ExecutionMessage{
		JobID:      JobIDSync,
		ScriptPath: JobIDSync,
		Parameters: params,
	}
}

// SyncRequestFromMessage reads a sync request back from a delivery message.
func SyncRequestFromMessage(msg *job.ExecutionMessage) (integrationsync.SyncRequest, error) {
	if msg == nil {
		return integrationsync.SyncRequest{}, core.ValidationError("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDSync {
		return integrationsync.SyncRequest{}, core.ValidationError(fmt.Sprintf("gojob: unexpected job id %q", msg.JobID))
	}
	integrationID, _ := msg.Parameters[ParamIntegrationID].(string)
	if strings.TrimSpace(integrationID) == "" {
		return integrationsync.SyncRequest{}, core.ValidationError("gojob: integration_id parameter is required")
	}
	trigger, _ := msg.Parameters[ParamTrigger].(string)
	if trigger == "" {
		trigger = string(core.SyncTriggerScheduled)
	}
	actor, _ := msg.Parameters[ParamActorID].(string)
	return integrationsync.SyncRequest{
		IntegrationID: strings.TrimSpace(integrationID),
		Trigger:       core.SyncTrigger(trigger),
		ActorID:       actor,
	}, nil
}

type SyncEnqueuer struct {
	enqueuer queue.Enqueuer
}

func NewSyncEnqueuer(enqueuer queue.Enqueuer) *SyncEnqueuer {
	return &SyncEnqueuer{enqueuer: enqueuer}
}

func (e *SyncEnqueuer) EnqueueSync(ctx context.Context, req integrationsync.SyncRequest) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(req.IntegrationID) == "" {
		return core.ValidationError("gojob: integration id is required")
	}
	return e.enqueuer.Enqueue(ctx, NewSyncMessage(req))
}

type Syncer interface {
	ExecuteSync(ctx context.Context, req integrationsync.SyncRequest) (core.SyncOutcome, error)
}

// SyncHandler runs one delivered sync job. A run that reached a terminal
// state is acked whatever its outcome; errors raised before a job exists
// are retried unless they are configuration or validation errors.
type SyncHandler struct {
	syncer Syncer
	policy RetryPolicy
	logger core.Logger
}

type HandlerOption func(*SyncHandler)

func WithRetryPolicy(policy RetryPolicy) HandlerOption {
	return func(h *SyncHandler) { h.policy = policy }
}

func WithLogger(logger core.Logger) HandlerOption {
	return func(h *SyncHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewSyncHandler(syncer Syncer, opts ...HandlerOption) *SyncHandler {
	handler := &SyncHandler{syncer: syncer, policy: DefaultRetryPolicy(), logger: glog.Nop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(handler)
	}
	return handler
}

func (h *SyncHandler) Handle(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if h == nil || h.syncer == nil {
		return fmt.Errorf("gojob: sync handler is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	req, err := SyncRequestFromMessage(delivery.Message())
	if err != nil {
		h.logger.Warn("gojob: dropping malformed sync message", "error", err.Error())
		return delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: core.ErrorMessage(err)})
	}

	outcome, err := h.syncer.ExecuteSync(ctx, req)
	if err == nil {
		h.logger.Info("gojob: sync delivered",
			"integration_id", req.IntegrationID,
			"job_id", outcome.JobID,
			"success", outcome.Success,
		)
		return delivery.Ack(ctx)
	}

	nack := queue.NackOptions{Reason: core.ErrorMessage(err)}
	if permanent(err) {
		nack.DeadLetter = true
	} else {
		nack.Requeue = true
		nack.Delay = h.policy.Backoff(attempt)
	}
	nack = h.policy.NormalizeAttempt(nack, attempt)
	h.logger.Warn("gojob: sync delivery failed",
		"integration_id", req.IntegrationID,
		"attempt", attempt,
		"requeue", nack.Requeue,
		"error", nack.Reason,
	)
	return delivery.Nack(ctx, nack)
}

func permanent(err error) bool {
	return core.HasTextCode(err, core.ErrorConfiguration) || core.HasTextCode(err, core.ErrorValidation)
}

// LoggingHook reports worker lifecycle events through a logger and metrics.
type LoggingHook struct {
	logger  core.Logger
	metrics core.MetricsRecorder
}

func NewLoggingHook(logger core.Logger, metrics core.MetricsRecorder) *LoggingHook {
	if logger == nil {
		logger = glog.Nop()
	}
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &LoggingHook{logger: logger, metrics: metrics}
}

func (h *LoggingHook) OnStart(ctx context.Context, event worker.Event) {
	h.logger.Debug("gojob: job started", eventFields(event)...)
}

func (h *LoggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.metrics.IncCounter(ctx, "integrations.queue.success", 1, eventTags(event))
	h.metrics.ObserveHistogram(ctx, "integrations.queue.duration_ms", float64(event.Duration.Milliseconds()), eventTags(event))
}

func (h *LoggingHook) OnFailure(ctx context.Context, event worker.Event) {
	h.metrics.IncCounter(ctx, "integrations.queue.failure", 1, eventTags(event))
	h.logger.Error("gojob: job failed", eventFields(event)...)
}

func (h *LoggingHook) OnRetry(ctx context.Context, event worker.Event) {
	h.metrics.IncCounter(ctx, "integrations.queue.retry", 1, eventTags(event))
	h.logger.Warn("gojob: job retrying", eventFields(event)...)
}

func eventMessage(event worker.Event) *job.ExecutionMessage {
	if event.Message != nil {
		return event.Message
	}
	if event.Delivery != nil {
		return event.Delivery.Message()
	}
	return nil
}

func eventFields(event worker.Event) []any {
	fields := []any{"attempt", event.Attempt}
	if msg := eventMessage(event); msg != nil {
		fields = append(fields, "job_id", msg.JobID)
		if id, ok := msg.Parameters[ParamIntegrationID].(string); ok {
			fields = append(fields, "integration_id", id)
		}
	}
	if event.Delay > 0 {
		fields = append(fields, "delay", event.Delay.String())
	}
	if event.Err != nil {
		fields = append(fields, "error", event.Err.Error())
	}
	return fields
}

func eventTags(event worker.Event) map[string]string {
	tags := map[string]string{}
	if msg := eventMessage(event); msg != nil {
		tags["job_id"] = msg.JobID
	}
	return tags
}

var (
	_ worker.Hook = (*LoggingHook)(nil)
	_ Syncer      = (*integrationsync.Orchestrator)(nil)
)
