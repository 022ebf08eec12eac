package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-integrations/core"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxCallStackSize = 1024
	defaultMaxFetchCalls    = 100
	defaultMaxLogLines      = 500

	entryPointTrailer = "\n;(typeof sync === \"function\" ? sync : undefined)"
)

// RunRequest carries a decrypted code-mode config.
type RunRequest struct {
	IntegrationID string
	BaseURL       string
	Auth          core.AuthSpec
	Script        string
}

type Option func(*Runner)

func WithLogger(logger core.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(r *Runner) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

func WithMaxCallStackSize(size int) Option {
	return func(r *Runner) {
		if size > 0 {
			r.maxCallStackSize = size
		}
	}
}

func WithMaxFetchCalls(limit int) Option {
	return func(r *Runner) {
		if limit > 0 {
			r.maxFetchCalls = limit
		}
	}
}

// WithRequestTimeout bounds each fetch call made by a script.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout > 0 {
			r.requestTimeout = timeout
		}
	}
}

// Runner executes code-mode scripts in a fresh goja runtime per run. The
// runtime has no module loader, timers, filesystem, process or environment;
// the only capabilities are those placed on the context argument.
type Runner struct {
	transport        core.TransportAdapter
	headers          core.HeaderBuilder
	logger           core.Logger
	metrics          core.MetricsRecorder
	timeout          time.Duration
	requestTimeout   time.Duration
	maxCallStackSize int
	maxFetchCalls    int
}

func NewRunner(transport core.TransportAdapter, headers core.HeaderBuilder, opts ...Option) *Runner {
	runner := &Runner{
		transport:        transport,
		headers:          headers,
		logger:           glog.Nop(),
		metrics:          core.NopMetricsRecorder{},
		timeout:          defaultTimeout,
		requestTimeout:   defaultTimeout,
		maxCallStackSize: defaultMaxCallStackSize,
		maxFetchCalls:    defaultMaxFetchCalls,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(runner)
	}
	return runner
}

// Validate is the static check applied before every run.
func (r *Runner) Validate(source string) core.CodeValidationResult {
	return Validate(source)
}

// Run validates and executes req.Script, returning the evidence its sync
// function resolves to. Every script failure is an ExecutionError whose
// message is the script's own error message.
func (r *Runner) Run(ctx context.Context, req RunRequest) (core.SyncResult, error) {
	startedAt := time.Now()
	result, err := r.run(ctx, req)
	r.observer().Observe(ctx, startedAt, "script_run", err, map[string]any{
		"integration_id": req.IntegrationID,
		"mode":           string(core.AuthoringModeCode),
		"evidence":       len(result.Evidence),
	})
	return result, err
}

func (r *Runner) run(ctx context.Context, req RunRequest) (core.SyncResult, error) {
	if r == nil || r.transport == nil || r.headers == nil {
		return core.SyncResult{}, core.ConfigurationError("script: runner requires a transport and header builder", nil)
	}
	validation := Validate(req.Script)
	if !validation.Valid {
		return core.SyncResult{}, core.ValidationError("script: validation failed: " + strings.Join(validation.Errors, "; "))
	}
	program, err := goja.Compile("sync.js", req.Script+entryPointTrailer, false)
	if err != nil {
		return core.SyncResult{}, core.ValidationError("script: syntax error: " + err.Error())
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sandbox := newSandbox(runCtx, r, req)
	stop := context.AfterFunc(runCtx, func() {
		reason := "script: execution timed out after " + r.timeout.String()
		if ctx.Err() != nil {
			reason = "script: execution cancelled"
		}
		sandbox.vm.Interrupt(reason)
	})
	defer stop()

	evidence, err := sandbox.execute(program)
	result := core.SyncResult{Evidence: evidence, Logs: sandbox.logLines()}
	if err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) observer() core.Observer {
	return core.Observer{Logger: r.logger, Metrics: r.metrics}
}

type sandbox struct {
	ctx    context.Context
	runner *Runner
	req    RunRequest
	vm     *goja.Runtime

	mu         sync.Mutex
	logs       []string
	fetchCalls int
}

func newSandbox(ctx context.Context, runner *Runner, req RunRequest) *sandbox {
	vm := goja.New()
	vm.SetMaxCallStackSize(runner.maxCallStackSize)
	global := vm.GlobalObject()
	_ = global.Delete("eval")
	_ = global.Delete("Function")
	return &sandbox{ctx: ctx, runner: runner, req: req, vm: vm}
}

func (s *sandbox) execute(program *goja.Program) (evidence []core.EvidenceItem, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = core.ExecutionError(nil, fmt.Sprintf("script: runtime panic: %v", recovered), nil)
		}
	}()

	entry, err := s.vm.RunProgram(program)
	if err != nil {
		return nil, s.executionError(err, "load")
	}
	syncFn, ok := goja.AssertFunction(entry)
	if !ok {
		return nil, core.ExecutionError(nil, "script must define a sync(context) function", nil)
	}

	contextObject, err := s.contextObject()
	if err != nil {
		return nil, core.ExecutionError(err, "script: build context", nil)
	}
	returned, err := syncFn(goja.Undefined(), contextObject)
	if err != nil {
		return nil, s.executionError(err, "sync")
	}

	settled, err := s.settle(returned)
	if err != nil {
		return nil, err
	}
	return s.exportEvidence(settled)
}

// settle unwraps a returned promise. Fetch resolves synchronously, so any
// promise still pending after the job queue drains can never settle.
func (s *sandbox) settle(value goja.Value) (goja.Value, error) {
	promise, ok := exportPromise(value)
	if !ok {
		return value, nil
	}
	for attempt := 0; attempt < 3 && promise.State() == goja.PromiseStatePending; attempt++ {
		if _, err := s.vm.RunString("void 0"); err != nil {
			return nil, s.executionError(err, "sync")
		}
	}
	switch promise.State() {
	case goja.PromiseStateRejected:
		message := errorMessage(promise.Result())
		return nil, core.ExecutionError(nil, message, map[string]any{"phase": "sync"})
	case goja.PromiseStateFulfilled:
		return promise.Result(), nil
	default:
		return nil, core.ExecutionError(nil, "script: sync promise never settled", map[string]any{"phase": "sync"})
	}
}

func (s *sandbox) exportEvidence(value goja.Value) ([]core.EvidenceItem, error) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, core.ExecutionError(nil, "script: sync must return { evidence: [...] }", nil)
	}
	exported, ok := value.Export().(map[string]any)
	if !ok {
		return nil, core.ExecutionError(nil, "script: sync must return an object with an evidence array", nil)
	}
	rawItems, ok := exported["evidence"].([]any)
	if !ok {
		if exported["evidence"] == nil {
			return nil, core.ExecutionError(nil, "script: result is missing the evidence array", nil)
		}
		return nil, core.ExecutionError(nil, "script: evidence must be an array", nil)
	}

	items := make([]core.EvidenceItem, 0, len(rawItems))
	for index, raw := range rawItems {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, core.ExecutionError(nil, fmt.Sprintf("script: evidence[%d] must be an object", index), nil)
		}
		title := strings.TrimSpace(stringValue(entry["title"]))
		if title == "" {
			return nil, core.ExecutionError(nil, fmt.Sprintf("script: evidence[%d] is missing a title", index), nil)
		}
		items = append(items, core.EvidenceItem{
			Title:       title,
			Description: stringValue(entry["description"]),
			Data:        entry["data"],
			Type:        strings.TrimSpace(stringValue(entry["type"])),
		})
	}
	return items, nil
}

func (s *sandbox) contextObject() (*goja.Object, error) {
	authHeaders := s.runner.headers.Build(s.ctx, s.req.Auth)
	headersObject := s.vm.NewObject()
	for key, value := range authHeaders {
		if err := headersObject.Set(key, value); err != nil {
			return nil, err
		}
	}

	logObject := s.vm.NewObject()
	for _, level := range []string{"info", "warn", "error"} {
		if err := logObject.Set(level, s.logFunc(level)); err != nil {
			return nil, err
		}
	}

	object := s.vm.NewObject()
	for key, value := range map[string]any{
		"baseUrl":       s.req.BaseURL,
		"integrationId": s.req.IntegrationID,
		"authHeaders":   headersObject,
		"fetch":         s.fetch(authHeaders),
		"log":           logObject,
	} {
		if err := object.Set(key, value); err != nil {
			return nil, err
		}
	}
	return object, nil
}

func (s *sandbox) logFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, logString(arg))
		}
		line := strings.Join(parts, " ")

		s.mu.Lock()
		if len(s.logs) < defaultMaxLogLines {
			s.logs = append(s.logs, "["+level+"] "+line)
		}
		s.mu.Unlock()

		logger := s.runner.logger
		switch level {
		case "error":
			logger.Error("script: "+line, "integration_id", s.req.IntegrationID)
		case "warn":
			logger.Warn("script: "+line, "integration_id", s.req.IntegrationID)
		default:
			logger.Info("script: "+line, "integration_id", s.req.IntegrationID)
		}
		return goja.Undefined()
	}
}

func (s *sandbox) logLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logs...)
}

func (s *sandbox) executionError(err error, phase string) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return core.ExecutionError(nil, fmt.Sprint(interrupted.Value()), map[string]any{"phase": phase})
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return core.ExecutionError(nil, errorMessage(exception.Value()), map[string]any{"phase": phase})
	}
	return core.ExecutionError(nil, err.Error(), map[string]any{"phase": phase})
}

func exportPromise(value goja.Value) (*goja.Promise, bool) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, false
	}
	promise, ok := value.Export().(*goja.Promise)
	return promise, ok
}

// errorMessage prefers the message property of thrown Error objects so a
// script's throw new Error("boom") surfaces as "boom".
func errorMessage(value goja.Value) string {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return "script failed without an error value"
	}
	if object, ok := value.(*goja.Object); ok {
		if message := object.Get("message"); message != nil && !goja.IsUndefined(message) {
			if text := strings.TrimSpace(message.String()); text != "" {
				return text
			}
		}
	}
	return value.String()
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func logString(value goja.Value) string {
	if value == nil || goja.IsUndefined(value) {
		return "undefined"
	}
	if goja.IsNull(value) {
		return "null"
	}
	switch exported := value.Export().(type) {
	case string:
		return exported
	case map[string]any:
		if encoded, err := json.Marshal(core.RedactSensitiveMap(exported)); err == nil {
			return string(encoded)
		}
	case []any:
		if encoded, err := json.Marshal(exported); err == nil {
			return string(encoded)
		}
	}
	return value.String()
}
