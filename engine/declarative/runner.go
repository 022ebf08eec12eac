package declarative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/pathexpr"
)

const defaultRequestTimeout = 30 * time.Second

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
	http.MethodHead:   {},
}

// RunRequest carries a decrypted custom execution config.
type RunRequest struct {
	IntegrationID string
	BaseURL       string
	Endpoints     []core.EndpointSpec
	Auth          core.AuthSpec
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

func WithRequestTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithConcurrency bounds the number of endpoints called at once. Values
// below two keep calls sequential.
func WithConcurrency(limit int) Option {
	return func(r *Runner) {
		if limit > 0 {
			r.concurrency = limit
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

type Runner struct {
	transport   core.TransportAdapter
	headers     core.HeaderBuilder
	logger      core.Logger
	metrics     core.MetricsRecorder
	timeout     time.Duration
	concurrency int
	now         func() time.Time
}

func NewRunner(transport core.TransportAdapter, headers core.HeaderBuilder, opts ...Option) *Runner {
	runner := &Runner{
		transport:   transport,
		headers:     headers,
		logger:      glog.Nop(),
		metrics:     core.NopMetricsRecorder{},
		timeout:     defaultRequestTimeout,
		concurrency: 1,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(runner)
	}
	return runner
}

type endpointOutcome struct {
	evidence *core.EvidenceItem
	err      string
	log      string
}

// Run calls every endpoint and maps each successful response to one evidence
// item. A failing endpoint is recorded in SyncResult.Errors and never stops
// its siblings; only a run where every endpoint fails returns an error.
func (r *Runner) Run(ctx context.Context, req RunRequest) (core.SyncResult, error) {
	startedAt := time.Now()
	result, err := r.run(ctx, req)
	r.observer().Observe(ctx, startedAt, "declarative_run", err, map[string]any{
		"integration_id": req.IntegrationID,
		"mode":           string(core.AuthoringModeVisual),
		"endpoints":      len(req.Endpoints),
		"evidence":       len(result.Evidence),
		"failures":       len(result.Errors),
	})
	return result, err
}

func (r *Runner) run(ctx context.Context, req RunRequest) (core.SyncResult, error) {
	if err := r.ready(); err != nil {
		return core.SyncResult{}, err
	}
	if err := Validate(req); err != nil {
		return core.SyncResult{}, err
	}

	authHeaders := r.headers.Build(ctx, req.Auth)
	authQuery := r.headers.QueryParams(req.Auth)
	outcomes := make([]endpointOutcome, len(req.Endpoints))

	limit := r.concurrency
	if limit < 1 {
		limit = 1
	}
	group := errgroup.Group{}
	group.SetLimit(limit)
	for index := range req.Endpoints {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[index] = r.runEndpoint(ctx, req, index, authHeaders, authQuery)
			return nil
		})
	}
	_ = group.Wait()

	result := core.SyncResult{Evidence: []core.EvidenceItem{}}
	for _, outcome := range outcomes {
		if outcome.log != "" {
			result.Logs = append(result.Logs, outcome.log)
		}
		if outcome.err != "" {
			result.Errors = append(result.Errors, outcome.err)
		}
		if outcome.evidence != nil {
			result.Evidence = append(result.Evidence, *outcome.evidence)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, core.ExecutionError(err, "declarative: run cancelled", map[string]any{
			"completed_endpoints": len(result.Evidence) + len(result.Errors),
		})
	}
	if len(result.Evidence) == 0 && len(result.Errors) > 0 {
		return result, core.ExecutionError(nil,
			fmt.Sprintf("declarative: all %d endpoints failed: %s", len(req.Endpoints), strings.Join(result.Errors, "; ")),
			map[string]any{"errors": append([]string(nil), result.Errors...)},
		)
	}
	return result, nil
}

func (r *Runner) runEndpoint(
	ctx context.Context,
	req RunRequest,
	index int,
	authHeaders map[string]string,
	authQuery map[string]string,
) endpointOutcome {
	endpoint := req.Endpoints[index]
	label := endpoint.Label(index)

	res, data, err := r.call(ctx, req, endpoint, authHeaders, authQuery)
	if err != nil {
		r.logger.Warn("declarative: endpoint call failed",
			"integration_id", req.IntegrationID,
			"endpoint", label,
			"error", err.Error(),
		)
		return endpointOutcome{
			err: fmt.Sprintf("%s: %s", label, err.Error()),
			log: fmt.Sprintf("%s failed: %s", label, err.Error()),
		}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		r.logger.Warn("declarative: endpoint returned non-success status",
			"integration_id", req.IntegrationID,
			"endpoint", label,
			"status_code", res.StatusCode,
		)
		return endpointOutcome{
			err: fmt.Sprintf("%s: HTTP %d", label, res.StatusCode),
			log: fmt.Sprintf("%s returned HTTP %d in %dms", label, res.StatusCode, res.Duration.Milliseconds()),
		}
	}

	item := mapEvidence(endpoint, index, data)
	return endpointOutcome{
		evidence: &item,
		log:      fmt.Sprintf("%s returned HTTP %d in %dms", label, res.StatusCode, res.Duration.Milliseconds()),
	}
}

// TestEndpoint calls the endpoint at index once and reports the raw outcome.
// Transport failures and non-2xx statuses are reported in the result, not as
// an error.
func (r *Runner) TestEndpoint(ctx context.Context, req RunRequest, index int) (core.EndpointTestResult, error) {
	if err := r.ready(); err != nil {
		return core.EndpointTestResult{}, err
	}
	if index < 0 || index >= len(req.Endpoints) {
		return core.EndpointTestResult{}, core.ValidationError(
			fmt.Sprintf("declarative: endpoint index %d out of range", index),
			fieldError("endpointIndex", fmt.Sprintf("must be between 0 and %d", len(req.Endpoints)-1)),
		)
	}
	if err := validateEndpoint(req.BaseURL, req.Endpoints[index], index); err != nil {
		return core.EndpointTestResult{}, err
	}

	startedAt := time.Now()
	res, data, err := r.call(ctx, req, req.Endpoints[index], r.headers.Build(ctx, req.Auth), r.headers.QueryParams(req.Auth))
	elapsed := time.Since(startedAt).Milliseconds()
	if err != nil {
		return core.EndpointTestResult{Success: false, ResponseTimeMS: elapsed, Error: err.Error()}, nil
	}
	out := core.EndpointTestResult{
		Success:        res.StatusCode >= 200 && res.StatusCode < 300,
		StatusCode:     res.StatusCode,
		ResponseTimeMS: elapsed,
		Data:           data,
	}
	if !out.Success {
		out.Error = fmt.Sprintf("HTTP %d %s", res.StatusCode, http.StatusText(res.StatusCode))
	}
	return out, nil
}

func (r *Runner) call(
	ctx context.Context,
	req RunRequest,
	endpoint core.EndpointSpec,
	authHeaders map[string]string,
	authQuery map[string]string,
) (core.TransportResponse, any, error) {
	target, err := resolveURL(req.BaseURL, endpoint.Path)
	if err != nil {
		return core.TransportResponse{}, nil, err
	}
	body, err := r.renderBody(req, endpoint)
	if err != nil {
		return core.TransportResponse{}, nil, err
	}

	headers := make(map[string]string, len(endpoint.Headers)+len(authHeaders))
	for key, value := range endpoint.Headers {
		headers[key] = value
	}
	for key, value := range authHeaders {
		headers[key] = value
	}
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = "application/json"
	}
	query := make(map[string]string, len(endpoint.Params)+len(authQuery))
	for key, value := range endpoint.Params {
		query[key] = value
	}
	for key, value := range authQuery {
		query[key] = value
	}

	res, err := r.transport.Do(ctx, core.TransportRequest{
		Method:  strings.ToUpper(strings.TrimSpace(endpoint.Method)),
		URL:     target,
		Headers: headers,
		Query:   query,
		Body:    body,
		Timeout: r.timeout,
	})
	if err != nil {
		return core.TransportResponse{}, nil, err
	}
	return res, decodeBody(res.Body), nil
}

// renderBody executes string bodies as text/template with the run's base URL,
// integration id and current time; other bodies are JSON encoded.
func (r *Runner) renderBody(req RunRequest, endpoint core.EndpointSpec) ([]byte, error) {
	switch typed := endpoint.Body.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil, nil
		}
		tmpl, err := template.New("body").Option("missingkey=zero").Parse(typed)
		if err != nil {
			return nil, core.ValidationError("declarative: invalid body template: " + err.Error())
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, map[string]any{
			"BaseURL":       req.BaseURL,
			"IntegrationID": req.IntegrationID,
			"Now":           r.now().Format(time.RFC3339),
			"Params":        endpoint.Params,
		}); err != nil {
			return nil, core.ValidationError("declarative: render body template: " + err.Error())
		}
		return buf.Bytes(), nil
	case []byte:
		return typed, nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return nil, core.ValidationError("declarative: encode body: " + err.Error())
		}
		return encoded, nil
	}
}

func (r *Runner) ready() error {
	if r == nil || r.transport == nil || r.headers == nil {
		return core.ConfigurationError("declarative: runner requires a transport and header builder", nil)
	}
	return nil
}

func (r *Runner) observer() core.Observer {
	return core.Observer{Logger: r.logger, Metrics: r.metrics}
}

func mapEvidence(endpoint core.EndpointSpec, index int, data any) core.EvidenceItem {
	item := core.EvidenceItem{
		Title:       endpoint.Label(index),
		Description: strings.TrimSpace(endpoint.Description),
		Data:        data,
		Type:        strings.TrimSpace(endpoint.EvidenceType),
	}
	if item.Description == "" {
		item.Description = fmt.Sprintf("Response from %s %s", strings.ToUpper(strings.TrimSpace(endpoint.Method)), endpoint.Path)
	}
	mapping := endpoint.ResponseMapping
	if mapping == nil {
		return item
	}
	if value, ok := lookupNonRoot(data, mapping.Title); ok {
		item.Title = stringify(value)
	}
	if value, ok := lookupNonRoot(data, mapping.Description); ok {
		item.Description = stringify(value)
	}
	if strings.TrimSpace(mapping.Data) != "" {
		if value, ok := pathexpr.Lookup(data, mapping.Data); ok {
			item.Data = value
		}
	}
	return item
}

func lookupNonRoot(data any, path string) (any, bool) {
	if strings.TrimSpace(path) == "" {
		return nil, false
	}
	return pathexpr.Lookup(data, path)
}

func stringify(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprint(typed)
	case map[string]any, []any:
		encoded, err := json.Marshal(typed)
		if err == nil {
			return string(encoded)
		}
	}
	return fmt.Sprint(value)
}

func decodeBody(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return string(body)
	}
	return decoded
}

func resolveURL(baseURL string, path string) (string, error) {
	path = strings.TrimSpace(path)
	if parsed, err := url.Parse(path); err == nil && parsed.IsAbs() {
		return path, nil
	}
	base := strings.TrimSpace(baseURL)
	parsedBase, err := url.Parse(base)
	if err != nil || !parsedBase.IsAbs() {
		return "", core.ValidationError(fmt.Sprintf("declarative: base url %q is not absolute", base),
			fieldError("baseUrl", "must be an absolute URL"))
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"), nil
}
