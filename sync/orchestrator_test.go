package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/goliatone/go-integrations/auth"
	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/engine/declarative"
	"github.com/goliatone/go-integrations/engine/script"
	"github.com/goliatone/go-integrations/store/memory"
	"github.com/goliatone/go-integrations/transport"
)

type fixture struct {
	integrations *memory.IntegrationStore
	configs      *memory.CustomConfigStore
	jobs         *memory.SyncJobStore
	evidence     *memory.EvidenceStore
	blobs        *memory.BlobStore
	audit        *memory.AuditLog
	notifier     *recordingNotifier
	orchestrator *Orchestrator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		integrations: memory.NewIntegrationStore(),
		configs:      memory.NewCustomConfigStore(),
		jobs:         memory.NewSyncJobStore(),
		evidence:     memory.NewEvidenceStore(),
		blobs:        memory.NewBlobStore(),
		audit:        memory.NewAuditLog(),
		notifier:     &recordingNotifier{},
	}
	adapter := transport.NewRESTAdapter(nil)
	headers := auth.NewHeaderBuilder()
	base := []Option{
		WithDeclarativeEngine(declarative.NewRunner(adapter, headers)),
		WithScriptEngine(script.NewRunner(adapter, headers, script.WithTimeout(2*time.Second))),
		WithAuditLogger(f.audit),
		WithFailureNotifier(f.notifier),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000).UTC() }),
	}
	f.orchestrator = NewOrchestrator(f.integrations, f.configs, f.jobs, f.evidence, f.blobs, append(base, opts...)...)
	return f
}

func (f *fixture) customIntegration(t *testing.T, config core.CustomExecutionConfig) core.Integration {
	t.Helper()
	ctx := context.Background()
	integration, err := f.integrations.Create(ctx, core.Integration{
		OrganizationID: "org_1",
		ConnectorType:  core.ConnectorTypeCustom,
		Name:           "Custom HR",
	})
	if err != nil {
		t.Fatalf("create integration: %v", err)
	}
	config.IntegrationID = integration.ID
	if _, err := f.configs.Upsert(ctx, config); err != nil {
		t.Fatalf("upsert config: %v", err)
	}
	return integration
}

type recordingNotifier struct {
	mu      stdsync.Mutex
	notices []core.SyncFailureNotice
}

func (n *recordingNotifier) NotifySyncFailure(_ context.Context, notice core.SyncFailureNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

type stubConnector struct {
	connectorType string
	result        core.SyncResult
	err           error
	seen          core.ConnectorRequest
}

func (c *stubConnector) Type() string { return c.connectorType }

func (c *stubConnector) Sync(_ context.Context, req core.ConnectorRequest) (core.SyncResult, error) {
	c.seen = req
	return c.result, c.err
}

type prefixCipher struct{}

func (prefixCipher) EncryptConfig(config map[string]any) (map[string]any, error) { return config, nil }

func (prefixCipher) DecryptConfig(config map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range config {
		if text, ok := value.(string); ok {
			out[key] = strings.TrimPrefix(text, "enc:")
			continue
		}
		out[key] = value
	}
	return out
}

func (prefixCipher) MaskConfig(config map[string]any) map[string]any { return config }

type failingBlobStore struct {
	inner   *memory.BlobStore
	failFor string
}

func (s *failingBlobStore) Put(ctx context.Context, path string, contentType string, data []byte) (core.BlobObject, error) {
	if strings.Contains(string(data), s.failFor) {
		return core.BlobObject{}, errors.New("disk full")
	}
	return s.inner.Put(ctx, path, contentType, data)
}

func TestExecuteSync_VisualModeMapsTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("expected decrypted bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	f := newFixture(t, WithCipher(prefixCipher{}))
	integration := f.customIntegration(t, core.CustomExecutionConfig{
		Mode:       core.AuthoringModeVisual,
		BaseURL:    server.URL,
		AuthType:   core.AuthTypeBearer,
		AuthConfig: map[string]any{"token": "enc:secret-token"},
		Endpoints: []core.EndpointSpec{{
			Method:          http.MethodGet,
			Path:            "/health",
			ResponseMapping: &core.ResponseMapping{Title: "status"},
		}},
	})

	outcome, err := f.orchestrator.ExecuteSync(context.Background(), SyncRequest{IntegrationID: integration.ID, ActorID: "user_1"})
	if err != nil {
		t.Fatalf("execute sync: %v", err)
	}
	if !outcome.Success || outcome.EvidenceCreated != 1 {
		t.Fatalf("expected one evidence item, got %+v", outcome)
	}
	records, _ := f.evidence.ListBySyncJob(context.Background(), outcome.JobID)
	if len(records) != 1 || !strings.Contains(records[0].Title, "ok") {
		t.Fatalf("expected evidence title containing ok, got %+v", records)
	}
	if records[0].Source != core.ConnectorTypeCustom || records[0].OrganizationID != "org_1" {
		t.Fatalf("unexpected evidence attribution %+v", records[0])
	}

	wantPath := "integrations/custom/" + integration.ID + "/1700000000000.json"
	if records[0].BlobPath != wantPath {
		t.Fatalf("expected blob path %q, got %q", wantPath, records[0].BlobPath)
	}
	payload, ok := f.blobs.Get(wantPath)
	if !ok {
		t.Fatalf("expected blob at %q", wantPath)
	}
	var item core.EvidenceItem
	if err := json.Unmarshal(payload, &item); err != nil {
		t.Fatalf("decode blob: %v", err)
	}
	if item.Title != "ok" {
		t.Fatalf("expected blob payload title ok, got %q", item.Title)
	}

	job, _ := f.jobs.Get(context.Background(), outcome.JobID)
	if job.Status != core.SyncJobStatusCompleted || job.CompletedAt == nil || job.EvidenceCreated != 1 {
		t.Fatalf("expected completed job, got %+v", job)
	}
	stored, _ := f.integrations.Get(context.Background(), integration.ID)
	if stored.Status != core.IntegrationStatusActive || stored.TotalEvidenceCount != 1 || stored.LastSyncAt == nil {
		t.Fatalf("expected bookkeeping to be updated, got %+v", stored)
	}
	entries := f.audit.Entries()
	if len(entries) != 1 || entries[0].Action != AuditActionSyncCompleted || entries[0].ActorID != "user_1" {
		t.Fatalf("expected completed audit entry, got %+v", entries)
	}
	if f.notifier.count() != 0 {
		t.Fatalf("expected no failure notification")
	}
}

func TestExecuteSync_ThrowingScriptFailsJob(t *testing.T) {
	f := newFixture(t)
	integration := f.customIntegration(t, core.CustomExecutionConfig{
		Mode:   core.AuthoringModeCode,
		Script: `async function sync(context) { throw new Error("boom"); return { evidence: [] }; }`,
	})

	outcome, err := f.orchestrator.ExecuteSync(context.Background(), SyncRequest{IntegrationID: integration.ID})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if outcome.Success || outcome.EvidenceCreated != 0 {
		t.Fatalf("expected failed outcome with no evidence, got %+v", outcome)
	}
	if len(outcome.Errors) != 1 || outcome.Errors[0] != "boom" {
		t.Fatalf("expected errors [boom], got %#v", outcome.Errors)
	}

	job, _ := f.jobs.Get(context.Background(), outcome.JobID)
	if job.Status != core.SyncJobStatusFailed || job.Error != "boom" {
		t.Fatalf("expected failed job with error text, got status=%q error=%q", job.Status, job.Error)
	}
	stored, _ := f.integrations.Get(context.Background(), integration.ID)
	if stored.Status != core.IntegrationStatusError || stored.LastError != "boom" {
		t.Fatalf("expected integration in error state, got %+v", stored)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("expected one failure notification, got %d", f.notifier.count())
	}
	if f.notifier.notices[0].JobID != outcome.JobID || f.notifier.notices[0].Error != "boom" {
		t.Fatalf("unexpected notice %+v", f.notifier.notices[0])
	}
	entries := f.audit.Entries()
	if len(entries) != 1 || entries[0].Action != AuditActionSyncFailed {
		t.Fatalf("expected failed audit entry, got %+v", entries)
	}
}

func TestExecuteSync_MissingIntegrationCreatesNoJob(t *testing.T) {
	f := newFixture(t)
	outcome, err := f.orchestrator.ExecuteSync(context.Background(), SyncRequest{IntegrationID: "missing"})
	if !core.HasTextCode(err, core.ErrorConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if outcome.Success || outcome.JobID != "" {
		t.Fatalf("expected failed outcome without job, got %+v", outcome)
	}
	if jobs := f.jobs.List(""); len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}

func TestExecuteSync_MissingCustomConfigFailsJob(t *testing.T) {
	f := newFixture(t)
	integration, _ := f.integrations.Create(context.Background(), core.Integration{ConnectorType: core.ConnectorTypeCustom})

	outcome, err := f.orchestrator.ExecuteSync(context.Background(), SyncRequest{IntegrationID: integration.ID})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	job, _ := f.jobs.Get(context.Background(), outcome.JobID)
	if outcome.Success || job.Status != core.SyncJobStatusFailed {
		t.Fatalf("expected failed job, got outcome=%+v job=%+v", outcome, job)
	}
}

func TestExecuteSync_BuiltinConnectorWithIndexedBlobs(t *testing.T) {
	connector := &stubConnector{
		connectorType: "github",
		result: core.SyncResult{Evidence: []core.EvidenceItem{
			{Title: "Repositories", Data: map[string]any{"repositories": []any{map[string]any{"private": true}}}},
			{Title: "Teams", Data: map[string]any{"teams": []any{}}},
		}},
	}
	registry := core.NewConnectorCatalog()
	if err := registry.Register(connector); err != nil {
		t.Fatalf("register: %v", err)
	}
	f := newFixture(t, WithConnectors(registry), WithCipher(prefixCipher{}), WithBlobPrefix("/evidence/"))
	integration, _ := f.integrations.Create(context.Background(), core.Integration{
		ConnectorType: "github",
		Config:        map[string]any{"token": "enc:ghp_x", "organization": "acme"},
	})

	outcome, err := f.orchestrator.ExecuteSync(context.Background(), SyncRequest{IntegrationID: integration.ID, Trigger: core.SyncTriggerScheduled})
	if err != nil {
		t.Fatalf("execute sync: %v", err)
	}
	if !outcome.Success || outcome.EvidenceCreated != 2 {
		t.Fatalf("expected two evidence items, got %+v", outcome)
	}
	config, ok := connector.seen.Config.(core.GitHubConnectorConfig)
	if !ok {
		t.Fatalf("expected typed github config, got %T", connector.seen.Config)
	}
	if config.Token != "ghp_x" {
		t.Fatalf("expected decrypted token, got %q", config.Token)
	}
	paths := f.blobs.Paths()
	want := []string{
		"evidence/github/" + integration.ID + "/1700000000000-0.json",
		"evidence/github/" + integration.ID + "/1700000000000-1.json",
	}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("expected paths %v, got %v", want, paths)
	}
	records, _ := f.evidence.ListBySyncJob(context.Background(), outcome.JobID)
	if records[0].Metadata["repository_count"] != 1 {
		t.Fatalf("expected github summarizer metadata, got %+v", records[0].Metadata)
	}
	job, _ := f.jobs.Get(context.Background(), outcome.JobID)
	if job.Trigger != core.SyncTriggerScheduled {
		t.Fatalf("expected scheduled trigger, got %q", job.Trigger)
	}
}

func TestExecuteSync_UnregisteredConnectorFails(t *testing.T) {
	f := newFixture(t)
	integration, _ := f.integrations.Create(context.Background(), core.Integration{ConnectorType: "okta"})
	outcome, err := f.orchestrator.ExecuteSync(context.Background(), SyncRequest{IntegrationID: integration.ID})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if outcome.Success || !strings.Contains(outcome.Message, "no connector registered") {
		t.Fatalf("expected unregistered connector failure, got %+v", outcome)
	}
}

func TestExecuteSync_FailedItemWriteIsRecorded(t *testing.T) {
	connector := &stubConnector{
		connectorType: "scanner",
		result: core.SyncResult{Evidence: []core.EvidenceItem{
			{Title: "Findings A", Data: "ok"},
			{Title: "Findings B", Data: "poison"},
			{Title: "Findings C", Data: "ok"},
		}},
	}
	registry := core.NewConnectorCatalog()
	_ = registry.Register(connector)
	f := newFixture(t, WithConnectors(registry))
	f.orchestrator.Blobs = &failingBlobStore{inner: f.blobs, failFor: "poison"}
	integration, _ := f.integrations.Create(context.Background(), core.Integration{ConnectorType: "scanner"})

	outcome, err := f.orchestrator.ExecuteSync(context.Background(), SyncRequest{IntegrationID: integration.ID})
	if err != nil {
		t.Fatalf("execute sync: %v", err)
	}
	if !outcome.Success || outcome.EvidenceCreated != 2 {
		t.Fatalf("expected two persisted items, got %+v", outcome)
	}
	if len(outcome.Errors) != 1 || !strings.Contains(outcome.Errors[0], "Findings B") {
		t.Fatalf("expected the failed item in errors, got %#v", outcome.Errors)
	}
	job, _ := f.jobs.Get(context.Background(), outcome.JobID)
	if job.ItemsProcessed != 3 || job.EvidenceCreated != 2 {
		t.Fatalf("unexpected job counters %+v", job)
	}
}

func TestExecuteSync_CancelledContextCancelsJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := newFixture(t)
	integration := f.customIntegration(t, core.CustomExecutionConfig{
		Mode:      core.AuthoringModeVisual,
		BaseURL:   server.URL,
		Endpoints: []core.EndpointSpec{{Method: http.MethodGet, Path: "/a"}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := f.orchestrator.ExecuteSync(ctx, SyncRequest{IntegrationID: integration.ID})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	job, getErr := f.jobs.Get(context.Background(), outcome.JobID)
	if getErr != nil {
		t.Fatalf("get job: %v", getErr)
	}
	if job.Status != core.SyncJobStatusCancelled {
		t.Fatalf("expected cancelled job, got %q", job.Status)
	}
	if outcome.Success || f.evidence.Len() != 0 {
		t.Fatalf("expected no evidence on cancellation, got %+v", outcome)
	}
	entries := f.audit.Entries()
	if len(entries) != 1 || entries[0].Action != AuditActionSyncCancelled {
		t.Fatalf("expected cancelled audit entry, got %+v", entries)
	}
	if f.notifier.count() != 0 {
		t.Fatalf("expected no failure notification on cancellation")
	}
}

func TestTestEndpoint_RecordsOutcomeWithoutJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"users":[1,2]}`))
	}))
	defer server.Close()

	f := newFixture(t)
	integration := f.customIntegration(t, core.CustomExecutionConfig{
		Mode:    core.AuthoringModeVisual,
		BaseURL: server.URL,
		Endpoints: []core.EndpointSpec{
			{Method: http.MethodGet, Path: "/users"},
			{Method: http.MethodGet, Path: "/missing"},
		},
	})

	result, err := f.orchestrator.TestEndpoint(context.Background(), integration.ID, 0)
	if err != nil {
		t.Fatalf("test endpoint: %v", err)
	}
	if !result.Success || result.StatusCode != http.StatusOK {
		t.Fatalf("expected success, got %+v", result)
	}
	config, _ := f.configs.GetByIntegration(context.Background(), integration.ID)
	if config.LastTestStatus != core.TestStatusPassed {
		t.Fatalf("expected passed test status, got %q", config.LastTestStatus)
	}

	result, err = f.orchestrator.TestEndpoint(context.Background(), integration.ID, 1)
	if err != nil {
		t.Fatalf("test endpoint: %v", err)
	}
	if result.Success || result.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 result, got %+v", result)
	}
	config, _ = f.configs.GetByIntegration(context.Background(), integration.ID)
	if config.LastTestStatus != core.TestStatusFailed || config.LastTestError == "" {
		t.Fatalf("expected failed test status, got %+v", config)
	}
	if len(f.jobs.List("")) != 0 || f.evidence.Len() != 0 {
		t.Fatalf("expected no job and no evidence from endpoint tests")
	}
}

func TestTestEndpoint_RejectsBuiltinIntegration(t *testing.T) {
	f := newFixture(t)
	integration, _ := f.integrations.Create(context.Background(), core.Integration{ConnectorType: "aws"})
	if _, err := f.orchestrator.TestEndpoint(context.Background(), integration.ID, 0); !core.HasTextCode(err, core.ErrorConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTestSync_PreviewsWithoutPersisting(t *testing.T) {
	f := newFixture(t)
	integration := f.customIntegration(t, core.CustomExecutionConfig{
		Mode: core.AuthoringModeCode,
		Script: `async function sync(context) {
			context.log.info("previewing");
			return { evidence: [{ title: "Preview", description: "d", data: { n: 1 } }] };
		}`,
	})

	outcome, err := f.orchestrator.TestSync(context.Background(), integration.ID)
	if err != nil {
		t.Fatalf("test sync: %v", err)
	}
	if !outcome.Success || outcome.Data["itemCount"] != 1 {
		t.Fatalf("expected preview of one item, got %+v", outcome)
	}
	preview, ok := outcome.Data["preview"].([]core.EvidenceItem)
	if !ok || len(preview) != 1 || preview[0].Title != "Preview" {
		t.Fatalf("unexpected preview %#v", outcome.Data["preview"])
	}
	if outcome.JobID != "" || len(f.jobs.List("")) != 0 || f.evidence.Len() != 0 || len(f.blobs.Paths()) != 0 {
		t.Fatalf("expected dry run to persist nothing")
	}
	config, _ := f.configs.GetByIntegration(context.Background(), integration.ID)
	if config.LastTestStatus != core.TestStatusPassed {
		t.Fatalf("expected passed test status, got %q", config.LastTestStatus)
	}
}

func TestTestSync_FailureRecordsTestError(t *testing.T) {
	f := newFixture(t)
	integration := f.customIntegration(t, core.CustomExecutionConfig{
		Mode:   core.AuthoringModeCode,
		Script: `async function sync(context) { throw new Error("nope"); return { evidence: [] }; }`,
	})

	outcome, err := f.orchestrator.TestSync(context.Background(), integration.ID)
	if err != nil {
		t.Fatalf("test sync: %v", err)
	}
	if outcome.Success || outcome.Message != "nope" {
		t.Fatalf("expected failed preview, got %+v", outcome)
	}
	config, _ := f.configs.GetByIntegration(context.Background(), integration.ID)
	if config.LastTestStatus != core.TestStatusFailed || config.LastTestError != "nope" {
		t.Fatalf("expected failed test outcome, got %+v", config)
	}
}

func TestValidateCode_UsesScriptValidator(t *testing.T) {
	f := newFixture(t)
	result := f.orchestrator.ValidateCode(`function sync(ctx) { return eval("1"); }`)
	if result.Valid {
		t.Fatalf("expected eval to be rejected")
	}
	found := false
	for _, message := range result.Errors {
		if strings.Contains(message, "eval") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected eval error, got %#v", result.Errors)
	}
}

func TestBlobPath(t *testing.T) {
	cases := []struct {
		prefix string
		index  int
		total  int
		want   string
	}{
		{prefix: "integrations", index: 0, total: 1, want: "integrations/aws/int_1/42.json"},
		{prefix: "integrations", index: 2, total: 3, want: "integrations/aws/int_1/42-2.json"},
		{prefix: "", index: 0, total: 0, want: "integrations/aws/int_1/42.json"},
		{prefix: "/custom/", index: 0, total: 1, want: "custom/aws/int_1/42.json"},
	}
	for _, tc := range cases {
		if got := BlobPath(tc.prefix, "aws", "int_1", 42, tc.index, tc.total); got != tc.want {
			t.Fatalf("BlobPath(%q, %d, %d) = %q, want %q", tc.prefix, tc.index, tc.total, got, tc.want)
		}
	}
}

func TestExecuteSync_RunsInSameMillisecondGetDistinctBlobPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	f := newFixture(t)
	integration := f.customIntegration(t, core.CustomExecutionConfig{
		Mode:     core.AuthoringModeVisual,
		BaseURL:  server.URL,
		AuthType: core.AuthTypeNone,
		Endpoints: []core.EndpointSpec{{
			Method:          http.MethodGet,
			Path:            "/health",
			ResponseMapping: &core.ResponseMapping{Title: "status"},
		}},
	})

	paths := map[string]bool{}
	for run := 0; run < 3; run++ {
		outcome, err := f.orchestrator.ExecuteSync(context.Background(), SyncRequest{IntegrationID: integration.ID})
		if err != nil || !outcome.Success {
			t.Fatalf("run %d: %+v %v", run, outcome, err)
		}
		records, _ := f.evidence.ListBySyncJob(context.Background(), outcome.JobID)
		if len(records) != 1 {
			t.Fatalf("run %d: expected one record, got %+v", run, records)
		}
		if paths[records[0].BlobPath] {
			t.Fatalf("run %d reused blob path %q", run, records[0].BlobPath)
		}
		paths[records[0].BlobPath] = true
		if _, ok := f.blobs.Get(records[0].BlobPath); !ok {
			t.Fatalf("run %d: missing blob %q", run, records[0].BlobPath)
		}
	}
	if !paths["integrations/custom/"+integration.ID+"/1700000000002.json"] {
		t.Fatalf("expected third run to move to the next millisecond, got %v", paths)
	}
}

func TestExecuteSync_DecryptsEndpointHeadersAndParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "hdr-secret" {
			t.Errorf("expected decrypted header, got %q", got)
		}
		if got := r.URL.Query().Get("access_token"); got != "param-secret" {
			t.Errorf("expected decrypted param, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	f := newFixture(t, WithCipher(prefixCipher{}))
	integration := f.customIntegration(t, core.CustomExecutionConfig{
		Mode:     core.AuthoringModeVisual,
		BaseURL:  server.URL,
		AuthType: core.AuthTypeNone,
		Endpoints: []core.EndpointSpec{{
			Method:          http.MethodGet,
			Path:            "/health",
			Headers:         map[string]string{"X-Api-Key": "enc:hdr-secret"},
			Params:          map[string]string{"access_token": "enc:param-secret"},
			ResponseMapping: &core.ResponseMapping{Title: "status"},
		}},
	})

	outcome, err := f.orchestrator.ExecuteSync(context.Background(), SyncRequest{IntegrationID: integration.ID})
	if err != nil || !outcome.Success {
		t.Fatalf("expected successful sync, got %+v %v", outcome, err)
	}
}
