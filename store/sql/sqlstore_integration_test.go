package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"

	"github.com/goliatone/go-integrations/core"
	integrationmigrations "github.com/goliatone/go-integrations/migrations"
	sqlstore "github.com/goliatone/go-integrations/store/sql"
)

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:integrations-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.Open(core.DatabaseConfig{Driver: sqlstore.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}

	ctx := context.Background()
	_, err = integrationmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != integrationmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, integrationmigrations.WithDialects(integrationmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func newFactory(t *testing.T) (*sqlstore.RepositoryFactory, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("new repository factory: %v", err)
	}
	return factory, cleanup
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"integrations", "custom_execution_configs", "integration_sync_jobs", "evidence", "integration_audit_logs"} {
		var name string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &name); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if name != table {
			t.Fatalf("expected %s table, got %q", table, name)
		}
	}
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := sqlstore.Open(core.DatabaseConfig{Driver: "mysql", DSN: "x"})
	if !core.HasTextCode(err, core.ErrorConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestIntegrationStore_RoundTripAndBookkeeping(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	store := factory.IntegrationStore()

	created, err := store.Create(ctx, core.Integration{
		OrganizationID: "org_1",
		ConnectorType:  "github",
		Name:           "GitHub",
		Config:         map[string]any{"organization": "acme"},
	})
	if err != nil {
		t.Fatalf("create integration: %v", err)
	}
	if created.ID == "" || created.Status != core.IntegrationStatusPendingSetup || created.SyncFrequency != core.SyncFrequencyManual {
		t.Fatalf("expected defaults applied, got %+v", created)
	}

	updated, err := store.UpdateConfig(ctx, created.ID, map[string]any{"organization": "acme", "token": "cipher"}, core.IntegrationStatusActive)
	if err != nil {
		t.Fatalf("update config: %v", err)
	}
	if updated.Status != core.IntegrationStatusActive || updated.Config["token"] != "cipher" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	syncedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, increase := range []int{2, 3} {
		if err := store.RecordSync(ctx, created.ID, core.SyncBookkeeping{
			LastSyncAt:       syncedAt,
			LastSyncStatus:   string(core.SyncJobStatusCompleted),
			Status:           core.IntegrationStatusActive,
			EvidenceIncrease: increase,
		}); err != nil {
			t.Fatalf("record sync: %v", err)
		}
	}

	loaded, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get integration: %v", err)
	}
	if loaded.TotalEvidenceCount != 5 {
		t.Fatalf("expected accumulated evidence count 5, got %d", loaded.TotalEvidenceCount)
	}
	if loaded.LastSyncAt == nil || !loaded.LastSyncAt.Equal(syncedAt) {
		t.Fatalf("expected last sync at %s, got %v", syncedAt, loaded.LastSyncAt)
	}
	if loaded.Config["token"] != "cipher" {
		t.Fatalf("expected stored config, got %v", loaded.Config)
	}

	listed, err := store.List(ctx, "org_1")
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one integration for org_1, got %d (%v)", len(listed), err)
	}
}

func TestIntegrationStore_MissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	_, err := factory.IntegrationStore().Get(ctx, "missing")
	if !errors.Is(err, core.ErrIntegrationNotFound) && !core.HasTextCode(err, core.ErrorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	err = factory.IntegrationStore().RecordSync(ctx, "missing", core.SyncBookkeeping{LastSyncAt: time.Now()})
	if !core.HasTextCode(err, core.ErrorNotFound) {
		t.Fatalf("expected not found from record sync, got %v", err)
	}
}

func TestCustomConfigStore_UpsertKeepsIdentityAndTestOutcome(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	integration, err := factory.IntegrationStore().Create(ctx, core.Integration{OrganizationID: "org_1", ConnectorType: core.ConnectorTypeCustom, Name: "Custom"})
	if err != nil {
		t.Fatalf("create integration: %v", err)
	}
	configs := factory.CustomConfigStore()

	first, err := configs.Upsert(ctx, core.CustomExecutionConfig{
		IntegrationID: integration.ID,
		Mode:          core.AuthoringModeVisual,
		BaseURL:       "https://api.example.com",
		Endpoints: []core.EndpointSpec{{
			Method:          "GET",
			Path:            "/users",
			ResponseMapping: &core.ResponseMapping{Title: "users[0].name"},
		}},
		AuthType:   core.AuthTypeBearer,
		AuthConfig: map[string]any{"token": "enc"},
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	testedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := configs.RecordTest(ctx, integration.ID, core.TestOutcome{Status: core.TestStatusFailed, Error: "HTTP 500", At: testedAt}); err != nil {
		t.Fatalf("record test: %v", err)
	}

	second, err := configs.Upsert(ctx, core.CustomExecutionConfig{
		IntegrationID: integration.ID,
		Mode:          core.AuthoringModeCode,
		Script:        "async function sync(ctx) { return { evidence: [] }; }",
		AuthType:      core.AuthTypeNone,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected id %s to survive upsert, got %s", first.ID, second.ID)
	}
	if second.Mode != core.AuthoringModeCode || len(second.Endpoints) != 0 {
		t.Fatalf("expected replaced config, got %+v", second)
	}
	if second.LastTestStatus != core.TestStatusFailed || second.LastTestError != "HTTP 500" {
		t.Fatalf("expected last test outcome kept, got %+v", second)
	}
	if second.LastTestAt == nil || !second.LastTestAt.Equal(testedAt) {
		t.Fatalf("expected last test at %s, got %v", testedAt, second.LastTestAt)
	}

	if first.Endpoints[0].ResponseMapping == nil || first.Endpoints[0].ResponseMapping.Title != "users[0].name" {
		t.Fatalf("expected endpoint mapping round trip, got %+v", first.Endpoints)
	}
}

func TestCustomConfigStore_MissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	if _, err := factory.CustomConfigStore().GetByIntegration(ctx, "missing"); !core.HasTextCode(err, core.ErrorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	err := factory.CustomConfigStore().RecordTest(ctx, "missing", core.TestOutcome{Status: core.TestStatusPassed, At: time.Now()})
	if !core.HasTextCode(err, core.ErrorNotFound) {
		t.Fatalf("expected not found from record test, got %v", err)
	}
}

func TestSyncJobStore_FinalizeOnceAndEvidence(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	integration, err := factory.IntegrationStore().Create(ctx, core.Integration{OrganizationID: "org_1", ConnectorType: "github", Name: "GitHub"})
	if err != nil {
		t.Fatalf("create integration: %v", err)
	}
	startedAt := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	job := core.SyncJob{
		IntegrationID:  integration.ID,
		OrganizationID: "org_1",
		ConnectorType:  "github",
		Trigger:        core.SyncTriggerManual,
		StartedAt:      startedAt,
	}
	if err := job.TransitionTo(core.SyncJobStatusRunning, startedAt); err != nil {
		t.Fatalf("transition: %v", err)
	}
	jobs := factory.SyncJobStore()
	created, err := jobs.Create(ctx, job)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	evidence := factory.EvidenceStore()
	for i, title := range []string{"Repositories", "Branch protection"} {
		if _, err := evidence.Create(ctx, core.Evidence{
			OrganizationID: "org_1",
			IntegrationID:  integration.ID,
			SyncJobID:      created.ID,
			Title:          title,
			Type:           "github_repositories",
			Source:         "github",
			BlobPath:       fmt.Sprintf("integrations/github/%s/1-%d.json", integration.ID, i),
			Metadata:       map[string]any{"repository_count": 3},
			CreatedAt:      startedAt.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("create evidence %d: %v", i, err)
		}
	}

	completedAt := startedAt.Add(time.Minute)
	if err := created.TransitionTo(core.SyncJobStatusCompleted, completedAt); err != nil {
		t.Fatalf("transition: %v", err)
	}
	created.ItemsProcessed = 2
	created.EvidenceCreated = 2
	created.Logs = []string{"listed 3 repositories"}
	finalized, err := jobs.Finalize(ctx, created)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if finalized.Status != core.SyncJobStatusCompleted || finalized.EvidenceCreated != 2 || len(finalized.Logs) != 1 {
		t.Fatalf("unexpected finalized job %+v", finalized)
	}
	if finalized.CompletedAt == nil || !finalized.CompletedAt.Equal(completedAt) {
		t.Fatalf("expected completed at %s, got %v", completedAt, finalized.CompletedAt)
	}

	created.Status = core.SyncJobStatusFailed
	created.Error = "late failure"
	if _, err := jobs.Finalize(ctx, created); !core.HasTextCode(err, core.ErrorValidation) {
		t.Fatalf("expected second finalize rejected, got %v", err)
	}
	reloaded, err := jobs.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if reloaded.Status != core.SyncJobStatusCompleted || reloaded.Error != "" {
		t.Fatalf("expected first terminal write to stick, got %+v", reloaded)
	}

	items, err := evidence.ListBySyncJob(ctx, created.ID)
	if err != nil {
		t.Fatalf("list evidence: %v", err)
	}
	if len(items) != 2 || items[0].Title != "Repositories" {
		t.Fatalf("unexpected evidence %+v", items)
	}
	if count, ok := items[0].Metadata["repository_count"].(float64); !ok || count != 3 {
		t.Fatalf("expected metadata round trip, got %v", items[0].Metadata)
	}

	history, err := jobs.ListByIntegration(ctx, integration.ID, 5)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one job in history, got %d (%v)", len(history), err)
	}
}

func TestSyncJobStore_FinalizeRequiresTerminalStatus(t *testing.T) {
	factory, cleanup := newFactory(t)
	defer cleanup()

	_, err := factory.SyncJobStore().Finalize(context.Background(), core.SyncJob{ID: "job_1", Status: core.SyncJobStatusRunning})
	if !core.HasTextCode(err, core.ErrorValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuditStore_RedactsMetadata(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	audit := factory.AuditStore()

	if err := audit.Append(ctx, core.AuditEntry{
		OrganizationID: "org_1",
		Action:         "integration.sync.failed",
		ResourceType:   "integration",
		ResourceID:     "int_1",
		ActorID:        "system",
		Metadata:       map[string]any{"error": "boom", "clientSecret": "s3cr3t"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := audit.ListByResource(ctx, "integration", "int_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Metadata["clientSecret"] != core.RedactedValue || entries[0].Metadata["error"] != "boom" {
		t.Fatalf("expected redacted metadata, got %v", entries[0].Metadata)
	}
}
