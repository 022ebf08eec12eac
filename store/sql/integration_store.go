package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-integrations/core"
)

type IntegrationStore struct {
	db   *bun.DB
	repo repository.Repository[*integrationRecord]
}

func NewIntegrationStore(db *bun.DB) (*IntegrationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*integrationRecord](db, recordHandlers(func() *integrationRecord {
		return &integrationRecord{}
	}))
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid integration repository wiring: %w", err)
		}
	}
	return &IntegrationStore{db: db, repo: repo}, nil
}

func (s *IntegrationStore) Create(ctx context.Context, in core.Integration) (core.Integration, error) {
	if s == nil || s.repo == nil {
		return core.Integration{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	in.ConnectorType = strings.TrimSpace(in.ConnectorType)
	if in.ConnectorType == "" {
		return core.Integration{}, core.ValidationError("sqlstore: connector type is required")
	}
	if strings.TrimSpace(in.ID) == "" {
		in.ID = uuid.NewString()
	}
	if in.Status == "" {
		in.Status = core.IntegrationStatusPendingSetup
	}
	if in.SyncFrequency == "" {
		in.SyncFrequency = core.SyncFrequencyManual
	}
	now := time.Now().UTC()
	in.CreatedAt = now
	in.UpdatedAt = now

	created, err := s.repo.Create(ctx, newIntegrationRecord(in))
	if err != nil {
		return core.Integration{}, err
	}
	return created.toDomain(), nil
}

func (s *IntegrationStore) Get(ctx context.Context, id string) (core.Integration, error) {
	if s == nil || s.db == nil {
		return core.Integration{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return core.Integration{}, err
	}
	return record.toDomain(), nil
}

// List returns the integrations of an organization, oldest first.
func (s *IntegrationStore) List(ctx context.Context, organizationID string) ([]core.Integration, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: integration store is not configured")
	}
	criteria := []repository.SelectCriteria{repository.OrderBy("created_at ASC")}
	if trimmed := strings.TrimSpace(organizationID); trimmed != "" {
		criteria = append(criteria, repository.SelectBy("organization_id", "=", trimmed))
	}
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	out := make([]core.Integration, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *IntegrationStore) UpdateConfig(
	ctx context.Context,
	id string,
	config map[string]any,
	status core.IntegrationStatus,
) (core.Integration, error) {
	if s == nil || s.db == nil {
		return core.Integration{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return core.Integration{}, err
	}
	record.Config = copyAnyMap(config)
	if status != "" {
		record.Status = string(status)
	}
	record.UpdatedAt = time.Now().UTC()

	if _, err := s.db.NewUpdate().
		Model(record).
		Column("config", "status", "updated_at").
		Where("id = ?", record.ID).
		Exec(ctx); err != nil {
		return core.Integration{}, err
	}
	return record.toDomain(), nil
}

// RecordSync applies the bookkeeping of one finished run. The evidence
// counter is incremented in place so concurrent runs do not lose updates.
func (s *IntegrationStore) RecordSync(ctx context.Context, id string, in core.SyncBookkeeping) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: integration store is not configured")
	}
	id = strings.TrimSpace(id)
	query := s.db.NewUpdate().
		Model((*integrationRecord)(nil)).
		Set("last_sync_at = ?", in.LastSyncAt.UTC()).
		Set("last_sync_status = ?", in.LastSyncStatus).
		Set("last_error = ?", in.LastError).
		Set("total_evidence_count = total_evidence_count + ?", in.EvidenceIncrease).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id)
	if in.Status != "" {
		query = query.Set("status = ?", string(in.Status))
	}
	result, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return notFound(core.ErrIntegrationNotFound, "integration_id", id)
	}
	return nil
}

func (s *IntegrationStore) load(ctx context.Context, id string) (*integrationRecord, error) {
	id = strings.TrimSpace(id)
	record := &integrationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(core.ErrIntegrationNotFound, "integration_id", id)
		}
		return nil, err
	}
	return record, nil
}

func notFound(sentinel error, key, id string) error {
	return core.MissingError(sentinel, sentinel.Error()+": "+id, map[string]any{key: id})
}
