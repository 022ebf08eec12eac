package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-integrations/core"
)

type SyncJobStore struct {
	db   *bun.DB
	repo repository.Repository[*syncJobRecord]
}

func NewSyncJobStore(db *bun.DB) (*SyncJobStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*syncJobRecord](db, recordHandlers(func() *syncJobRecord {
		return &syncJobRecord{}
	}))
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid sync job repository wiring: %w", err)
		}
	}
	return &SyncJobStore{db: db, repo: repo}, nil
}

func (s *SyncJobStore) Create(ctx context.Context, job core.SyncJob) (core.SyncJob, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	job.IntegrationID = strings.TrimSpace(job.IntegrationID)
	if job.IntegrationID == "" {
		return core.SyncJob{}, core.ValidationError("sqlstore: integration id is required")
	}
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = core.SyncJobStatusRunning
	}
	record := newSyncJobRecord(job)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.SyncJob{}, err
	}
	return record.toDomain(), nil
}

func (s *SyncJobStore) Get(ctx context.Context, id string) (core.SyncJob, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	id = strings.TrimSpace(id)
	record := &syncJobRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SyncJob{}, notFound(core.ErrSyncJobNotFound, "job_id", id)
		}
		return core.SyncJob{}, err
	}
	return record.toDomain(), nil
}

// Finalize only moves a running job. A second terminal write is rejected.
func (s *SyncJobStore) Finalize(ctx context.Context, job core.SyncJob) (core.SyncJob, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	if !job.Status.Terminal() {
		return core.SyncJob{}, core.ValidationError("sqlstore: finalize requires a terminal status")
	}
	record := newSyncJobRecord(job)
	result, err := s.db.NewUpdate().
		Model(record).
		Column("status", "items_processed", "evidence_created", "logs", "error", "completed_at").
		Where("id = ?", record.ID).
		Where("status = ?", string(core.SyncJobStatusRunning)).
		Exec(ctx)
	if err != nil {
		return core.SyncJob{}, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		current, getErr := s.Get(ctx, record.ID)
		if getErr != nil {
			return core.SyncJob{}, getErr
		}
		return core.SyncJob{}, core.ValidationError(
			fmt.Sprintf("sqlstore: sync job %s is already %s", current.ID, current.Status),
		)
	}
	return s.Get(ctx, record.ID)
}

// ListByIntegration returns the most recent jobs of an integration first.
func (s *SyncJobStore) ListByIntegration(ctx context.Context, integrationID string, limit int) ([]core.SyncJob, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("integration_id", "=", strings.TrimSpace(integrationID)),
		repository.OrderBy("started_at DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.SyncJob, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
