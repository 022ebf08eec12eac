package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-integrations/core"
)

type EvidenceStore struct {
	db   *bun.DB
	repo repository.Repository[*evidenceRecord]
}

func NewEvidenceStore(db *bun.DB) (*EvidenceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*evidenceRecord](db, recordHandlers(func() *evidenceRecord {
		return &evidenceRecord{}
	}))
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid evidence repository wiring: %w", err)
		}
	}
	return &EvidenceStore{db: db, repo: repo}, nil
}

func (s *EvidenceStore) Create(ctx context.Context, in core.Evidence) (core.Evidence, error) {
	if s == nil || s.repo == nil {
		return core.Evidence{}, fmt.Errorf("sqlstore: evidence store is not configured")
	}
	if strings.TrimSpace(in.SyncJobID) == "" || strings.TrimSpace(in.BlobPath) == "" {
		return core.Evidence{}, core.ValidationError("sqlstore: evidence requires a sync job and blob path")
	}
	if strings.TrimSpace(in.ID) == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	created, err := s.repo.Create(ctx, newEvidenceRecord(in))
	if err != nil {
		return core.Evidence{}, err
	}
	return created.toDomain(), nil
}

func (s *EvidenceStore) ListBySyncJob(ctx context.Context, syncJobID string) ([]core.Evidence, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: evidence store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("sync_job_id", "=", strings.TrimSpace(syncJobID)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Evidence, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
