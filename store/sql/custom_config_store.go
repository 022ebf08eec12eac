package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-integrations/core"
)

type CustomConfigStore struct {
	db *bun.DB
}

func NewCustomConfigStore(db *bun.DB) (*CustomConfigStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &CustomConfigStore{db: db}, nil
}

func (s *CustomConfigStore) GetByIntegration(ctx context.Context, integrationID string) (core.CustomExecutionConfig, error) {
	if s == nil || s.db == nil {
		return core.CustomExecutionConfig{}, fmt.Errorf("sqlstore: custom config store is not configured")
	}
	integrationID = strings.TrimSpace(integrationID)
	record := &customExecutionConfigRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.integration_id = ?", integrationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.CustomExecutionConfig{}, notFound(core.ErrCustomConfigNotFound, "integration_id", integrationID)
		}
		return core.CustomExecutionConfig{}, err
	}
	return record.toDomain(), nil
}

// Upsert writes the single config row of an integration. An existing row
// keeps its id, creation time and last test outcome.
func (s *CustomConfigStore) Upsert(ctx context.Context, in core.CustomExecutionConfig) (core.CustomExecutionConfig, error) {
	if s == nil || s.db == nil {
		return core.CustomExecutionConfig{}, fmt.Errorf("sqlstore: custom config store is not configured")
	}
	in.IntegrationID = strings.TrimSpace(in.IntegrationID)
	if in.IntegrationID == "" {
		return core.CustomExecutionConfig{}, core.ValidationError("sqlstore: integration id is required")
	}
	if strings.TrimSpace(in.ID) == "" {
		in.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	in.CreatedAt = now
	in.UpdatedAt = now

	_, err := s.db.NewInsert().
		Model(newCustomExecutionConfigRecord(in)).
		On("CONFLICT (integration_id) DO UPDATE").
		Set("mode = EXCLUDED.mode").
		Set("base_url = EXCLUDED.base_url").
		Set("endpoints = EXCLUDED.endpoints").
		Set("auth_type = EXCLUDED.auth_type").
		Set("auth_config = EXCLUDED.auth_config").
		Set("script = EXCLUDED.script").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return core.CustomExecutionConfig{}, err
	}
	return s.GetByIntegration(ctx, in.IntegrationID)
}

func (s *CustomConfigStore) RecordTest(ctx context.Context, integrationID string, outcome core.TestOutcome) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: custom config store is not configured")
	}
	integrationID = strings.TrimSpace(integrationID)
	result, err := s.db.NewUpdate().
		Model((*customExecutionConfigRecord)(nil)).
		Set("last_test_status = ?", string(outcome.Status)).
		Set("last_test_error = ?", outcome.Error).
		Set("last_test_at = ?", outcome.At.UTC()).
		Set("updated_at = ?", time.Now().UTC()).
		Where("integration_id = ?", integrationID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return notFound(core.ErrCustomConfigNotFound, "integration_id", integrationID)
	}
	return nil
}
