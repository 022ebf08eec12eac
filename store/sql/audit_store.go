package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-integrations/core"
)

// AuditStore appends audit entries. Metadata is redacted on write.
type AuditStore struct {
	db *bun.DB
}

func NewAuditStore(db *bun.DB) (*AuditStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &AuditStore{db: db}, nil
}

func (s *AuditStore) Append(ctx context.Context, entry core.AuditEntry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: audit store is not configured")
	}
	if strings.TrimSpace(entry.Action) == "" {
		return core.ValidationError("sqlstore: audit action is required")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Metadata = core.RedactSensitiveMap(entry.Metadata)
	_, err := s.db.NewInsert().Model(newAuditEntryRecord(entry)).Exec(ctx)
	return err
}

// ListByResource returns the entries of one resource in write order.
func (s *AuditStore) ListByResource(ctx context.Context, resourceType, resourceID string) ([]core.AuditEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: audit store is not configured")
	}
	var records []*auditEntryRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.resource_type = ?", strings.TrimSpace(resourceType)).
		Where("?TableAlias.resource_id = ?", strings.TrimSpace(resourceID)).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.AuditEntry, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
