package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds every bun-backed store over one database handle.
type RepositoryFactory struct {
	db *bun.DB

	integrationStore  *IntegrationStore
	customConfigStore *CustomConfigStore
	syncJobStore      *SyncJobStore
	evidenceStore     *EvidenceStore
	auditStore        *AuditStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.integrationStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) IntegrationStore() *IntegrationStore {
	if f == nil {
		return nil
	}
	return f.integrationStore
}

func (f *RepositoryFactory) CustomConfigStore() *CustomConfigStore {
	if f == nil {
		return nil
	}
	return f.customConfigStore
}

func (f *RepositoryFactory) SyncJobStore() *SyncJobStore {
	if f == nil {
		return nil
	}
	return f.syncJobStore
}

func (f *RepositoryFactory) EvidenceStore() *EvidenceStore {
	if f == nil {
		return nil
	}
	return f.evidenceStore
}

func (f *RepositoryFactory) AuditStore() *AuditStore {
	if f == nil {
		return nil
	}
	return f.auditStore
}

func (f *RepositoryFactory) initStores() error {
	integrationStore, err := NewIntegrationStore(f.db)
	if err != nil {
		return err
	}
	customConfigStore, err := NewCustomConfigStore(f.db)
	if err != nil {
		return err
	}
	syncJobStore, err := NewSyncJobStore(f.db)
	if err != nil {
		return err
	}
	evidenceStore, err := NewEvidenceStore(f.db)
	if err != nil {
		return err
	}
	auditStore, err := NewAuditStore(f.db)
	if err != nil {
		return err
	}

	f.integrationStore = integrationStore
	f.customConfigStore = customConfigStore
	f.syncJobStore = syncJobStore
	f.evidenceStore = evidenceStore
	f.auditStore = auditStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
