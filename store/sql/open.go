package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-integrations/core"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type persistenceConfig struct {
	cfg core.DatabaseConfig
}

func (c persistenceConfig) GetDebug() bool                { return c.cfg.Debug }
func (c persistenceConfig) GetDriver() string             { return c.cfg.Driver }
func (c persistenceConfig) GetServer() string             { return c.cfg.DSN }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-integrations" }

// Open connects a persistence client for the configured driver. The caller
// registers migrations and owns Close.
func Open(cfg core.DatabaseConfig) (*persistence.Client, error) {
	cfg.Driver = strings.TrimSpace(cfg.Driver)
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, core.ConfigurationError("sqlstore: database dsn is required", map[string]any{"driver": cfg.Driver})
	}

	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, core.ConfigurationError(fmt.Sprintf("sqlstore: unsupported driver %q", cfg.Driver), nil)
	}

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}
	var client *persistence.Client
	if cfg.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		client, err = persistence.New(persistenceConfig{cfg: cfg}, sqlDB, sqlitedialect.New())
	} else {
		client, err = persistence.New(persistenceConfig{cfg: cfg}, sqlDB, pgdialect.New())
	}
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: persistence client: %w", err)
	}
	return client, nil
}
