// Package migrations exposes the embedded integrations schema per SQL
// dialect and registers it with a migration runner.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strings"

	integrations "github.com/goliatone/go-integrations"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	defaultSourceLabel = "go-integrations"
	baseDir            = "data/sql/migrations"
)

// Source is the migration directory for one dialect.
type Source struct {
	Dialect string
	Dir     string
	FS      fs.FS
}

type Registration struct {
	SourceLabel string
	Dialects    []string
	Sources     []Source
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithDialects restricts registration to the given dialects.
func WithDialects(dialects ...string) Option {
	return func(r *Registration) {
		var next []string
		for _, dialect := range dialects {
			if normalized := normalizeDialect(dialect); normalized != "" && !slices.Contains(next, normalized) {
				next = append(next, normalized)
			}
		}
		if len(next) > 0 {
			r.Dialects = next
		}
	}
}

// ForDriver maps a database/sql driver name to its migration dialect.
func ForDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("migrations: no schema for driver %q", driver)
	}
}

// Sources resolves the postgres and sqlite directories from root, which
// defaults to the embedded schema. Every dialect must ship at least one
// migration and every up file needs its down file.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = integrations.GetMigrationsFS()
	}
	base, err := fs.Sub(root, baseDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", baseDir, err)
	}
	sqlite, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite directory: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Dir: baseDir, FS: base},
		{Dialect: DialectSQLite, Dir: baseDir + "/sqlite", FS: sqlite},
	}
	for _, source := range sources {
		versions, err := Versions(source)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("migrations: %s directory %q has no *.up.sql files", source.Dialect, source.Dir)
		}
	}
	return sources, nil
}

// Versions lists the migration names of a source in apply order, with the
// .up.sql suffix removed.
func Versions(source Source) ([]string, error) {
	ups, err := fs.Glob(source.FS, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: glob %s: %w", source.Dir, err)
	}
	versions := make([]string, 0, len(ups))
	for _, up := range ups {
		version := strings.TrimSuffix(up, ".up.sql")
		if _, err := fs.Stat(source.FS, version+".down.sql"); err != nil {
			return nil, fmt.Errorf("migrations: %s/%s has no down migration", source.Dir, up)
		}
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions, nil
}

// Register hands each selected dialect's migrations to registerFn.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: defaultSourceLabel,
		Dialects:    []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	sources, err := Sources(nil)
	if err != nil {
		return reg, err
	}
	for _, source := range sources {
		if !slices.Contains(reg.Dialects, source.Dialect) {
			continue
		}
		if err := registerFn(ctx, source.Dialect, reg.SourceLabel, source.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", source.Dialect, source.Dir, err)
		}
		reg.Sources = append(reg.Sources, source)
	}
	if len(reg.Sources) == 0 {
		return reg, fmt.Errorf("migrations: no schema for dialects %v", reg.Dialects)
	}
	return reg, nil
}

func normalizeDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "":
		return ""
	case "sqlite", "sqlite3":
		return DialectSQLite
	case "postgres", "postgresql", "pgx":
		return DialectPostgres
	default:
		return strings.ToLower(strings.TrimSpace(dialect))
	}
}
