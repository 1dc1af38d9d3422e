// Package data persists evaluation results so score history can be queried
// later. sqlite is used for local files, postgres for postgres:// DSNs.
package data

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	migrationsDir = "sql/migrations"

	createSchemaVersionSQL = `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`
	selectSchemaVersionSQL = `SELECT COALESCE(MAX(version), 0) FROM schema_version`
	insertSchemaVersionSQL = `INSERT INTO schema_version (version) VALUES (?)`
)

var (
	//go:embed sql/migrations/*.sql
	f embed.FS

	// ErrNotInitialized is returned when a nil store is used.
	ErrNotInitialized = errors.New("database not initialized")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Store wraps a database handle and the placeholder dialect it needs.
type Store struct {
	db     *sql.DB
	driver string
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres
	}
	return driverSQLite
}

// GetDB opens the database for dsn without running migrations.
func GetDB(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database path or DSN not specified")
	}
	driver := driverFor(dsn)
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == driverSQLite {
		// sqlite allows a single writer
		conn.SetMaxOpenConns(1)
	}
	return &Store{db: conn, driver: driver}, nil
}

// Init opens the database for dsn and applies pending migrations.
func Init(ctx context.Context, dsn string) (*Store, error) {
	s, err := GetDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SchemaVersion returns the last applied migration number.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}
	var v int
	if err := s.db.QueryRowContext(ctx, selectSchemaVersionSQL).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// rebind converts ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type migration struct {
	version int
	name    string
}

func listMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(f, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	list := make([]migration, 0, len(entries))
	for _, e := range entries {
		num, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("invalid migration name: %s", e.Name())
		}
		v, err := strconv.Atoi(num)
		if err != nil {
			return nil, fmt.Errorf("invalid migration number %s: %w", e.Name(), err)
		}
		list = append(list, migration{version: v, name: e.Name()})
	}
	slices.SortFunc(list, func(a, b migration) int { return a.version - b.version })
	return list, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSchemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	list, err := listMigrations()
	if err != nil {
		return err
	}

	for _, m := range list {
		if m.version <= current {
			continue
		}

		b, err := f.ReadFile(path.Join(migrationsDir, m.name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", m.name, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration tx: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(insertSchemaVersionSQL), m.version); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
		}
		slog.Debug("applied migration", "name", m.name)
	}

	return nil
}

func rollbackTransaction(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("error rolling back transaction", "error", err)
	}
}
