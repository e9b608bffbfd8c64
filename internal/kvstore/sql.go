package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLStore persists entries in the kv_entries table on PostgreSQL or SQLite.
type SQLStore struct {
	db *sqlx.DB
}

// Open connects to the database and verifies the connection. The schema is
// managed by the migration package and must be applied before use.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if driver == DriverSQLite {
		// An in-memory SQLite database exists per connection.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to enable WAL mode")
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return &SQLStore{db: db}, nil
}

// DB exposes the underlying handle for migrations.
func (s *SQLStore) DB() *sql.DB {
	return s.db.DB
}

func (s *SQLStore) DriverName() string {
	return s.db.DriverName()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind(`SELECT value FROM kv_entries WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read key %q", key)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	query := s.db.Rebind(`
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return errors.Wrapf(err, "failed to write key %q", key)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM kv_entries WHERE key = ?`), key); err != nil {
		return errors.Wrapf(err, "failed to remove key %q", key)
	}
	return nil
}
