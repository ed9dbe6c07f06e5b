// Package store owns the embedded SQLite database: connection setup,
// per-module schema migrations, and the version fence that keeps an old
// binary away from a newer database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/HerbHall/wavesight/pkg/plugin"
	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

// ErrNewerSchema means the database on disk was written by a newer
// release than the running binary.
var ErrNewerSchema = errors.New("database requires a newer WaveSight release")

var _ plugin.Store = (*SQLite)(nil)

// Connection pragmas applied on open. modernc.org/sqlite ignores most
// DSN parameters, so these run as statements.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA cache_size=-20000",
}

// SQLite implements plugin.Store over a single database file. One write
// connection, WAL for concurrent readers.
type SQLite struct {
	db        *sql.DB
	migrateMu sync.Mutex
}

// New opens the database at path, creating it when absent.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %q: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return &SQLite{db: db}, nil
}

// DB implements plugin.Store.
func (s *SQLite) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Tx runs fn in a transaction, committing on nil and rolling back on
// error.
func (s *SQLite) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Migrate brings the named module's schema up to date. Applied versions
// are recorded in schema_migrations and skipped on the next run, so a
// module passes its full migration list on every start. Lists must be
// ordered by ascending Version.
func (s *SQLite) Migrate(ctx context.Context, module string, migrations []plugin.Migration) error {
	s.migrateMu.Lock()
	defer s.migrateMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			module      TEXT    NOT NULL,
			version     INTEGER NOT NULL,
			description TEXT    NOT NULL,
			applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (module, version)
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE module = ? AND version = ?`,
			module, m.Version,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("check %s/%d: %w", module, m.Version, err)
		}
		if n > 0 {
			continue
		}

		err = s.Tx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (module, version, description) VALUES (?, ?, ?)`,
				module, m.Version, m.Description,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s/%d (%s): %w", module, m.Version, m.Description, err)
		}
	}
	return nil
}

// CheckVersion fences the database against downgrades: a binary older
// than the release that last wrote the file refuses to open it. The
// version "dev" passes in either position.
func (s *SQLite) CheckVersion(ctx context.Context, current string) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_info (
			id          INTEGER  PRIMARY KEY CHECK (id = 1),
			app_version TEXT     NOT NULL,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("create schema_info: %w", err)
	}

	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT app_version FROM schema_info WHERE id = 1`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO schema_info (id, app_version, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)`,
			current)
		if err != nil {
			return fmt.Errorf("record app version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read app version: %w", err)
	}

	if stored != "dev" && current != "dev" && semver.Compare(vPrefixed(current), vPrefixed(stored)) < 0 {
		return fmt.Errorf("%w: database=%s binary=%s", ErrNewerSchema, stored, current)
	}
	if stored == current {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE schema_info SET app_version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
		current)
	if err != nil {
		return fmt.Errorf("update app version: %w", err)
	}
	return nil
}

// vPrefixed makes a bare version comparable with the semver package.
func vPrefixed(v string) string {
	if v != "" && v[0] != 'v' {
		return "v" + v
	}
	return v
}
