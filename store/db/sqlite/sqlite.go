// Package sqlite implements store.Driver against an embedded SQLite
// database for development and single-tenant client deployments.
// Semantic knowledge search falls back to an in-process cosine scan since
// modernc.org/sqlite carries no vector extension.
package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/pkg/errors"

	"github.com/conversagent/core/internal/profile"
	"github.com/conversagent/core/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

var _ store.Driver = (*DB)(nil)

// NewDB opens profile.DSN as a SQLite file. WAL journaling and a single
// connection avoid the writer-starvation that SQLite's file locking
// otherwise causes under concurrent access.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
	}
	for _, pragma := range pragmas {
		if _, err := sqliteDB.Exec(pragma); err != nil {
			return nil, errors.Wrapf(err, "failed to set pragma: %s", pragma)
		}
	}

	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name='tenant')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// placeholder returns sqlite's single positional bind parameter; n is
// accepted only to keep call sites symmetric with the postgres driver.
func placeholder(n int) string {
	return "?"
}

func placeholders(n int) string {
	s := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			s += ", "
		}
		s += "?"
	}
	return s
}

func join(parts []string, sep string) string {
	s := ""
	for i, p := range parts {
		if i > 0 {
			s += sep
		}
		s += p
	}
	return s
}
