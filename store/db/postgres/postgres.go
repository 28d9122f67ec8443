// Package postgres implements store.Driver against PostgreSQL with
// pgvector for KnowledgeEntry semantic search.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/conversagent/core/internal/profile"
	"github.com/conversagent/core/store"
)

// DB is the postgres-backed store.Driver implementation.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

var _ store.Driver = (*DB)(nil)

// NewDB opens a connection pool against profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqlDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)

	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	return &DB{db: sqlDB, profile: profile}, nil
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
		"SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'tenant')",
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// placeholder returns a "$n" bind parameter for position n (1-indexed).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns a comma-joined "$1, $2, ... $n" list.
func placeholders(n int) string {
	s := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			s += ", "
		}
		s += placeholder(i)
	}
	return s
}
