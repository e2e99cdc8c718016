// Package sqlite implements the repository on an embedded SQLite database.
//
// The database file is opened in WAL mode with foreign keys enabled, so a
// user's job_title_id always references an existing job title row.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
)

// Schema is the DDL applied by Migrate
const Schema = `
CREATE TABLE IF NOT EXISTS job_titles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	intranet_name TEXT NOT NULL UNIQUE,
	company_department_id INTEGER,
	parent_job_title_id INTEGER REFERENCES job_titles(id)
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ad_id INTEGER UNIQUE,
	email TEXT,
	full_name TEXT NOT NULL,
	password TEXT,
	job_title_id INTEGER NOT NULL REFERENCES job_titles(id)
);

CREATE INDEX IF NOT EXISTS idx_users_job_title_id ON users(job_title_id);
`

// SQLite is a repository backed by a single SQLite database file
type SQLite struct {
	db   *sql.DB
	path string
}

var _ interfaces.Repository = &SQLite{}

// New opens (creating if needed) the database at path.
// The caller must call Close when done.
func New(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", path))
	}

	// Pragmas in the DSN are applied to every pooled connection
	dsn := "file:" + path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping sqlite database", goerr.V("path", path))
	}

	return &SQLite{db: db, path: path}, nil
}

// Migrate creates the schema if it does not exist. It is idempotent.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return goerr.Wrap(err, "failed to initialize sqlite schema", goerr.V("path", s.path))
	}
	return nil
}

func (s *SQLite) RunTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}

	if err := fn(ctx, &transaction{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			logging.From(ctx).Warn("failed to rollback transaction", "error", rbErr.Error())
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logging.Default().Warn("failed to checkpoint sqlite WAL", "error", err.Error())
	}
	if err := s.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close sqlite database", goerr.V("path", s.path))
	}
	s.db = nil
	return nil
}
