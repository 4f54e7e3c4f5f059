// Package store persists guidelines, their converted markdown, and the
// rendered recommendations document in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a guideline id has no row.
var ErrNotFound = errors.New("guideline not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the SQLite database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS guidelines (
			guideline_id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			uploaded_at TEXT NOT NULL,
			guideline_name TEXT,
			pub_year TEXT,
			specialty TEXT,
			meta_extracted_at TEXT,
			recommendations_display_md TEXT,
			recommendations_display_updated_at TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_guidelines_sha256_uq ON guidelines(sha256);`,
		`CREATE INDEX IF NOT EXISTS idx_guidelines_uploaded_at ON guidelines(uploaded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_guidelines_pub_year ON guidelines(pub_year);`,
		`CREATE INDEX IF NOT EXISTS idx_guidelines_specialty ON guidelines(specialty);`,
		`CREATE TABLE IF NOT EXISTS guideline_layouts (
			guideline_id TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			markdown TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (guideline_id, sha256)
		);`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format("2006-01-02T15:04:05Z")
}
