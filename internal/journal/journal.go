// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal persists per-run migration history in a SQLite
// database so repeated runs against the same source can be compared.
// Journal failures warn and never abort a migration.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ledger-migrate/internal/extract"
	"github.com/pdiddy/ledger-migrate/internal/schema"
)

const dbFile = "migrate.db"

// Store manages the migration journal SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// NewStore opens or creates the journal database at dir/migrate.db,
// creating the schema if it does not exist.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			ledger TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL,
			classes INTEGER NOT NULL DEFAULT 0,
			records INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS classes (
			run_id TEXT NOT NULL REFERENCES runs(id),
			class TEXT NOT NULL,
			pages INTEGER NOT NULL,
			records INTEGER NOT NULL,
			spills INTEGER NOT NULL,
			PRIMARY KEY (run_id, class)
		)`,
		`CREATE TABLE IF NOT EXISTS conflicts (
			run_id TEXT NOT NULL REFERENCES runs(id),
			predicate_id INTEGER NOT NULL,
			class TEXT NOT NULL,
			property TEXT NOT NULL,
			winning TEXT NOT NULL,
			others TEXT NOT NULL,
			PRIMARY KEY (run_id, class, property)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_classes_run ON classes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conflicts_run ON conflicts(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Run is one journaled migration run.
type Run struct {
	ID         string `yaml:"id"`
	SourceURL  string `yaml:"source_url"`
	Ledger     string `yaml:"ledger"`
	StartedAt  string `yaml:"started_at"`
	FinishedAt string `yaml:"finished_at,omitempty"`
	Status     string `yaml:"status"`
	Classes    int    `yaml:"classes"`
	Records    int    `yaml:"records"`
}

// BeginRun records the start of a migration and returns its id.
func (s *Store) BeginRun(ctx context.Context, sourceURL, ledger string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_url, ledger, started_at, status) VALUES (?, ?, ?, ?, ?)`,
		id, sourceURL, ledger, time.Now().UTC().Format(time.RFC3339), "running",
	)
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// RecordClasses stores the per-class extraction counts for a run.
func (s *Store) RecordClasses(ctx context.Context, runID string, stats []extract.ClassStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO classes (run_id, class, pages, records, spills) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing class insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stats {
		if _, err := stmt.ExecContext(ctx, runID, st.Class, st.Pages, st.Records, st.Spills); err != nil {
			return fmt.Errorf("recording class %s: %w", st.Class, err)
		}
	}
	return tx.Commit()
}

// RecordConflicts stores the datatype conflicts detected during
// canonicalization.
func (s *Store) RecordConflicts(ctx context.Context, runID string, conflicts []schema.ConflictReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO conflicts (run_id, predicate_id, class, property, winning, others)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing conflict insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range conflicts {
		if _, err := stmt.ExecContext(ctx,
			runID, c.PredicateID, c.ClassIRI, c.PropertyIRI, c.Winning, strings.Join(c.Others, ","),
		); err != nil {
			return fmt.Errorf("recording conflict on %s: %w", c.PropertyIRI, err)
		}
	}
	return tx.Commit()
}

// FinishRun closes out a run with its final status and totals.
func (s *Store) FinishRun(ctx context.Context, runID, status string, classes, records int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, classes = ?, records = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), status, classes, records, runID,
	)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// GetRun returns one journaled run.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var finished sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_url, ledger, started_at, finished_at, status, classes, records
		 FROM runs WHERE id = ?`, runID,
	).Scan(&r.ID, &r.SourceURL, &r.Ledger, &r.StartedAt, &finished, &r.Status, &r.Classes, &r.Records)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	r.FinishedAt = finished.String
	return &r, nil
}
