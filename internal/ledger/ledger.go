// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records keyword runs in a SQLite database so past downloads
// can be reviewed with the history command.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pmc-harvester/pkg/types"
)

// DefaultFile is the ledger filename placed in the output directory.
const DefaultFile = "harvest.db"

// Run is one recorded keyword run.
type Run struct {
	ID         string              `json:"id" yaml:"id"`
	BatchID    string              `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	FinishedAt time.Time           `json:"finished_at" yaml:"finished_at"`
	ExitCode   int                 `json:"exit_code" yaml:"exit_code"`
	Stats      types.DownloadStats `json:"stats" yaml:"stats"`
}

// Store manages the run ledger database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path, creating parent directories and
// the schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
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
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			batch_id TEXT,
			keyword TEXT NOT NULL,
			total_found INTEGER NOT NULL,
			requested INTEGER NOT NULL,
			successful INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			unavailable INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			duration_seconds REAL NOT NULL,
			output_location TEXT,
			exit_code INTEGER NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_keyword ON runs(keyword)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_batch_id ON runs(batch_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// NewBatchID returns an identifier grouping the runs of one batch.
func NewBatchID() string {
	return uuid.NewString()
}

// Record stores stats as a new run and returns it. batchID may be empty for
// single-keyword invocations.
func (s *Store) Record(ctx context.Context, batchID string, stats types.DownloadStats) (Run, error) {
	run := Run{
		ID:         uuid.NewString(),
		BatchID:    batchID,
		FinishedAt: s.now().UTC(),
		ExitCode:   stats.ExitCode(),
		Stats:      stats,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, batch_id, keyword, total_found, requested, successful,
			skipped, unavailable, errors, duration_seconds, output_location, exit_code, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, nullString(batchID), stats.Keyword, stats.TotalFound, stats.Requested,
		stats.Successful, stats.Skipped, stats.Unavailable, stats.Errors,
		stats.DurationSeconds(), stats.OutputDir, run.ExitCode,
		run.FinishedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("recording run for %q: %w", stats.Keyword, err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	return s.query(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT ?`, limit)
}

// History returns up to limit runs for keyword, newest first.
func (s *Store) History(ctx context.Context, keyword string, limit int) ([]Run, error) {
	return s.query(ctx,
		`SELECT `+runColumns+` FROM runs WHERE keyword = ? ORDER BY seq DESC LIMIT ?`,
		keyword, limit)
}

// Batch returns every run recorded under batchID in insertion order.
func (s *Store) Batch(ctx context.Context, batchID string) ([]Run, error) {
	return s.query(ctx,
		`SELECT `+runColumns+` FROM runs WHERE batch_id = ? ORDER BY seq ASC LIMIT ?`,
		batchID, -1)
}

const runColumns = `id, batch_id, keyword, total_found, requested, successful, skipped,
	unavailable, errors, duration_seconds, output_location, exit_code, finished_at`

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Run, error) {
	if n := len(args); n > 0 {
		if limit, ok := args[n-1].(int); ok && limit == 0 {
			args[n-1] = -1
		}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			batchID  sql.NullString
			output   sql.NullString
			seconds  float64
			finished string
		)
		if err := rows.Scan(&r.ID, &batchID, &r.Stats.Keyword, &r.Stats.TotalFound,
			&r.Stats.Requested, &r.Stats.Successful, &r.Stats.Skipped,
			&r.Stats.Unavailable, &r.Stats.Errors, &seconds, &output,
			&r.ExitCode, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.BatchID = batchID.String
		r.Stats.OutputDir = output.String
		r.Stats.Duration = time.Duration(seconds * float64(time.Second))
		if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			r.FinishedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
