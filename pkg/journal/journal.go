// Package journal keeps an append-only SQLite record of curation
// sessions: one row per run plus one row per decision the curator
// made (accept, reject, undo, split, merge, save). The record answers
// "where did this bundle file come from" long after the session ended.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Actions recorded against a run.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
	ActionUndo   = "undo"
	ActionSplit  = "split"
	ActionMerge  = "merge"
	ActionSave   = "save"
)

// Run is one curation session against a fixed set of input files.
type Run struct {
	ID          string
	StartedAt   time.Time
	Prefix      string
	Sources     []string
	Streamlines int
}

// Decision is one recorded curation step. Threshold is NaN when the
// step had no clustering threshold in play.
type Decision struct {
	RunID       string
	Seq         int
	Action      string
	Bundle      string
	Streamlines int
	Threshold   float64
	CreatedAt   time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	started_at       TIMESTAMP NOT NULL,
	prefix           TEXT NOT NULL,
	source_files     TEXT NOT NULL,
	streamline_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	action      TEXT NOT NULL,
	bundle_name TEXT NOT NULL,
	streamlines INTEGER NOT NULL,
	threshold   REAL,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id, seq);
`

// Journal is a SQLite-backed decision log. A single process owns the
// file at a time; WAL mode keeps concurrent history queries cheap.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens (and if needed creates) the journal database at path.
// Pass ":memory:" for throwaway in-memory journals.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating journal directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging journal: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db, path: path}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// BeginRun registers a new curation run and returns its id.
func (j *Journal) BeginRun(ctx context.Context, prefix string, sources []string, streamlines int) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	encoded, err := json.Marshal(sources)
	if err != nil {
		return "", fmt.Errorf("encoding source files: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, prefix, source_files, streamline_count)
		 VALUES (?, ?, ?, ?, ?)`,
		id, now, prefix, string(encoded), streamlines,
	)
	if err != nil {
		return "", fmt.Errorf("registering run: %w", err)
	}
	return id, nil
}

// Record appends one decision to a run. Sequence numbers are assigned
// per run, starting at 1. NaN and infinite thresholds are stored as
// NULL since SQLite has no representation for them.
func (j *Journal) Record(ctx context.Context, runID, action, bundle string, streamlines int, threshold float64) error {
	var th sql.NullFloat64
	if !math.IsNaN(threshold) && !math.IsInf(threshold, 0) {
		th = sql.NullFloat64{Float64: threshold, Valid: true}
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO decisions (run_id, seq, action, bundle_name, streamlines, threshold, created_at)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM decisions WHERE run_id = ?), ?, ?, ?, ?, ?)`,
		runID, runID, action, bundle, streamlines, th, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording %s decision: %w", action, err)
	}
	return nil
}

// Runs lists runs newest first, up to limit (0 means all). Insertion
// order stands in for time so rapid back-to-back runs sort stably.
func (j *Journal) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, prefix, source_files, streamline_count
	          FROM runs ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var encoded string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Prefix, &encoded, &r.Streamlines); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &r.Sources); err != nil {
			return nil, fmt.Errorf("decoding source files for run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Decisions lists every decision of a run in sequence order.
func (j *Journal) Decisions(ctx context.Context, runID string) ([]Decision, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, seq, action, bundle_name, streamlines, threshold, created_at
		 FROM decisions WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var th sql.NullFloat64
		if err := rows.Scan(&d.RunID, &d.Seq, &d.Action, &d.Bundle, &d.Streamlines, &th, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		if th.Valid {
			d.Threshold = th.Float64
		} else {
			d.Threshold = math.NaN()
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
