// Package history logs runs and repair attempts to a local sqlite
// database for longitudinal queries, opt-in via config.
package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sqlite connection backing .quick-gate/history.db.
type DB struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  mode TEXT NOT NULL,
  status TEXT NOT NULL,
  finding_count INTEGER NOT NULL,
  started_at TEXT NOT NULL,
  duration_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS attempts (
  run_id TEXT NOT NULL REFERENCES runs(run_id),
  attempt_index INTEGER NOT NULL,
  before_count INTEGER NOT NULL,
  after_count INTEGER NOT NULL,
  improved INTEGER NOT NULL,
  worsened INTEGER NOT NULL,
  patch_lines INTEGER NOT NULL,
  PRIMARY KEY (run_id, attempt_index)
);
`

// Open opens or creates the database at path, applying pragmas for a
// single-writer-per-process access pattern.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Run is one row of the runs table.
type Run struct {
	RunID        string
	Mode         string
	Status       string
	FindingCount int
	StartedAt    string
	DurationMs   int64
}

// Attempt is one row of the attempts table.
type Attempt struct {
	RunID        string
	AttemptIndex int
	BeforeCount  int
	AfterCount   int
	Improved     bool
	Worsened     bool
	PatchLines   int
}

// LogRun inserts one runs row. Callers treat failures as best-effort.
func (d *DB) LogRun(r Run) error {
	_, err := d.conn.Exec(
		`INSERT INTO runs (run_id, mode, status, finding_count, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Mode, r.Status, r.FindingCount, r.StartedAt, r.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// EnsureRun inserts a runs row for runID if one doesn't already exist,
// so a standalone `repair` invocation (no prior `run` in the same
// history-enabled session) can still satisfy the attempts table's
// foreign key.
func (d *DB) EnsureRun(r Run) error {
	_, err := d.conn.Exec(
		`INSERT OR IGNORE INTO runs (run_id, mode, status, finding_count, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Mode, r.Status, r.FindingCount, r.StartedAt, r.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("ensure run: %w", err)
	}
	return nil
}

// LogAttempt inserts one attempts row.
func (d *DB) LogAttempt(a Attempt) error {
	_, err := d.conn.Exec(
		`INSERT INTO attempts (run_id, attempt_index, before_count, after_count, improved, worsened, patch_lines) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.AttemptIndex, a.BeforeCount, a.AfterCount, a.Improved, a.Worsened, a.PatchLines,
	)
	if err != nil {
		return fmt.Errorf("log attempt: %w", err)
	}
	return nil
}

// QueryRuns returns runs ordered by started_at, optionally filtered to
// those at or after since (RFC3339, empty means no filter) and capped
// at limit rows (0 means unlimited).
func (d *DB) QueryRuns(since string, limit int) ([]Run, error) {
	query := `SELECT run_id, mode, status, finding_count, started_at, duration_ms FROM runs`
	args := []interface{}{}
	if since != "" {
		query += ` WHERE started_at >= ?`
		args = append(args, since)
	}
	query += ` ORDER BY started_at ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Mode, &r.Status, &r.FindingCount, &r.StartedAt, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
