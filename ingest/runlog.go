// ABOUTME: SQLite run log for sync observability
// ABOUTME: One row per run: entity, mode, counts, status, timing
package ingest

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harperreed/hublake/models"
)

// RunLog records every sync run in a local SQLite database so `status` can
// answer "when did deals last land, and how much" without touching AWS.
type RunLog struct {
	db *sql.DB
}

func OpenRunLog(path string) (*RunLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		run_id TEXT PRIMARY KEY,
		entity TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		written INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		partitions INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_entity ON sync_runs(entity, started_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create run log schema: %w", err)
	}

	return &RunLog{db: db}, nil
}

func (l *RunLog) Close() error {
	return l.db.Close()
}

// Start registers a run in the running state.
func (l *RunLog) Start(runID string, entity models.EntityType, mode string, startedAt time.Time) error {
	_, err := l.db.Exec(
		`INSERT INTO sync_runs (run_id, entity, mode, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, string(entity), mode, models.RunStatusRunning, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// Finish closes out a run with its final status and counts. errMsg is empty
// for successful runs.
func (l *RunLog) Finish(runID, status string, res models.RunResult, errMsg string, finishedAt time.Time) error {
	_, err := l.db.Exec(
		`UPDATE sync_runs SET status = ?, written = ?, skipped = ?, partitions = ?, error = ?, finished_at = ? WHERE run_id = ?`,
		status, res.Written, res.Skipped, res.Partitions, nullable(errMsg), finishedAt.UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// RunRecord is one row of sync history.
type RunRecord struct {
	RunID      string
	Entity     string
	Mode       string
	Status     string
	Written    int
	Skipped    int
	Partitions int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Recent returns the latest runs, newest first, optionally filtered by
// entity.
func (l *RunLog) Recent(entity string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT run_id, entity, mode, status, written, skipped, partitions, COALESCE(error, ''), started_at, finished_at
		FROM sync_runs`
	args := []any{}
	if entity != "" {
		query += ` WHERE entity = ?`
		args = append(args, entity)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run log: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var finished sql.NullTime
		if err := rows.Scan(&r.RunID, &r.Entity, &r.Mode, &r.Status, &r.Written, &r.Skipped, &r.Partitions, &r.Error, &r.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
