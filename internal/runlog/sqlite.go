package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS parsing_runs (
	parsing_run_id TEXT PRIMARY KEY,
	document_id    TEXT NOT NULL,
	scheme         TEXT NOT NULL,
	started_ts     TEXT NOT NULL,
	finished_ts    TEXT,
	status         TEXT NOT NULL,
	error_message  TEXT NOT NULL DEFAULT '',
	transactions   INTEGER NOT NULL DEFAULT 0
)`

// SQLiteRecorder keeps runs in a local SQLite file.
type SQLiteRecorder struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the run log at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenSQLite: create schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// Start inserts a RUNNING row and returns its id.
func (r *SQLiteRecorder) Start(ctx context.Context, documentID, scheme string) (string, error) {
	runID := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO parsing_runs (parsing_run_id, document_id, scheme, started_ts, status) VALUES (?, ?, ?, ?, ?)`,
		runID, documentID, scheme, formatTS(time.Now()), string(StatusRunning))
	if err != nil {
		return "", fmt.Errorf("SQLiteRecorder.Start: insert: %w", err)
	}
	return runID, nil
}

// Fail marks the run FAILED with a truncated error message.
func (r *SQLiteRecorder) Fail(ctx context.Context, runID string, runErr error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE parsing_runs SET status = ?, finished_ts = ?, error_message = ? WHERE parsing_run_id = ?`,
		string(StatusFailed), formatTS(time.Now()), errorMessage(runErr), runID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("parsing_run_id", runID).Msg("SQLiteRecorder.Fail: update")
	}
}

// Succeed marks the run SUCCESS with its transaction count.
func (r *SQLiteRecorder) Succeed(ctx context.Context, runID string, transactions int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE parsing_runs SET status = ?, finished_ts = ?, error_message = '', transactions = ? WHERE parsing_run_id = ?`,
		string(StatusSuccess), formatTS(time.Now()), transactions, runID)
	if err != nil {
		return fmt.Errorf("SQLiteRecorder.Succeed: update: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (r *SQLiteRecorder) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT parsing_run_id, document_id, scheme, started_ts, finished_ts, status, error_message, transactions
		FROM parsing_runs
		ORDER BY started_ts DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("SQLiteRecorder.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
			status   string
		)
		if err := rows.Scan(&run.ID, &run.DocumentID, &run.Scheme, &started, &finished, &status, &run.Error, &run.Transactions); err != nil {
			return nil, fmt.Errorf("SQLiteRecorder.ListRuns: scan: %w", err)
		}
		run.Status = Status(status)
		if run.StartedAt, err = parseTS(started); err != nil {
			return nil, fmt.Errorf("SQLiteRecorder.ListRuns: %w", err)
		}
		if finished.Valid {
			ts, err := parseTS(finished.String)
			if err != nil {
				return nil, fmt.Errorf("SQLiteRecorder.ListRuns: %w", err)
			}
			run.FinishedAt = &ts
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func formatTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

var _ Recorder = (*SQLiteRecorder)(nil)
var _ Lister = (*SQLiteRecorder)(nil)
