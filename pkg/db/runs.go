package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// BeginRun opens a run record for a source with zeroed counters and no finish
// time. Returns the run id used by FinishRun.
func (db *DB) BeginRun(ctx context.Context, sourceID int64, platform string) (int64, error) {
	var runID int64
	err := db.withRetry(ctx, func() error {
		query := `
			INSERT INTO ingest_runs (source_id, platform, started_at, ok, fetched_count, inserted_count)
			VALUES (?, ?, CURRENT_TIMESTAMP, 0, 0, 0)
		`
		result, err := db.conn.ExecContext(ctx, query, sourceID, platform)
		if err != nil {
			return fmt.Errorf("insert ingest run: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get run id: %w", err)
		}
		runID = id
		return nil
	})
	return runID, err
}

// FinishRun finalizes a run exactly once. The finished_at guard makes a second
// finalize a no-op error instead of silently re-opening the record.
func (db *DB) FinishRun(ctx context.Context, runID int64, res RunResult) error {
	return db.withRetry(ctx, func() error {
		query := `
			UPDATE ingest_runs
			SET finished_at = CURRENT_TIMESTAMP,
			    ok = ?,
			    fetched_count = ?,
			    inserted_count = ?,
			    error_text = ?,
			    details = ?
			WHERE id = ? AND finished_at IS NULL
		`
		result, err := db.conn.ExecContext(ctx, query,
			res.OK, res.FetchedCount, res.InsertedCount, res.ErrorText, res.Details, runID)
		if err != nil {
			return fmt.Errorf("finish ingest run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("run %d not found or already finished", runID)
		}
		return nil
	})
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(ctx context.Context, id int64) (*IngestRun, error) {
	var run IngestRun
	err := db.conn.GetContext(ctx, &run, `SELECT * FROM ingest_runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run not found")
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// GetRecentRuns returns the most recent runs across all sources
func (db *DB) GetRecentRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []IngestRun
	query := `SELECT * FROM ingest_runs ORDER BY started_at DESC, id DESC LIMIT ?`
	if err := db.conn.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("get recent runs: %w", err)
	}
	return runs, nil
}

// CountUnfinishedRuns returns the number of runs never finalized, a begin
// without a matching finish is a defect
func (db *DB) CountUnfinishedRuns(ctx context.Context) (int, error) {
	var count int
	err := db.conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM ingest_runs WHERE finished_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("count unfinished runs: %w", err)
	}
	return count, nil
}
