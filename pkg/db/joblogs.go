package db

import (
	"context"
	"fmt"

	"github.com/dtnitsch/landing-ops/models"
)

// AddJobLog appends one operation record. An empty detail is stored as {}.
func (db *DB) AddJobLog(ctx context.Context, l models.JobLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = now()
	}
	if l.Detail == "" {
		l.Detail = "{}"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO job_logs (run_id, job_name, status, detail_json, elapsed_ms, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, l.RunID, l.JobName, l.Status, l.Detail, l.ElapsedMS, formatTime(l.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to insert job log: %w", err)
	}
	return nil
}

// ListJobLogs returns the newest limit logs of a run, newest first.
func (db *DB) ListJobLogs(ctx context.Context, runID int64, limit int) ([]models.JobLog, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	rows, err := db.QueryContext(ctx, `
		SELECT job_id, run_id, job_name, status, detail_json, elapsed_ms, ts
		FROM job_logs
		WHERE run_id = ?
		ORDER BY job_id DESC
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list job logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := []models.JobLog{}
	for rows.Next() {
		var (
			l  models.JobLog
			ts string
		)
		if err := rows.Scan(&l.ID, &l.RunID, &l.JobName, &l.Status, &l.Detail, &l.ElapsedMS, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan job log: %w", err)
		}
		l.Timestamp = parseTime(ts)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job logs: %w", err)
	}
	return logs, nil
}
