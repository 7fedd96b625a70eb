package db

import (
	"context"
	"fmt"

	"github.com/dtnitsch/landing-ops/models"
)

// AddEvent records an A/B event for an existing run.
func (db *DB) AddEvent(ctx context.Context, e models.Event) (models.Event, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}
	if _, err := db.GetRun(ctx, e.RunID); err != nil {
		return e, err
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO events (run_id, variant, event_name, ts)
		VALUES (?, ?, ?, ?)
	`, e.RunID, e.Variant, e.EventName, formatTime(e.Timestamp))
	if err != nil {
		return e, fmt.Errorf("failed to insert event: %w", err)
	}
	e.ID, err = result.LastInsertId()
	if err != nil {
		return e, fmt.Errorf("failed to get event ID: %w", err)
	}
	return e, nil
}

// ListEvents returns a run's events in insertion order.
func (db *DB) ListEvents(ctx context.Context, runID int64) ([]models.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT event_id, run_id, variant, event_name, ts
		FROM events
		WHERE run_id = ?
		ORDER BY event_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []models.Event{}
	for rows.Next() {
		var (
			e  models.Event
			ts string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Variant, &e.EventName, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = parseTime(ts)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// ResetEvents deletes a run's events and reports how many were removed.
func (db *DB) ResetEvents(ctx context.Context, runID int64) (int64, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, "DELETE FROM events WHERE run_id = ?", runID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset events: %w", err)
	}
	return n, nil
}
