package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"drumtrack-service/internal/models"
)

// CreateAlertEvent inserts one scheduler decision into the audit table.
func (d *DB) CreateAlertEvent(ctx context.Context, ev models.AlertEvent) error {
	query := `
        INSERT INTO alert_events (
            id, drum_id, process_id, confirm_time, kind, deadline_ms,
            budget_seconds, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := d.Pool.Exec(ctx, query,
		ev.ID, ev.DrumID, ev.ProcessID, ev.ConfirmTime, ev.Kind,
		ev.DeadlineMs, ev.BudgetSeconds, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert event: %w", err)
	}
	return nil
}

// GetAlertEventsByDrum fetches the drum's alert history, newest first.
func (d *DB) GetAlertEventsByDrum(ctx context.Context, drumID string, limit, offset int) ([]models.AlertEvent, error) {
	query := `
        SELECT id, drum_id, process_id, confirm_time, kind, deadline_ms,
               budget_seconds, created_at
        FROM alert_events
        WHERE drum_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	rows, err := d.Pool.Query(ctx, query, drumID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert events for drum %s: %w", drumID, err)
	}
	defer rows.Close()

	var events []models.AlertEvent
	for rows.Next() {
		var ev models.AlertEvent
		var id pgtype.UUID
		err := rows.Scan(&id, &ev.DrumID, &ev.ProcessID, &ev.ConfirmTime,
			&ev.Kind, &ev.DeadlineMs, &ev.BudgetSeconds, &ev.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		ev.ID = id.Bytes
		events = append(events, ev)
	}
	return events, nil
}
