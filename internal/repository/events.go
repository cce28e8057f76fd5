package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"musomatch/backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateEventWithJob inserts the event (status pending) and its match job in
// one transaction, so a stored event always has a dispatch queued.
func (r *Repository) CreateEventWithJob(ctx context.Context, event models.Event) (uuid.UUID, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	instruments := event.InstrumentsNeeded
	if instruments == nil {
		instruments = []string{}
	}
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO events (id, poster_id, event_type, postcode, lat, lng, ward, region, country, date, instruments_needed, budget_pence, extra_info, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'pending');`,
			event.ID, event.PosterID, event.EventType, event.Postcode,
			event.Location.Lat, event.Location.Lng,
			nullString(event.Location.Ward), nullString(event.Location.Region), nullString(event.Location.Country),
			event.Date, instruments, event.BudgetPence, nullString(event.ExtraInfo),
		)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
INSERT INTO match_jobs (event_id, run_at, status)
VALUES ($1, now(), 'pending');`, event.ID)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return event.ID, nil
}

func (r *Repository) GetEventByID(ctx context.Context, eventID uuid.UUID) (models.Event, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, poster_id, event_type, postcode, lat, lng, COALESCE(ward, ''), COALESCE(region, ''), COALESCE(country, ''),
	date, instruments_needed, budget_pence, COALESCE(extra_info, ''), status, created_at, updated_at
FROM events
WHERE id = $1;`, eventID)
	var e models.Event
	err := row.Scan(
		&e.ID, &e.PosterID, &e.EventType, &e.Postcode,
		&e.Location.Lat, &e.Location.Lng, &e.Location.Ward, &e.Location.Region, &e.Location.Country,
		&e.Date, &e.InstrumentsNeeded, &e.BudgetPence, &e.ExtraInfo, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Event{}, fmt.Errorf("event %s: %w", eventID, models.ErrNotFound)
	}
	return e, err
}

func (r *Repository) ListEventsByPoster(ctx context.Context, posterID uuid.UUID, limit, offset int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, poster_id, event_type, postcode, lat, lng, COALESCE(ward, ''), COALESCE(region, ''), COALESCE(country, ''),
	date, instruments_needed, budget_pence, COALESCE(extra_info, ''), status, created_at, updated_at
FROM events
WHERE poster_id = $1
ORDER BY date DESC
LIMIT $2 OFFSET $3;`, posterID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Event, 0)
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(
			&e.ID, &e.PosterID, &e.EventType, &e.Postcode,
			&e.Location.Lat, &e.Location.Lng, &e.Location.Ward, &e.Location.Region, &e.Location.Country,
			&e.Date, &e.InstrumentsNeeded, &e.BudgetPence, &e.ExtraInfo, &e.Status, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkEventMatched flips a pending event to matched. Reports false when the
// event was already matched or closed, which makes the transition safe to
// attempt from concurrent dispatchers.
func (r *Repository) MarkEventMatched(ctx context.Context, eventID uuid.UUID) (bool, error) {
	command, err := r.pool.Exec(ctx, `
UPDATE events
SET status = 'matched', updated_at = now()
WHERE id = $1 AND status = 'pending';`, eventID)
	if err != nil {
		return false, err
	}
	return command.RowsAffected() > 0, nil
}

// CloseEvent lets the poster close their own event. Closing is terminal and
// idempotent.
func (r *Repository) CloseEvent(ctx context.Context, eventID, posterID uuid.UUID) (bool, error) {
	command, err := r.pool.Exec(ctx, `
UPDATE events
SET status = 'closed', updated_at = now()
WHERE id = $1 AND poster_id = $2 AND status <> 'closed';`, eventID, posterID)
	if err != nil {
		return false, err
	}
	return command.RowsAffected() > 0, nil
}

// CloseExpiredEvents closes events whose date has passed. Used by the worker
// sweep.
func (r *Repository) CloseExpiredEvents(ctx context.Context, before time.Time) (int64, error) {
	command, err := r.pool.Exec(ctx, `
UPDATE events
SET status = 'closed', updated_at = now()
WHERE status <> 'closed' AND date < $1;`, before)
	if err != nil {
		return 0, err
	}
	return command.RowsAffected(), nil
}
