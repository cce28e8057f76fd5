package repository

import (
	"context"
	"errors"
	"fmt"

	"musomatch/backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertNotification is the idempotent fan-out insert. The unique
// (event_id, user_id) constraint absorbs concurrent and repeated dispatch:
// a conflict reports false and is not an error.
func (r *Repository) InsertNotification(ctx context.Context, n models.Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	command, err := r.pool.Exec(ctx, `
INSERT INTO event_notifications (id, event_id, user_id, distance_miles, status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (event_id, user_id) DO NOTHING;`,
		n.ID, n.EventID, n.UserID, n.DistanceMiles, n.Status)
	if err != nil {
		return false, err
	}
	return command.RowsAffected() > 0, nil
}

func (r *Repository) GetNotification(ctx context.Context, eventID, userID uuid.UUID) (models.Notification, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, event_id, user_id, distance_miles, status, created_at
FROM event_notifications
WHERE event_id = $1 AND user_id = $2;`, eventID, userID)
	var n models.Notification
	err := row.Scan(&n.ID, &n.EventID, &n.UserID, &n.DistanceMiles, &n.Status, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Notification{}, fmt.Errorf("notification for event %s user %s: %w", eventID, userID, models.ErrNotFound)
	}
	return n, err
}

func (r *Repository) ListNotificationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, event_id, user_id, distance_miles, status, created_at
FROM event_notifications
WHERE user_id = $1
ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.EventID, &n.UserID, &n.DistanceMiles, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// DismissNotification moves an unread notification to dismissed. Only the
// owner can dismiss, and applied notifications stay applied.
func (r *Repository) DismissNotification(ctx context.Context, notificationID, userID uuid.UUID) (bool, error) {
	command, err := r.pool.Exec(ctx, `
UPDATE event_notifications
SET status = 'dismissed'
WHERE id = $1 AND user_id = $2 AND status = 'unread';`, notificationID, userID)
	if err != nil {
		return false, err
	}
	return command.RowsAffected() > 0, nil
}
