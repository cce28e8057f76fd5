package repository

import (
	"context"

	"musomatch/backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertApplication inserts the application and flips the pair's
// notification from unread to applied in one transaction: there is never a
// state where an application exists but the notification still reads
// unread. Reports false when the application already existed.
func (r *Repository) InsertApplication(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	created := false
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		command, err := tx.Exec(ctx, `
INSERT INTO event_applications (event_id, user_id)
VALUES ($1, $2)
ON CONFLICT (event_id, user_id) DO NOTHING;`, eventID, userID)
		if err != nil {
			return err
		}
		if command.RowsAffected() == 0 {
			return nil
		}
		created = true
		_, err = tx.Exec(ctx, `
UPDATE event_notifications
SET status = 'applied'
WHERE event_id = $1 AND user_id = $2 AND status <> 'applied';`, eventID, userID)
		return err
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *Repository) ListApplicationsForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Application, error) {
	rows, err := r.pool.Query(ctx, `
SELECT event_id, user_id, created_at
FROM event_applications
WHERE event_id = $1
ORDER BY created_at ASC;`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Application, 0)
	for rows.Next() {
		var a models.Application
		if err := rows.Scan(&a.EventID, &a.UserID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
