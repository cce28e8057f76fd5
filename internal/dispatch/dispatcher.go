// Package dispatch materializes match results as notification records.
//
// Idempotency is pushed to storage: the (event_id, user_id) uniqueness
// constraint makes repeated dispatch of the same event safe across
// concurrent process instances, with no in-process locking.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"musomatch/backend/internal/metrics"
	"musomatch/backend/internal/models"

	"github.com/google/uuid"
)

// NotificationStore persists notifications and event status transitions.
type NotificationStore interface {
	// InsertNotification reports false when the (event, user) pair already
	// has a notification. That is success, not an error.
	InsertNotification(ctx context.Context, n models.Notification) (bool, error)

	// MarkEventMatched flips pending to matched and reports whether this
	// call performed the transition. A second call is a no-op.
	MarkEventMatched(ctx context.Context, eventID uuid.UUID) (bool, error)
}

type Dispatcher struct {
	store  NotificationStore
	logger *slog.Logger
}

func New(store NotificationStore, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, logger: logger}
}

// Dispatch inserts one notification per match, in the matcher's order, and
// then advances the event to matched. Each insert is its own unit of work:
// a failure for one candidate never blocks or rolls back the others, so a
// crashed or partially failed dispatch can simply be re-run.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.Event, matches []models.MatchResult) (int, error) {
	created := 0
	failed := 0
	for _, match := range matches {
		inserted, err := d.store.InsertNotification(ctx, models.Notification{
			ID:            uuid.New(),
			EventID:       event.ID,
			UserID:        match.UserID,
			DistanceMiles: match.DistanceMiles,
			Status:        models.NotificationUnread,
		})
		if err != nil {
			failed++
			metrics.NotificationFailures.Inc()
			d.logger.Error("notification_insert_failed", "event_id", event.ID, "user_id", match.UserID, "error", err)
			continue
		}
		if inserted {
			created++
			metrics.NotificationsCreated.Inc()
		} else {
			metrics.NotificationConflicts.Inc()
		}
	}

	// The event still counts as matched on a partial batch: a partially
	// notified event is strictly better than an unmatched one.
	flipped, err := d.store.MarkEventMatched(ctx, event.ID)
	if err != nil {
		return created, fmt.Errorf("mark matched: %v: %w", err, models.ErrTransient)
	}

	d.logger.Info("dispatch_complete",
		"event_id", event.ID,
		"matches", len(matches),
		"created", created,
		"failed", failed,
		"status_flipped", flipped,
	)
	return created, nil
}
