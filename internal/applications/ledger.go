// Package applications records musicians' applications to events.
package applications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"musomatch/backend/internal/models"

	"github.com/google/uuid"
)

// Store is the persistence surface the ledger needs.
type Store interface {
	// GetNotification returns ErrNotFound when the pair has no notification.
	GetNotification(ctx context.Context, eventID, userID uuid.UUID) (models.Notification, error)
	GetEventByID(ctx context.Context, eventID uuid.UUID) (models.Event, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.UserProfile, error)

	// InsertApplication atomically inserts the application and moves the
	// pair's notification from unread to applied. Reports false when the
	// application already existed.
	InsertApplication(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
}

type Ledger struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, logger: logger}
}

// Apply records userID's application to eventID. The insert is idempotent:
// a repeated attempt returns nil, so client retries are safe.
//
// An application requires a prior notification for the pair, and the
// event's instruments must still intersect the user's. Both checks defend
// against a bypassed UI; the notification check is the eligibility rule.
func (l *Ledger) Apply(ctx context.Context, eventID, userID uuid.UUID) error {
	if _, err := l.store.GetNotification(ctx, eventID, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("event %s user %s: %w", eventID, userID, models.ErrNotEligible)
		}
		return fmt.Errorf("notification lookup: %v: %w", err, models.ErrTransient)
	}

	event, err := l.store.GetEventByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("event lookup: %v: %w", err, models.ErrTransient)
	}
	user, err := l.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user lookup: %v: %w", err, models.ErrTransient)
	}
	if !instrumentsOverlap(user.Instruments, event.InstrumentsNeeded) {
		return fmt.Errorf("no instrument overlap: %w", models.ErrNotEligible)
	}

	created, err := l.store.InsertApplication(ctx, eventID, userID)
	if err != nil {
		return fmt.Errorf("insert application: %v: %w", err, models.ErrTransient)
	}
	if !created {
		l.logger.Info("application_repeat", "event_id", eventID, "user_id", userID)
		return nil
	}
	l.logger.Info("application_created", "event_id", eventID, "user_id", userID)
	return nil
}

func instrumentsOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
