package applications

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"musomatch/backend/internal/models"

	"github.com/google/uuid"
)

type fakeStore struct {
	notifications map[string]models.Notification
	events        map[uuid.UUID]models.Event
	users         map[uuid.UUID]models.UserProfile
	applications  map[string]bool
	insertErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notifications: make(map[string]models.Notification),
		events:        make(map[uuid.UUID]models.Event),
		users:         make(map[uuid.UUID]models.UserProfile),
		applications:  make(map[string]bool),
	}
}

func pairKey(eventID, userID uuid.UUID) string {
	return eventID.String() + "/" + userID.String()
}

func (f *fakeStore) GetNotification(ctx context.Context, eventID, userID uuid.UUID) (models.Notification, error) {
	n, ok := f.notifications[pairKey(eventID, userID)]
	if !ok {
		return models.Notification{}, fmt.Errorf("missing: %w", models.ErrNotFound)
	}
	return n, nil
}

func (f *fakeStore) GetEventByID(ctx context.Context, eventID uuid.UUID) (models.Event, error) {
	e, ok := f.events[eventID]
	if !ok {
		return models.Event{}, fmt.Errorf("missing: %w", models.ErrNotFound)
	}
	return e, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	u, ok := f.users[userID]
	if !ok {
		return models.UserProfile{}, fmt.Errorf("missing: %w", models.ErrNotFound)
	}
	return u, nil
}

func (f *fakeStore) InsertApplication(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	key := pairKey(eventID, userID)
	if f.applications[key] {
		return false, nil
	}
	f.applications[key] = true
	return true, nil
}

func seed(store *fakeStore) (uuid.UUID, uuid.UUID) {
	eventID := uuid.New()
	userID := uuid.New()
	store.events[eventID] = models.Event{
		ID:                eventID,
		InstrumentsNeeded: []string{"guitar", "bass"},
		Status:            models.EventStatusMatched,
	}
	store.users[userID] = models.UserProfile{
		ID:          userID,
		Role:        models.RoleMusician,
		Instruments: []string{"guitar"},
	}
	store.notifications[pairKey(eventID, userID)] = models.Notification{
		EventID: eventID,
		UserID:  userID,
		Status:  models.NotificationUnread,
	}
	return eventID, userID
}

func TestApplyRecordsApplication(t *testing.T) {
	store := newFakeStore()
	eventID, userID := seed(store)

	if err := New(store, nil).Apply(context.Background(), eventID, userID); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !store.applications[pairKey(eventID, userID)] {
		t.Fatalf("application not recorded")
	}
}

// TestApplyRepeatIsNoOp verifies the second apply succeeds quietly instead
// of erroring, so client retries are safe.
func TestApplyRepeatIsNoOp(t *testing.T) {
	store := newFakeStore()
	eventID, userID := seed(store)
	ledger := New(store, nil)

	if err := ledger.Apply(context.Background(), eventID, userID); err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}
	if err := ledger.Apply(context.Background(), eventID, userID); err != nil {
		t.Fatalf("repeat Apply should be a no-op, got %v", err)
	}
}

func TestApplyWithoutNotificationIsNotEligible(t *testing.T) {
	store := newFakeStore()
	eventID, userID := seed(store)
	delete(store.notifications, pairKey(eventID, userID))

	err := New(store, nil).Apply(context.Background(), eventID, userID)
	if !errors.Is(err, models.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
	if store.applications[pairKey(eventID, userID)] {
		t.Fatalf("ineligible application must not be stored")
	}
}

func TestApplyWithoutOverlapIsNotEligible(t *testing.T) {
	store := newFakeStore()
	eventID, userID := seed(store)
	user := store.users[userID]
	user.Instruments = []string{"trombone"}
	store.users[userID] = user

	err := New(store, nil).Apply(context.Background(), eventID, userID)
	if !errors.Is(err, models.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
}

func TestApplyStoreFailureIsTransient(t *testing.T) {
	store := newFakeStore()
	eventID, userID := seed(store)
	store.insertErr = fmt.Errorf("connection lost")

	err := New(store, nil).Apply(context.Background(), eventID, userID)
	if !errors.Is(err, models.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}
