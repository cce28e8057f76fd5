package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"musomatch/backend/internal/models"

	"github.com/google/uuid"
)

type fakeStore struct {
	notifications map[string]bool
	failUsers     map[uuid.UUID]bool
	eventStatus   map[uuid.UUID]models.EventStatus
	markErr       error
	inserts       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notifications: make(map[string]bool),
		failUsers:     make(map[uuid.UUID]bool),
		eventStatus:   make(map[uuid.UUID]models.EventStatus),
	}
}

func (f *fakeStore) InsertNotification(ctx context.Context, n models.Notification) (bool, error) {
	f.inserts++
	if f.failUsers[n.UserID] {
		return false, fmt.Errorf("insert failed")
	}
	key := n.EventID.String() + "/" + n.UserID.String()
	if f.notifications[key] {
		return false, nil
	}
	f.notifications[key] = true
	return true, nil
}

func (f *fakeStore) MarkEventMatched(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	if f.eventStatus[eventID] != models.EventStatusPending {
		return false, nil
	}
	f.eventStatus[eventID] = models.EventStatusMatched
	return true, nil
}

func matchesFor(n int) []models.MatchResult {
	out := make([]models.MatchResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.MatchResult{UserID: uuid.New(), DistanceMiles: float64(i)})
	}
	return out
}

func TestDispatchCreatesNotificationsAndFlipsStatus(t *testing.T) {
	store := newFakeStore()
	event := models.Event{ID: uuid.New(), Status: models.EventStatusPending}
	store.eventStatus[event.ID] = models.EventStatusPending
	matches := matchesFor(3)

	created, err := New(store, nil).Dispatch(context.Background(), event, matches)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 created, got %d", created)
	}
	if store.eventStatus[event.ID] != models.EventStatusMatched {
		t.Fatalf("event status not flipped to matched")
	}
}

// TestDispatchIdempotent verifies a re-run creates nothing new and still
// succeeds.
func TestDispatchIdempotent(t *testing.T) {
	store := newFakeStore()
	event := models.Event{ID: uuid.New(), Status: models.EventStatusPending}
	store.eventStatus[event.ID] = models.EventStatusPending
	matches := matchesFor(3)
	d := New(store, nil)

	if _, err := d.Dispatch(context.Background(), event, matches); err != nil {
		t.Fatalf("first Dispatch failed: %v", err)
	}
	created, err := d.Dispatch(context.Background(), event, matches)
	if err != nil {
		t.Fatalf("second Dispatch failed: %v", err)
	}
	if created != 0 {
		t.Fatalf("re-run created %d notifications, want 0", created)
	}
	if len(store.notifications) != 3 {
		t.Fatalf("expected 3 stored notifications, got %d", len(store.notifications))
	}
}

// TestDispatchPartialFailureContinues verifies one failing insert does not
// block the rest of the batch or the status flip.
func TestDispatchPartialFailureContinues(t *testing.T) {
	store := newFakeStore()
	event := models.Event{ID: uuid.New(), Status: models.EventStatusPending}
	store.eventStatus[event.ID] = models.EventStatusPending
	matches := matchesFor(3)
	store.failUsers[matches[1].UserID] = true

	created, err := New(store, nil).Dispatch(context.Background(), event, matches)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 created, got %d", created)
	}
	if store.inserts != 3 {
		t.Fatalf("expected all 3 inserts attempted, got %d", store.inserts)
	}
	if store.eventStatus[event.ID] != models.EventStatusMatched {
		t.Fatalf("partial batch should still mark the event matched")
	}
}

func TestDispatchEmptyMatchStillFlipsStatus(t *testing.T) {
	store := newFakeStore()
	event := models.Event{ID: uuid.New(), Status: models.EventStatusPending}
	store.eventStatus[event.ID] = models.EventStatusPending

	created, err := New(store, nil).Dispatch(context.Background(), event, nil)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected 0 created, got %d", created)
	}
	if store.eventStatus[event.ID] != models.EventStatusMatched {
		t.Fatalf("empty match should still mark the event matched")
	}
}

func TestDispatchMarkMatchedErrorIsTransient(t *testing.T) {
	store := newFakeStore()
	store.markErr = fmt.Errorf("deadlock")
	event := models.Event{ID: uuid.New(), Status: models.EventStatusPending}

	_, err := New(store, nil).Dispatch(context.Background(), event, matchesFor(1))
	if !errors.Is(err, models.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}
