package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"musomatch/backend/internal/models"

	"github.com/google/uuid"
)

type fakeJobStore struct {
	event    models.Event
	eventErr error

	status   string
	attempts int
	lastErr  string
	nextRun  *time.Time
}

func (f *fakeJobStore) GetEventByID(ctx context.Context, eventID uuid.UUID) (models.Event, error) {
	if f.eventErr != nil {
		return models.Event{}, f.eventErr
	}
	return f.event, nil
}

func (f *fakeJobStore) UpdateMatchJobStatus(ctx context.Context, jobID int64, status string, attempts int, lastError string, nextRun *time.Time) error {
	f.status = status
	f.attempts = attempts
	f.lastErr = lastError
	f.nextRun = nextRun
	return nil
}

type fakeMatcher struct {
	matches []models.MatchResult
	err     error
}

func (f *fakeMatcher) Match(ctx context.Context, event models.Event) ([]models.MatchResult, error) {
	return f.matches, f.err
}

type fakeDispatcher struct {
	created int
	err     error
	calls   int
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, event models.Event, matches []models.MatchResult) (int, error) {
	f.calls++
	return f.created, f.err
}

func pendingEvent() models.Event {
	return models.Event{
		ID:                uuid.New(),
		InstrumentsNeeded: []string{"guitar"},
		Location:          models.GeoPoint{Lat: 51.45, Lng: -2.59},
		Status:            models.EventStatusPending,
	}
}

func TestHandleMatchJobSuccess(t *testing.T) {
	store := &fakeJobStore{event: pendingEvent()}
	matcher := &fakeMatcher{matches: []models.MatchResult{{UserID: uuid.New(), DistanceMiles: 3}}}
	dispatcher := &fakeDispatcher{created: 1}
	job := models.MatchJob{ID: 1, EventID: store.event.ID}

	if err := handleMatchJob(context.Background(), store, matcher, dispatcher, job, 3, nil); err != nil {
		t.Fatalf("handleMatchJob failed: %v", err)
	}
	if store.status != "done" {
		t.Fatalf("expected done, got %q", store.status)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("dispatcher not called")
	}
}

// TestHandleMatchJobUnmatchableFailsPermanently verifies unmatchable events
// are not retried.
func TestHandleMatchJobUnmatchableFailsPermanently(t *testing.T) {
	store := &fakeJobStore{event: pendingEvent()}
	matcher := &fakeMatcher{err: fmt.Errorf("bad event: %w", models.ErrUnmatchable)}
	dispatcher := &fakeDispatcher{}
	job := models.MatchJob{ID: 1, EventID: store.event.ID}

	if err := handleMatchJob(context.Background(), store, matcher, dispatcher, job, 3, nil); err != nil {
		t.Fatalf("handleMatchJob failed: %v", err)
	}
	if store.status != "failed" {
		t.Fatalf("expected failed, got %q", store.status)
	}
	if store.nextRun != nil {
		t.Fatalf("unmatchable jobs must not be requeued")
	}
	if dispatcher.calls != 0 {
		t.Fatalf("dispatcher should not run for unmatchable events")
	}
}

// TestHandleMatchJobTransientRequeuesWithBackoff verifies a transient
// failure requeues with a later run time until attempts run out.
func TestHandleMatchJobTransientRequeuesWithBackoff(t *testing.T) {
	store := &fakeJobStore{event: pendingEvent()}
	matcher := &fakeMatcher{err: fmt.Errorf("db down: %w", models.ErrTransient)}
	job := models.MatchJob{ID: 1, EventID: store.event.ID, Attempts: 0}

	if err := handleMatchJob(context.Background(), store, matcher, &fakeDispatcher{}, job, 3, nil); err != nil {
		t.Fatalf("handleMatchJob failed: %v", err)
	}
	if store.status != "pending" {
		t.Fatalf("expected requeue to pending, got %q", store.status)
	}
	if store.attempts != 1 {
		t.Fatalf("expected attempts 1, got %d", store.attempts)
	}
	if store.nextRun == nil || !store.nextRun.After(time.Now()) {
		t.Fatalf("expected a future run time")
	}
}

func TestHandleMatchJobTransientExhaustsAttempts(t *testing.T) {
	store := &fakeJobStore{event: pendingEvent()}
	matcher := &fakeMatcher{err: fmt.Errorf("db down: %w", models.ErrTransient)}
	job := models.MatchJob{ID: 1, EventID: store.event.ID, Attempts: 2}

	if err := handleMatchJob(context.Background(), store, matcher, &fakeDispatcher{}, job, 3, nil); err != nil {
		t.Fatalf("handleMatchJob failed: %v", err)
	}
	if store.status != "failed" {
		t.Fatalf("expected failed after max attempts, got %q", store.status)
	}
	if store.nextRun != nil {
		t.Fatalf("exhausted jobs must not be requeued")
	}
}

// TestHandleMatchJobSkipsNonPendingEvent covers events cancelled or matched
// while the job sat in the queue.
func TestHandleMatchJobSkipsNonPendingEvent(t *testing.T) {
	event := pendingEvent()
	event.Status = models.EventStatusClosed
	store := &fakeJobStore{event: event}
	dispatcher := &fakeDispatcher{}
	job := models.MatchJob{ID: 1, EventID: event.ID}

	if err := handleMatchJob(context.Background(), store, &fakeMatcher{}, dispatcher, job, 3, nil); err != nil {
		t.Fatalf("handleMatchJob failed: %v", err)
	}
	if store.status != "done" {
		t.Fatalf("expected done for skipped job, got %q", store.status)
	}
	if dispatcher.calls != 0 {
		t.Fatalf("dispatcher should not run for closed events")
	}
}

func TestHandleMatchJobMissingEventFails(t *testing.T) {
	store := &fakeJobStore{eventErr: fmt.Errorf("gone: %w", models.ErrNotFound)}
	job := models.MatchJob{ID: 1, EventID: uuid.New()}

	if err := handleMatchJob(context.Background(), store, &fakeMatcher{}, &fakeDispatcher{}, job, 3, nil); err != nil {
		t.Fatalf("handleMatchJob failed: %v", err)
	}
	if store.status != "failed" {
		t.Fatalf("expected failed for missing event, got %q", store.status)
	}
}

func TestBackoffDelayDoubles(t *testing.T) {
	if backoffDelay(1) != 2*time.Minute {
		t.Fatalf("attempt 1: got %v", backoffDelay(1))
	}
	if backoffDelay(2) != 4*time.Minute {
		t.Fatalf("attempt 2: got %v", backoffDelay(2))
	}
	if backoffDelay(3) != 8*time.Minute {
		t.Fatalf("attempt 3: got %v", backoffDelay(3))
	}
}
