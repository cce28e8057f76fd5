package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"musomatch/backend/internal/db"
	"musomatch/backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func setupTestRepo(t *testing.T) (*Repository, *pgxpool.Pool, context.Context) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Skipf("db connection failed: %v", err)
	}
	t.Cleanup(pool.Close)
	return New(pool), pool, ctx
}

func insertTestMusician(t *testing.T, ctx context.Context, repo *Repository, instruments ...string) models.UserProfile {
	t.Helper()
	user, err := repo.CreateUser(ctx, models.UserProfile{
		Role:              models.RoleMusician,
		FirstName:         "Test",
		LastName:          "Musician",
		Postcode:          "BS1 4DJ",
		Location:          &models.GeoPoint{Lat: 51.4497, Lng: -2.5823},
		Instruments:       instruments,
		SearchRadiusMiles: 100,
	})
	if err != nil {
		t.Fatalf("insert musician: %v", err)
	}
	return user
}

func insertTestEvent(t *testing.T, ctx context.Context, repo *Repository, posterID uuid.UUID, instruments ...string) uuid.UUID {
	t.Helper()
	eventID, err := repo.CreateEventWithJob(ctx, models.Event{
		PosterID:          posterID,
		EventType:         models.EventTypePublic,
		Postcode:          "BS1 4DJ",
		Location:          models.GeoPoint{Lat: 51.4497, Lng: -2.5823},
		Date:              time.Now().Add(14 * 24 * time.Hour),
		InstrumentsNeeded: instruments,
		BudgetPence:       50000,
	})
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	return eventID
}

func cleanupTestData(t *testing.T, ctx context.Context, pool *pgxpool.Pool, eventIDs []uuid.UUID, userIDs []uuid.UUID) {
	t.Cleanup(func() {
		for _, eventID := range eventIDs {
			_, _ = pool.Exec(ctx, `DELETE FROM event_applications WHERE event_id = $1`, eventID)
			_, _ = pool.Exec(ctx, `DELETE FROM event_notifications WHERE event_id = $1`, eventID)
			_, _ = pool.Exec(ctx, `DELETE FROM match_jobs WHERE event_id = $1`, eventID)
			_, _ = pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
		}
		for _, userID := range userIDs {
			_, _ = pool.Exec(ctx, `DELETE FROM reviews WHERE reviewer_id = $1 OR reviewed_user_id = $1`, userID)
			_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
		}
	})
}

// TestInsertNotificationIdempotent verifies the unique pair constraint
// absorbs a duplicate insert.
func TestInsertNotificationIdempotent(t *testing.T) {
	repo, pool, ctx := setupTestRepo(t)
	poster := insertTestMusician(t, ctx, repo)
	musician := insertTestMusician(t, ctx, repo, "guitar")
	eventID := insertTestEvent(t, ctx, repo, poster.ID, "guitar")
	cleanupTestData(t, ctx, pool, []uuid.UUID{eventID}, []uuid.UUID{poster.ID, musician.ID})

	n := models.Notification{
		EventID:       eventID,
		UserID:        musician.ID,
		DistanceMiles: 1.5,
		Status:        models.NotificationUnread,
	}
	created, err := repo.InsertNotification(ctx, n)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	n.ID = uuid.Nil
	created, err = repo.InsertNotification(ctx, n)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if created {
		t.Fatalf("expected created=false on duplicate")
	}
}

// TestInsertApplicationFlipsNotification verifies applying moves the pair's
// notification to applied in the same transaction.
func TestInsertApplicationFlipsNotification(t *testing.T) {
	repo, pool, ctx := setupTestRepo(t)
	poster := insertTestMusician(t, ctx, repo)
	musician := insertTestMusician(t, ctx, repo, "guitar")
	eventID := insertTestEvent(t, ctx, repo, poster.ID, "guitar")
	cleanupTestData(t, ctx, pool, []uuid.UUID{eventID}, []uuid.UUID{poster.ID, musician.ID})

	if _, err := repo.InsertNotification(ctx, models.Notification{
		EventID: eventID, UserID: musician.ID, Status: models.NotificationUnread,
	}); err != nil {
		t.Fatalf("insert notification: %v", err)
	}

	created, err := repo.InsertApplication(ctx, eventID, musician.ID)
	if err != nil {
		t.Fatalf("insert application: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	n, err := repo.GetNotification(ctx, eventID, musician.ID)
	if err != nil {
		t.Fatalf("get notification: %v", err)
	}
	if n.Status != models.NotificationApplied {
		t.Fatalf("expected applied, got %s", n.Status)
	}

	created, err = repo.InsertApplication(ctx, eventID, musician.ID)
	if err != nil {
		t.Fatalf("repeat application: %v", err)
	}
	if created {
		t.Fatalf("expected created=false on repeat")
	}
}

// TestApplicationRequiresNotificationRow verifies the schema itself rejects
// an application for a pair that was never notified.
func TestApplicationRequiresNotificationRow(t *testing.T) {
	repo, pool, ctx := setupTestRepo(t)
	poster := insertTestMusician(t, ctx, repo)
	musician := insertTestMusician(t, ctx, repo, "guitar")
	eventID := insertTestEvent(t, ctx, repo, poster.ID, "guitar")
	cleanupTestData(t, ctx, pool, []uuid.UUID{eventID}, []uuid.UUID{poster.ID, musician.ID})

	_, err := pool.Exec(ctx, `
INSERT INTO event_applications (event_id, user_id)
VALUES ($1, $2);`, eventID, musician.ID)
	if err == nil {
		t.Fatalf("expected foreign key violation for unnotified pair")
	}
}

// TestMarkEventMatchedOnce verifies the pending-to-matched flip happens
// exactly once.
func TestMarkEventMatchedOnce(t *testing.T) {
	repo, pool, ctx := setupTestRepo(t)
	poster := insertTestMusician(t, ctx, repo)
	eventID := insertTestEvent(t, ctx, repo, poster.ID, "guitar")
	cleanupTestData(t, ctx, pool, []uuid.UUID{eventID}, []uuid.UUID{poster.ID})

	flipped, err := repo.MarkEventMatched(ctx, eventID)
	if err != nil {
		t.Fatalf("first flip: %v", err)
	}
	if !flipped {
		t.Fatalf("expected flipped=true")
	}

	flipped, err = repo.MarkEventMatched(ctx, eventID)
	if err != nil {
		t.Fatalf("second flip: %v", err)
	}
	if flipped {
		t.Fatalf("expected flipped=false on repeat")
	}

	event, err := repo.GetEventByID(ctx, eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event.Status != models.EventStatusMatched {
		t.Fatalf("expected matched, got %s", event.Status)
	}
}

// TestCreateEventWithJobQueuesJob verifies event creation always leaves a
// pending match job behind.
func TestCreateEventWithJobQueuesJob(t *testing.T) {
	repo, pool, ctx := setupTestRepo(t)
	poster := insertTestMusician(t, ctx, repo)
	eventID := insertTestEvent(t, ctx, repo, poster.ID, "guitar")
	cleanupTestData(t, ctx, pool, []uuid.UUID{eventID}, []uuid.UUID{poster.ID})

	var count int
	row := pool.QueryRow(ctx, `SELECT count(*) FROM match_jobs WHERE event_id = $1 AND status = 'pending'`, eventID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 pending job, got %d", count)
	}
}

// TestInsertReviewDuplicatePair verifies the reviewer/reviewed uniqueness
// constraint surfaces as ErrAlreadyReviewed.
func TestInsertReviewDuplicatePair(t *testing.T) {
	repo, pool, ctx := setupTestRepo(t)
	reviewer := insertTestMusician(t, ctx, repo)
	reviewed := insertTestMusician(t, ctx, repo, "guitar")
	cleanupTestData(t, ctx, pool, nil, []uuid.UUID{reviewer.ID, reviewed.ID})

	review := models.Review{
		ID:             uuid.New(),
		ReviewerID:     reviewer.ID,
		ReviewedUserID: reviewed.ID,
		Rating:         5,
		Comment:        "Superb set from start to finish",
	}
	if err := repo.InsertReview(ctx, review); err != nil {
		t.Fatalf("first review: %v", err)
	}

	review.ID = uuid.New()
	review.Rating = 2
	err := repo.InsertReview(ctx, review)
	if !errors.Is(err, models.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
}

func TestGetUserByIDNotFound(t *testing.T) {
	repo, _, ctx := setupTestRepo(t)
	_, err := repo.GetUserByID(ctx, uuid.New())
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
