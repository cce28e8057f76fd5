package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"musomatch/backend/internal/config"
	"musomatch/backend/internal/db"
	"musomatch/backend/internal/dispatch"
	"musomatch/backend/internal/logging"
	"musomatch/backend/internal/matching"
	"musomatch/backend/internal/metrics"
	"musomatch/backend/internal/models"
	"musomatch/backend/internal/repository"

	"github.com/google/uuid"
)

// jobStore is the slice of the repository the job loop needs.
type jobStore interface {
	GetEventByID(ctx context.Context, eventID uuid.UUID) (models.Event, error)
	UpdateMatchJobStatus(ctx context.Context, jobID int64, status string, attempts int, lastError string, nextRun *time.Time) error
}

type eventMatcher interface {
	Match(ctx context.Context, event models.Event) ([]models.MatchResult, error)
}

type notificationDispatcher interface {
	Dispatch(ctx context.Context, event models.Event, matches []models.MatchResult) (int, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer func() {
		_ = cleanup()
	}()
	logger = logger.With("service", "worker")
	slog.SetDefault(logger)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db error", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.New(pool)
	matcher := matching.New(repo, logger)
	dispatcher := dispatch.New(repo, logger)

	lastSweep := time.Time{}

	logger.Info("worker_started")
	for {
		if err := repo.RequeueStaleProcessing(ctx, cfg.Worker.StaleAfter); err != nil {
			logger.Warn("requeue_stale_jobs_error", "error", err)
		}

		// Expired events are swept once an hour, not every poll.
		if time.Since(lastSweep) >= time.Hour {
			if closed, err := repo.CloseExpiredEvents(ctx, time.Now()); err != nil {
				logger.Warn("close_expired_error", "error", err)
			} else if closed > 0 {
				logger.Info("expired_events_closed", "count", closed)
			}
			lastSweep = time.Now()
		}

		jobs, err := repo.FetchDueMatchJobs(ctx, cfg.Worker.BatchSize)
		if err != nil {
			logger.Error("fetch_jobs_error", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}
		if len(jobs) == 0 {
			time.Sleep(cfg.Worker.PollInterval)
			continue
		}

		for _, job := range jobs {
			if err := handleMatchJob(ctx, repo, matcher, dispatcher, job, cfg.Worker.MaxAttempts, logger); err != nil {
				logger.Error("job_failed", "job_id", job.ID, "event_id", job.EventID, "error", err)
			}
		}
	}
}

// handleMatchJob matches one event and records the job outcome. Transient
// failures requeue with backoff until maxAttempts; unmatchable events fail
// permanently on the first attempt.
func handleMatchJob(ctx context.Context, store jobStore, matcher eventMatcher, dispatcher notificationDispatcher, job models.MatchJob, maxAttempts int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("job_processing", "job_id", job.ID, "event_id", job.EventID, "attempts", job.Attempts)

	event, err := store.GetEventByID(ctx, job.EventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.MatchJobs.WithLabelValues("failed").Inc()
			return store.UpdateMatchJobStatus(ctx, job.ID, "failed", job.Attempts+1, "event not found", nil)
		}
		return requeueOrFail(ctx, store, job, maxAttempts, err)
	}
	if event.Status != models.EventStatusPending {
		// Cancelled or already matched while the job was queued.
		metrics.MatchJobs.WithLabelValues("skipped").Inc()
		logger.Info("job_skipped", "job_id", job.ID, "event_id", job.EventID, "event_status", event.Status)
		return store.UpdateMatchJobStatus(ctx, job.ID, "done", job.Attempts, "", nil)
	}

	matches, err := matcher.Match(ctx, event)
	if err != nil {
		if errors.Is(err, models.ErrUnmatchable) {
			metrics.MatchJobs.WithLabelValues("unmatchable").Inc()
			return store.UpdateMatchJobStatus(ctx, job.ID, "failed", job.Attempts+1, err.Error(), nil)
		}
		return requeueOrFail(ctx, store, job, maxAttempts, err)
	}

	created, err := dispatcher.Dispatch(ctx, event, matches)
	if err != nil {
		return requeueOrFail(ctx, store, job, maxAttempts, err)
	}

	if err := store.UpdateMatchJobStatus(ctx, job.ID, "done", job.Attempts, "", nil); err != nil {
		return err
	}
	metrics.MatchJobs.WithLabelValues("done").Inc()
	logger.Info("job_done", "job_id", job.ID, "event_id", job.EventID, "matches", len(matches), "notifications_created", created)
	return nil
}

func requeueOrFail(ctx context.Context, store jobStore, job models.MatchJob, maxAttempts int, cause error) error {
	attempts := job.Attempts + 1
	if attempts >= maxAttempts {
		metrics.MatchJobs.WithLabelValues("failed").Inc()
		return store.UpdateMatchJobStatus(ctx, job.ID, "failed", attempts, cause.Error(), nil)
	}
	nextRun := time.Now().Add(backoffDelay(attempts))
	metrics.MatchJobs.WithLabelValues("requeued").Inc()
	return store.UpdateMatchJobStatus(ctx, job.ID, "pending", attempts, cause.Error(), &nextRun)
}

func backoffDelay(attempts int) time.Duration {
	return time.Duration(1<<attempts) * time.Minute
}
