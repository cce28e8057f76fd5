package repository

import (
	"context"
	"fmt"
	"time"

	"musomatch/backend/internal/models"
)

// FetchDueMatchJobs claims up to limit pending jobs and moves them to
// processing. FOR UPDATE SKIP LOCKED keeps concurrent workers from claiming
// the same job.
func (r *Repository) FetchDueMatchJobs(ctx context.Context, limit int) ([]models.MatchJob, error) {
	query := `
WITH cte AS (
	SELECT id
	FROM match_jobs
	WHERE status = 'pending' AND run_at <= now()
	ORDER BY run_at ASC
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
UPDATE match_jobs j
SET status = 'processing', updated_at = now()
FROM cte
WHERE j.id = cte.id
RETURNING j.id, j.event_id, j.run_at, j.status, j.attempts, COALESCE(j.last_error, '');`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]models.MatchJob, 0)
	for rows.Next() {
		var job models.MatchJob
		if err := rows.Scan(&job.ID, &job.EventID, &job.RunAt, &job.Status, &job.Attempts, &job.LastError); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *Repository) UpdateMatchJobStatus(ctx context.Context, jobID int64, status string, attempts int, lastError string, nextRun *time.Time) error {
	_, err := r.pool.Exec(ctx, `
UPDATE match_jobs
SET status = $1, attempts = $2, last_error = $3, run_at = COALESCE($4, run_at), updated_at = now()
WHERE id = $5;`, status, attempts, nullString(lastError), nextRun, jobID)
	return err
}

// RequeueStaleProcessing returns jobs stuck in processing (crashed worker)
// to pending so another worker can pick them up.
func (r *Repository) RequeueStaleProcessing(ctx context.Context, staleAfter time.Duration) error {
	interval := fmt.Sprintf("%d seconds", int(staleAfter.Seconds()))
	_, err := r.pool.Exec(ctx, `
UPDATE match_jobs
SET status = 'pending', updated_at = now()
WHERE status = 'processing' AND updated_at <= now() - $1::interval;`, interval)
	return err
}
