package repository

import (
	"context"
	"database/sql"
	"fmt"

	"musomatch/backend/internal/models"

	"github.com/google/uuid"
)

// InsertReview stores an immutable review row. A duplicate (reviewer,
// reviewed) pair surfaces the unique violation as ErrAlreadyReviewed,
// never a silent overwrite.
func (r *Repository) InsertReview(ctx context.Context, review models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO reviews (id, reviewer_id, reviewed_user_id, rating, comment)
VALUES ($1, $2, $3, $4, $5);`,
		review.ID, review.ReviewerID, review.ReviewedUserID, review.Rating, nullString(review.Comment))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reviewer %s reviewed %s: %w", review.ReviewerID, review.ReviewedUserID, models.ErrAlreadyReviewed)
		}
		return err
	}
	return nil
}

func (r *Repository) ListReviewsForUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	rows, err := r.pool.Query(ctx, `
SELECT rv.id, rv.reviewer_id, rv.reviewed_user_id, rv.rating, rv.comment,
	COALESCE(u.first_name || ' ' || u.last_name, u.first_name) AS reviewer_name,
	rv.created_at
FROM reviews rv
JOIN users u ON u.id = rv.reviewer_id
WHERE rv.reviewed_user_id = $1
ORDER BY rv.created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Review, 0)
	for rows.Next() {
		var review models.Review
		var comment sql.NullString
		if err := rows.Scan(&review.ID, &review.ReviewerID, &review.ReviewedUserID, &review.Rating, &comment, &review.ReviewerName, &review.CreatedAt); err != nil {
			return nil, err
		}
		if comment.Valid {
			review.Comment = comment.String
		}
		out = append(out, review)
	}
	return out, rows.Err()
}
