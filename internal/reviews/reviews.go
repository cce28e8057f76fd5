// Package reviews validates and stores user reviews and computes their
// display aggregates.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"musomatch/backend/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// Comment bounds are word counts over the markup-stripped text. The minimum
// applies only when a comment is provided at all.
const (
	MinCommentWords = 5
	MaxCommentWords = 300
)

var multiSpaceRE = regexp.MustCompile(`\s+`)

// Store is the persistence surface the aggregator needs.
type Store interface {
	// InsertReview returns ErrAlreadyReviewed when the (reviewer, reviewed)
	// pair already has a review. Reviews are append-only.
	InsertReview(ctx context.Context, review models.Review) error
	ListReviewsForUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error)
}

type Aggregator struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{store: store, logger: logger}
}

// Submit validates and stores a review. The stored comment is the
// markup-stripped text, never the raw input.
func (a *Aggregator) Submit(ctx context.Context, reviewerID, reviewedUserID uuid.UUID, rating int, comment string) (models.Review, error) {
	if reviewerID == reviewedUserID {
		return models.Review{}, models.ErrSelfReview
	}
	if rating < 1 || rating > 5 {
		return models.Review{}, models.ErrInvalidRating
	}

	clean := StripMarkup(comment)
	words := countWords(clean)
	if clean != "" && words < MinCommentWords {
		return models.Review{}, fmt.Errorf("%d words, need at least %d: %w", words, MinCommentWords, models.ErrCommentLength)
	}
	if words > MaxCommentWords {
		return models.Review{}, fmt.Errorf("%d words, at most %d: %w", words, MaxCommentWords, models.ErrCommentLength)
	}

	review := models.Review{
		ID:             uuid.New(),
		ReviewerID:     reviewerID,
		ReviewedUserID: reviewedUserID,
		Rating:         rating,
		Comment:        clean,
	}
	if err := a.store.InsertReview(ctx, review); err != nil {
		if errors.Is(err, models.ErrAlreadyReviewed) {
			return models.Review{}, err
		}
		return models.Review{}, fmt.Errorf("insert review: %v: %w", err, models.ErrTransient)
	}
	a.logger.Info("review_created", "reviewer_id", reviewerID, "reviewed_user_id", reviewedUserID, "rating", rating)
	return review, nil
}

// Aggregate folds over the stored rows on every call; there is no cached
// aggregate to drift out of sync.
func (a *Aggregator) Aggregate(ctx context.Context, userID uuid.UUID) (models.ReviewSummary, error) {
	rows, err := a.store.ListReviewsForUser(ctx, userID)
	if err != nil {
		return models.ReviewSummary{}, fmt.Errorf("list reviews: %v: %w", err, models.ErrTransient)
	}
	return Summarize(rows), nil
}

// Summarize folds review rows into their display aggregate.
func Summarize(rows []models.Review) models.ReviewSummary {
	summary := models.ReviewSummary{Count: len(rows)}
	if len(rows) == 0 {
		return summary
	}
	total := 0
	for _, row := range rows {
		total += row.Rating
	}
	summary.MeanRating = float64(total) / float64(len(rows))
	return summary
}

// StripMarkup drops any HTML tags from s and collapses whitespace.
func StripMarkup(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	text := trimmed
	if strings.ContainsAny(trimmed, "<>") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.TrimSpace(multiSpaceRE.ReplaceAllString(text, " "))
}

func countWords(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Fields(s))
}
