package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"musomatch/backend/internal/http/middleware"
	"musomatch/backend/internal/models"
	"musomatch/backend/internal/reviews"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type submitReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment"`
}

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	reviewerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "submit_review", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.reviewLimiter.Allow(reviewerID.String()) {
		logger.Warn("action", "action", "submit_review", "status", "rate_limited")
		writeError(w, http.StatusTooManyRequests, "rate limit")
		return
	}
	reviewedUserID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Warn("action", "action", "submit_review", "status", "invalid_user_id")
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req submitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("action", "action", "submit_review", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("action", "action", "submit_review", "status", "validation_failed", "error", err)
		writeError(w, http.StatusBadRequest, "validation failed")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	review, err := h.reviews.Submit(ctx, reviewerID, reviewedUserID, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSelfReview):
			logger.Warn("action", "action", "submit_review", "status", "self_review")
			writeError(w, http.StatusBadRequest, "cannot review yourself")
		case errors.Is(err, models.ErrInvalidRating):
			logger.Warn("action", "action", "submit_review", "status", "invalid_rating")
			writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		case errors.Is(err, models.ErrCommentLength):
			logger.Warn("action", "action", "submit_review", "status", "comment_length")
			writeError(w, http.StatusBadRequest, "comment length out of bounds")
		case errors.Is(err, models.ErrAlreadyReviewed):
			logger.Warn("action", "action", "submit_review", "status", "already_reviewed", "reviewed_user_id", reviewedUserID)
			writeError(w, http.StatusConflict, "already reviewed this user")
		default:
			logger.Error("action", "action", "submit_review", "status", "db_error", "error", err)
			writeError(w, http.StatusInternalServerError, "review failed")
		}
		return
	}
	logger.Info("action", "action", "submit_review", "status", "success", "review_id", review.ID, "reviewed_user_id", reviewedUserID)
	writeJSON(w, http.StatusCreated, review)
}

// UserReviews returns a user's reviews, newest first, with the aggregate
// summary.
func (h *Handler) UserReviews(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Warn("action", "action", "user_reviews", "status", "invalid_user_id")
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	rows, err := h.repo.ListReviewsForUser(ctx, userID)
	if err != nil {
		logger.Error("action", "action", "user_reviews", "status", "db_error", "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	logger.Info("action", "action", "user_reviews", "status", "success", "user_id", userID, "count", len(rows))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": rows,
		"summary": reviews.Summarize(rows),
	})
}
