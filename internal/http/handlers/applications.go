package handlers

import (
	"errors"
	"net/http"

	"musomatch/backend/internal/http/middleware"
	"musomatch/backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) ApplyToEvent(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "apply_to_event", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.applyLimiter.Allow(userID.String()) {
		logger.Warn("action", "action", "apply_to_event", "status", "rate_limited")
		writeError(w, http.StatusTooManyRequests, "rate limit")
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Warn("action", "action", "apply_to_event", "status", "invalid_event_id")
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	if err := h.ledger.Apply(ctx, eventID, userID); err != nil {
		switch {
		case errors.Is(err, models.ErrNotEligible):
			logger.Warn("action", "action", "apply_to_event", "status", "not_eligible", "event_id", eventID)
			writeError(w, http.StatusForbidden, "not eligible to apply")
		default:
			logger.Error("action", "action", "apply_to_event", "status", "apply_failed", "event_id", eventID, "error", err)
			writeError(w, http.StatusInternalServerError, "apply failed")
		}
		return
	}
	logger.Info("action", "action", "apply_to_event", "status", "success", "event_id", eventID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// EventApplications lists applications for an event. Only the poster can see
// them.
func (h *Handler) EventApplications(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "event_applications", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Warn("action", "action", "event_applications", "status", "invalid_event_id")
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	event, err := h.repo.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Warn("action", "action", "event_applications", "status", "not_found", "event_id", eventID)
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		logger.Error("action", "action", "event_applications", "status", "db_error", "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	if event.PosterID != userID {
		logger.Warn("action", "action", "event_applications", "status", "forbidden", "event_id", eventID)
		writeError(w, http.StatusForbidden, "not your event")
		return
	}

	applications, err := h.repo.ListApplicationsForEvent(ctx, eventID)
	if err != nil {
		logger.Error("action", "action", "event_applications", "status", "db_error", "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	logger.Info("action", "action", "event_applications", "status", "success", "event_id", eventID, "count", len(applications))
	writeJSON(w, http.StatusOK, applications)
}
