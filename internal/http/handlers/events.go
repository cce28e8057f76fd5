package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"musomatch/backend/internal/http/middleware"
	"musomatch/backend/internal/models"
	"musomatch/backend/internal/postcode"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createEventRequest struct {
	EventType         string   `json:"eventType" validate:"required,oneof=public private"`
	Postcode          string   `json:"postcode" validate:"required"`
	Date              string   `json:"date" validate:"required"`
	InstrumentsNeeded []string `json:"instrumentsNeeded" validate:"required,min=1,dive,required"`
	BudgetPence       int64    `json:"budgetPence" validate:"gte=0"`
	ExtraInfo         string   `json:"extraInfo"`
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "create_event", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("action", "action", "create_event", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("action", "action", "create_event", "status", "validation_failed", "error", err)
		writeError(w, http.StatusBadRequest, "validation failed")
		return
	}
	if len(req.ExtraInfo) > models.MaxExtraInfoChars {
		logger.Warn("action", "action", "create_event", "status", "extra_info_too_long")
		writeError(w, http.StatusBadRequest, "extraInfo too long")
		return
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		logger.Warn("action", "action", "create_event", "status", "invalid_date")
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	if date.Before(time.Now()) {
		logger.Warn("action", "action", "create_event", "status", "date_in_past")
		writeError(w, http.StatusBadRequest, "date must be in the future")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	location, err := h.resolver.ResolveWithRetry(ctx, req.Postcode, h.cfg.Geocoder.RetryAttempts, h.cfg.Geocoder.RetryBase)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidFormat):
			logger.Warn("action", "action", "create_event", "status", "invalid_postcode")
			writeError(w, http.StatusBadRequest, "invalid postcode")
		case errors.Is(err, models.ErrNotFound):
			logger.Warn("action", "action", "create_event", "status", "unknown_postcode")
			writeError(w, http.StatusBadRequest, "unknown postcode")
		default:
			logger.Error("action", "action", "create_event", "status", "geocoder_unavailable", "error", err)
			writeError(w, http.StatusServiceUnavailable, "postcode lookup unavailable")
		}
		return
	}

	// Resolve already validated the syntax, so Normalize cannot fail here.
	normalized, _ := postcode.Normalize(req.Postcode)
	eventID, err := h.repo.CreateEventWithJob(ctx, models.Event{
		PosterID:          userID,
		EventType:         models.EventType(req.EventType),
		Postcode:          normalized,
		Location:          location,
		Date:              date,
		InstrumentsNeeded: req.InstrumentsNeeded,
		BudgetPence:       req.BudgetPence,
		ExtraInfo:         req.ExtraInfo,
	})
	if err != nil {
		logger.Error("action", "action", "create_event", "status", "db_error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	logger.Info(
		"action",
		"action", "create_event",
		"status", "success",
		"event_id", eventID,
		"event_type", req.EventType,
		"postcode", normalized,
		"date", date,
		"instruments", req.InstrumentsNeeded,
	)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"eventId": eventID})
}

func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "my_events", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	events, err := h.repo.ListEventsByPoster(ctx, userID, limit, offset)
	if err != nil {
		logger.Error("action", "action", "my_events", "status", "db_error", "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	logger.Info("action", "action", "my_events", "status", "success", "count", len(events))
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Warn("action", "action", "get_event", "status", "invalid_event_id")
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	event, err := h.repo.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Warn("action", "action", "get_event", "status", "not_found", "event_id", eventID)
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		logger.Error("action", "action", "get_event", "status", "db_error", "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}

	logger.Info("action", "action", "get_event", "status", "success", "event_id", eventID)
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "cancel_event", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Warn("action", "action", "cancel_event", "status", "invalid_event_id")
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	closed, err := h.repo.CloseEvent(ctx, eventID, userID)
	if err != nil {
		logger.Error("action", "action", "cancel_event", "status", "db_error", "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "cancel failed")
		return
	}
	if !closed {
		// Either not the poster's event or already closed. Check which.
		event, getErr := h.repo.GetEventByID(ctx, eventID)
		if getErr != nil || event.PosterID != userID {
			logger.Warn("action", "action", "cancel_event", "status", "not_found", "event_id", eventID)
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
	}
	logger.Info("action", "action", "cancel_event", "status", "success", "event_id", eventID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
