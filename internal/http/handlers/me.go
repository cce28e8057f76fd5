package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"musomatch/backend/internal/http/middleware"
	"musomatch/backend/internal/models"
	"musomatch/backend/internal/postcode"
)

type updateProfileRequest struct {
	Postcode          *string  `json:"postcode"`
	Instruments       []string `json:"instruments"`
	SearchRadiusMiles *float64 `json:"searchRadiusMiles"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "me", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	user, err := h.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Warn("action", "action", "me", "status", "not_found")
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("action", "action", "me", "status", "db_error", "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe updates the matching-relevant parts of the caller's profile.
// A new postcode is resolved before anything is stored, so a profile never
// holds a postcode without coordinates.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "update_me", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("action", "action", "update_me", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	current, err := h.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Warn("action", "action", "update_me", "status", "not_found")
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("action", "action", "update_me", "status", "db_error", "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}

	postcodeValue := current.Postcode
	location := current.Location
	if req.Postcode != nil && *req.Postcode != current.Postcode {
		resolved, err := h.resolver.ResolveWithRetry(ctx, *req.Postcode, h.cfg.Geocoder.RetryAttempts, h.cfg.Geocoder.RetryBase)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidFormat):
				logger.Warn("action", "action", "update_me", "status", "invalid_postcode")
				writeError(w, http.StatusBadRequest, "invalid postcode")
			case errors.Is(err, models.ErrNotFound):
				logger.Warn("action", "action", "update_me", "status", "unknown_postcode")
				writeError(w, http.StatusBadRequest, "unknown postcode")
			default:
				logger.Error("action", "action", "update_me", "status", "geocoder_unavailable", "error", err)
				writeError(w, http.StatusServiceUnavailable, "postcode lookup unavailable")
			}
			return
		}
		postcodeValue, _ = postcode.Normalize(*req.Postcode)
		location = &resolved
	}

	instruments := current.Instruments
	if req.Instruments != nil {
		instruments = req.Instruments
	}

	radius := current.SearchRadiusMiles
	if req.SearchRadiusMiles != nil {
		radius = *req.SearchRadiusMiles
		if radius < models.MinSearchRadiusMiles {
			radius = models.MinSearchRadiusMiles
		}
		if radius > models.MaxSearchRadiusMiles {
			radius = models.MaxSearchRadiusMiles
		}
	}

	if err := h.repo.UpdateMatchingProfile(ctx, userID, postcodeValue, location, instruments, radius); err != nil {
		logger.Error("action", "action", "update_me", "status", "db_error", "error", err)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}

	updated, err := h.repo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Error("action", "action", "update_me", "status", "reload_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	logger.Info("action", "action", "update_me", "status", "success", "radius", radius, "instrument_count", len(instruments))
	writeJSON(w, http.StatusOK, updated)
}
