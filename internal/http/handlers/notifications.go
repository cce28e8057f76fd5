package handlers

import (
	"net/http"

	"musomatch/backend/internal/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) MyNotifications(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "my_notifications", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	notifications, err := h.repo.ListNotificationsForUser(ctx, userID)
	if err != nil {
		logger.Error("action", "action", "my_notifications", "status", "db_error", "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	logger.Info("action", "action", "my_notifications", "status", "success", "count", len(notifications))
	writeJSON(w, http.StatusOK, notifications)
}

func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logger.Warn("action", "action", "dismiss_notification", "status", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	notificationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Warn("action", "action", "dismiss_notification", "status", "invalid_notification_id")
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	dismissed, err := h.repo.DismissNotification(ctx, notificationID, userID)
	if err != nil {
		logger.Error("action", "action", "dismiss_notification", "status", "db_error", "notification_id", notificationID, "error", err)
		writeError(w, http.StatusInternalServerError, "dismiss failed")
		return
	}
	if !dismissed {
		logger.Warn("action", "action", "dismiss_notification", "status", "not_dismissable", "notification_id", notificationID)
		writeError(w, http.StatusNotFound, "notification not found or not dismissable")
		return
	}
	logger.Info("action", "action", "dismiss_notification", "status", "success", "notification_id", notificationID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
