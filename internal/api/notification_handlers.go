package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teleclinic/telemed-scheduling/internal/clinic"
)

func listNotificationsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		notifications, err := svc.ListUnreadNotifications(r.Context(), caller.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]NotificationResponse, 0, len(notifications))
		for _, n := range notifications {
			resp = append(resp, NotificationResponse{
				ID:            n.ID,
				Type:          string(n.Type),
				Message:       n.Message,
				AppointmentID: n.AppointmentID,
				CreatedAt:     n.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func markNotificationReadHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		count, err := svc.MarkNotificationRead(r.Context(), caller.UserID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, UnreadCountResponse{UnreadCount: count})
	}
}
