package api

import (
	"errors"
	"net/http"

	"github.com/teleclinic/telemed-scheduling/internal/clinic"
	redisclient "github.com/teleclinic/telemed-scheduling/internal/redis"
)

// writeServiceError maps domain errors onto the HTTP taxonomy. Unknown
// errors degrade to a generic message so internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, clinic.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_profile_missing", err.Error())
	case errors.Is(err, clinic.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", "this time slot is no longer offered")
	case errors.Is(err, clinic.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, clinic.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
	case errors.Is(err, clinic.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room_not_found", err.Error())
	case errors.Is(err, clinic.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, clinic.ErrInvalidDate),
		errors.Is(err, clinic.ErrInvalidTime),
		errors.Is(err, clinic.ErrDateNotBookable),
		errors.Is(err, clinic.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, clinic.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, clinic.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "resource_busy", "the resource is being updated, please retry shortly")
	case errors.Is(err, clinic.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, clinic.ErrRoomClosed):
		writeError(w, http.StatusConflict, "room_already_ended", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
