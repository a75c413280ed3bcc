package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teleclinic/telemed-scheduling/internal/clinic"
)

func bookAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		if req.Date == "" || req.Time == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "date and time are required")
			return
		}

		appt, err := svc.Book(r.Context(), caller.UserID, doctorID, req.Date, req.Time, req.Notes)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if err := svc.Cancel(r.Context(), caller.UserID, id); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AckResponse{Message: "appointment cancelled"})
	}
}

func acceptAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return decisionHandler(svc, true)
}

func refuseAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return decisionHandler(svc, false)
}

func decisionHandler(svc *clinic.Service, accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req DecisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		notificationID, err := uuid.Parse(req.NotificationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "notification_id must be a valid UUID")
			return
		}

		var appt *clinic.Appointment
		if accept {
			appt, err = svc.Accept(r.Context(), caller.UserID, id, notificationID)
		} else {
			appt, err = svc.Refuse(r.Context(), caller.UserID, id, notificationID, req.Reason)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func appointmentResponse(appt *clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               appt.ID,
		DoctorID:         appt.DoctorID,
		PatientID:        appt.PatientID,
		DoctorName:       appt.DoctorName,
		PatientName:      appt.PatientName,
		Date:             appt.Date,
		Time:             appt.StartTime,
		EndTime:          appt.EndTime,
		Status:           string(appt.Status),
		DoctorConfirmed:  appt.DoctorConfirmed,
		PatientConfirmed: appt.PatientConfirmed,
	}
}
