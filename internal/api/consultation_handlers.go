package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teleclinic/telemed-scheduling/internal/clinic"
)

func confirmPresenceHandler(svc *clinic.Service) http.HandlerFunc {
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

		status, err := svc.ConfirmPresence(r.Context(), caller.UserID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, presenceResponse(status))
	}
}

func consultationStatusHandler(svc *clinic.Service) http.HandlerFunc {
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

		status, err := svc.ConsultationStatus(r.Context(), caller.UserID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, presenceResponse(status))
	}
}

func endConsultationHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		roomID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_room_id", "id must be a valid UUID")
			return
		}

		if err := svc.EndConsultation(r.Context(), caller.UserID, roomID); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AckResponse{Message: "consultation ended and recorded"})
	}
}

func postMessageHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		roomID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_room_id", "id must be a valid UUID")
			return
		}

		var req PostMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		msg, err := svc.PostMessage(r.Context(), caller.UserID, roomID, req.Content)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, messageResponse(msg))
	}
}

func listMessagesHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		roomID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_room_id", "id must be a valid UUID")
			return
		}

		messages, err := svc.ListMessages(r.Context(), caller.UserID, roomID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]MessageResponse, 0, len(messages))
		for i := range messages {
			resp = append(resp, messageResponse(&messages[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func presenceResponse(status *clinic.PresenceStatus) PresenceResponse {
	return PresenceResponse{
		DoctorConfirmed:  status.DoctorConfirmed,
		PatientConfirmed: status.PatientConfirmed,
		RoomID:           status.RoomID,
		RoomURL:          status.RoomURL,
	}
}

func messageResponse(m *clinic.ConsultationMessage) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
