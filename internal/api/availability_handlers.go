package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/teleclinic/telemed-scheduling/internal/clinic"
)

func listAvailableSlotsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}

		slots, err := svc.ListAvailableSlots(r.Context(), doctorID, date)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, slotResponses(slots))
	}
}

func listAvailableDatesHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		month, err := strconv.Atoi(r.URL.Query().Get("month"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_month", "month must be a number between 1 and 12")
			return
		}
		year, err := strconv.Atoi(r.URL.Query().Get("year"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_year", "year must be a number")
			return
		}

		dates, err := svc.ListAvailableDates(r.Context(), doctorID, month, year)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailableDatesResponse{AvailableDates: dates})
	}
}

func publishAvailabilityHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		var req PublishAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slots, err := svc.PublishAvailability(r.Context(), caller.UserID, req.Date, req.TimeSlots)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PublishAvailabilityResponse{
			Date:  req.Date,
			Slots: slotResponses(slots),
		})
	}
}

func clearAvailabilityHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_caller", "caller identity is required")
			return
		}

		if err := svc.ClearAvailability(r.Context(), caller.UserID); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AckResponse{Message: "all availability removed"})
	}
}

func listDoctorsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		speciality := r.URL.Query().Get("speciality")
		if speciality == "" {
			writeError(w, http.StatusBadRequest, "missing_speciality", "speciality query parameter is required")
			return
		}

		doctors, err := svc.ListDoctorsBySpeciality(r.Context(), speciality)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, DoctorResponse{
				ID:         d.ID,
				FullName:   d.FullName,
				Speciality: d.Speciality,
				Email:      d.Email,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func slotResponses(slots []clinic.Slot) []SlotResponse {
	resp := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, SlotResponse{Time: s.StartTime, EndTime: s.EndTime})
	}
	return resp
}
