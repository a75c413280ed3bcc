package api

import (
	"time"

	"github.com/google/uuid"
)

type PublishAvailabilityRequest struct {
	Date      string   `json:"date"`
	TimeSlots []string `json:"time_slots"`
}

type SlotResponse struct {
	Time    string `json:"time"`
	EndTime string `json:"end_time"`
}

type PublishAvailabilityResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type AvailableDatesResponse struct {
	AvailableDates []string `json:"available_dates"`
}

type DoctorResponse struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Speciality string    `json:"speciality"`
	Email      string    `json:"email"`
}

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Notes    string `json:"notes,omitempty"`
}

type DecisionRequest struct {
	NotificationID string `json:"notification_id"`
	Reason         string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID               uuid.UUID `json:"id"`
	DoctorID         uuid.UUID `json:"doctor_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	DoctorName       string    `json:"doctor_name"`
	PatientName      string    `json:"patient_name"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	EndTime          string    `json:"end_time"`
	Status           string    `json:"status"`
	DoctorConfirmed  bool      `json:"doctor_confirmed"`
	PatientConfirmed bool      `json:"patient_confirmed"`
}

type PresenceResponse struct {
	DoctorConfirmed  bool       `json:"doctor_confirmed"`
	PatientConfirmed bool       `json:"patient_confirmed"`
	RoomID           *uuid.UUID `json:"room_id,omitempty"`
	RoomURL          string     `json:"room_url,omitempty"`
}

type NotificationResponse struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	Message       string     `json:"message"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type AckResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
