package clinic

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "pending"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusRefused    AppointmentStatus = "refused"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusCompleted  AppointmentStatus = "completed"
)

// Terminal reports whether no further transition can leave this status.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusRefused, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type NotificationType string

const (
	NotificationAppointmentCreated   NotificationType = "appointment_created"
	NotificationAppointmentAccepted  NotificationType = "appointment_accepted"
	NotificationAppointmentRefused   NotificationType = "appointment_refused"
	NotificationAppointmentCancelled NotificationType = "appointment_cancelled"
	NotificationConsultationJoined   NotificationType = "consultation_joined"
)

// Party identifies which side of an appointment a caller acts as, resolved
// once per operation instead of repeated user-id comparisons.
type Party string

const (
	PartyDoctor  Party = "doctor"
	PartyPatient Party = "patient"
)

var Specialities = []string{
	"Médecine Général",
	"Cardiologie",
	"Neurologie",
	"Dentiste",
	"Ophtalmologie",
	"Orthopédie",
}

type Doctor struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	FullName      string
	Email         string
	LicenseNumber string
	Speciality    string
	IsVerified    bool
	CreatedAt     time.Time
}

type Patient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FullName  string
	Email     string
	CreatedAt time.Time
}

// Slot is a doctor-declared offered half-hour. Whether it is bookable is
// derived from the appointment ledger, not stored on the row.
type Slot struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      string
	StartTime string
	EndTime   string
	CreatedAt time.Time
}

type Appointment struct {
	ID               uuid.UUID
	DoctorID         uuid.UUID
	PatientID        uuid.UUID
	DoctorName       string
	PatientName      string
	Date             string
	StartTime        string
	EndTime          string
	Status           AppointmentStatus
	DoctorConfirmed  bool
	PatientConfirmed bool
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Notification struct {
	ID            uuid.UUID
	RecipientID   uuid.UUID
	SenderID      *uuid.UUID
	Type          NotificationType
	Message       string
	IsRead        bool
	AppointmentID *uuid.UUID
	CreatedAt     time.Time
}

type ConsultationRoom struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	CreatedAt     time.Time
	EndTime       *time.Time
	IsActive      bool
}

// Consultation is the immutable record written once when a room ends.
type Consultation struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	DoctorName    string
	PatientName   string
	Date          string
	StartTime     string
	EndTime       string
	Notes         string
	CreatedAt     time.Time
}

type ConsultationMessage struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	SenderID  uuid.UUID
	Content   string
	IsRead    bool
	CreatedAt time.Time
}
