package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrRoomNotFound         = errors.New("consultation room not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// WithTx runs fn against a transaction-scoped repository. Compound
	// transitions (book, cancel, accept, refuse, dual-confirm, end) go
	// through here so a failure never leaves a partial mutation behind.
	WithTx(ctx context.Context, fn func(Repository) error) error

	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	ListDoctorsBySpeciality(ctx context.Context, speciality string) ([]Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)

	// Offered slots. ReplaceSlots implements full-republish semantics for one
	// (doctor, date); EnsureSlot is the idempotent release used when an
	// appointment leaves a booked state.
	ReplaceSlots(ctx context.Context, doctorID uuid.UUID, date string, slots []Slot) error
	DeleteDoctorSlots(ctx context.Context, doctorID uuid.UUID) error
	EnsureSlot(ctx context.Context, doctorID uuid.UUID, date, start, end string) error
	GetSlot(ctx context.Context, doctorID uuid.UUID, date, start string) (*Slot, error)

	// Open-slot queries derive availability from the appointment ledger: a
	// slot is open iff no non-terminal appointment holds its (date, start).
	ListOpenSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]Slot, error)
	ListOpenSlotsInRange(ctx context.Context, doctorID uuid.UUID, from, to string) ([]Slot, error)

	CreateAppointment(ctx context.Context, appt *Appointment) error
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetAppointmentForUpdate locks the row for the duration of the enclosing
	// transaction (SELECT .. FOR UPDATE). Only meaningful inside WithTx.
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	SaveAppointment(ctx context.Context, appt *Appointment) error
	// UpdateAppointmentStatus is a compare-and-swap: the update applies only
	// if the current status matches from, otherwise ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	FindActiveAppointmentForSlot(ctx context.Context, doctorID uuid.UUID, date, start string) (*Appointment, error)

	CreateNotification(ctx context.Context, n *Notification) error
	GetNotificationByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	DeleteAppointmentNotifications(ctx context.Context, recipientID uuid.UUID, typ NotificationType, appointmentID uuid.UUID) error
	ListUnreadNotifications(ctx context.Context, recipientID uuid.UUID) ([]Notification, error)
	CountUnreadNotifications(ctx context.Context, recipientID uuid.UUID) (int, error)

	CreateRoom(ctx context.Context, room *ConsultationRoom) error
	GetRoomByID(ctx context.Context, id uuid.UUID) (*ConsultationRoom, error)
	GetRoomByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ConsultationRoom, error)
	// CloseRoom flips is_active exactly once; a room that is already closed
	// yields ErrRoomNotFound so a repeat end cannot double-write.
	CloseRoom(ctx context.Context, id uuid.UUID, endedAt time.Time) (*ConsultationRoom, error)

	CreateConsultation(ctx context.Context, c *Consultation) error
	CreateMessage(ctx context.Context, m *ConsultationMessage) error
	ListRoomMessages(ctx context.Context, roomID uuid.UUID) ([]ConsultationMessage, error)
}
