package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/teleclinic/telemed-scheduling/internal/redis"
)

var (
	ErrSlotTaken               = errors.New("slot already has an active appointment")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrForbidden               = errors.New("caller is not a party of this appointment")
	ErrDateNotBookable         = errors.New("appointments can only be scheduled from tomorrow")
	ErrRoomClosed              = errors.New("consultation room already ended")
	ErrEmptyMessage            = errors.New("message content is required")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

func slotLockKey(doctorID uuid.UUID, date, start string) string {
	return fmt.Sprintf("lock:slot:%s:%s:%s", doctorID, date, start)
}

func appointmentLockKey(id uuid.UUID) string {
	return fmt.Sprintf("lock:appointment:%s", id)
}

// participants loads both profiles referenced by an appointment.
func participants(ctx context.Context, r Repository, appt *Appointment) (*Doctor, *Patient, error) {
	doctor, err := r.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		return nil, nil, fmt.Errorf("load doctor: %w", err)
	}
	patient, err := r.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, nil, fmt.Errorf("load patient: %w", err)
	}
	return doctor, patient, nil
}

// resolveParty maps a caller's user id onto one side of the appointment.
func resolveParty(doctor *Doctor, patient *Patient, userID uuid.UUID) (Party, error) {
	switch userID {
	case doctor.UserID:
		return PartyDoctor, nil
	case patient.UserID:
		return PartyPatient, nil
	}
	return "", ErrForbidden
}

// Book reserves an offered slot for the calling patient. The per-slot
// distributed lock plus the re-check inside the transaction guarantee a
// single winner under concurrent booking; the partial unique index on
// active appointments is the storage-level backstop.
func (s *Service) Book(ctx context.Context, callerUserID, doctorID uuid.UUID, date, start, notes string) (*Appointment, error) {
	patient, err := s.repo.GetPatientByUserID(ctx, callerUserID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	ok, err := afterToday(date, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDateNotBookable
	}

	if _, err := ParseClock(start); err != nil {
		return nil, err
	}
	end, err := slotEnd(start)
	if err != nil {
		return nil, err
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, slotLockKey(doctorID, date, start), func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(r Repository) error {
			if _, err := r.GetSlot(lockCtx, doctorID, date, start); err != nil {
				return fmt.Errorf("load slot: %w", err)
			}

			// Inside the critical section re-check the ledger for this slot.
			existing, err := r.FindActiveAppointmentForSlot(lockCtx, doctorID, date, start)
			if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
				return fmt.Errorf("check active appointment: %w", err)
			}
			if existing != nil {
				return ErrSlotTaken
			}

			now := time.Now()
			appt := &Appointment{
				ID:          uuid.New(),
				DoctorID:    doctor.ID,
				PatientID:   patient.ID,
				DoctorName:  doctor.FullName,
				PatientName: patient.FullName,
				Date:        date,
				StartTime:   start,
				EndTime:     end,
				Status:      StatusPending,
				Notes:       notes,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := r.CreateAppointment(lockCtx, appt); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}

			if err := s.dispatch(lockCtx, r, &Notification{
				RecipientID:   doctor.UserID,
				Type:          NotificationAppointmentCreated,
				Message:       createdMessage(patient.FullName, date, start),
				AppointmentID: &appt.ID,
			}); err != nil {
				return err
			}

			created = appt
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", doctor.ID.String()).
		Str("date", date).
		Str("start", start).
		Msg("appointment booked")

	return created, nil
}

// Cancel moves a pending or confirmed appointment to cancelled, releases the
// slot and notifies the other party. If the patient cancels while still
// pending, the original creation notification is withdrawn from the doctor.
func (s *Service) Cancel(ctx context.Context, callerUserID, appointmentID uuid.UUID) error {
	err := s.locker.WithLock(ctx, appointmentLockKey(appointmentID), func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(r Repository) error {
			appt, err := r.GetAppointmentForUpdate(lockCtx, appointmentID)
			if err != nil {
				return fmt.Errorf("load appointment: %w", err)
			}

			doctor, patient, err := participants(lockCtx, r, appt)
			if err != nil {
				return err
			}
			party, err := resolveParty(doctor, patient, callerUserID)
			if err != nil {
				return err
			}

			if appt.Status != StatusPending && appt.Status != StatusConfirmed {
				return ErrInvalidStatusTransition
			}

			if party == PartyPatient && appt.Status == StatusPending {
				if err := r.DeleteAppointmentNotifications(lockCtx, doctor.UserID, NotificationAppointmentCreated, appt.ID); err != nil {
					return fmt.Errorf("withdraw creation notification: %w", err)
				}
			}

			appt.Status = StatusCancelled
			appt.UpdatedAt = time.Now()
			if err := r.SaveAppointment(lockCtx, appt); err != nil {
				return fmt.Errorf("cancel appointment: %w", err)
			}

			if err := r.EnsureSlot(lockCtx, appt.DoctorID, appt.Date, appt.StartTime, appt.EndTime); err != nil {
				return fmt.Errorf("release slot: %w", err)
			}

			n := &Notification{
				Type:          NotificationAppointmentCancelled,
				AppointmentID: &appt.ID,
			}
			if party == PartyPatient {
				n.RecipientID = doctor.UserID
				n.Message = cancelledMessage(PartyPatient, patient.FullName, appt.Date, appt.StartTime)
			} else {
				n.RecipientID = patient.UserID
				n.Message = cancelledMessage(PartyDoctor, doctor.FullName, appt.Date, appt.StartTime)
			}
			return s.dispatch(lockCtx, r, n)
		})
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return ErrSlotBeingBooked
		}
		return err
	}

	s.log.Info().Str("appointment_id", appointmentID.String()).Msg("appointment cancelled")
	return nil
}

// Accept confirms a pending appointment. Only the assigned doctor may accept;
// the triggering creation notification is marked read and the patient is
// notified.
func (s *Service) Accept(ctx context.Context, callerUserID, appointmentID, notificationID uuid.UUID) (*Appointment, error) {
	return s.decide(ctx, callerUserID, appointmentID, notificationID, StatusConfirmed, "")
}

// Refuse declines a pending or already confirmed appointment, releases the
// slot and notifies the
// patient. The optional reason is appended to the patient-facing message.
func (s *Service) Refuse(ctx context.Context, callerUserID, appointmentID, notificationID uuid.UUID, reason string) (*Appointment, error) {
	return s.decide(ctx, callerUserID, appointmentID, notificationID, StatusRefused, reason)
}

func (s *Service) decide(ctx context.Context, callerUserID, appointmentID, notificationID uuid.UUID, to AppointmentStatus, reason string) (*Appointment, error) {
	var decided *Appointment

	err := s.locker.WithLock(ctx, appointmentLockKey(appointmentID), func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(r Repository) error {
			appt, err := r.GetAppointmentForUpdate(lockCtx, appointmentID)
			if err != nil {
				return fmt.Errorf("load appointment: %w", err)
			}

			doctor, patient, err := participants(lockCtx, r, appt)
			if err != nil {
				return err
			}
			party, err := resolveParty(doctor, patient, callerUserID)
			if err != nil {
				return err
			}
			if party != PartyDoctor {
				return ErrForbidden
			}

			// A doctor can refuse an appointment they already confirmed;
			// accepting is only valid while pending.
			switch {
			case appt.Status == StatusPending:
			case to == StatusRefused && appt.Status == StatusConfirmed:
			default:
				return ErrInvalidStatusTransition
			}

			notification, err := r.GetNotificationByID(lockCtx, notificationID)
			if err != nil {
				return fmt.Errorf("load notification: %w", err)
			}
			if !notification.IsRead {
				if err := r.MarkNotificationRead(lockCtx, notification.ID); err != nil {
					return fmt.Errorf("mark notification read: %w", err)
				}
			}

			appt.Status = to
			appt.UpdatedAt = time.Now()
			if err := r.SaveAppointment(lockCtx, appt); err != nil {
				return fmt.Errorf("update appointment: %w", err)
			}

			if to == StatusRefused {
				if err := r.EnsureSlot(lockCtx, appt.DoctorID, appt.Date, appt.StartTime, appt.EndTime); err != nil {
					return fmt.Errorf("release slot: %w", err)
				}
				// The refusal notice carries no back-reference so it
				// survives if the appointment row is ever purged.
				if err := s.dispatch(lockCtx, r, &Notification{
					RecipientID: patient.UserID,
					Type:        NotificationAppointmentRefused,
					Message:     refusedMessage(doctor.FullName, appt.Date, appt.StartTime, reason),
				}); err != nil {
					return err
				}
			} else {
				senderID := doctor.UserID
				if err := s.dispatch(lockCtx, r, &Notification{
					RecipientID:   patient.UserID,
					SenderID:      &senderID,
					Type:          NotificationAppointmentAccepted,
					Message:       acceptedMessage(doctor.FullName, appt.Date, appt.StartTime),
					AppointmentID: &appt.ID,
				}); err != nil {
					return err
				}
			}

			decided = appt
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appointmentID.String()).
		Str("status", string(to)).
		Msg("appointment decided")

	return decided, nil
}
