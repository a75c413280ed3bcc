package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/teleclinic/telemed-scheduling/internal/redis"
)

// PresenceStatus reports the dual-confirmation flags of a confirmed
// appointment and, once both parties have confirmed, the room reference.
type PresenceStatus struct {
	DoctorConfirmed  bool
	PatientConfirmed bool
	RoomID           *uuid.UUID
	RoomURL          string
}

func roomURL(id uuid.UUID) string {
	return fmt.Sprintf("/consultation/%s/", id)
}

// ConfirmPresence records that the caller is ready for the consultation.
// When the second party confirms, the appointment moves to in_progress and
// the room is looked up or created, never duplicated: the per-appointment
// lock serializes simultaneous confirms from both sides.
func (s *Service) ConfirmPresence(ctx context.Context, callerUserID, appointmentID uuid.UUID) (*PresenceStatus, error) {
	var status *PresenceStatus

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

			switch appt.Status {
			case StatusConfirmed:
			case StatusInProgress:
				// Both parties already confirmed; a repeat call just
				// resolves the existing room.
				room, err := r.GetRoomByAppointment(lockCtx, appt.ID)
				if err != nil {
					return fmt.Errorf("load room: %w", err)
				}
				status = presenceWithRoom(appt, room)
				return nil
			default:
				return ErrInvalidStatusTransition
			}

			if party == PartyDoctor {
				appt.DoctorConfirmed = true
			} else {
				appt.PatientConfirmed = true
			}
			appt.UpdatedAt = time.Now()

			if appt.DoctorConfirmed && appt.PatientConfirmed {
				appt.Status = StatusInProgress
				if err := r.SaveAppointment(lockCtx, appt); err != nil {
					return fmt.Errorf("start consultation: %w", err)
				}

				room, err := r.GetRoomByAppointment(lockCtx, appt.ID)
				if errors.Is(err, ErrRoomNotFound) {
					room = &ConsultationRoom{
						ID:            uuid.New(),
						AppointmentID: appt.ID,
						DoctorID:      doctor.ID,
						PatientID:     patient.ID,
						CreatedAt:     time.Now(),
						IsActive:      true,
					}
					if err := r.CreateRoom(lockCtx, room); err != nil {
						return fmt.Errorf("create room: %w", err)
					}
				} else if err != nil {
					return fmt.Errorf("load room: %w", err)
				}

				status = presenceWithRoom(appt, room)
				return nil
			}

			if err := r.SaveAppointment(lockCtx, appt); err != nil {
				return fmt.Errorf("record confirmation: %w", err)
			}

			n := &Notification{
				Type:          NotificationConsultationJoined,
				AppointmentID: &appt.ID,
			}
			if party == PartyDoctor {
				n.RecipientID = patient.UserID
				n.Message = joinedMessage(PartyDoctor, doctor.FullName, appt.Date, appt.StartTime)
			} else {
				n.RecipientID = doctor.UserID
				n.Message = joinedMessage(PartyPatient, patient.FullName, appt.Date, appt.StartTime)
			}
			if err := s.dispatch(lockCtx, r, n); err != nil {
				return err
			}

			status = &PresenceStatus{
				DoctorConfirmed:  appt.DoctorConfirmed,
				PatientConfirmed: appt.PatientConfirmed,
			}
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return status, nil
}

func presenceWithRoom(appt *Appointment, room *ConsultationRoom) *PresenceStatus {
	id := room.ID
	return &PresenceStatus{
		DoctorConfirmed:  appt.DoctorConfirmed,
		PatientConfirmed: appt.PatientConfirmed,
		RoomID:           &id,
		RoomURL:          roomURL(id),
	}
}

// ConsultationStatus reports the confirmation flags and the room reference if
// one exists. Read-only; no lock needed.
func (s *Service) ConsultationStatus(ctx context.Context, callerUserID, appointmentID uuid.UUID) (*PresenceStatus, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	doctor, patient, err := participants(ctx, s.repo, appt)
	if err != nil {
		return nil, err
	}
	if _, err := resolveParty(doctor, patient, callerUserID); err != nil {
		return nil, err
	}

	room, err := s.repo.GetRoomByAppointment(ctx, appt.ID)
	if errors.Is(err, ErrRoomNotFound) {
		return &PresenceStatus{
			DoctorConfirmed:  appt.DoctorConfirmed,
			PatientConfirmed: appt.PatientConfirmed,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	return presenceWithRoom(appt, room), nil
}

// EndConsultation closes an active room, completes the appointment and writes
// the single historical consultation record snapshotting the realized span.
// Closing is a compare-and-swap on the room's active flag, so a second end
// fails with ErrRoomClosed instead of duplicating the record.
func (s *Service) EndConsultation(ctx context.Context, callerUserID, roomID uuid.UUID) error {
	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("load room: %w", err)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, room.DoctorID)
	if err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}
	patient, err := s.repo.GetPatientByID(ctx, room.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	if _, err := resolveParty(doctor, patient, callerUserID); err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(r Repository) error {
		endedAt := time.Now()

		closed, err := r.CloseRoom(ctx, room.ID, endedAt)
		if err != nil {
			if errors.Is(err, ErrRoomNotFound) {
				return ErrRoomClosed
			}
			return fmt.Errorf("close room: %w", err)
		}

		appt, err := r.UpdateAppointmentStatus(ctx, closed.AppointmentID, StatusInProgress, StatusCompleted)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrInvalidStatusTransition
			}
			return fmt.Errorf("complete appointment: %w", err)
		}

		consultation := &Consultation{
			ID:            uuid.New(),
			AppointmentID: appt.ID,
			DoctorID:      doctor.ID,
			PatientID:     patient.ID,
			DoctorName:    doctor.FullName,
			PatientName:   patient.FullName,
			Date:          appt.Date,
			StartTime:     closed.CreatedAt.Format(ClockLayout),
			EndTime:       endedAt.Format(ClockLayout),
			Notes:         fmt.Sprintf("Consultation de %s avec Dr. %s", doctor.Speciality, doctor.FullName),
			CreatedAt:     endedAt,
		}
		if err := r.CreateConsultation(ctx, consultation); err != nil {
			return fmt.Errorf("record consultation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("room_id", roomID.String()).
		Str("appointment_id", room.AppointmentID.String()).
		Msg("consultation ended")

	return nil
}

// PostMessage appends a text message to an active room. Attachments are a
// presentation-layer concern and are not handled here.
func (s *Service) PostMessage(ctx context.Context, callerUserID, roomID uuid.UUID, content string) (*ConsultationMessage, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}

	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	if !room.IsActive {
		return nil, ErrRoomClosed
	}

	if err := s.requireParticipant(ctx, room, callerUserID); err != nil {
		return nil, err
	}

	msg := &ConsultationMessage{
		ID:        uuid.New(),
		RoomID:    room.ID,
		SenderID:  callerUserID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// ListMessages returns a room's messages in chronological order.
func (s *Service) ListMessages(ctx context.Context, callerUserID, roomID uuid.UUID) ([]ConsultationMessage, error) {
	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	if err := s.requireParticipant(ctx, room, callerUserID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListRoomMessages(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (s *Service) requireParticipant(ctx context.Context, room *ConsultationRoom, userID uuid.UUID) error {
	doctor, err := s.repo.GetDoctorByID(ctx, room.DoctorID)
	if err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}
	patient, err := s.repo.GetPatientByID(ctx, room.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	_, err = resolveParty(doctor, patient, userID)
	return err
}
