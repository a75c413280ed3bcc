package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PublishAvailability atomically replaces the calling doctor's offered slots
// for one date with a fresh batch, one slot per start time. Publishing is a
// full republish, never additive.
func (s *Service) PublishAvailability(ctx context.Context, callerUserID uuid.UUID, date string, startTimes []string) ([]Slot, error) {
	doctor, err := s.repo.GetDoctorByUserID(ctx, callerUserID)
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

	now := time.Now()
	slots := make([]Slot, 0, len(startTimes))
	for _, start := range startTimes {
		end, err := slotEnd(start)
		if err != nil {
			return nil, err
		}
		slots = append(slots, Slot{
			ID:        uuid.New(),
			DoctorID:  doctor.ID,
			Date:      date,
			StartTime: start,
			EndTime:   end,
			CreatedAt: now,
		})
	}

	if err := s.repo.ReplaceSlots(ctx, doctor.ID, date, slots); err != nil {
		return nil, fmt.Errorf("replace slots: %w", err)
	}

	s.log.Info().
		Str("doctor_id", doctor.ID.String()).
		Str("date", date).
		Int("slots", len(slots)).
		Msg("availability published")

	return slots, nil
}

// ClearAvailability removes every offered slot of the calling doctor.
func (s *Service) ClearAvailability(ctx context.Context, callerUserID uuid.UUID) error {
	doctor, err := s.repo.GetDoctorByUserID(ctx, callerUserID)
	if err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}
	if err := s.repo.DeleteDoctorSlots(ctx, doctor.ID); err != nil {
		return fmt.Errorf("delete slots: %w", err)
	}
	return nil
}

// ListAvailableSlots returns the open slots of a doctor on one date. Dates up
// to and including today yield an empty list rather than an error.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]Slot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	ok, err := afterToday(date, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Slot{}, nil
	}

	slots, err := s.repo.ListOpenSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list open slots: %w", err)
	}
	return slots, nil
}

// ListAvailableDates returns the distinct dates within a calendar month on
// which the doctor still has at least one open slot. The range start is
// clamped to tomorrow.
func (s *Service) ListAvailableDates(ctx context.Context, doctorID uuid.UUID, month, year int) ([]string, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if month < 1 || month > 12 {
		return nil, ErrInvalidDate
	}

	from, to := monthRange(year, month, time.Now())
	if from > to {
		return []string{}, nil
	}

	slots, err := s.repo.ListOpenSlotsInRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list open slots in range: %w", err)
	}

	dates := make([]string, 0, len(slots))
	seen := make(map[string]bool, len(slots))
	for _, slot := range slots {
		if !seen[slot.Date] {
			seen[slot.Date] = true
			dates = append(dates, slot.Date)
		}
	}
	return dates, nil
}

// ListDoctorsBySpeciality returns verified doctors offering one speciality.
func (s *Service) ListDoctorsBySpeciality(ctx context.Context, speciality string) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctorsBySpeciality(ctx, speciality)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}
