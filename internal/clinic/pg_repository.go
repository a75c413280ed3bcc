package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgConn is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// repository code serves plain and transaction-scoped access.
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db pgConn
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

func (r *PgRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&PgRepository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const activeStatuses = `('pending', 'confirmed', 'in_progress')`

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.FullName,
		&d.Email,
		&d.LicenseNumber,
		&d.Speciality,
		&d.IsVerified,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&p.Email,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.DoctorName,
		&a.PatientName,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.DoctorConfirmed,
		&a.PatientConfirmed,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.SenderID,
		&n.Type,
		&n.Message,
		&n.IsRead,
		&n.AppointmentID,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func scanRoom(row pgx.Row) (*ConsultationRoom, error) {
	var room ConsultationRoom
	err := row.Scan(
		&room.ID,
		&room.AppointmentID,
		&room.DoctorID,
		&room.PatientID,
		&room.CreatedAt,
		&room.EndTime,
		&room.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

const appointmentColumns = `id, doctor_id, patient_id, doctor_name, patient_name,
		       date, start_time, end_time, status, doctor_confirmed, patient_confirmed,
		       notes, created_at, updated_at`

// Doctors and patients

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, full_name, email, license_number, speciality, is_verified, created_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, full_name, email, license_number, speciality, is_verified, created_at
		FROM doctors
		WHERE user_id = $1
	`, userID)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctorsBySpeciality(ctx context.Context, speciality string) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, full_name, email, license_number, speciality, is_verified, created_at
		FROM doctors
		WHERE speciality = $1 AND is_verified
		ORDER BY full_name
	`, speciality)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, full_name, email, created_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, full_name, email, created_at
		FROM patients
		WHERE user_id = $1
	`, userID)
	return scanPatient(row)
}

// Slots

func (r *PgRepository) ReplaceSlots(ctx context.Context, doctorID uuid.UUID, date string, slots []Slot) error {
	return r.WithTx(ctx, func(repo Repository) error {
		tr := repo.(*PgRepository)

		if _, err := tr.db.Exec(ctx, `
			DELETE FROM slots WHERE doctor_id = $1 AND date = $2
		`, doctorID, date); err != nil {
			return fmt.Errorf("delete slots: %w", err)
		}

		for _, s := range slots {
			if _, err := tr.db.Exec(ctx, `
				INSERT INTO slots (id, doctor_id, date, start_time, end_time, created_at)
				VALUES ($1, $2, $3, $4, $5, now())
			`, s.ID, s.DoctorID, s.Date, s.StartTime, s.EndTime); err != nil {
				return fmt.Errorf("insert slot: %w", err)
			}
		}
		return nil
	})
}

func (r *PgRepository) DeleteDoctorSlots(ctx context.Context, doctorID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM slots WHERE doctor_id = $1`, doctorID)
	return err
}

func (r *PgRepository) EnsureSlot(ctx context.Context, doctorID uuid.UUID, date, start, end string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO slots (id, doctor_id, date, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (doctor_id, date, start_time, end_time) DO NOTHING
	`, uuid.New(), doctorID, date, start, end)
	return err
}

func (r *PgRepository) GetSlot(ctx context.Context, doctorID uuid.UUID, date, start string) (*Slot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, doctor_id, date, start_time, end_time, created_at
		FROM slots
		WHERE doctor_id = $1 AND date = $2 AND start_time = $3
	`, doctorID, date, start)
	return scanSlot(row)
}

func (r *PgRepository) ListOpenSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]Slot, error) {
	return r.listOpenSlots(ctx, doctorID, date, date)
}

func (r *PgRepository) ListOpenSlotsInRange(ctx context.Context, doctorID uuid.UUID, from, to string) ([]Slot, error) {
	return r.listOpenSlots(ctx, doctorID, from, to)
}

func (r *PgRepository) listOpenSlots(ctx context.Context, doctorID uuid.UUID, from, to string) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.doctor_id, s.date, s.start_time, s.end_time, s.created_at
		FROM slots s
		WHERE s.doctor_id = $1
		  AND s.date >= $2
		  AND s.date <= $3
		  AND NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.doctor_id = s.doctor_id
			  AND a.date = s.date
			  AND a.start_time = s.start_time
			  AND a.status IN `+activeStatuses+`
		  )
		ORDER BY s.date, s.start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, doctor_name, patient_name,
		                          date, start_time, end_time, status,
		                          doctor_confirmed, patient_confirmed, notes,
		                          created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
	`, appt.ID, appt.DoctorID, appt.PatientID, appt.DoctorName, appt.PatientName,
		appt.Date, appt.StartTime, appt.EndTime, appt.Status,
		appt.DoctorConfirmed, appt.PatientConfirmed, appt.Notes)
	return err
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) SaveAppointment(ctx context.Context, appt *Appointment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    doctor_confirmed = $3,
		    patient_confirmed = $4,
		    notes = $5,
		    updated_at = now()
		WHERE id = $1
	`, appt.ID, appt.Status, appt.DoctorConfirmed, appt.PatientConfirmed, appt.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) FindActiveAppointmentForSlot(ctx context.Context, doctorID uuid.UUID, date, start string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		  AND start_time = $3
		  AND status IN `+activeStatuses+`
	`, doctorID, date, start)
	return scanAppointment(row)
}

// Notifications

func (r *PgRepository) CreateNotification(ctx context.Context, n *Notification) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, sender_id, type, message, is_read, appointment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`, n.ID, n.RecipientID, n.SenderID, n.Type, n.Message, n.IsRead, n.AppointmentID, nullableTime(n.CreatedAt))
	return err
}

func (r *PgRepository) GetNotificationByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, recipient_id, sender_id, type, message, is_read, appointment_id, created_at
		FROM notifications
		WHERE id = $1
	`, id)
	return scanNotification(row)
}

func (r *PgRepository) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read = true WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) DeleteAppointmentNotifications(ctx context.Context, recipientID uuid.UUID, typ NotificationType, appointmentID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM notifications
		WHERE recipient_id = $1 AND type = $2 AND appointment_id = $3
	`, recipientID, typ, appointmentID)
	return err
}

func (r *PgRepository) ListUnreadNotifications(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, recipient_id, sender_id, type, message, is_read, appointment_id, created_at
		FROM notifications
		WHERE recipient_id = $1 AND NOT is_read
		ORDER BY created_at DESC
	`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *PgRepository) CountUnreadNotifications(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read
	`, recipientID).Scan(&count)
	return count, err
}

// Consultation rooms and records

func (r *PgRepository) CreateRoom(ctx context.Context, room *ConsultationRoom) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO consultation_rooms (id, appointment_id, doctor_id, patient_id, created_at, end_time, is_active)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), $6, $7)
	`, room.ID, room.AppointmentID, room.DoctorID, room.PatientID, nullableTime(room.CreatedAt), room.EndTime, room.IsActive)
	return err
}

func (r *PgRepository) GetRoomByID(ctx context.Context, id uuid.UUID) (*ConsultationRoom, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, appointment_id, doctor_id, patient_id, created_at, end_time, is_active
		FROM consultation_rooms
		WHERE id = $1
	`, id)
	return scanRoom(row)
}

func (r *PgRepository) GetRoomByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ConsultationRoom, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, appointment_id, doctor_id, patient_id, created_at, end_time, is_active
		FROM consultation_rooms
		WHERE appointment_id = $1
	`, appointmentID)
	return scanRoom(row)
}

func (r *PgRepository) CloseRoom(ctx context.Context, id uuid.UUID, endedAt time.Time) (*ConsultationRoom, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE consultation_rooms
		SET is_active = false,
		    end_time = $2
		WHERE id = $1
		  AND is_active
		RETURNING id, appointment_id, doctor_id, patient_id, created_at, end_time, is_active
	`, id, endedAt)
	return scanRoom(row)
}

func (r *PgRepository) CreateConsultation(ctx context.Context, c *Consultation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO consultations (id, appointment_id, doctor_id, patient_id,
		                           doctor_name, patient_name, date, start_time, end_time,
		                           notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	`, c.ID, c.AppointmentID, c.DoctorID, c.PatientID,
		c.DoctorName, c.PatientName, c.Date, c.StartTime, c.EndTime, c.Notes)
	return err
}

func (r *PgRepository) CreateMessage(ctx context.Context, m *ConsultationMessage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO consultation_messages (id, room_id, sender_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`, m.ID, m.RoomID, m.SenderID, m.Content, m.IsRead, nullableTime(m.CreatedAt))
	return err
}

func (r *PgRepository) ListRoomMessages(ctx context.Context, roomID uuid.UUID) ([]ConsultationMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room_id, sender_id, content, is_read, created_at
		FROM consultation_messages
		WHERE room_id = $1
		ORDER BY created_at
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ConsultationMessage
	for rows.Next() {
		var m ConsultationMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
