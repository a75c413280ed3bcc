package clinic

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// memRepo is an in-memory Repository used by the service tests. It is
// guarded by a single mutex, so WithTx only provides the callback scoping,
// not isolation; the tests that race goroutines rely on the mutex plus the
// same re-check the real store does.
type memRepo struct {
	mu            sync.Mutex
	doctors       map[uuid.UUID]*Doctor
	patients      map[uuid.UUID]*Patient
	slots         map[uuid.UUID]*Slot
	appointments  map[uuid.UUID]*Appointment
	notifications map[uuid.UUID]*Notification
	rooms         map[uuid.UUID]*ConsultationRoom
	consultations map[uuid.UUID]*Consultation
	messages      map[uuid.UUID]*ConsultationMessage
}

func newMemRepo() *memRepo {
	return &memRepo{
		doctors:       make(map[uuid.UUID]*Doctor),
		patients:      make(map[uuid.UUID]*Patient),
		slots:         make(map[uuid.UUID]*Slot),
		appointments:  make(map[uuid.UUID]*Appointment),
		notifications: make(map[uuid.UUID]*Notification),
		rooms:         make(map[uuid.UUID]*ConsultationRoom),
		consultations: make(map[uuid.UUID]*Consultation),
		messages:      make(map[uuid.UUID]*ConsultationMessage),
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(Repository) error) error {
	return fn(m)
}

func (m *memRepo) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *memRepo) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doctors {
		if d.UserID == userID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (m *memRepo) ListDoctorsBySpeciality(ctx context.Context, speciality string) ([]Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Doctor
	for _, d := range m.doctors {
		if d.Speciality == speciality && d.IsVerified {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *memRepo) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memRepo) GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (m *memRepo) ReplaceSlots(ctx context.Context, doctorID uuid.UUID, date string, slots []Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.slots {
		if s.DoctorID == doctorID && s.Date == date {
			delete(m.slots, id)
		}
	}
	for i := range slots {
		copied := slots[i]
		m.slots[copied.ID] = &copied
	}
	return nil
}

func (m *memRepo) DeleteDoctorSlots(ctx context.Context, doctorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.slots {
		if s.DoctorID == doctorID {
			delete(m.slots, id)
		}
	}
	return nil
}

func (m *memRepo) EnsureSlot(ctx context.Context, doctorID uuid.UUID, date, start, end string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.Date == date && s.StartTime == start {
			return nil
		}
	}
	s := &Slot{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		CreatedAt: time.Now(),
	}
	m.slots[s.ID] = s
	return nil
}

func (m *memRepo) GetSlot(ctx context.Context, doctorID uuid.UUID, date, start string) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.Date == date && s.StartTime == start {
			copied := *s
			return &copied, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (m *memRepo) hasActiveAppointment(doctorID uuid.UUID, date, start string) bool {
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.StartTime == start && !a.Status.Terminal() {
			return true
		}
	}
	return false
}

func (m *memRepo) ListOpenSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Slot{}
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.Date == date && !m.hasActiveAppointment(doctorID, s.Date, s.StartTime) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *memRepo) ListOpenSlotsInRange(ctx context.Context, doctorID uuid.UUID, from, to string) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Slot{}
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.Date >= from && s.Date <= to && !m.hasActiveAppointment(doctorID, s.Date, s.StartTime) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (m *memRepo) CreateAppointment(ctx context.Context, appt *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *appt
	m.appointments[copied.ID] = &copied
	return nil
}

func (m *memRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *memRepo) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return m.GetAppointmentByID(ctx, id)
}

func (m *memRepo) SaveAppointment(ctx context.Context, appt *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[appt.ID]; !ok {
		return ErrAppointmentNotFound
	}
	copied := *appt
	m.appointments[copied.ID] = &copied
	return nil
}

func (m *memRepo) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	copied := *a
	return &copied, nil
}

func (m *memRepo) FindActiveAppointmentForSlot(ctx context.Context, doctorID uuid.UUID, date, start string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.StartTime == start && !a.Status.Terminal() {
			copied := *a
			return &copied, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepo) CreateNotification(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *n
	m.notifications[copied.ID] = &copied
	return nil
}

func (m *memRepo) GetNotificationByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	copied := *n
	return &copied, nil
}

func (m *memRepo) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (m *memRepo) DeleteAppointmentNotifications(ctx context.Context, recipientID uuid.UUID, typ NotificationType, appointmentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.notifications {
		if n.RecipientID == recipientID && n.Type == typ && n.AppointmentID != nil && *n.AppointmentID == appointmentID {
			delete(m.notifications, id)
		}
	}
	return nil
}

func (m *memRepo) ListUnreadNotifications(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Notification{}
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) CountUnreadNotifications(ctx context.Context, recipientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *memRepo) CreateRoom(ctx context.Context, room *ConsultationRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *room
	m.rooms[copied.ID] = &copied
	return nil
}

func (m *memRepo) GetRoomByID(ctx context.Context, id uuid.UUID) (*ConsultationRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memRepo) GetRoomByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ConsultationRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.AppointmentID == appointmentID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, ErrRoomNotFound
}

func (m *memRepo) CloseRoom(ctx context.Context, id uuid.UUID, endedAt time.Time) (*ConsultationRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok || !r.IsActive {
		return nil, ErrRoomNotFound
	}
	r.IsActive = false
	ended := endedAt
	r.EndTime = &ended
	copied := *r
	return &copied, nil
}

func (m *memRepo) CreateConsultation(ctx context.Context, c *Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *c
	m.consultations[copied.ID] = &copied
	return nil
}

func (m *memRepo) CreateMessage(ctx context.Context, msg *ConsultationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *msg
	m.messages[copied.ID] = &copied
	return nil
}

func (m *memRepo) ListRoomMessages(ctx context.Context, roomID uuid.UUID) ([]ConsultationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ConsultationMessage{}
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// keyedLocker serializes callbacks per key, mirroring the redis locker's
// mutual exclusion without the network.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *keyedLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, newKeyedLocker(), zerolog.Nop()), repo
}

// Fixtures

func addDoctor(repo *memRepo, name, speciality string) *Doctor {
	d := &Doctor{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		FullName:      name,
		Email:         "doctor@example.com",
		LicenseNumber: "LIC-000001",
		Speciality:    speciality,
		IsVerified:    true,
		CreatedAt:     time.Now(),
	}
	repo.doctors[d.ID] = d
	return d
}

func addPatient(repo *memRepo, name string) *Patient {
	p := &Patient{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		FullName:  name,
		Email:     "patient@example.com",
		CreatedAt: time.Now(),
	}
	repo.patients[p.ID] = p
	return p
}

func offerSlot(repo *memRepo, doctorID uuid.UUID, date, start string) *Slot {
	end, _ := slotEnd(start)
	s := &Slot{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		CreatedAt: time.Now(),
	}
	repo.slots[s.ID] = s
	return s
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(DateLayout)
}

func creationNotification(repo *memRepo, doctorUserID uuid.UUID, apptID uuid.UUID) *Notification {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, n := range repo.notifications {
		if n.RecipientID == doctorUserID && n.Type == NotificationAppointmentCreated && n.AppointmentID != nil && *n.AppointmentID == apptID {
			copied := *n
			return &copied
		}
	}
	return nil
}
