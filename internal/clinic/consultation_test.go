package clinic

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// confirmedAppointment walks a booking through acceptance so consultation
// tests start from a confirmed state.
func confirmedAppointment(t *testing.T, svc *Service, repo *memRepo) (*Doctor, *Patient, *Appointment) {
	t.Helper()
	ctx := context.Background()

	doctor := addDoctor(repo, "Martin", "Cardiologie")
	patient := addPatient(repo, "Durand")
	date := futureDate(3)
	offerSlot(repo, doctor.ID, date, "09:00")

	appt, err := svc.Book(ctx, patient.UserID, doctor.ID, date, "09:00", "")
	require.NoError(t, err)
	notice := creationNotification(repo, doctor.UserID, appt.ID)
	require.NotNil(t, notice)
	appt, err = svc.Accept(ctx, doctor.UserID, appt.ID, notice.ID)
	require.NoError(t, err)

	return doctor, patient, appt
}

func TestConfirmPresenceFirstPartyNotifiesOther(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	doctor, patient, appt := confirmedAppointment(t, svc, repo)

	status, err := svc.ConfirmPresence(ctx, patient.UserID, appt.ID)
	require.NoError(t, err)
	require.True(t, status.PatientConfirmed)
	require.False(t, status.DoctorConfirmed)
	require.Nil(t, status.RoomID)

	stored, err := repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, stored.Status)

	unread, err := svc.ListUnreadNotifications(ctx, doctor.UserID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, NotificationConsultationJoined, unread[0].Type)
	require.Contains(t, unread[0].Message, patient.FullName)
}

func TestConfirmPresenceBothPartiesOpensRoom(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	doctor, patient, appt := confirmedAppointment(t, svc, repo)

	_, err := svc.ConfirmPresence(ctx, doctor.UserID, appt.ID)
	require.NoError(t, err)
	status, err := svc.ConfirmPresence(ctx, patient.UserID, appt.ID)
	require.NoError(t, err)

	require.True(t, status.DoctorConfirmed)
	require.True(t, status.PatientConfirmed)
	require.NotNil(t, status.RoomID)
	require.Equal(t, "/consultation/"+status.RoomID.String()+"/", status.RoomURL)

	stored, err := repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, stored.Status)
}

func TestConfirmPresenceOrderDoesNotMatter(t *testing.T) {
	for name, first := range map[string]Party{"doctor first": PartyDoctor, "patient first": PartyPatient} {
		t.Run(name, func(t *testing.T) {
			svc, repo := newTestService()
			ctx := context.Background()
			doctor, patient, appt := confirmedAppointment(t, svc, repo)

			order := []uuid.UUID{doctor.UserID, patient.UserID}
			if first == PartyPatient {
				order = []uuid.UUID{patient.UserID, doctor.UserID}
			}

			for _, userID := range order {
				_, err := svc.ConfirmPresence(ctx, userID, appt.ID)
				require.NoError(t, err)
			}

			stored, err := repo.GetAppointmentByID(ctx, appt.ID)
			require.NoError(t, err)
			require.Equal(t, StatusInProgress, stored.Status)
			require.True(t, stored.DoctorConfirmed)
			require.True(t, stored.PatientConfirmed)
		})
	}
}

func TestConfirmPresenceConcurrentCreatesOneRoom(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	doctor, patient, appt := confirmedAppointment(t, svc, repo)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []uuid.UUID{doctor.UserID, patient.UserID} {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.ConfirmPresence(ctx, userID, appt.ID)
		}(i, userID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	repo.mu.Lock()
	rooms := 0
	for _, r := range repo.rooms {
		if r.AppointmentID == appt.ID {
			rooms++
		}
	}
	repo.mu.Unlock()
	require.Equal(t, 1, rooms)
}

func TestConfirmPresenceRepeatResolvesExistingRoom(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	doctor, patient, appt := confirmedAppointment(t, svc, repo)

	_, err := svc.ConfirmPresence(ctx, doctor.UserID, appt.ID)
	require.NoError(t, err)
	first, err := svc.ConfirmPresence(ctx, patient.UserID, appt.ID)
	require.NoError(t, err)

	again, err := svc.ConfirmPresence(ctx, patient.UserID, appt.ID)
	require.NoError(t, err)
	require.Equal(t, *first.RoomID, *again.RoomID)
}

func TestConfirmPresencePendingRejected(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	doctor := addDoctor(repo, "Martin", "Cardiologie")
	patient := addPatient(repo, "Durand")
	date := futureDate(3)
	offerSlot(repo, doctor.ID, date, "09:00")

	appt, err := svc.Book(ctx, patient.UserID, doctor.ID, date, "09:00", "")
	require.NoError(t, err)

	_, err = svc.ConfirmPresence(ctx, patient.UserID, appt.ID)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestEndConsultationCompletesAndRecordsOnce(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	doctor, patient, appt := confirmedAppointment(t, svc, repo)

	_, err := svc.ConfirmPresence(ctx, doctor.UserID, appt.ID)
	require.NoError(t, err)
	status, err := svc.ConfirmPresence(ctx, patient.UserID, appt.ID)
	require.NoError(t, err)

	require.NoError(t, svc.EndConsultation(ctx, doctor.UserID, *status.RoomID))

	stored, err := repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)

	room, err := repo.GetRoomByID(ctx, *status.RoomID)
	require.NoError(t, err)
	require.False(t, room.IsActive)
	require.NotNil(t, room.EndTime)

	repo.mu.Lock()
	var recorded []*Consultation
	for _, c := range repo.consultations {
		if c.AppointmentID == appt.ID {
			recorded = append(recorded, c)
		}
	}
	repo.mu.Unlock()
	require.Len(t, recorded, 1)
	require.Equal(t, "Consultation de Cardiologie avec Dr. Martin", recorded[0].Notes)
	require.Equal(t, appt.Date, recorded[0].Date)

	// A second end must not complete twice or write a second record.
	require.ErrorIs(t, svc.EndConsultation(ctx, patient.UserID, *status.RoomID), ErrRoomClosed)

	repo.mu.Lock()
	count := len(repo.consultations)
	repo.mu.Unlock()
	require.Equal(t, 1, count)
}

func TestEndConsultationByStrangerForbidden(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	doctor, patient, appt := confirmedAppointment(t, svc, repo)
	stranger := addPatient(repo, "Lefevre")

	_, err := svc.ConfirmPresence(ctx, doctor.UserID, appt.ID)
	require.NoError(t, err)
	status, err := svc.ConfirmPresence(ctx, patient.UserID, appt.ID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.EndConsultation(ctx, stranger.UserID, *status.RoomID), ErrForbidden)
}

func TestMessagesInActiveRoom(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	doctor, patient, appt := confirmedAppointment(t, svc, repo)

	_, err := svc.ConfirmPresence(ctx, doctor.UserID, appt.ID)
	require.NoError(t, err)
	status, err := svc.ConfirmPresence(ctx, patient.UserID, appt.ID)
	require.NoError(t, err)
	roomID := *status.RoomID

	_, err = svc.PostMessage(ctx, doctor.UserID, roomID, "Bonjour")
	require.NoError(t, err)
	_, err = svc.PostMessage(ctx, patient.UserID, roomID, "Bonjour docteur")
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, patient.UserID, roomID, "")
	require.ErrorIs(t, err, ErrEmptyMessage)

	messages, err := svc.ListMessages(ctx, patient.UserID, roomID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "Bonjour", messages[0].Content)
	require.Equal(t, "Bonjour docteur", messages[1].Content)

	require.NoError(t, svc.EndConsultation(ctx, doctor.UserID, roomID))

	_, err = svc.PostMessage(ctx, doctor.UserID, roomID, "trop tard")
	require.ErrorIs(t, err, ErrRoomClosed)
}

func TestConsultationStatusReflectsFlags(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	doctor, patient, appt := confirmedAppointment(t, svc, repo)

	status, err := svc.ConsultationStatus(ctx, patient.UserID, appt.ID)
	require.NoError(t, err)
	require.False(t, status.DoctorConfirmed)
	require.False(t, status.PatientConfirmed)
	require.Nil(t, status.RoomID)

	_, err = svc.ConfirmPresence(ctx, doctor.UserID, appt.ID)
	require.NoError(t, err)

	status, err = svc.ConsultationStatus(ctx, patient.UserID, appt.ID)
	require.NoError(t, err)
	require.True(t, status.DoctorConfirmed)
	require.False(t, status.PatientConfirmed)
}
