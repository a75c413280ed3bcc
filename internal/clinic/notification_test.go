package clinic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotificationMessages(t *testing.T) {
	require.Equal(t,
		"Nouveau rendez-vous avec Durand le 05/03/2026 à 09:00",
		createdMessage("Durand", "2026-03-05", "09:00"))

	require.Equal(t,
		"Votre rendez-vous avec Dr. Martin le 05/03/2026 à 09:00 a été accepté",
		acceptedMessage("Martin", "2026-03-05", "09:00"))

	require.Equal(t,
		"Votre rendez-vous avec Dr. Martin le 05/03/2026 à 09:00 a été refusé",
		refusedMessage("Martin", "2026-03-05", "09:00", ""))
	require.Equal(t,
		"Votre rendez-vous avec Dr. Martin le 05/03/2026 à 09:00 a été refusé : congé",
		refusedMessage("Martin", "2026-03-05", "09:00", "congé"))

	require.Equal(t,
		"Rendez-vous annulé par Durand le 05/03/2026 à 09:00",
		cancelledMessage(PartyPatient, "Durand", "2026-03-05", "09:00"))
	require.Equal(t,
		"Rendez-vous annulé par Dr. Martin le 05/03/2026 à 09:00",
		cancelledMessage(PartyDoctor, "Martin", "2026-03-05", "09:00"))

	require.Equal(t,
		"Dr. Martin a confirmé la consultation prévue le 05/03/2026 à 09:00",
		joinedMessage(PartyDoctor, "Martin", "2026-03-05", "09:00"))
}

func TestMarkNotificationReadUpdatesUnreadCount(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	doctor := addDoctor(repo, "Martin", "Cardiologie")
	patient := addPatient(repo, "Durand")
	date := futureDate(3)
	offerSlot(repo, doctor.ID, date, "09:00")
	offerSlot(repo, doctor.ID, date, "10:00")

	a1, err := svc.Book(ctx, patient.UserID, doctor.ID, date, "09:00", "")
	require.NoError(t, err)
	_, err = svc.Book(ctx, patient.UserID, doctor.ID, date, "10:00", "")
	require.NoError(t, err)

	unread, err := svc.ListUnreadNotifications(ctx, doctor.UserID)
	require.NoError(t, err)
	require.Len(t, unread, 2)

	notice := creationNotification(repo, doctor.UserID, a1.ID)
	count, err := svc.MarkNotificationRead(ctx, doctor.UserID, notice.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	unread, err = svc.ListUnreadNotifications(ctx, doctor.UserID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
}

func TestMarkNotificationReadOfAnotherRecipient(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	doctor := addDoctor(repo, "Martin", "Cardiologie")
	patient := addPatient(repo, "Durand")
	date := futureDate(3)
	offerSlot(repo, doctor.ID, date, "09:00")

	appt, err := svc.Book(ctx, patient.UserID, doctor.ID, date, "09:00", "")
	require.NoError(t, err)
	notice := creationNotification(repo, doctor.UserID, appt.ID)

	// The patient cannot read the doctor's notice; the response is the same
	// as for a missing notification.
	_, err = svc.MarkNotificationRead(ctx, patient.UserID, notice.ID)
	require.ErrorIs(t, err, ErrNotificationNotFound)
}
