package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dispatch persists a notification derived from a ledger transition. It runs
// inside the transition's transaction so the notice commits with the edge
// that produced it.
func (s *Service) dispatch(ctx context.Context, r Repository, n *Notification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	if err := r.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("dispatch %s notification: %w", n.Type, err)
	}
	return nil
}

func createdMessage(patientName, date, start string) string {
	return fmt.Sprintf("Nouveau rendez-vous avec %s le %s à %s", patientName, displayDate(date), start)
}

func acceptedMessage(doctorName, date, start string) string {
	return fmt.Sprintf("Votre rendez-vous avec Dr. %s le %s à %s a été accepté", doctorName, displayDate(date), start)
}

func refusedMessage(doctorName, date, start, reason string) string {
	msg := fmt.Sprintf("Votre rendez-vous avec Dr. %s le %s à %s a été refusé", doctorName, displayDate(date), start)
	if reason != "" {
		msg += " : " + reason
	}
	return msg
}

func cancelledMessage(by Party, name, date, start string) string {
	if by == PartyDoctor {
		name = "Dr. " + name
	}
	return fmt.Sprintf("Rendez-vous annulé par %s le %s à %s", name, displayDate(date), start)
}

func joinedMessage(by Party, name, date, start string) string {
	if by == PartyDoctor {
		name = "Dr. " + name
	}
	return fmt.Sprintf("%s a confirmé la consultation prévue le %s à %s", name, displayDate(date), start)
}

// MarkNotificationRead marks one of the caller's notifications as read and
// returns the caller's updated unread count. A notification belonging to
// someone else is indistinguishable from a missing one.
func (s *Service) MarkNotificationRead(ctx context.Context, callerUserID, notificationID uuid.UUID) (int, error) {
	n, err := s.repo.GetNotificationByID(ctx, notificationID)
	if err != nil {
		return 0, fmt.Errorf("load notification: %w", err)
	}
	if n.RecipientID != callerUserID {
		return 0, ErrNotificationNotFound
	}

	if err := s.repo.MarkNotificationRead(ctx, n.ID); err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}

	count, err := s.repo.CountUnreadNotifications(ctx, callerUserID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// ListUnreadNotifications returns the caller's unread notices, newest first.
func (s *Service) ListUnreadNotifications(ctx context.Context, callerUserID uuid.UUID) ([]Notification, error) {
	notifications, err := s.repo.ListUnreadNotifications(ctx, callerUserID)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	return notifications, nil
}
