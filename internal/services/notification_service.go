package services

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/google/uuid"
)

type NotificationService struct {
	store store.Store
}

func NewNotificationService(s store.Store) *NotificationService {
	return &NotificationService{store: s}
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor Actor) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, actor.UserID)
}

// MarkRead flags one of the actor's notifications as read. Notifications of
// other users read as missing.
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uuid.UUID) (*models.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, fromStore(err, "notification")
	}
	if n.UserID != actor.UserID {
		return nil, detail(ErrNotFound, "notification not found")
	}
	if n.IsRead {
		return n, nil
	}
	n.IsRead = true
	if err := s.store.SaveNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
