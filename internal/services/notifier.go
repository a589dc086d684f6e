package services

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/google/uuid"
)

// Notice is a user-addressed message.
type Notice struct {
	UserID    uuid.UUID
	Message   string
	Category  string
	Reference *uuid.UUID
}

// Notifier delivers notices. Implementations receive the caller's
// transaction so a notice is only kept if the operation commits.
type Notifier interface {
	Notify(ctx context.Context, tx store.Store, n Notice) error
}

// StoreNotifier persists notices as notification rows.
type StoreNotifier struct{}

func (StoreNotifier) Notify(ctx context.Context, tx store.Store, n Notice) error {
	return tx.CreateNotification(ctx, &models.Notification{
		ID:        uuid.New(),
		UserID:    n.UserID,
		Message:   n.Message,
		Category:  n.Category,
		Reference: n.Reference,
	})
}
