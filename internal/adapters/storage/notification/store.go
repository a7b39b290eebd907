package notification

import (
	"context"

	domain "clubledger/internal/domain/notification"
)

// Store persists in-app notifications.
type Store interface {
	Save(ctx context.Context, n domain.Notification) error
	ListByPlayer(ctx context.Context, playerID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, playerID, id string) error
}
