package projections

import (
	"context"

	"clubledger/internal/domain/ledger"
	"clubledger/internal/domain/notification"
)

// NotificationListStore defines the notification store interface needed by the inbox projection.
type NotificationListStore interface {
	ListByPlayer(ctx context.Context, playerID string, unreadOnly bool, limit int) ([]notification.Notification, error)
}

// GetNotificationsQuery carries input for the inbox projection.
type GetNotificationsQuery struct {
	PlayerID   string
	UnreadOnly bool
	Limit      int
}

// GetNotificationsDeps holds dependencies for the inbox projection.
type GetNotificationsDeps struct {
	NotificationStore NotificationListStore
}

// NotificationsResult is a player's inbox, newest first.
type NotificationsResult struct {
	PlayerID      string
	Notifications []notification.Notification
	Unread        int
}

// QueryNotifications lists a player's progression notifications.
func QueryNotifications(ctx context.Context, query GetNotificationsQuery, deps GetNotificationsDeps) (NotificationsResult, error) {
	if query.PlayerID == "" {
		return NotificationsResult{}, ledger.Invalid("player_id", "required")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	list, err := deps.NotificationStore.ListByPlayer(ctx, query.PlayerID, query.UnreadOnly, limit)
	if err != nil {
		return NotificationsResult{}, err
	}
	res := NotificationsResult{PlayerID: query.PlayerID, Notifications: list}
	for _, n := range list {
		if !n.Read {
			res.Unread++
		}
	}
	return res, nil
}
