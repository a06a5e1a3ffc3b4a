package social

import (
	"context"
	"fmt"

	"github.com/alphabot-ai/ranked/internal/store"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// ListNotifications returns the user's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID string, limit int) ([]*store.Notification, error) {
	if limit <= 0 || limit > maxNotificationLimit {
		limit = defaultNotificationLimit
	}
	list, err := s.store.ListNotifications(ctx, store.NotificationQuery{ToUserID: userID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one of the actor's notifications read.
func (s *Service) MarkNotificationRead(ctx context.Context, actorID, notificationID string) error {
	if _, err := s.ownNotification(ctx, actorID, notificationID); err != nil {
		return err
	}
	if err := s.store.MarkNotificationRead(ctx, notificationID); err != nil {
		return fmt.Errorf("mark %s read: %w", notificationID, err)
	}
	return nil
}

// MarkAllRead returns how many notifications changed state.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}

func (s *Service) DeleteNotification(ctx context.Context, actorID, notificationID string) error {
	if _, err := s.ownNotification(ctx, actorID, notificationID); err != nil {
		return err
	}
	if err := s.store.DeleteNotification(ctx, notificationID); err != nil {
		return fmt.Errorf("delete notification %s: %w", notificationID, err)
	}
	return nil
}

func (s *Service) ownNotification(ctx context.Context, actorID, id string) (*store.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load notification %s: %w", id, err)
	}
	if n == nil {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	if n.ToUserID != actorID {
		return nil, ErrForbidden
	}
	return n, nil
}
