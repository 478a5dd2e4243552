package api

import (
	"context"
	"fmt"

	"github.com/axora/taskdeck/internal/model"
)

// Notifications fetches the user's notification history in the
// server's order, newest first.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var notifications []model.Notification
	if err := c.get(ctx, "/api/notifications", &notifications); err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount fetches the server-authoritative unread notification
// count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var count int
	if err := c.get(ctx, "/api/notifications/unread/count", &count); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	return count, nil
}

// MarkNotificationRead marks one notification read on the server. The
// caller is responsible for reflecting the change in local state.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/notifications/%d/read", id)
	if err := c.patch(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification read on
// the server.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	if err := c.patch(ctx, "/api/notifications/read-all", nil, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}
