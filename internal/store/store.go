// Package store is the local cache layer. It persists the last-seen
// task list and the notification history in a SQLite database so the
// UI has content before the first fetch completes and history
// survives restarts. The cache is never authoritative: the server and
// the in-memory notification state always win.
package store

import (
	"context"

	"github.com/axora/taskdeck/internal/model"
)

// Cache defines the persistence interface for cached tasks and
// notification history.
type Cache interface {
	// Tasks

	UpsertTasks(ctx context.Context, tasks []model.Task) error
	GetTasks(ctx context.Context, limit int) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)

	// Notifications

	UpsertNotifications(ctx context.Context, notifications []model.Notification) error
	GetNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error

	// ClearAll wipes the cache. Called on logout so the next user
	// never sees another account's data.
	ClearAll(ctx context.Context) error

	Close() error
}
