package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType identifies which task event generated a notification.
// The set is closed; payloads carrying any other value are rejected at
// decode time.
type NotificationType string

const (
	NotificationTaskAssigned      NotificationType = "TASK_ASSIGNED"
	NotificationTaskStatusChanged NotificationType = "TASK_STATUS_CHANGED"
	NotificationTaskCommented     NotificationType = "TASK_COMMENTED"
	NotificationTaskOverdue       NotificationType = "TASK_OVERDUE"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTaskAssigned,
		NotificationTaskStatusChanged,
		NotificationTaskCommented,
		NotificationTaskOverdue:
		return true
	}
	return false
}

// Notification is a single alert about activity on a task. The server
// assigns the ID; the client never fabricates one.
type Notification struct {
	// ID is the server-assigned unique identifier.
	ID int64 `json:"id" db:"id"`

	// Title is the short display headline.
	Title string `json:"title" db:"title"`

	// Message is the longer display text.
	Message string `json:"message" db:"message"`

	// Type identifies the task event that produced this notification.
	Type NotificationType `json:"type" db:"type"`

	// TaskID references the task that generated the notification,
	// used for navigation from the notification list.
	TaskID int64 `json:"taskId" db:"task_id"`

	// Read indicates whether the user has seen this notification.
	// It only ever transitions false to true.
	Read bool `json:"read" db:"read"`

	// CreatedAt is the server-side creation timestamp.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// ReadAt is set exactly once, when Read transitions to true.
	ReadAt *time.Time `json:"readAt,omitempty" db:"read_at"`
}

// DecodeNotification parses a JSON push payload into a Notification,
// validating the type tag and required references before constructing
// the value. A failed decode never yields a partially usable
// Notification.
func DecodeNotification(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("parsing notification payload: %w", err)
	}
	if n.ID == 0 {
		return Notification{}, fmt.Errorf("notification payload missing id")
	}
	if !n.Type.Valid() {
		return Notification{}, fmt.Errorf("unknown notification type %q", n.Type)
	}
	if n.TaskID == 0 {
		return Notification{}, fmt.Errorf("notification %d missing task reference", n.ID)
	}
	return n, nil
}
