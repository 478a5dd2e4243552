package notify

import "github.com/axora/taskdeck/internal/model"

// State is the lifecycle state of the push connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateError
)

// String returns the state name for status display.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EventKind discriminates manager events.
type EventKind int

const (
	// EventNotification carries a freshly pushed notification, already
	// written to the Store; the UI uses it to raise a toast.
	EventNotification EventKind = iota

	// EventStateChanged reports a connection lifecycle transition so
	// the UI can refresh the status indicator.
	EventStateChanged
)

// Event is delivered on the manager's event channel. Emission never
// blocks message processing: if the UI falls behind, events are
// dropped (the Store already holds the durable state).
type Event struct {
	Kind         EventKind
	Notification model.Notification
	State        State
}
