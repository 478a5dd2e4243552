package notify

import "encoding/json"

// Wire frame types exchanged with the push broker.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameMessage     = "message"
)

// frame is the JSON envelope on the push connection. Outbound frames
// register or drop a topic subscription; inbound message frames carry
// a notification payload in Body.
type frame struct {
	// Type discriminates the frame: subscribe, unsubscribe, or message.
	Type string `json:"type"`

	// ID is a client-generated identifier for this subscription,
	// letting the broker detect duplicate registrations.
	ID string `json:"id,omitempty"`

	// Destination is the per-user topic, /user/{id}/notifications.
	Destination string `json:"destination,omitempty"`

	// Body is the notification payload on message frames.
	Body json.RawMessage `json:"body,omitempty"`
}
