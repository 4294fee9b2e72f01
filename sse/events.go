package sse

// SSE event names written on the "event:" line.
const (
	// EventTypeConnected is sent once when a client connects.
	EventTypeConnected = "connected"

	// EventTypeChange carries one JSON encoded change event.
	EventTypeChange = "change"

	// EventTypeCompleted is sent when the feed's source completes.
	EventTypeCompleted = "completed"

	// EventTypeError is sent when the feed's source fails.
	EventTypeError = "error"
)

// Message is one SSE frame.
type Message struct {
	Event string
	Data  []byte
}

// ConnectedEvent is the payload of the connected frame.
type ConnectedEvent struct {
	ClientID string            `json:"client_id"`
	Topic    string            `json:"topic"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ErrorEvent is the payload of the error frame.
type ErrorEvent struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
