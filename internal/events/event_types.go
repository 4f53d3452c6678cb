package events

import "time"

// EventType identifies session lifecycle events.
type EventType string

const (
	EventSignedIn        EventType = "session.signed_in"
	EventSignedOut       EventType = "session.signed_out"
	EventSignInThrottled EventType = "session.sign_in_throttled"
	EventPasswordReset   EventType = "account.password_reset"
)

// Event is published on the dispatcher.
type Event struct {
	Type       EventType
	UserID     string
	Identifier string
	IP         string
	OccurredAt time.Time
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType EventType, userID string) Event {
	return Event{Type: eventType, UserID: userID, OccurredAt: time.Now().UTC()}
}
