package bus

import "time"

// Event kinds published on the bus. Subscribers filter by prefix, so the part
// before the dot is the namespace ("live.", "conversation.", "outbox.").
const (
	KindLiveMessage      = "live.message"
	KindLiveStateChanged = "live.state_changed"
	KindLiveFailed       = "live.failed"

	KindConversationSeeded     = "conversation.seeded"
	KindConversationUpdated    = "conversation.updated"
	KindConversationReconciled = "conversation.reconciled"

	KindOutboxSent       = "outbox.sent"
	KindOutboxSendFailed = "outbox.send_failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
