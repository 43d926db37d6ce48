package store

// Outbox entry statuses, in lifecycle order.
const (
	OutboxQueued    = "queued"
	OutboxSent      = "sent"
	OutboxFailed    = "failed"
	OutboxConfirmed = "confirmed"
)

// OutboxEntry is one journaled outgoing message.
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	Owner        string
	Recipient    string
	Body         string
	Status       string
	ErrorMessage string
	ServerMsgID  string
	CreatedAt    int64
	UpdatedAt    int64
}
