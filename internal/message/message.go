package message

import (
	"slices"
	"time"
)

// Status is the local delivery state of a message.
type Status string

const (
	StatusReceived Status = "received"
	StatusSending  Status = "sending"
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
)

// Message is the canonical chat message, independent of which feed produced it.
type Message struct {
	ID        string
	Sender    string
	Recipient string
	Body      string
	SentAt    time.Time
	ClientID  string
	Status    Status
}

// Optimistic reports whether the message is a local send the server has not
// confirmed yet. Live frames from some backends carry no ID, so the client ID
// is what marks a local entry.
func (m Message) Optimistic() bool {
	return m.ID == "" && m.ClientID != ""
}

// Involves reports whether the message belongs to the conversation between a and b.
func (m Message) Involves(a, b string) bool {
	return (m.Sender == a && m.Recipient == b) || (m.Sender == b && m.Recipient == a)
}

// SortBySentAt sorts msgs by SentAt ascending, keeping arrival order for equal timestamps.
func SortBySentAt(msgs []Message) {
	slices.SortStableFunc(msgs, func(a, b Message) int {
		return a.SentAt.Compare(b.SentAt)
	})
}
