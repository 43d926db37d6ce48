package conversation

import (
	"time"

	"github.com/matheus3301/duo/internal/message"
)

// DefaultEchoWindow bounds how far a server echo's timestamp may drift from the
// optimistic entry it confirms.
const DefaultEchoWindow = 30 * time.Second

// Reconciler decides whether an inbound message sent by the owner confirms one
// of the pending optimistic entries.
type Reconciler interface {
	// Match returns the client ID of the confirmed entry, or "" for none.
	// pending is ordered oldest first.
	Match(pending []message.Message, in message.Message) string
}

// KeepBoth never matches: the optimistic entry and the echo both stay.
type KeepBoth struct{}

func (KeepBoth) Match([]message.Message, message.Message) string { return "" }

// EchoMatcher matches on the client ID when the server echoes it, and falls
// back to the oldest pending entry with the same recipient and body whose
// timestamp is within Window of the echo.
type EchoMatcher struct {
	Window time.Duration
}

func (e EchoMatcher) Match(pending []message.Message, in message.Message) string {
	if in.ClientID != "" {
		for _, p := range pending {
			if p.ClientID == in.ClientID {
				return p.ClientID
			}
		}
		return ""
	}

	window := e.Window
	if window <= 0 {
		window = DefaultEchoWindow
	}
	for _, p := range pending {
		if p.Recipient != in.Recipient || p.Body != in.Body {
			continue
		}
		if d := in.SentAt.Sub(p.SentAt).Abs(); d <= window {
			return p.ClientID
		}
	}
	return ""
}
