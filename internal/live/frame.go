package live

import "fmt"

// Dialect selects the shape of outbound frames.
type Dialect string

const (
	// Canonical frames are {"recipient", "body", "client_id"}.
	Canonical Dialect = "canonical"
	// Legacy frames are {"to", "text"}, the shape the original backend reads.
	Legacy Dialect = "legacy"
)

// ParseDialect maps a config value onto a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case Canonical, "":
		return Canonical, nil
	case Legacy:
		return Legacy, nil
	default:
		return "", fmt.Errorf("unknown dialect %q", s)
	}
}

// OutboundFrame is the canonical outgoing message. The sender is implied by the
// identity the connection was opened for.
type OutboundFrame struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	ClientID  string `json:"client_id,omitempty"`
}

type legacyFrame struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (d Dialect) frame(recipient, body, clientID string) any {
	if d == Legacy {
		return legacyFrame{To: recipient, Text: body}
	}
	return OutboundFrame{Recipient: recipient, Body: body, ClientID: clientID}
}
