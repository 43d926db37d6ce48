package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformed is returned when a wire record cannot be turned into a Message.
var ErrMalformed = errors.New("malformed message")

// Raw is a wire record from either the history endpoint or the live channel.
// Both feeds name sender and recipient inconsistently, so every known alias is
// carried here and resolved once by Normalize.
type Raw struct {
	ID       string `json:"id,omitempty"`
	LegacyID string `json:"_id,omitempty"`

	Sender   string `json:"sender,omitempty"`
	From     string `json:"from,omitempty"`
	FromUser string `json:"from_user,omitempty"`

	Recipient string `json:"recipient,omitempty"`
	To        string `json:"to,omitempty"`
	ToUser    string `json:"to_user,omitempty"`

	Body string `json:"body,omitempty"`
	Text string `json:"text,omitempty"`

	SentAt    string `json:"sentAt,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`

	ClientID string `json:"client_id,omitempty"`
}

// timestampLayouts are tried in order. Naive timestamps are what the backend
// produces from datetime.utcnow().isoformat() and are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Normalize maps a wire record onto the canonical Message.
func Normalize(r Raw) (Message, error) {
	sender := firstNonEmpty(r.Sender, r.From, r.FromUser)
	if sender == "" {
		return Message{}, fmt.Errorf("%w: no sender", ErrMalformed)
	}
	recipient := firstNonEmpty(r.Recipient, r.To, r.ToUser)
	if recipient == "" {
		return Message{}, fmt.Errorf("%w: no recipient", ErrMalformed)
	}
	body := firstNonEmpty(r.Body, r.Text)
	if strings.TrimSpace(body) == "" {
		return Message{}, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	ts := firstNonEmpty(r.SentAt, r.Timestamp)
	if ts == "" {
		return Message{}, fmt.Errorf("%w: no timestamp", ErrMalformed)
	}
	sentAt, err := ParseTimestamp(ts)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return Message{
		ID:        firstNonEmpty(r.ID, r.LegacyID),
		Sender:    sender,
		Recipient: recipient,
		Body:      body,
		SentAt:    sentAt,
		ClientID:  r.ClientID,
		Status:    StatusReceived,
	}, nil
}

// ParseTimestamp parses an ISO-8601 timestamp with or without a zone offset.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Decode parses and normalizes a single JSON frame.
func Decode(data []byte) (Message, error) {
	var r Raw
	if err := json.Unmarshal(data, &r); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Normalize(r)
}

// DecodeBatch parses a JSON array of wire records. Records that fail to
// normalize are reported in skipped and left out of msgs; only a body that is
// not a JSON array fails the whole batch.
func DecodeBatch(data []byte) (msgs []Message, skipped []error, err error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, nil, fmt.Errorf("decode batch: %w", err)
	}
	msgs = make([]Message, 0, len(items))
	for i, item := range items {
		m, err := Decode(item)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, skipped, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
