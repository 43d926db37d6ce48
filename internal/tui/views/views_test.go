package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/duo/internal/message"
	"github.com/matheus3301/duo/internal/status"
	"github.com/matheus3301/duo/internal/tui/ui"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello\nworld", "hello\nworld"},
		{"👍\U0001F3FB", "👍"},
		{"a\x1b[31mred", "a[31mred"},
		{"tab\there", "tab\there"},
		{"❤️", "❤"},
	}
	for _, tt := range tests {
		if got := sanitizeForTerminal(tt.in); got != tt.want {
			t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Time{}, ""},
		{time.Date(2024, 3, 5, 9, 7, 0, 0, time.UTC), "09:07"},
		{time.Date(2024, 3, 4, 9, 7, 0, 0, time.UTC), "03/04 09:07"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.in, now); got != tt.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMessage(t *testing.T) {
	theme := ui.DefaultTheme()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	at := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		m        message.Message
		contains []string
	}{
		{"partner", message.Message{ID: "1", Sender: "bob", Body: "hi [red]", SentAt: at, Status: message.StatusReceived},
			[]string{"bob", "10:30", "hi [red[]"}},
		{"own confirmed", message.Message{ID: "2", Sender: "alice", Body: "yo", SentAt: at, Status: message.StatusSent},
			[]string{"You", "✓✓"}},
		{"own pending", message.Message{ClientID: "c1", Sender: "alice", Body: "yo", SentAt: at, Status: message.StatusSending},
			[]string{"You", "…"}},
		{"own failed", message.Message{ClientID: "c1", Sender: "alice", Body: "yo", SentAt: at, Status: message.StatusFailed},
			[]string{"not sent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMessage(tt.m, "alice", theme, now)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("formatMessage() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestStatusLine(t *testing.T) {
	theme := ui.DefaultTheme()
	got := statusLine(theme, "alice", status.Open, "bob", 3)
	for _, want := range []string{"alice", "open", "@bob (3)"} {
		if !strings.Contains(got, want) {
			t.Errorf("statusLine() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(statusLine(theme, "alice", status.Failed, "", 0), "@") {
		t.Error("statusLine() without partner mentions a partner")
	}
}
