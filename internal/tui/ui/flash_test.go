package ui

import (
	"errors"
	"testing"
	"time"
)

func TestFlashExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("Current() on empty model should be nil")
	}
	f.Err(errors.New("send failed"))
	m := f.Current()
	if m == nil || m.Level != FlashErr || m.Text != "send failed" {
		t.Fatalf("Current() = %+v", m)
	}

	now = now.Add(11 * time.Second)
	if f.Current() != nil {
		t.Error("Current() after expiry should be nil")
	}
}

func TestRenderHints(t *testing.T) {
	got := RenderHints([]MenuHint{{Key: "o", Description: "Open"}, {Key: "q", Description: "Quit"}}, "blue")
	want := "[blue::b]<o>[-:-:-] Open  [blue::b]<q>[-:-:-] Quit"
	if got != want {
		t.Errorf("RenderHints() = %q, want %q", got, want)
	}
}
