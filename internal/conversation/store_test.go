package conversation

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/matheus3301/duo/internal/message"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func msg(id, from, to, body string, sec int) message.Message {
	return message.Message{ID: id, Sender: from, Recipient: to, Body: body, SentAt: at(sec), Status: message.StatusReceived}
}

func bodies(msgs []message.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func TestSeedSortsAndDedups(t *testing.T) {
	s := NewStore()
	in := []message.Message{
		msg("3", "a", "b", "three", 3),
		msg("1", "a", "b", "one", 1),
		msg("2", "b", "a", "two", 2),
		msg("1", "a", "b", "one again", 1),
	}
	s.Seed(in)
	first := s.Snapshot()
	if diff := cmp.Diff([]string{"one", "two", "three"}, bodies(first)); diff != "" {
		t.Errorf("Seed order mismatch (-want +got):\n%s", diff)
	}

	s.Seed(first)
	if diff := cmp.Diff(first, s.Snapshot()); diff != "" {
		t.Errorf("re-seeding changed the timeline (-want +got):\n%s", diff)
	}
}

func TestSeedDoesNotAliasInput(t *testing.T) {
	in := []message.Message{msg("2", "a", "b", "two", 2), msg("1", "a", "b", "one", 1)}
	s := NewStore()
	s.Seed(in)
	if in[0].ID != "2" {
		t.Errorf("Seed reordered the caller's slice: %v", bodies(in))
	}
}

func TestAppendSortedPosition(t *testing.T) {
	s := NewStore()
	s.Seed([]message.Message{msg("1", "a", "b", "one", 1), msg("3", "a", "b", "three", 3)})

	if !s.Append(msg("2", "b", "a", "two", 2)) {
		t.Fatal("Append() = false, want true")
	}
	if !s.Append(msg("3b", "b", "a", "three-b", 3)) {
		t.Fatal("Append() = false, want true")
	}
	want := []string{"one", "two", "three", "three-b"}
	if diff := cmp.Diff(want, bodies(s.Snapshot())); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendDuplicateID(t *testing.T) {
	s := NewStore()
	s.Append(msg("1", "a", "b", "one", 1))
	if s.Append(msg("1", "a", "b", "one", 1)) {
		t.Error("Append() of duplicate ID = true, want false")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestAppendWithoutIDNeverDeduped(t *testing.T) {
	s := NewStore()
	s.Append(msg("", "b", "a", "hey", 1))
	s.Append(msg("", "b", "a", "hey", 1))
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestAppendOptimisticClampsClock(t *testing.T) {
	s := NewStore()
	s.Seed([]message.Message{msg("1", "b", "a", "future", 100)})

	got := s.AppendOptimistic(message.Message{Sender: "a", Recipient: "b", Body: "now", SentAt: at(5), ClientID: "c1"})
	if !got.SentAt.Equal(at(100)) {
		t.Errorf("SentAt = %v, want clamped to %v", got.SentAt, at(100))
	}
	snap := s.Snapshot()
	if snap[len(snap)-1].ClientID != "c1" {
		t.Errorf("optimistic entry not last: %v", bodies(snap))
	}
}

func TestConfirmReplacesOptimistic(t *testing.T) {
	s := NewStore()
	s.Seed([]message.Message{msg("1", "b", "a", "one", 1)})
	s.AppendOptimistic(message.Message{Sender: "a", Recipient: "b", Body: "hello", SentAt: at(10), ClientID: "c1", Status: message.StatusSending})
	s.Append(msg("2", "b", "a", "two", 5))

	echo := msg("srv", "a", "b", "hello", 3)
	if !s.Confirm("c1", echo) {
		t.Fatal("Confirm() = false")
	}
	snap := s.Snapshot()
	if diff := cmp.Diff([]string{"one", "hello", "two"}, bodies(snap)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if snap[1].ID != "srv" || snap[1].Status != message.StatusSent {
		t.Errorf("confirmed = %+v, want ID srv status sent", snap[1])
	}
	if !s.Has("srv") {
		t.Error("Has(srv) = false after Confirm")
	}
	if len(s.Pending()) != 0 {
		t.Errorf("Pending() = %v, want none", s.Pending())
	}
	if s.Confirm("c1", echo) {
		t.Error("second Confirm() = true, want false")
	}
}

func TestConfirmWithoutServerID(t *testing.T) {
	s := NewStore()
	s.AppendOptimistic(message.Message{Sender: "a", Recipient: "b", Body: "hello", SentAt: at(1), ClientID: "c1"})
	s.Confirm("c1", msg("", "a", "b", "hello", 1))
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Optimistic() {
		t.Errorf("timeline = %+v, want one confirmed entry", snap)
	}
}

func TestPendingSkipsFailed(t *testing.T) {
	s := NewStore()
	s.AppendOptimistic(message.Message{Sender: "a", Recipient: "b", Body: "x", SentAt: at(1), ClientID: "c1"})
	s.AppendOptimistic(message.Message{Sender: "a", Recipient: "b", Body: "y", SentAt: at(2), ClientID: "c2"})
	if !s.SetStatus("c1", message.StatusFailed) {
		t.Fatal("SetStatus() = false")
	}
	if s.SetStatus("c1", message.StatusFailed) {
		t.Error("SetStatus() with unchanged status = true, want false")
	}
	p := s.Pending()
	if len(p) != 1 || p[0].ClientID != "c2" {
		t.Errorf("Pending() = %+v, want c2 only", p)
	}
	if !s.Retract("c1") || s.Len() != 1 {
		t.Errorf("Retract(c1) left %d entries, want 1", s.Len())
	}
	if s.Retract("c1") {
		t.Error("second Retract() = true, want false")
	}
}

func TestAllIsRestartableSnapshot(t *testing.T) {
	s := NewStore()
	s.Seed([]message.Message{msg("1", "a", "b", "one", 1), msg("2", "a", "b", "two", 2)})

	var got []string
	for m := range s.All() {
		got = append(got, m.Body)
		s.Append(msg("9", "a", "b", "late", 9))
	}
	if diff := cmp.Diff([]string{"one", "two"}, got); diff != "" {
		t.Errorf("iteration saw concurrent append (-want +got):\n%s", diff)
	}

	got = got[:0]
	for m := range s.All() {
		got = append(got, m.Body)
	}
	if len(got) != 3 {
		t.Errorf("second iteration yielded %d, want 3", len(got))
	}
}

func TestEchoMatcher(t *testing.T) {
	pending := []message.Message{
		{ClientID: "c1", Recipient: "b", Body: "hi", SentAt: at(0)},
		{ClientID: "c2", Recipient: "b", Body: "hi", SentAt: at(1)},
		{ClientID: "c3", Recipient: "b", Body: "other", SentAt: at(2)},
	}
	m := EchoMatcher{Window: 10 * time.Second}
	tests := []struct {
		name string
		in   message.Message
		want string
	}{
		{"client id wins", message.Message{ClientID: "c2", Recipient: "b", Body: "hi", SentAt: at(0)}, "c2"},
		{"unknown client id", message.Message{ClientID: "zz", Recipient: "b", Body: "hi", SentAt: at(0)}, ""},
		{"oldest content match", message.Message{Recipient: "b", Body: "hi", SentAt: at(3)}, "c1"},
		{"outside window", message.Message{Recipient: "b", Body: "other", SentAt: at(60)}, ""},
		{"other recipient", message.Message{Recipient: "c", Body: "hi", SentAt: at(0)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Match(pending, tt.in); got != tt.want {
				t.Errorf("Match() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := (KeepBoth{}).Match(pending, pending[0]); got != "" {
		t.Errorf("KeepBoth.Match() = %q, want empty", got)
	}
}
