package conversation

import (
	"iter"
	"slices"
	"sort"
	"sync"

	"github.com/matheus3301/duo/internal/message"
)

// Store is the ordered timeline of one conversation. Readers may iterate it
// concurrently with a writer; writers are expected to be serialized by the View.
type Store struct {
	mu   sync.RWMutex
	msgs []message.Message
	ids  map[string]struct{}
}

// NewStore returns an empty timeline.
func NewStore() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Seed replaces the contents with msgs, sorted by SentAt and de-duplicated by
// ID (first occurrence wins). Seeding twice with the same input is a no-op.
func (s *Store) Seed(msgs []message.Message) {
	sorted := slices.Clone(msgs)
	message.SortBySentAt(sorted)

	ids := make(map[string]struct{}, len(sorted))
	out := sorted[:0]
	for _, m := range sorted {
		if m.ID != "" {
			if _, dup := ids[m.ID]; dup {
				continue
			}
			ids[m.ID] = struct{}{}
		}
		out = append(out, m)
	}

	s.mu.Lock()
	s.msgs = out
	s.ids = ids
	s.mu.Unlock()
}

// Append inserts m after every entry with SentAt <= m.SentAt. It returns false
// if a message with the same ID is already present.
func (s *Store) Append(m message.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID != "" {
		if _, dup := s.ids[m.ID]; dup {
			return false
		}
		s.ids[m.ID] = struct{}{}
	}
	s.insert(m)
	return true
}

// AppendOptimistic appends a local entry at the end of the timeline. If the
// local clock is behind the newest entry, SentAt is raised to match it so the
// timeline stays sorted. The stored message is returned.
func (s *Store) AppendOptimistic(m message.Message) message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.msgs); n > 0 && m.SentAt.Before(s.msgs[n-1].SentAt) {
		m.SentAt = s.msgs[n-1].SentAt
	}
	s.msgs = append(s.msgs, m)
	return m
}

// insert places m at its sorted position. Caller holds mu.
func (s *Store) insert(m message.Message) {
	i := sort.Search(len(s.msgs), func(i int) bool {
		return s.msgs[i].SentAt.After(m.SentAt)
	})
	s.msgs = slices.Insert(s.msgs, i, m)
}

// All yields the messages of a snapshot taken when iteration starts.
func (s *Store) All() iter.Seq[message.Message] {
	return func(yield func(message.Message) bool) {
		for _, m := range s.Snapshot() {
			if !yield(m) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the timeline.
func (s *Store) Snapshot() []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.msgs)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Has reports whether a message with server ID id is present.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Pending returns the optimistic entries still waiting for confirmation,
// oldest first. Failed entries are not pending.
func (s *Store) Pending() []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []message.Message
	for _, m := range s.msgs {
		if m.Optimistic() && m.Status != message.StatusFailed {
			out = append(out, m)
		}
	}
	return out
}

// Confirm replaces the optimistic entry clientID with its server record, which
// is placed at its own sorted position. If the record's ID is already present
// the optimistic entry is just removed.
func (s *Store) Confirm(clientID string, m message.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(clientID)
	if i < 0 {
		return false
	}
	s.msgs = slices.Delete(s.msgs, i, i+1)

	if m.ID != "" {
		if _, dup := s.ids[m.ID]; dup {
			return true
		}
		s.ids[m.ID] = struct{}{}
	} else {
		// Without a server ID the record would still look optimistic.
		m.ClientID = ""
	}
	m.Status = message.StatusSent
	s.insert(m)
	return true
}

// SetStatus updates the status of the optimistic entry clientID.
func (s *Store) SetStatus(clientID string, status message.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(clientID)
	if i < 0 || s.msgs[i].Status == status {
		return false
	}
	s.msgs[i].Status = status
	return true
}

// Retract removes the optimistic entry clientID.
func (s *Store) Retract(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(clientID)
	if i < 0 {
		return false
	}
	s.msgs = slices.Delete(s.msgs, i, i+1)
	return true
}

func (s *Store) indexOf(clientID string) int {
	if clientID == "" {
		return -1
	}
	return slices.IndexFunc(s.msgs, func(m message.Message) bool {
		return m.Optimistic() && m.ClientID == clientID
	})
}
