package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/duo/internal/bus"
)

// State is the lifecycle state of a live connection.
type State string

const (
	Connecting State = "connecting"
	Open       State = "open"
	Closed     State = "closed"
	Failed     State = "failed"
)

// validTransitions defines allowed state transitions. Closed and Failed are
// terminal: a failed connection is replaced, never revived.
var validTransitions = map[State][]State{
	Connecting: {Open, Closed, Failed},
	Open:       {Closed, Failed},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Machine tracks and enforces connection state transitions for one identity.
type Machine struct {
	mu      sync.RWMutex
	owner   string
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Connecting state.
func NewMachine(owner string, b *bus.Bus) *Machine {
	return &Machine{
		owner:   owner,
		current: Connecting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.NewEvent(bus.KindLiveStateChanged, Change{
			Owner: m.owner,
			From:  from,
			To:    to,
		}))
	}
	return nil
}

// Change is the payload for state change events.
type Change struct {
	Owner string
	From  State
	To    State
}
