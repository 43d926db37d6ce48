package keys

import "github.com/gdamore/tcell/v2"

// Action is a single key binding.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string
	Description string
	Handler     func()
}

// Matches returns true if the event triggers this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds key bindings per focus scope plus global ones. Bindings keep
// registration order so hints render the same way every time.
type Registry struct {
	global []*Action
	scoped map[string][]*Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scoped: make(map[string][]*Action)}
}

// AddGlobal registers a binding active in every scope.
func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

// Add registers a binding active only in scope.
func (r *Registry) Add(scope string, a *Action) {
	r.scoped[scope] = append(r.scoped[scope], a)
}

// Bindings returns the bindings active in scope, scoped ones first.
func (r *Registry) Bindings(scope string) []*Action {
	out := make([]*Action, 0, len(r.scoped[scope])+len(r.global))
	out = append(out, r.scoped[scope]...)
	return append(out, r.global...)
}

// HandleEvent runs the first binding in scope matching ev.
// Returns true if a handler ran.
func (r *Registry) HandleEvent(scope string, ev *tcell.EventKey) bool {
	for _, a := range r.Bindings(scope) {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
