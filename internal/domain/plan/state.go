package plan

import (
	"fmt"
	"slices"
)

// State represents the lifecycle state of a plan
type State string

const (
	StateActive   State = "active"
	StateClosed   State = "closed"
	StateMigrated State = "migrated"
)

// Event is a lifecycle operation applied to a plan
type Event string

const (
	EventClose   Event = "close"
	EventMigrate Event = "migrate"
)

// transitions lists every allowed move. States without an entry are terminal.
var transitions = map[State]map[Event]State{
	StateActive: {
		EventClose:   StateClosed,
		EventMigrate: StateMigrated,
	},
}

// Transition returns the state reached by applying event to from.
func Transition(from State, event Event) (State, error) {
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: cannot %s a plan in state %q", ErrInvalidTransition, event, from)
}

// CanTransition checks if event is allowed from the given state
func CanTransition(from State, event Event) bool {
	_, ok := transitions[from][event]
	return ok
}

// EventsFrom returns the events allowed from a state, sorted.
func EventsFrom(from State) []Event {
	events := make([]Event, 0, len(transitions[from]))
	for ev := range transitions[from] {
		events = append(events, ev)
	}
	slices.Sort(events)
	return events
}

// IsValid checks if s is a known state
func (s State) IsValid() bool {
	switch s {
	case StateActive, StateClosed, StateMigrated:
		return true
	}
	return false
}

// IsTerminal checks if no event can leave s
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}
