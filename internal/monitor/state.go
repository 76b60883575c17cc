package monitor

import "fmt"

// State is the lifecycle state of a Monitor.
type State string

// Monitor lifecycle states.
const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// Transition table: from -> allowed tos
var validTransitions = map[State][]State{
	StateIdle:     {StateRunning, StateStopped},
	StateRunning:  {StateStopping},
	StateStopping: {StateStopped},
	StateStopped:  {},
}

// CanTransition checks if moving from one state to another is valid.
func CanTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a state change, returning an error if it is invalid.
func Transition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal returns true if the state is final.
func IsTerminal(s State) bool {
	return s == StateStopped
}
