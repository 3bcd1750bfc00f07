package lifecycle

import (
	"slices"
)

// Machine is a pure, stateless transition table over a status type. It owns no
// entity state; callers pass the current status on every query.
type Machine[S ~string] struct {
	name        string
	transitions map[S][]S
}

// NewMachine constructs a Machine from a transition table. States that appear
// only as targets are terminal.
func NewMachine[S ~string](name string, transitions map[S][]S) Machine[S] {
	table := make(map[S][]S, len(transitions))
	for from, targets := range transitions {
		table[from] = slices.Clone(targets)
	}
	return Machine[S]{name: name, transitions: table}
}

// Name returns the machine identifier used in errors and audit metadata.
func (m Machine[S]) Name() string {
	return m.name
}

// CanTransition reports whether from → to is a permitted transition.
func (m Machine[S]) CanTransition(from, to S) bool {
	targets, ok := m.transitions[from]
	if !ok {
		return false
	}
	return slices.Contains(targets, to)
}

// AllowedTransitions returns the permitted target states from the given state.
func (m Machine[S]) AllowedTransitions(from S) []S {
	targets, ok := m.transitions[from]
	if !ok {
		return nil
	}
	return slices.Clone(targets)
}

// IsTerminal reports whether the state has no outbound transitions.
func (m Machine[S]) IsTerminal(state S) bool {
	return len(m.transitions[state]) == 0
}
