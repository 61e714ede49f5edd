// Package statemachine provides the shared connection lifecycle
// machine used by the network-facing managers. Each manager declares
// its states and legal transitions once instead of hand-rolling the
// same enum-and-switch bookkeeping.
package statemachine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTransition is returned when a requested transition is not
// declared for the current state.
var ErrInvalidTransition = errors.New("invalid transition")

// Machine tracks a current state of type S, validates transitions
// against the declared set, and invokes a hook on every change. Safe
// for concurrent use; the hook runs outside the lock.
type Machine[S comparable] struct {
	mu         sync.Mutex
	name       string
	state      S
	allowed    map[S][]S
	onChange   func(from, to S)
	enteredAt  time.Time
	now        func() time.Time
	validating bool
}

// New returns a machine named for log and error messages, starting in
// the given state. Until Allow is called, every transition is legal.
func New[S comparable](name string, initial S) *Machine[S] {
	m := &Machine[S]{
		name:    name,
		state:   initial,
		allowed: make(map[S][]S),
		now:     time.Now,
	}
	m.enteredAt = m.now()
	return m
}

// Allow declares the legal transitions out of from. The first Allow
// call switches the machine into validating mode.
func (m *Machine[S]) Allow(from S, to ...S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowed[from] = append(m.allowed[from], to...)
	m.validating = true
}

// OnTransition registers a hook invoked after every state change.
// Register before the machine is shared between goroutines.
func (m *Machine[S]) OnTransition(fn func(from, to S)) {
	m.onChange = fn
}

// TransitionTo moves the machine to the given state. Moving to the
// current state is a no-op. An undeclared transition (in validating
// mode) fails with ErrInvalidTransition and leaves the state untouched.
func (m *Machine[S]) TransitionTo(to S) error {
	m.mu.Lock()
	if to == m.state {
		m.mu.Unlock()
		return nil
	}
	if m.validating && !m.transitionAllowed(to) {
		err := fmt.Errorf("%s: %w: %v -> %v", m.name, ErrInvalidTransition, m.state, to)
		m.mu.Unlock()
		return err
	}
	from := m.state
	m.state = to
	m.enteredAt = m.now()
	hook := m.onChange
	m.mu.Unlock()

	if hook != nil {
		hook(from, to)
	}
	return nil
}

// State returns the current state.
func (m *Machine[S]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Is reports whether the machine is in the given state.
func (m *Machine[S]) Is(s S) bool {
	return m.State() == s
}

// Since returns how long the machine has been in its current state.
func (m *Machine[S]) Since() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.enteredAt)
}

func (m *Machine[S]) transitionAllowed(to S) bool {
	for _, s := range m.allowed[m.state] {
		if s == to {
			return true
		}
	}
	return false
}
