// Package viafsm implements a small synchronous state machine with compound
// transitions that walk a queue of intermediate states.
package viafsm

import "log/slog"

// Key addresses a listener bucket: either a concrete state or any state.
type Key[S comparable] struct {
	state    S
	wildcard bool
}

// Any returns the wildcard key matching every state.
func Any[S comparable]() Key[S] {
	return Key[S]{wildcard: true}
}

// Is returns the key for a concrete state.
func Is[S comparable](s S) Key[S] {
	return Key[S]{state: s}
}

// IsAny reports whether k is the wildcard key
func (k Key[S]) IsAny() bool {
	return k.wildcard
}

// State returns the concrete state of k. ok is false for the wildcard.
func (k Key[S]) State() (s S, ok bool) {
	if k.wildcard {
		return s, false
	}
	return k.state, true
}

// TransitionListener is invoked when a transition lands on its destination
type TransitionListener func()

// EventListener receives the arguments passed to Dispatch
type EventListener func(args ...any)

// Logger is the default logger used when none is provided
var Logger = slog.Default()
