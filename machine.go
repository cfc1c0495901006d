package viafsm

import (
	"log/slog"
)

// Machine is a synchronous state machine. It is meant to be owned and driven
// by a single goroutine; hosts that share it must serialize access.
type Machine[S, E, TID, EID comparable] struct {
	table *table[S]

	current     S
	hasCurrent  bool
	previous    S
	hasPrevious bool

	inTransition bool
	statesQueue  []S
	queued       S
	hasQueued    bool

	canChangeStateDuringTransition bool

	wildcard    S
	hasWildcard bool

	transitionListeners *registry[transitionKey[S], TID, TransitionListener]
	eventListeners      *registry[eventKey[S, E], EID, EventListener]

	logger              *slog.Logger
	stateChangeCallback func(from, to S)
}

// MachineOption is a functional option for configuring a Machine
type MachineOption[S, E, TID, EID comparable] func(*Machine[S, E, TID, EID])

// WithLogger sets the logger for the machine
func WithLogger[S, E, TID, EID comparable](logger *slog.Logger) MachineOption[S, E, TID, EID] {
	return func(m *Machine[S, E, TID, EID]) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithWildcard marks a state value as the "any state" sentinel understood by Key.
func WithWildcard[S, E, TID, EID comparable](s S) MachineOption[S, E, TID, EID] {
	return func(m *Machine[S, E, TID, EID]) {
		m.wildcard = s
		m.hasWildcard = true
	}
}

// WithCanChangeStateDuringTransition sets the initial re-entrancy policy
func WithCanChangeStateDuringTransition[S, E, TID, EID comparable](allow bool) MachineOption[S, E, TID, EID] {
	return func(m *Machine[S, E, TID, EID]) {
		m.canChangeStateDuringTransition = allow
	}
}

// WithStateChangeCallback sets a callback invoked after the listeners of
// every committed step
func WithStateChangeCallback[S, E, TID, EID comparable](fn func(from, to S)) MachineOption[S, E, TID, EID] {
	return func(m *Machine[S, E, TID, EID]) {
		m.stateChangeCallback = fn
	}
}

// New creates an empty machine. The first state passed to Add becomes the
// current state.
func New[S, E, TID, EID comparable](opts ...MachineOption[S, E, TID, EID]) *Machine[S, E, TID, EID] {
	m := &Machine[S, E, TID, EID]{
		table:                          newTable[S](),
		canChangeStateDuringTransition: true,
		transitionListeners:            newRegistry[transitionKey[S], TID, TransitionListener](),
		eventListeners:                 newRegistry[eventKey[S, E], EID, EventListener](),
		logger:                         Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnStateChange sets a callback invoked after the listeners of every
// committed step.
func (m *Machine[S, E, TID, EID]) OnStateChange(fn func(from, to S)) {
	m.stateChangeCallback = fn
}

// Key maps the wildcard sentinel configured with WithWildcard to Any and
// every other state to Is.
func (m *Machine[S, E, TID, EID]) Key(s S) Key[S] {
	if m.hasWildcard && s == m.wildcard {
		return Any[S]()
	}
	return Is(s)
}

// CurrentState returns the current state. ok is false until the first Add.
func (m *Machine[S, E, TID, EID]) CurrentState() (s S, ok bool) {
	return m.current, m.hasCurrent
}

// PreviousState returns the state before the most recent step
func (m *Machine[S, E, TID, EID]) PreviousState() (s S, ok bool) {
	return m.previous, m.hasPrevious
}

// QueuedState returns the target deferred while a compound transition runs
func (m *Machine[S, E, TID, EID]) QueuedState() (s S, ok bool) {
	return m.queued, m.hasQueued
}

// InTransition reports whether a compound transition has unvisited states
func (m *Machine[S, E, TID, EID]) InTransition() bool {
	return m.inTransition
}

// CanChangeStateDuringTransition reports whether SetState calls made during a
// compound transition are deferred rather than applied immediately.
func (m *Machine[S, E, TID, EID]) CanChangeStateDuringTransition() bool {
	return m.canChangeStateDuringTransition
}

// SetCanChangeStateDuringTransition changes the re-entrancy policy
func (m *Machine[S, E, TID, EID]) SetCanChangeStateDuringTransition(allow bool) {
	m.canChangeStateDuringTransition = allow
}

// SetState requests a transition from the current state to to.
//
// A simple transition is committed and broadcast before SetState returns. A
// compound transition advances through its queue until it reaches a state
// that has outgoing transitions, then waits for Release. While a compound
// transition is running the request is remembered and applied at the next
// pass-through point instead. Requests with no matching edge are ignored.
func (m *Machine[S, E, TID, EID]) SetState(to S) {
	if m.inTransition && m.canChangeStateDuringTransition {
		m.queued, m.hasQueued = to, true
		m.logger.Debug("state change queued", "state", m.current, "queued", to)
		return
	}

	var zero S
	m.queued, m.hasQueued = zero, false

	if !m.hasCurrent || !m.table.hasOutgoing(m.current) {
		m.logger.Debug("no transitions from state", "state", m.current, "to", to)
		return
	}

	t, ok := m.table.lookup(m.current, to)
	if !ok {
		m.logger.Debug("no transition found", "from", m.current, "to", to)
		return
	}

	m.previous, m.hasPrevious = m.current, true

	if t.Simple() {
		m.current = t.To
		m.logger.Debug("transition committed", "from", m.previous, "to", m.current)
		m.broadcastStateChange(m.previous, m.current)
		return
	}

	m.logger.Debug("compound transition started", "from", m.current, "to", t.To, "via", t.Via)
	m.inTransition = true
	m.statesQueue = t.Queue()
	m.advance()
}

// Release signals that the work started for the current intermediate state
// has finished and moves the compound transition one step forward.
//
// Release panics with ErrReleaseBeforeSetState if no transition was ever
// committed.
func (m *Machine[S, E, TID, EID]) Release() {
	if len(m.statesQueue) == 0 {
		if !m.hasPrevious {
			panic(ErrReleaseBeforeSetState)
		}
		m.logger.Debug("release with empty queue ignored", "state", m.current)
		return
	}
	m.advance()
}

// advance moves to the next queued state and keeps going while the machine
// stands on pass-through states.
func (m *Machine[S, E, TID, EID]) advance() {
	if !m.hasPrevious {
		panic(ErrReleaseBeforeSetState)
	}

	for {
		m.previous = m.current
		m.current = m.statesQueue[0]
		m.statesQueue = m.statesQueue[1:]
		m.logger.Debug("advancing queue", "from", m.previous, "to", m.current, "remaining", len(m.statesQueue))

		m.broadcastStateChange(m.previous, m.current)

		if len(m.statesQueue) == 0 {
			m.statesQueue = nil
			m.inTransition = false
		}

		if !m.IsPassThrough(m.current) && m.inTransition {
			m.logger.Debug("waiting for release", "state", m.current)
			return
		}

		if m.hasQueued {
			if _, ok := m.table.lookup(m.current, m.queued); ok {
				m.logger.Debug("switching to queued state", "state", m.current, "queued", m.queued)
				m.inTransition = false
				m.statesQueue = nil
				m.SetState(m.queued)
				return
			}
		}

		if !m.inTransition {
			m.logger.Debug("compound transition finished", "state", m.current)
			return
		}
	}
}

// Dispatch invokes the listeners registered for event on any state, then
// those registered for the current state.
func (m *Machine[S, E, TID, EID]) Dispatch(event E, args ...any) {
	m.logger.Debug("dispatching event", "event", event, "state", m.current)

	call := func(fn EventListener) { fn(args...) }
	m.eventListeners.each(eventKey[S, E]{state: Any[S](), event: event}, call)
	if m.hasCurrent {
		m.eventListeners.each(eventKey[S, E]{state: Is(m.current), event: event}, call)
	}
}

// AddTransitionListener registers fn to run whenever a transition from from
// lands on to. Registering an id twice under the same pair is a no-op and
// returns false.
func (m *Machine[S, E, TID, EID]) AddTransitionListener(from, to Key[S], id TID, fn TransitionListener) bool {
	return m.transitionListeners.add(transitionKey[S]{from: from, to: to}, id, fn)
}

// RemoveTransitionListener removes the listener registered under id for the
// exact from/to pair.
func (m *Machine[S, E, TID, EID]) RemoveTransitionListener(from, to Key[S], id TID) {
	m.transitionListeners.remove(transitionKey[S]{from: from, to: to}, id)
}

// AddEventListener registers fn for event while the machine is in state.
// Registering an id twice under the same pair is a no-op and returns false.
func (m *Machine[S, E, TID, EID]) AddEventListener(state Key[S], event E, id EID, fn EventListener) bool {
	return m.eventListeners.add(eventKey[S, E]{state: state, event: event}, id, fn)
}

// RemoveEventListener removes the listener registered under id for the
// exact state/event pair.
func (m *Machine[S, E, TID, EID]) RemoveEventListener(state Key[S], event E, id EID) {
	m.eventListeners.remove(eventKey[S, E]{state: state, event: event}, id)
}

// TransitionListeners returns the number of listeners registered for the pair
func (m *Machine[S, E, TID, EID]) TransitionListeners(from, to Key[S]) int {
	return m.transitionListeners.len(transitionKey[S]{from: from, to: to})
}

// HasTransitionListeners reports whether the pair is present in the registry
func (m *Machine[S, E, TID, EID]) HasTransitionListeners(from, to Key[S]) bool {
	return m.transitionListeners.has(transitionKey[S]{from: from, to: to})
}

// EventListeners returns the number of listeners registered for the pair
func (m *Machine[S, E, TID, EID]) EventListeners(state Key[S], event E) int {
	return m.eventListeners.len(eventKey[S, E]{state: state, event: event})
}

// Stop drops every listener and abandons any compound transition in flight.
// Transitions stay registered and the current state is kept.
func (m *Machine[S, E, TID, EID]) Stop() error {
	m.logger.Debug("stopping machine",
		"transition_keys", m.transitionListeners.keys(),
		"event_keys", m.eventListeners.keys())

	m.transitionListeners.clear()
	m.eventListeners.clear()

	var zero S
	m.inTransition = false
	m.statesQueue = nil
	m.queued, m.hasQueued = zero, false
	return nil
}

// broadcastStateChange runs the transition listeners matching from -> to
func (m *Machine[S, E, TID, EID]) broadcastStateChange(from, to S) {
	call := func(fn TransitionListener) { fn() }
	m.transitionListeners.each(transitionKey[S]{from: Any[S](), to: Any[S]()}, call)
	m.transitionListeners.each(transitionKey[S]{from: Any[S](), to: Is(to)}, call)
	m.transitionListeners.each(transitionKey[S]{from: Is(from), to: Any[S]()}, call)
	m.transitionListeners.each(transitionKey[S]{from: Is(from), to: Is(to)}, call)

	if m.stateChangeCallback != nil {
		m.stateChangeCallback(from, to)
	}
}
