package viafsm

// edges holds the outgoing transitions of one state in registration order
type edges[S comparable] struct {
	order []S
	byTo  map[S]Transition[S]
}

// table is the adjacency map of the machine
type table[S comparable] struct {
	from map[S]*edges[S]
}

func newTable[S comparable]() *table[S] {
	return &table[S]{from: make(map[S]*edges[S])}
}

// put registers or replaces the edge from -> to
func (t *table[S]) put(from, to S, via []S) {
	e, ok := t.from[from]
	if !ok {
		e = &edges[S]{byTo: make(map[S]Transition[S])}
		t.from[from] = e
	}
	if _, exists := e.byTo[to]; !exists {
		e.order = append(e.order, to)
	}
	var v []S
	if len(via) > 0 {
		v = append(v, via...)
	}
	e.byTo[to] = Transition[S]{From: from, To: to, Via: v}
}

func (t *table[S]) lookup(from, to S) (Transition[S], bool) {
	e, ok := t.from[from]
	if !ok {
		return Transition[S]{}, false
	}
	tr, ok := e.byTo[to]
	return tr, ok
}

// hasOutgoing reports whether any edge leaves s
func (t *table[S]) hasOutgoing(s S) bool {
	_, ok := t.from[s]
	return ok
}

func (t *table[S]) destinations(from S) []S {
	e, ok := t.from[from]
	if !ok {
		return nil
	}
	out := make([]S, len(e.order))
	copy(out, e.order)
	return out
}

// Add declares from as a known state and registers a simple transition to
// each destination. The first state ever added becomes the current state.
func (m *Machine[S, E, TID, EID]) Add(from S, to ...S) *Machine[S, E, TID, EID] {
	return m.AddVia(from, nil, to...)
}

// AddVia registers one transition per destination, all passing through the
// same intermediate states. An empty via registers simple transitions.
func (m *Machine[S, E, TID, EID]) AddVia(from S, via []S, to ...S) *Machine[S, E, TID, EID] {
	if !m.hasCurrent {
		m.current = from
		m.hasCurrent = true
		m.logger.Debug("initial state set", "state", from)
	}

	m.warnWildcard(from)
	for _, s := range to {
		m.warnWildcard(s)
		m.table.put(from, s, via)
		m.logger.Debug("transition added", "from", from, "to", s, "via", via)
	}
	return m
}

// AddTwoWay registers from -> to and to -> from. Both directions share via.
func (m *Machine[S, E, TID, EID]) AddTwoWay(from, to S, via ...S) *Machine[S, E, TID, EID] {
	m.AddVia(from, via, to)
	return m.AddVia(to, via, from)
}

// Transition returns the registered edge from -> to
func (m *Machine[S, E, TID, EID]) Transition(from, to S) (Transition[S], bool) {
	tr, ok := m.table.lookup(from, to)
	if ok {
		tr.Via = append([]S(nil), tr.Via...)
	}
	return tr, ok
}

// Destinations lists the states reachable from from in registration order
func (m *Machine[S, E, TID, EID]) Destinations(from S) []S {
	return m.table.destinations(from)
}

// IsPassThrough reports whether s has no outgoing transitions. Pass-through
// states are skipped without waiting for Release while draining a queue.
func (m *Machine[S, E, TID, EID]) IsPassThrough(s S) bool {
	return !m.table.hasOutgoing(s)
}

// CanSetState reports whether an edge exists from the current state to to.
func (m *Machine[S, E, TID, EID]) CanSetState(to S) bool {
	if !m.hasCurrent {
		return false
	}
	_, ok := m.table.lookup(m.current, to)
	return ok
}

func (m *Machine[S, E, TID, EID]) warnWildcard(s S) {
	if m.hasWildcard && s == m.wildcard {
		m.logger.Warn("wildcard state used in transition table", "state", s)
	}
}
