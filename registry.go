package viafsm

type entry[ID comparable, F any] struct {
	id ID
	fn F
}

// registry keeps ordered, identified callbacks per key. Empty keys are pruned.
type registry[K, ID comparable, F any] struct {
	byKey map[K][]entry[ID, F]
}

func newRegistry[K, ID comparable, F any]() *registry[K, ID, F] {
	return &registry[K, ID, F]{byKey: make(map[K][]entry[ID, F])}
}

// add appends fn under key unless id is already registered there
func (r *registry[K, ID, F]) add(key K, id ID, fn F) bool {
	for _, e := range r.byKey[key] {
		if e.id == id {
			return false
		}
	}
	r.byKey[key] = append(r.byKey[key], entry[ID, F]{id: id, fn: fn})
	return true
}

// remove drops every entry with id under key and returns how many were removed
func (r *registry[K, ID, F]) remove(key K, id ID) int {
	list, ok := r.byKey[key]
	if !ok {
		return 0
	}
	kept := make([]entry[ID, F], 0, len(list))
	for _, e := range list {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	removed := len(list) - len(kept)
	if len(kept) == 0 {
		delete(r.byKey, key)
	} else {
		r.byKey[key] = kept
	}
	return removed
}

// each calls fn for the entries under key as they were when each was called.
// Callbacks may mutate the registry.
func (r *registry[K, ID, F]) each(key K, fn func(F)) {
	list := r.byKey[key]
	if len(list) == 0 {
		return
	}
	snapshot := make([]entry[ID, F], len(list))
	copy(snapshot, list)
	for _, e := range snapshot {
		fn(e.fn)
	}
}

func (r *registry[K, ID, F]) len(key K) int {
	return len(r.byKey[key])
}

func (r *registry[K, ID, F]) has(key K) bool {
	_, ok := r.byKey[key]
	return ok
}

func (r *registry[K, ID, F]) keys() int {
	return len(r.byKey)
}

func (r *registry[K, ID, F]) clear() {
	r.byKey = make(map[K][]entry[ID, F])
}

// transitionKey addresses a transition listener bucket
type transitionKey[S comparable] struct {
	from Key[S]
	to   Key[S]
}

// eventKey addresses an event listener bucket
type eventKey[S, E comparable] struct {
	state Key[S]
	event E
}
