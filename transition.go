package viafsm

// Transition is an edge of the transition table
type Transition[S comparable] struct {
	From S
	To   S
	Via  []S // Intermediate states; empty for a simple transition
}

// Simple reports whether the transition is applied in a single step
func (t Transition[S]) Simple() bool {
	return len(t.Via) == 0
}

// Queue returns the states visited by a compound transition, ending with To.
// The returned slice is a fresh copy.
func (t Transition[S]) Queue() []S {
	if t.Simple() {
		return nil
	}
	q := make([]S, 0, len(t.Via)+1)
	q = append(q, t.Via...)
	return append(q, t.To)
}
