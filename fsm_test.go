package viafsm

import (
	"errors"
	"reflect"
	"testing"
)

// Test states
const (
	stateA StateID = "a"
	stateB StateID = "b"
	stateC StateID = "c"
	stateD StateID = "d"
	stateE StateID = "e"
	stateX StateID = "x"
)

// Test events
const (
	evTap  EventID = "tap"
	evDrag EventID = "drag"
)

type (
	StateID string
	EventID string
)

type testMachine = Machine[StateID, EventID, string, string]

func newTestMachine() *testMachine {
	return New[StateID, EventID, string, string]()
}

// recorder collects listener calls in order
type recorder struct {
	calls []string
}

func (r *recorder) listener(name string) TransitionListener {
	return func() { r.calls = append(r.calls, name) }
}

func expectState(t *testing.T, m *testMachine, want StateID) {
	t.Helper()
	got, ok := m.CurrentState()
	if !ok {
		t.Fatalf("expected state %s, machine has no state", want)
	}
	if got != want {
		t.Fatalf("expected state %s, got %s", want, got)
	}
}

func expectPrevious(t *testing.T, m *testMachine, want StateID) {
	t.Helper()
	got, ok := m.PreviousState()
	if !ok {
		t.Fatalf("expected previous state %s, machine has none", want)
	}
	if got != want {
		t.Fatalf("expected previous state %s, got %s", want, got)
	}
}

func TestSetStateBeforeAddIsNoop(t *testing.T) {
	m := newTestMachine()

	m.SetState(stateA)

	if _, ok := m.CurrentState(); ok {
		t.Fatal("machine should have no current state")
	}
	if _, ok := m.PreviousState(); ok {
		t.Fatal("machine should have no previous state")
	}
}

func TestFirstAddSetsInitialState(t *testing.T) {
	m := newTestMachine()

	m.Add(stateA)
	expectState(t, m, stateA)

	m.Add(stateB, stateC)
	expectState(t, m, stateA)

	if !m.IsPassThrough(stateA) {
		t.Error("declaring a node must not add outgoing transitions")
	}
}

func TestSimpleTransition(t *testing.T) {
	m := newTestMachine()
	m.Add(stateA, stateB)

	rec := &recorder{}
	m.AddTransitionListener(Is(stateA), Is(stateB), "ab", rec.listener("a/b"))
	m.AddTransitionListener(Is(stateA), Any[StateID](), "a*", rec.listener("a/*"))
	m.AddTransitionListener(Any[StateID](), Is(stateB), "*b", rec.listener("*/b"))
	m.AddTransitionListener(Any[StateID](), Any[StateID](), "**", rec.listener("*/*"))

	m.SetState(stateB)

	expectState(t, m, stateB)
	expectPrevious(t, m, stateA)

	want := []string{"*/*", "*/b", "a/*", "a/b"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("expected %v, got %v", want, rec.calls)
	}
	if m.InTransition() {
		t.Error("simple transition must not leave the machine in transition")
	}
}

func TestInvalidTargetIsIgnored(t *testing.T) {
	m := newTestMachine()
	m.Add(stateA, stateB)
	m.SetState(stateB)

	rec := &recorder{}
	m.AddTransitionListener(Any[StateID](), Any[StateID](), "all", rec.listener("all"))

	// b has no outgoing edges at all
	m.SetState(stateX)
	expectState(t, m, stateB)
	expectPrevious(t, m, stateA)

	// b has edges, but none to x
	m.Add(stateB, stateC)
	m.SetState(stateX)
	expectState(t, m, stateB)
	expectPrevious(t, m, stateA)

	if len(rec.calls) != 0 {
		t.Errorf("expected no listener calls, got %v", rec.calls)
	}
}

func TestCompoundTransitionDraining(t *testing.T) {
	m := newTestMachine()
	m.AddVia(stateA, []StateID{stateB, stateC}, stateD)
	m.Add(stateC, stateA) // c has an outgoing edge and therefore pauses

	var landed []StateID
	m.AddTransitionListener(Any[StateID](), Any[StateID](), "trace", func() {
		s, _ := m.CurrentState()
		landed = append(landed, s)
	})

	m.SetState(stateD)

	expectState(t, m, stateC)
	expectPrevious(t, m, stateB)
	if !m.InTransition() {
		t.Fatal("machine should wait for release in c")
	}
	if want := []StateID{stateB, stateC}; !reflect.DeepEqual(landed, want) {
		t.Fatalf("expected %v, got %v", want, landed)
	}

	m.Release()

	expectState(t, m, stateD)
	expectPrevious(t, m, stateC)
	if m.InTransition() {
		t.Error("compound transition should be finished")
	}
	if want := []StateID{stateB, stateC, stateD}; !reflect.DeepEqual(landed, want) {
		t.Errorf("expected %v, got %v", want, landed)
	}
}

func TestCompoundTransitionAllPassThrough(t *testing.T) {
	m := newTestMachine()
	m.AddVia(stateA, []StateID{stateB, stateC}, stateD)

	m.SetState(stateD)

	expectState(t, m, stateD)
	expectPrevious(t, m, stateC)
	if m.InTransition() {
		t.Error("pass-through states should drain without release")
	}
}

func TestStuckTransitionIsValid(t *testing.T) {
	m := newTestMachine()
	m.AddVia(stateA, []StateID{stateB}, stateC)
	m.Add(stateB, stateA)

	m.SetState(stateC)

	expectState(t, m, stateB)
	if !m.InTransition() {
		t.Fatal("machine should stay in transition until released")
	}
}

func TestQueuedStateOverride(t *testing.T) {
	m := newTestMachine()
	m.AddVia(stateA, []StateID{stateB, stateC}, stateD)
	m.Add(stateC, stateA)
	m.Add(stateD, stateE)

	m.SetState(stateD)
	expectState(t, m, stateC)

	// deferred, not applied while c waits for release
	m.SetState(stateE)
	expectState(t, m, stateC)
	if q, ok := m.QueuedState(); !ok || q != stateE {
		t.Fatalf("expected queued state %s, got %s (%v)", stateE, q, ok)
	}

	m.Release()

	expectState(t, m, stateE)
	expectPrevious(t, m, stateD)
	if _, ok := m.QueuedState(); ok {
		t.Error("queued state should be cleared once applied")
	}
	if m.InTransition() {
		t.Error("machine should not be in transition")
	}
}

func TestQueuedStateWaitsForPassThroughPoint(t *testing.T) {
	m := newTestMachine()
	m.AddVia(stateA, []StateID{stateB, stateC}, stateD)
	m.Add(stateB, stateA) // b pauses
	m.Add(stateC, stateE) // c has an edge to the queued target

	m.SetState(stateD)
	expectState(t, m, stateB)

	m.SetState(stateE)
	m.Release()

	// c is reached with the transition still running and has edges, so it
	// waits; the queued request is only considered at pass-through points
	expectState(t, m, stateC)

	m.Release()
	// d is final and has no edge to e: the request stays pending
	expectState(t, m, stateD)
	if m.InTransition() {
		t.Error("machine should not be in transition")
	}
}

func TestQueuedStateFromListener(t *testing.T) {
	m := newTestMachine()
	m.AddVia(stateA, []StateID{stateB}, stateC)
	m.Add(stateC, stateA)

	m.AddTransitionListener(Any[StateID](), Is(stateC), "bounce", func() {
		m.SetState(stateA)
	})

	m.SetState(stateC)

	expectState(t, m, stateA)
	expectPrevious(t, m, stateC)
}

func TestChangeDuringTransitionDisabled(t *testing.T) {
	m := New(WithCanChangeStateDuringTransition[StateID, EventID, string, string](false))
	m.AddVia(stateA, []StateID{stateB}, stateC)
	m.Add(stateB, stateA)

	m.SetState(stateC)
	expectState(t, m, stateB)

	m.SetState(stateA)
	expectState(t, m, stateA)
	expectPrevious(t, m, stateB)
	if _, ok := m.QueuedState(); ok {
		t.Error("nothing should be queued")
	}
}

func TestReleaseBeforeSetStatePanics(t *testing.T) {
	m := newTestMachine()
	m.Add(stateA, stateB)

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrReleaseBeforeSetState) {
			t.Fatalf("expected ErrReleaseBeforeSetState panic, got %v", r)
		}
	}()

	m.Release()
}

func TestReleaseWithEmptyQueueIsIgnored(t *testing.T) {
	m := newTestMachine()
	m.Add(stateA, stateB)
	m.SetState(stateB)

	m.Release()

	expectState(t, m, stateB)
	expectPrevious(t, m, stateA)
}

func TestTwoWay(t *testing.T) {
	m := newTestMachine()
	m.AddTwoWay(stateA, stateB, stateC)

	for _, pair := range [][2]StateID{{stateA, stateB}, {stateB, stateA}} {
		tr, ok := m.Transition(pair[0], pair[1])
		if !ok {
			t.Fatalf("missing transition %s -> %s", pair[0], pair[1])
		}
		if !reflect.DeepEqual(tr.Via, []StateID{stateC}) {
			t.Errorf("expected via [c], got %v", tr.Via)
		}
	}

	m.SetState(stateB)
	expectState(t, m, stateB)
	m.SetState(stateA)
	expectState(t, m, stateA)
}

func TestListenerDeduplication(t *testing.T) {
	m := newTestMachine()
	m.Add(stateA, stateB)

	count := 0
	fn := func() { count++ }
	if !m.AddTransitionListener(Is(stateA), Is(stateB), "l", fn) {
		t.Fatal("first registration should succeed")
	}
	if m.AddTransitionListener(Is(stateA), Is(stateB), "l", fn) {
		t.Fatal("second registration should be a no-op")
	}
	// same id under another key is a separate registration
	if !m.AddTransitionListener(Any[StateID](), Is(stateB), "l", fn) {
		t.Fatal("same id under a different key should register")
	}

	m.SetState(stateB)

	if count != 2 {
		t.Errorf("expected 2 calls, got %d", count)
	}
}

func TestRemoveTransitionListener(t *testing.T) {
	m := newTestMachine()
	m.AddTwoWay(stateA, stateB)

	count := 0
	m.AddTransitionListener(Is(stateA), Is(stateB), "l", func() { count++ })
	m.RemoveTransitionListener(Is(stateA), Is(stateB), "l")

	if m.HasTransitionListeners(Is(stateA), Is(stateB)) {
		t.Error("empty key should be pruned")
	}

	m.SetState(stateB)
	if count != 0 {
		t.Errorf("removed listener was called %d times", count)
	}
}

func TestEventDispatchOrder(t *testing.T) {
	m := newTestMachine()
	m.Add(stateA, stateB)

	var calls []string
	m.AddEventListener(Is(stateA), evTap, "state", func(args ...any) {
		calls = append(calls, "state")
	})
	m.AddEventListener(Any[StateID](), evTap, "any", func(args ...any) {
		calls = append(calls, "any")
		if len(args) != 2 || args[0] != 1 || args[1] != "two" {
			t.Errorf("unexpected args %v", args)
		}
	})
	m.AddEventListener(Is(stateB), evTap, "other", func(args ...any) {
		calls = append(calls, "other")
	})

	m.Dispatch(evTap, 1, "two")
	m.Dispatch(evDrag)

	if want := []string{"any", "state"}; !reflect.DeepEqual(calls, want) {
		t.Errorf("expected %v, got %v", want, calls)
	}

	m.RemoveEventListener(Any[StateID](), evTap, "any")
	if n := m.EventListeners(Any[StateID](), evTap); n != 0 {
		t.Errorf("expected no listeners, got %d", n)
	}
}

func TestListenerPanicPropagates(t *testing.T) {
	m := newTestMachine()
	m.Add(stateA, stateB)
	m.AddTransitionListener(Any[StateID](), Any[StateID](), "boom", func() {
		panic("boom")
	})

	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("expected listener panic, got %v", r)
		}
		expectState(t, m, stateB)
	}()

	m.SetState(stateB)
}

func TestWildcardSentinel(t *testing.T) {
	const anyState StateID = "*"
	m := New(WithWildcard[StateID, EventID, string, string](anyState))
	m.Add(stateA, stateB)

	if !m.Key(anyState).IsAny() {
		t.Error("sentinel should map to the wildcard key")
	}
	if s, ok := m.Key(stateA).State(); !ok || s != stateA {
		t.Errorf("expected concrete key for %s", stateA)
	}

	called := false
	m.AddTransitionListener(m.Key(anyState), m.Key(stateB), "l", func() { called = true })
	m.SetState(stateB)

	if !called {
		t.Error("wildcard listener was not called")
	}
}

func TestStateChangeCallback(t *testing.T) {
	var steps [][2]StateID
	m := New(WithStateChangeCallback[StateID, EventID, string, string](func(from, to StateID) {
		steps = append(steps, [2]StateID{from, to})
	}))
	m.AddVia(stateA, []StateID{stateB}, stateC)

	m.SetState(stateC)

	want := [][2]StateID{{stateA, stateB}, {stateB, stateC}}
	if !reflect.DeepEqual(steps, want) {
		t.Errorf("expected %v, got %v", want, steps)
	}
}

func TestStop(t *testing.T) {
	m := newTestMachine()
	m.AddVia(stateA, []StateID{stateB}, stateC)
	m.Add(stateB, stateA)
	m.AddTransitionListener(Any[StateID](), Any[StateID](), "l", func() {})
	m.AddEventListener(Any[StateID](), evTap, "l", func(...any) {})

	m.SetState(stateC)
	m.SetState(stateA)

	if err := m.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if m.HasTransitionListeners(Any[StateID](), Any[StateID]()) {
		t.Error("transition listeners should be drained")
	}
	if m.EventListeners(Any[StateID](), evTap) != 0 {
		t.Error("event listeners should be drained")
	}
	if m.InTransition() {
		t.Error("stop should abandon the compound transition")
	}
	if _, ok := m.QueuedState(); ok {
		t.Error("stop should drop the queued state")
	}
	expectState(t, m, stateB)
}
