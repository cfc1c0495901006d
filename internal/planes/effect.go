package planes

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/librescoot/viafsm"
)

// State is a visibility state of the effect
type State string

const (
	Invisible State = "invisible"
	Show      State = "show"
	Visible   State = "visible"
	Hide      State = "hide"
)

// Event is an input dispatched to the effect
type Event string

// EventTap toggles visibility
const EventTap Event = "tap"

// Animation names
const (
	animShow = "show"
	animHide = "hide"
)

// Machine is the state machine type driven by an Effect. Transition listeners
// are identified by the state they react to, event listeners by the effect.
type Machine = viafsm.Machine[State, Event, State, uuid.UUID]

// Effect shows and hides a banded image. It owns its state machine and only
// touches it from Run.
type Effect struct {
	id       uuid.UUID
	cfg      Config
	machine  *Machine
	animator *Animator
	logger   *slog.Logger
	onLanded func(State)

	requests chan State
	events   chan Event
	released chan string
}

// Option configures an Effect
type Option func(*Effect)

// WithLogger sets the logger for the effect and its state machine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Effect) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLandedFunc sets a callback invoked when the effect becomes fully
// visible or invisible
func WithLandedFunc(fn func(State)) Option {
	return func(e *Effect) {
		e.onLanded = fn
	}
}

// NewEffect builds an effect starting invisible. rng drives the per-band
// jitter of the animations.
func NewEffect(cfg Config, rng *rand.Rand, opts ...Option) *Effect {
	e := &Effect{
		id:       uuid.New(),
		cfg:      cfg,
		logger:   slog.Default(),
		requests: make(chan State, 8),
		events:   make(chan Event, 8),
		released: make(chan string, 4),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("effect", e.id)
	e.animator = NewAnimator(e.released, rng, cfg.Jitter, e.logger)

	m := viafsm.New(viafsm.WithLogger[State, Event, State, uuid.UUID](e.logger))
	m.AddVia(Invisible, []State{Show}, Visible).
		AddVia(Visible, []State{Hide}, Invisible).
		// Show and Hide can fall back, which also makes them wait for Release
		Add(Show, Invisible).
		Add(Hide, Visible)

	anyState := viafsm.Any[State]()
	m.AddTransitionListener(anyState, viafsm.Is(Show), Show, e.stateShow)
	m.AddTransitionListener(anyState, viafsm.Is(Hide), Hide, e.stateHide)
	m.AddTransitionListener(anyState, viafsm.Is(Visible), Visible, e.landed(Visible))
	m.AddTransitionListener(anyState, viafsm.Is(Invisible), Invisible, e.landed(Invisible))

	m.AddEventListener(viafsm.Is(Invisible), EventTap, e.id, func(...any) { m.SetState(Visible) })
	m.AddEventListener(viafsm.Is(Visible), EventTap, e.id, func(...any) { m.SetState(Invisible) })

	e.machine = m
	return e
}

// ID returns the identity the effect registers its event listeners under
func (e *Effect) ID() uuid.UUID {
	return e.id
}

// Show requests the effect to become visible
func (e *Effect) Show() {
	e.requests <- Visible
}

// Hide requests the effect to become invisible
func (e *Effect) Hide() {
	e.requests <- Invisible
}

// Tap dispatches EventTap, toggling visibility once the effect has landed
func (e *Effect) Tap() {
	e.events <- EventTap
}

// Run drives the state machine until ctx is done
func (e *Effect) Run(ctx context.Context) error {
	defer func() {
		e.animator.StopAll()
		_ = e.machine.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-e.requests:
			e.machine.SetState(s)
		case ev := <-e.events:
			e.machine.Dispatch(ev)
		case name := <-e.released:
			e.release(name)
		}
	}
}

// release advances the machine if the finished animation belongs to the
// state it is waiting in
func (e *Effect) release(name string) {
	current, _ := e.machine.CurrentState()
	if (name == animShow && current != Show) || (name == animHide && current != Hide) {
		e.logger.Debug("stale animation ignored", "name", name, "state", current)
		return
	}
	e.machine.Release()
}

func (e *Effect) stateShow() {
	e.animator.Stop(animHide)
	e.animator.Start(animShow, e.cfg.Bands, e.cfg.ShowDuration)
}

func (e *Effect) stateHide() {
	e.animator.Stop(animShow)
	e.animator.Start(animHide, e.cfg.Bands, e.cfg.HideDuration)
}

func (e *Effect) landed(s State) viafsm.TransitionListener {
	return func() {
		e.logger.Info("effect landed", "state", s)
		if e.onLanded != nil {
			e.onLanded(s)
		}
	}
}
