package planes

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// animation tracks the band timers of one running animation
type animation struct {
	timers    []*time.Timer
	remaining int
}

// Animator runs named animations made of one timer per band. When the last
// band of an animation finishes its name is posted to the done channel.
type Animator struct {
	mu         sync.Mutex
	animations map[string]*animation

	done   chan<- string
	rng    *rand.Rand
	rngMu  sync.Mutex
	jitter time.Duration
	logger *slog.Logger
}

// NewAnimator creates an animator posting finished animation names to done.
// rng is used for per-band jitter and may be nil when jitter is zero.
func NewAnimator(done chan<- string, rng *rand.Rand, jitter time.Duration, logger *slog.Logger) *Animator {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		jitter = 0
	}
	return &Animator{
		animations: make(map[string]*animation),
		done:       done,
		rng:        rng,
		jitter:     jitter,
		logger:     logger,
	}
}

// Start starts an animation of bands bands lasting about duration each.
// An animation already running under the same name is restarted.
func (a *Animator) Start(name string, bands int, duration time.Duration) {
	if bands < 1 {
		bands = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.animations[name]; ok {
		existing.stop()
		delete(a.animations, name)
	}

	anim := &animation{remaining: bands}
	for i := 0; i < bands; i++ {
		d := duration + a.bandJitter()
		anim.timers = append(anim.timers, time.AfterFunc(d, func() {
			a.bandDone(name, anim)
		}))
	}
	a.animations[name] = anim

	a.logger.Debug("animation started", "name", name, "bands", bands, "duration", duration)
}

func (a *Animator) bandDone(name string, anim *animation) {
	a.mu.Lock()
	// Check the animation still exists (wasn't stopped or restarted)
	if current, ok := a.animations[name]; !ok || current != anim {
		a.mu.Unlock()
		return
	}
	anim.remaining--
	if anim.remaining > 0 {
		a.mu.Unlock()
		return
	}
	delete(a.animations, name)
	a.mu.Unlock()

	a.logger.Debug("animation finished", "name", name)
	select {
	case a.done <- name:
	default:
		a.logger.Warn("done queue full, dropping animation", "name", name)
	}
}

func (a *Animator) bandJitter() time.Duration {
	if a.jitter <= 0 {
		return 0
	}
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return time.Duration(a.rng.Int64N(int64(a.jitter)))
}

// Stop stops an animation by name. No-op if it isn't running.
func (a *Animator) Stop(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if anim, ok := a.animations[name]; ok {
		anim.stop()
		delete(a.animations, name)
		a.logger.Debug("animation stopped", "name", name)
	}
}

// StopAll stops all running animations
func (a *Animator) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, anim := range a.animations {
		anim.stop()
		a.logger.Debug("animation stopped (cleanup)", "name", name)
	}
	a.animations = make(map[string]*animation)
}

// Active checks if an animation is running
func (a *Animator) Active(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.animations[name]
	return ok
}

func (anim *animation) stop() {
	for _, t := range anim.timers {
		t.Stop()
	}
}
