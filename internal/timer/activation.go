// Package timer implements the dwell countdown that sits behind every
// selectable control.
package timer

import (
	"sync"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/clock"
)

// Executor runs a completion callback. The interaction core passes one
// that takes its own lock, so completions are serialized with every other
// state change.
type Executor func(func())

// Option configures an Activation.
type Option func(*Activation)

// WithExecutor routes natural completions through exec.
func WithExecutor(exec Executor) Option {
	return func(a *Activation) {
		a.exec = exec
	}
}

// Activation is a restartable single-shot countdown. Each Arm starts a new
// cycle; a cycle ends exactly once, by completion or by Cancel/Arm.
type Activation struct {
	clock clock.Clock
	exec  Executor

	mu      sync.Mutex
	gen     uint64
	armed   bool
	armedAt time.Time
	dur     time.Duration
	stop    clock.Stopper
}

// NewActivation creates an idle countdown on the given clock.
func NewActivation(c clock.Clock, opts ...Option) *Activation {
	a := &Activation{
		clock: c,
		exec:  func(f func()) { f() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Arm starts a countdown of d and calls onComplete when it elapses. Arming
// while armed restarts from zero; the earlier cycle never completes.
// A non-positive d completes before Arm returns, on the caller's goroutine
// and without going through the executor.
func (a *Activation) Arm(d time.Duration, onComplete func()) {
	a.mu.Lock()
	a.gen++
	gen := a.gen
	if a.stop != nil {
		a.stop.Stop()
		a.stop = nil
	}

	if d <= 0 {
		a.armed = false
		a.dur = 0
		a.mu.Unlock()
		onComplete()
		return
	}

	a.armed = true
	a.armedAt = a.clock.Now()
	a.dur = d
	a.stop = a.clock.AfterFunc(d, func() {
		a.exec(func() { a.complete(gen, onComplete) })
	})
	a.mu.Unlock()
}

// complete runs onComplete if gen is still the live cycle.
func (a *Activation) complete(gen uint64, onComplete func()) {
	a.mu.Lock()
	if gen != a.gen || !a.armed {
		a.mu.Unlock()
		return
	}
	a.armed = false
	a.stop = nil
	a.mu.Unlock()

	onComplete()
}

// Cancel ends the current cycle without completing it. It reports whether
// a countdown was running.
func (a *Activation) Cancel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.gen++
	if a.stop != nil {
		a.stop.Stop()
		a.stop = nil
	}
	was := a.armed
	a.armed = false
	return was
}

// Armed reports whether a countdown is running.
func (a *Activation) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.armed
}

// Duration returns the length of the running countdown, or zero.
func (a *Activation) Duration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.armed {
		return 0
	}
	return a.dur
}

// Remaining returns the time left on the running countdown, or zero.
func (a *Activation) Remaining() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.armed {
		return 0
	}
	left := a.dur - a.clock.Now().Sub(a.armedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Progress returns the elapsed fraction of the running countdown in [0,1].
// The dwell fill is drawn from this value, so it can never drift from the
// countdown itself.
func (a *Activation) Progress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.armed || a.dur <= 0 {
		return 0
	}
	p := float64(a.clock.Now().Sub(a.armedAt)) / float64(a.dur)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
