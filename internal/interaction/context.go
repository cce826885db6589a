// Package interaction is the dwell-selection core. A Context holds the
// process-wide interaction state (mode, dwell duration, external targets,
// navigation lock) and the registry of selectable controls. Every change
// goes through a Context setter, which re-evaluates all controls before
// any activation callback runs.
package interaction

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/ottoboard/internal/clock"
	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
	"github.com/hammamikhairi/ottoboard/internal/timer"
)

// Default timings.
const (
	DefaultDwell          = 800 * time.Millisecond
	DefaultActivationLock = 500 * time.Millisecond
)

// Option configures the Context.
type Option func(*Context)

// WithClock sets the clock used for dwell countdowns and the lock.
func WithClock(c clock.Clock) Option {
	return func(ctx *Context) {
		ctx.clock = c
	}
}

// WithMode sets the initial interaction mode.
func WithMode(m domain.InteractionMode) Option {
	return func(ctx *Context) {
		ctx.mode = m
	}
}

// WithDwell sets the initial dwell duration. Non-positive values make
// targeted controls fire immediately.
func WithDwell(d time.Duration) Option {
	return func(ctx *Context) {
		ctx.dwell = d
	}
}

// WithActivationLock sets the navigation lock every control triggers when
// it fires. Zero disables it.
func WithActivationLock(d time.Duration) Option {
	return func(ctx *Context) {
		ctx.activationLock = d
	}
}

// Snapshot is a consistent copy of the shared state, handed to subscribers.
type Snapshot struct {
	Mode          domain.InteractionMode
	Dwell         time.Duration
	Demo          string
	Gaze          string
	Locked        bool
	LockRemaining time.Duration
	Controls      []ControlView
}

// Context is the shared interaction store. It is safe for concurrent use;
// all mutation is serialized on one mutex and activation callbacks run
// after it is released.
type Context struct {
	clock clock.Clock
	log   *logger.Logger

	mu             sync.Mutex
	mode           domain.InteractionMode
	dwell          time.Duration
	demo           string
	gaze           string
	activationLock time.Duration

	locked    bool
	lockUntil time.Time
	lockGen   uint64
	lockStop  clock.Stopper

	controls []*Control
	byID     map[string]*Control

	pending []func()
	dirty   bool

	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates an interaction context in click mode with the default dwell.
func New(log *logger.Logger, opts ...Option) *Context {
	c := &Context{
		clock:          clock.Real(),
		log:            log,
		mode:           domain.ModeClick,
		dwell:          DefaultDwell,
		activationLock: DefaultActivationLock,
		byID:           make(map[string]*Control),
		subs:           make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Setters ──────────────────────────────────────────────────────

// SetMode switches the interaction mode. Controls are re-evaluated before
// SetMode returns; leaving dwell mode cancels every running countdown.
func (c *Context) SetMode(m domain.InteractionMode) {
	c.apply(func() {
		if c.mode != m {
			c.log.Info("interaction mode %s -> %s", c.mode, m)
		}
		c.mode = m
	}, true)
}

// SetDwellDuration changes the dwell used by countdowns armed from now on.
// A countdown already running keeps its length.
func (c *Context) SetDwellDuration(d time.Duration) {
	c.apply(func() {
		c.log.Debug("dwell duration %s -> %s", c.dwell, d)
		c.dwell = d
	}, true)
}

// SetDemoTarget points the scripted demo driver at a control id. An empty
// id clears it.
func (c *Context) SetDemoTarget(id string) {
	c.apply(func() {
		c.demo = id
	}, true)
}

// SetGazeTarget points the eye tracker at a control id. An empty id
// clears it.
func (c *Context) SetGazeTarget(id string) {
	c.apply(func() {
		c.gaze = id
	}, true)
}

// TriggerLock engages the navigation lock for d, replacing any lock in
// progress. Running countdowns are cancelled and clicks are ignored until
// it expires. A non-positive d holds the lock until the next clock tick.
func (c *Context) TriggerLock(d time.Duration) {
	c.apply(func() {
		c.lockLocked(d)
	}, true)
}

// Register adds a control. The returned Control is live immediately and is
// evaluated against the current state. Registering an id that already
// exists updates that control's action and options and returns it.
// An empty id registers an anonymous control that only the pointer can
// target.
func (c *Context) Register(id string, activate func(), opts ...ControlOption) *Control {
	var ctl *Control
	c.apply(func() {
		if id != "" {
			if existing, ok := c.byID[id]; ok {
				existing.activate = activate
				for _, opt := range opts {
					opt(existing)
				}
				ctl = existing
				return
			}
		}

		ctl = &Control{
			ctx:        c,
			key:        uuid.NewString(),
			id:         id,
			activate:   activate,
			registered: true,
		}
		ctl.timer = timer.NewActivation(c.clock, timer.WithExecutor(func(f func()) {
			c.apply(f, true)
		}))
		for _, opt := range opts {
			opt(ctl)
		}
		c.controls = append(c.controls, ctl)
		if id != "" {
			c.byID[id] = ctl
		}
		c.log.Debug("registered control %q (%s)", id, ctl.key)
	}, true)
	return ctl
}

// Unregister removes a control, cancelling its countdown. Unknown ids are
// ignored.
func (c *Context) Unregister(id string) {
	c.apply(func() {
		if ctl, ok := c.byID[id]; ok {
			c.removeLocked(ctl)
		}
	}, false)
}

// Remove unregisters a specific control, including anonymous ones.
func (c *Context) Remove(ctl *Control) {
	c.apply(func() {
		if ctl.registered {
			c.removeLocked(ctl)
		}
	}, false)
}

// Click delivers a direct pointer click to the control with the given id.
// It reports whether the control activated.
func (c *Context) Click(id string) bool {
	ctl := c.Control(id)
	if ctl == nil {
		return false
	}
	return ctl.Click()
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function unsubscribes.
func (c *Context) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close cancels every countdown and the pending unlock. The context stays
// usable but nothing fires until the next change.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ctl := range c.controls {
		ctl.timer.Cancel()
		if ctl.state == StateArmed {
			ctl.state = StateIdle
		}
	}
	if c.lockStop != nil {
		c.lockStop.Stop()
		c.lockStop = nil
	}
	c.lockGen++
	c.locked = false
}

// ── Getters ──────────────────────────────────────────────────────

// Control returns the control registered under id, or nil.
func (c *Context) Control(id string) *Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byID[id]
}

// Mode returns the current interaction mode.
func (c *Context) Mode() domain.InteractionMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Dwell returns the current dwell duration.
func (c *Context) Dwell() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dwell
}

// Locked reports whether the navigation lock is engaged.
func (c *Context) Locked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked
}

// Snapshot returns a copy of the current state.
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ── Internals ────────────────────────────────────────────────────

// apply runs fn under the lock, optionally re-evaluates every control,
// then runs queued activations and notifies subscribers after unlocking.
func (c *Context) apply(fn func(), settle bool) {
	c.mu.Lock()
	if fn != nil {
		fn()
	}
	if settle {
		c.settleLocked()
	}
	jobs := c.pending
	c.pending = nil
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, job := range jobs {
		job()
	}
	for _, fn := range subs {
		fn(snap)
	}
}

// settleLocked evaluates every control until no control fires. A fire
// engages the lock, so controls evaluated earlier in the same pass get
// another look and drop any countdown they just started.
func (c *Context) settleLocked() {
	for {
		c.dirty = false
		for _, ctl := range c.controls {
			ctl.evaluateLocked()
		}
		if !c.dirty {
			return
		}
	}
}

func (c *Context) lockLocked(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.lockGen++
	gen := c.lockGen
	if c.lockStop != nil {
		c.lockStop.Stop()
	}
	c.locked = true
	c.lockUntil = c.clock.Now().Add(d)
	c.lockStop = c.clock.AfterFunc(d, func() { c.release(gen) })
	c.log.Debug("navigation lock engaged for %s", d)
}

// release clears the lock if gen is still the latest one. Controls are not
// evaluated in the releasing pass; a separate pass on the next tick lets
// them arm, so nothing arms in the same pass that drops the lock.
func (c *Context) release(gen uint64) {
	released := false
	c.apply(func() {
		if gen != c.lockGen || !c.locked {
			return
		}
		c.locked = false
		c.lockStop = nil
		released = true
		c.log.Debug("navigation lock released")
	}, false)

	if released {
		c.clock.AfterFunc(0, func() { c.apply(nil, true) })
	}
}

func (c *Context) removeLocked(ctl *Control) {
	ctl.timer.Cancel()
	ctl.registered = false
	ctl.state = StateIdle
	for i, other := range c.controls {
		if other == ctl {
			c.controls = append(c.controls[:i], c.controls[i+1:]...)
			break
		}
	}
	if ctl.id != "" && c.byID[ctl.id] == ctl {
		delete(c.byID, ctl.id)
	}
	c.log.Debug("unregistered control %q", ctl.id)
}

func (c *Context) signalsLocked(pointer bool) Signals {
	return Signals{Mode: c.mode, Demo: c.demo, Gaze: c.gaze, Pointer: pointer}
}

func (c *Context) snapshotLocked() Snapshot {
	s := Snapshot{
		Mode:     c.mode,
		Dwell:    c.dwell,
		Demo:     c.demo,
		Gaze:     c.gaze,
		Locked:   c.locked,
		Controls: make([]ControlView, 0, len(c.controls)),
	}
	if c.locked {
		if left := c.lockUntil.Sub(c.clock.Now()); left > 0 {
			s.LockRemaining = left
		}
	}
	for _, ctl := range c.controls {
		s.Controls = append(s.Controls, ctl.viewLocked())
	}
	return s
}
