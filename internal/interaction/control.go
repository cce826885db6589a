package interaction

import (
	"time"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/timer"
)

// State is a control's position in the selection state machine.
type State int

const (
	// StateIdle waits for the control to be targeted.
	StateIdle State = iota
	// StateArmed runs the dwell countdown.
	StateArmed
	// StateFired has activated once and waits for the target to leave.
	StateFired
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFired:
		return "fired"
	default:
		return "unknown"
	}
}

// ControlOption configures a Control at registration.
type ControlOption func(*Control)

// WithDisabled registers the control disabled or enabled.
func WithDisabled(disabled bool) ControlOption {
	return func(ctl *Control) {
		ctl.disabled = disabled
	}
}

// WithLockAfter overrides the navigation lock the control triggers when it
// fires. Zero means no lock.
func WithLockAfter(d time.Duration) ControlOption {
	return func(ctl *Control) {
		ctl.lockAfter = d
		ctl.ownLock = true
	}
}

// ControlView is a read-only copy of a control's state for rendering.
type ControlView struct {
	Key         string
	ID          string
	State       State
	Source      Source
	Progress    float64
	Disabled    bool
	Hovered     bool
	Activations int
}

// Control is one selectable element. It owns its pointer hover flag and
// its countdown; everything else it reads from the Context.
type Control struct {
	ctx *Context
	key string
	id  string

	// Guarded by ctx.mu.
	activate   func()
	disabled   bool
	pointer    bool
	lockAfter  time.Duration
	ownLock    bool
	state      State
	source     Source
	fires      int
	registered bool

	timer *timer.Activation
}

// ID returns the id external targets use. It is empty for anonymous
// controls.
func (ctl *Control) ID() string { return ctl.id }

// Key returns the unique registry key.
func (ctl *Control) Key() string { return ctl.key }

// PointerEnter marks the pointer as hovering the control.
func (ctl *Control) PointerEnter() {
	ctl.ctx.apply(func() { ctl.pointer = true }, true)
}

// PointerLeave marks the pointer as gone.
func (ctl *Control) PointerLeave() {
	ctl.ctx.apply(func() { ctl.pointer = false }, true)
}

// SetDisabled enables or disables the control. Disabling cancels a running
// countdown.
func (ctl *Control) SetDisabled(disabled bool) {
	ctl.ctx.apply(func() { ctl.disabled = disabled }, true)
}

// SetAction replaces the activation callback.
func (ctl *Control) SetAction(activate func()) {
	ctl.ctx.mu.Lock()
	ctl.activate = activate
	ctl.ctx.mu.Unlock()
}

// Click activates the control immediately in either mode, unless it is
// disabled or the navigation lock is engaged. A running countdown is
// cancelled so it cannot fire a second time. Click reports whether the
// control activated.
func (ctl *Control) Click() bool {
	fired := false
	ctl.ctx.apply(func() {
		c := ctl.ctx
		switch {
		case !ctl.registered:
			return
		case ctl.disabled:
			c.log.Debug("click on disabled control %q ignored", ctl.id)
			return
		case c.locked:
			c.log.Debug("click on %q swallowed by navigation lock", ctl.id)
			return
		}
		ctl.timer.Cancel()
		ctl.fireLocked("click")
		fired = true
	}, true)
	return fired
}

// State returns the current state.
func (ctl *Control) State() State {
	ctl.ctx.mu.Lock()
	defer ctl.ctx.mu.Unlock()
	return ctl.state
}

// Source returns what targeted the control at the last evaluation.
func (ctl *Control) Source() Source {
	ctl.ctx.mu.Lock()
	defer ctl.ctx.mu.Unlock()
	return ctl.source
}

// Progress returns the dwell fill in [0,1]. It is zero unless armed.
func (ctl *Control) Progress() float64 {
	ctl.ctx.mu.Lock()
	defer ctl.ctx.mu.Unlock()
	if ctl.state != StateArmed {
		return 0
	}
	return ctl.timer.Progress()
}

// Activations returns how many times the control has fired.
func (ctl *Control) Activations() int {
	ctl.ctx.mu.Lock()
	defer ctl.ctx.mu.Unlock()
	return ctl.fires
}

// View returns a consistent copy of the control's state.
func (ctl *Control) View() ControlView {
	ctl.ctx.mu.Lock()
	defer ctl.ctx.mu.Unlock()
	return ctl.viewLocked()
}

// ── Internals (ctx.mu held) ──────────────────────────────────────

func (ctl *Control) viewLocked() ControlView {
	v := ControlView{
		Key:         ctl.key,
		ID:          ctl.id,
		State:       ctl.state,
		Source:      ctl.source,
		Disabled:    ctl.disabled,
		Hovered:     ctl.pointer,
		Activations: ctl.fires,
	}
	if ctl.state == StateArmed {
		v.Progress = ctl.timer.Progress()
	}
	return v
}

// evaluateLocked applies the state machine to the current signals.
func (ctl *Control) evaluateLocked() {
	c := ctl.ctx
	ctl.source = Resolve(c.signalsLocked(ctl.pointer), ctl.id)

	if ctl.source == SourceNone {
		// Losing the target cancels a countdown and reopens the re-arm gate.
		if ctl.state == StateArmed {
			ctl.timer.Cancel()
		}
		ctl.state = StateIdle
		return
	}

	blocked := ctl.disabled || c.locked || c.mode != domain.ModeDwell

	switch ctl.state {
	case StateFired:
		// Only an exit clears Fired.
	case StateArmed:
		if blocked {
			ctl.timer.Cancel()
			ctl.state = StateIdle
		}
	case StateIdle:
		if blocked {
			return
		}
		ctl.state = StateArmed
		ctl.timer.Arm(c.dwell, ctl.completeLocked)
	}
}

// completeLocked is the countdown's completion callback. It runs with
// ctx.mu held, either from the executor or synchronously from Arm.
func (ctl *Control) completeLocked() {
	if !ctl.registered || ctl.state != StateArmed {
		return
	}
	ctl.fireLocked(ctl.source.String())
}

func (ctl *Control) fireLocked(how string) {
	c := ctl.ctx
	ctl.state = StateFired
	ctl.fires++
	c.dirty = true

	lock := c.activationLock
	if ctl.ownLock {
		lock = ctl.lockAfter
	}
	if lock > 0 {
		c.lockLocked(lock)
	}
	if ctl.activate != nil {
		c.pending = append(c.pending, ctl.activate)
	}
	c.log.Debug("control %q activated by %s", ctl.id, how)
}
