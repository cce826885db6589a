// Package demo drives the board from a script, the way an eye tracker
// would, for presentations and smoke tests.
package demo

import (
	"context"
	"strings"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/clock"
	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

const (
	defaultTypeHold  = 900 * time.Millisecond
	defaultTypePause = 150 * time.Millisecond
)

// Surface is what the driver points at and clicks.
type Surface interface {
	SetDemoTarget(id string)
	Click(id string) bool
}

// Option configures the Driver.
type Option func(*Driver)

// WithClock sets the clock used for holds and pauses.
func WithClock(c clock.Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithNarrator speaks narrate steps. Without one they are only logged.
func WithNarrator(s domain.Speaker) Option {
	return func(d *Driver) {
		d.narrator = s
	}
}

// WithKeyID maps a key name ("A", "Space") to its control id.
func WithKeyID(fn func(key string) string) Option {
	return func(d *Driver) {
		d.keyID = fn
	}
}

// WithMinHold extends every hold shorter than fn(). fn is read at each
// hold, so it can follow a dwell duration that changes while the demo runs.
func WithMinHold(fn func() time.Duration) Option {
	return func(d *Driver) {
		d.minHold = fn
	}
}

// Driver plays a Script against a Surface.
type Driver struct {
	surface  Surface
	script   *Script
	clock    clock.Clock
	narrator domain.Speaker
	keyID    func(string) string
	minHold  func() time.Duration
	log      *logger.Logger
}

// NewDriver creates a driver for script.
func NewDriver(surface Surface, script *Script, log *logger.Logger, opts ...Option) *Driver {
	d := &Driver{
		surface: surface,
		script:  script,
		clock:   clock.Real(),
		keyID:   func(key string) string { return "key-" + strings.ToLower(key) },
		log:     log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run plays the script until it ends, or forever when it loops. It
// returns ctx.Err() when cancelled and always leaves the demo target
// cleared.
func (d *Driver) Run(ctx context.Context) error {
	defer d.surface.SetDemoTarget("")

	d.log.Info("demo %q started (%d steps)", d.script.Name, len(d.script.Steps))
	for {
		for i, st := range d.script.Steps {
			if err := d.step(ctx, st); err != nil {
				d.log.Info("demo %q stopped at step %d: %v", d.script.Name, i+1, err)
				return err
			}
		}
		if !d.script.Loop {
			d.log.Info("demo %q finished", d.script.Name)
			return nil
		}
	}
}

func (d *Driver) step(ctx context.Context, st Step) error {
	switch {
	case st.Target != "":
		if err := d.hold(ctx, st.Target, time.Duration(st.Hold), st.Click); err != nil {
			return err
		}
	case st.Type != "":
		if err := d.typeText(ctx, st.Type); err != nil {
			return err
		}
	case st.Narrate != "":
		d.log.Info("demo narration: %s", st.Narrate)
		if d.narrator != nil {
			if err := d.narrator.Speak(ctx, st.Narrate); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d.log.Warn("demo narration failed: %v", err)
			}
		}
	case st.Wait > 0:
		if err := d.sleep(ctx, time.Duration(st.Wait)); err != nil {
			return err
		}
	}
	return d.sleep(ctx, time.Duration(st.Pause))
}

func (d *Driver) hold(ctx context.Context, id string, hold time.Duration, click bool) error {
	if d.minHold != nil {
		hold = max(hold, d.minHold())
	}
	d.surface.SetDemoTarget(id)
	if err := d.sleep(ctx, hold); err != nil {
		return err
	}
	if click && !d.surface.Click(id) {
		d.log.Debug("demo click on %q ignored", id)
	}
	d.surface.SetDemoTarget("")
	return nil
}

func (d *Driver) typeText(ctx context.Context, text string) error {
	hold := time.Duration(d.script.TypeHold)
	if hold <= 0 {
		hold = defaultTypeHold
	}
	pause := time.Duration(d.script.TypePause)
	if pause <= 0 {
		pause = defaultTypePause
	}

	for _, r := range text {
		key := string(r)
		if r == ' ' {
			key = "Space"
		}
		if err := d.hold(ctx, d.keyID(key), hold, false); err != nil {
			return err
		}
		if err := d.sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// sleep waits on the driver's clock.
func (d *Driver) sleep(ctx context.Context, dur time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dur <= 0 {
		return nil
	}
	done := make(chan struct{})
	t := d.clock.AfterFunc(dur, func() { close(done) })
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-done:
		return nil
	}
}
