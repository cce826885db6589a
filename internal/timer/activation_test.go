package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/clock"
)

func newFake() *clock.Fake {
	return clock.NewFake(time.Unix(0, 0))
}

func TestArmCompletesOnce(t *testing.T) {
	c := newFake()
	a := NewActivation(c)
	fired := 0

	a.Arm(800*time.Millisecond, func() { fired++ })
	c.Advance(799 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired early")
	}
	c.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("expected 1 fire at 800ms, got %d", fired)
	}
	if a.Armed() {
		t.Fatal("expected idle after completion")
	}
	c.Advance(5 * time.Second)
	if fired != 1 {
		t.Fatalf("expected exactly one fire, got %d", fired)
	}
}

func TestCancelPreventsCompletion(t *testing.T) {
	c := newFake()
	a := NewActivation(c)
	fired := false

	a.Arm(500*time.Millisecond, func() { fired = true })
	c.Advance(200 * time.Millisecond)
	if !a.Cancel() {
		t.Fatal("Cancel should report a running countdown")
	}
	c.Advance(time.Second)
	if fired {
		t.Fatal("cancelled countdown fired")
	}
	if a.Cancel() {
		t.Fatal("second Cancel should report idle")
	}
}

func TestRearmRestartsFromZero(t *testing.T) {
	c := newFake()
	a := NewActivation(c)
	var fires []string

	a.Arm(800*time.Millisecond, func() { fires = append(fires, "first") })
	c.Advance(600 * time.Millisecond)
	a.Arm(800*time.Millisecond, func() { fires = append(fires, "second") })

	c.Advance(700 * time.Millisecond)
	if len(fires) != 0 {
		t.Fatalf("restart should discard the first cycle, got %v", fires)
	}
	c.Advance(100 * time.Millisecond)
	if len(fires) != 1 || fires[0] != "second" {
		t.Fatalf("expected only second to fire, got %v", fires)
	}
}

func TestNonPositiveDurationFiresImmediately(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		c := newFake()
		a := NewActivation(c)
		fired := 0
		a.Arm(d, func() { fired++ })
		if fired != 1 {
			t.Fatalf("Arm(%s): expected synchronous fire, got %d", d, fired)
		}
		if a.Armed() {
			t.Fatalf("Arm(%s): should not stay armed", d)
		}
		c.Advance(time.Second)
		if fired != 1 {
			t.Fatalf("Arm(%s): fired again, got %d", d, fired)
		}
	}
}

func TestProgressTracksCountdown(t *testing.T) {
	c := newFake()
	a := NewActivation(c)

	if a.Progress() != 0 {
		t.Fatal("idle progress should be zero")
	}
	a.Arm(time.Second, func() {})
	c.Advance(250 * time.Millisecond)

	if got := a.Progress(); got < 0.249 || got > 0.251 {
		t.Fatalf("expected ~0.25 progress, got %f", got)
	}
	if got := a.Remaining(); got != 750*time.Millisecond {
		t.Fatalf("expected 750ms remaining, got %s", got)
	}
	if got := a.Duration(); got != time.Second {
		t.Fatalf("expected 1s duration, got %s", got)
	}
}

func TestExecutorWrapsCompletion(t *testing.T) {
	c := newFake()
	var mu sync.Mutex
	var wrapped int32
	a := NewActivation(c, WithExecutor(func(f func()) {
		mu.Lock()
		defer mu.Unlock()
		atomic.AddInt32(&wrapped, 1)
		f()
	}))

	fired := false
	a.Arm(100*time.Millisecond, func() { fired = true })
	c.Advance(100 * time.Millisecond)

	if !fired || atomic.LoadInt32(&wrapped) != 1 {
		t.Fatalf("expected completion through executor (fired=%v, wrapped=%d)", fired, wrapped)
	}
}

func TestCancelInsideExecutorWinsOverCompletion(t *testing.T) {
	c := newFake()
	var a *Activation
	fired := false
	a = NewActivation(c, WithExecutor(func(f func()) {
		// Simulate a cancellation that commits just before the
		// completion is processed.
		a.Cancel()
		f()
	}))

	a.Arm(100*time.Millisecond, func() { fired = true })
	c.Advance(time.Second)
	if fired {
		t.Fatal("completion ran after cancel committed")
	}
}

func TestRealClockCompletes(t *testing.T) {
	a := NewActivation(clock.Real())
	done := make(chan struct{})
	a.Arm(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real clock countdown never completed")
	}
}
