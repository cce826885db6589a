package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/domain"
)

// LoadSettings applies the user's saved settings to the interaction
// context. A user with nothing saved keeps the current values.
func (b *Board) LoadSettings(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	st, err := b.store.Load(ctx, b.user)
	if errors.Is(err, domain.ErrNotFound) {
		b.log.Debug("no saved settings for %s", b.user)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	b.ui.SetMode(st.Mode)
	if b.eyeTracker.Load() && st.Mode != domain.ModeDwell {
		b.log.Info("eye tracking is on, keeping dwell mode over saved %s", st.Mode)
		b.ui.SetMode(domain.ModeDwell)
	}
	if st.Dwell > 0 {
		b.ui.SetDwellDuration(st.Dwell)
	}
	if st.Voice != "" {
		b.applyVoice(st.Voice)
	}
	b.log.Info("loaded settings for %s (mode=%s, dwell=%s)", b.user, st.Mode, st.Dwell)
	b.refresh()
	return nil
}

// SetMode switches the interaction mode and saves it.
func (b *Board) SetMode(m domain.InteractionMode) {
	b.ui.TriggerLock(b.locks.Short)
	b.ui.SetMode(m)
	b.persist()
	b.refresh()
}

// ── Eye tracking ─────────────────────────────────────────────────

// EyeTracker reports whether gaze targets are accepted.
func (b *Board) EyeTracker() bool {
	return b.eyeTracker.Load()
}

// SetEyeTracker turns gaze input on or off. Turning it on switches to
// dwell mode, the only mode in which gaze selects anything. Turning it off
// drops the current gaze target and leaves the mode alone.
func (b *Board) SetEyeTracker(on bool) {
	b.ui.TriggerLock(b.locks.Short)
	b.eyeTracker.Store(on)
	if on {
		b.log.Info("eye tracking on")
		b.ui.SetMode(domain.ModeDwell)
		b.persist()
	} else {
		b.log.Info("eye tracking off")
		b.ui.SetGazeTarget("")
	}
	b.refresh()
}

// SetGazeTarget forwards a tracker's target to the interaction context
// while eye tracking is on.
func (b *Board) SetGazeTarget(id string) {
	if !b.eyeTracker.Load() {
		return
	}
	b.ui.SetGazeTarget(id)
}

// SetDwell changes the dwell duration and saves it for the user.
func (b *Board) SetDwell(d time.Duration) {
	b.ui.SetDwellDuration(d)
	b.persist()
	b.refresh()
}

// SetVoice selects a voice preset and saves it.
func (b *Board) SetVoice(name string) {
	b.applyVoice(name)
	b.persist()
	b.refresh()
}

func (b *Board) applyVoice(name string) {
	b.mu.Lock()
	b.voice = name
	b.mu.Unlock()
	if vs, ok := b.speaker.(domain.VoiceSelector); ok {
		vs.SetVoice(name)
	}
}

func (b *Board) persist() {
	if b.store == nil {
		return
	}
	st := &domain.Settings{
		UserID: b.user,
		Mode:   b.ui.Mode(),
		Dwell:  b.ui.Dwell(),
		Voice:  b.Voice(),
	}
	if err := b.store.Save(b.ctx, st); err != nil {
		b.log.Warn("saving settings: %v", err)
	}
}
