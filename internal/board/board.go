// Package board implements the communication board: screens, the message
// buffer, the phrase tree and settings. Every visible button is registered
// as a control in the interaction context under a stable id, so pointer,
// gaze and demo input all reach the same handlers.
package board

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/ottoboard/internal/clock"
	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/interaction"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// Locks are the navigation lock durations engaged by board actions.
type Locks struct {
	Short time.Duration // clear, mode and eye tracker changes
	Nav   time.Duration // screen changes and phrase tree navigation
	Long  time.Duration // anything that speaks
	Add   time.Duration // adding a custom phrase
}

// DefaultLocks returns the stock lock durations.
func DefaultLocks() Locks {
	return Locks{
		Short: 500 * time.Millisecond,
		Nav:   1200 * time.Millisecond,
		Long:  1200 * time.Millisecond,
		Add:   1000 * time.Millisecond,
	}
}

const (
	defaultDebounce = 500 * time.Millisecond
	suggestTimeout  = 8 * time.Second
	replyContext    = 10
	maxHistory      = 200
)

// Option configures the Board.
type Option func(*Board)

// WithClock sets the clock used for the suggestion debounce and history
// timestamps.
func WithClock(c clock.Clock) Option {
	return func(b *Board) {
		b.clock = c
	}
}

// WithUser sets the user whose settings are loaded and saved.
func WithUser(id string) Option {
	return func(b *Board) {
		b.user = id
	}
}

// WithSuggester enables word predictions on the keyboard screen.
func WithSuggester(s domain.Suggester) Option {
	return func(b *Board) {
		b.suggester = s
	}
}

// WithSettingsStore persists mode, dwell and voice changes.
func WithSettingsStore(s domain.SettingsStore) Option {
	return func(b *Board) {
		b.store = s
	}
}

// WithLocks overrides the navigation lock durations.
func WithLocks(l Locks) Option {
	return func(b *Board) {
		b.locks = l
	}
}

// WithDebounce sets how long the buffer must be idle before predictions
// are requested.
func WithDebounce(d time.Duration) Option {
	return func(b *Board) {
		b.debounce = d
	}
}

// WithScreen sets the screen shown first.
func WithScreen(s domain.Screen) Option {
	return func(b *Board) {
		b.screen = s
	}
}

// WithVoices lists the voice presets offered on the settings screen.
func WithVoices(names ...string) Option {
	return func(b *Board) {
		b.voices = names
	}
}

// WithDwellChoices lists the dwell durations offered on the settings screen.
func WithDwellChoices(ds ...time.Duration) Option {
	return func(b *Board) {
		b.dwellChoices = ds
	}
}

// WithEyeTracker marks a gaze feed as connected and turns eye tracking on.
// The settings screen then offers a toggle for it.
func WithEyeTracker() Option {
	return func(b *Board) {
		b.gazeFeed = true
		b.eyeTracker.Store(true)
	}
}

// WithSpawn sets how speech runs in the background. Tests pass a function
// that runs synchronously.
func WithSpawn(spawn func(func())) Option {
	return func(b *Board) {
		b.spawn = spawn
	}
}

// Board is the application state behind the controls. It is safe for
// concurrent use. Board never holds its own lock while calling into the
// interaction context, because activations re-enter the board.
type Board struct {
	ui        *interaction.Context
	phrases   domain.PhraseSource
	speaker   domain.Speaker
	store     domain.SettingsStore
	suggester domain.Suggester
	clock     clock.Clock
	log       *logger.Logger

	user         string
	locks        Locks
	debounce     time.Duration
	voices       []string
	dwellChoices []time.Duration
	spawn        func(func())
	gazeFeed     bool
	eyeTracker   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	screen      domain.Screen
	path        []*domain.Phrase
	buffer      string
	history     []domain.Message
	suggestions []string
	voice       string
	notice      string
	buttons     []Button
	byID        map[string]Button
	registered  map[string]bool

	suggestGen  uint64
	suggestStop clock.Stopper
}

// New creates a board bound to the interaction context and registers the
// initial screen's controls.
func New(ui *interaction.Context, phrases domain.PhraseSource, speaker domain.Speaker, log *logger.Logger, opts ...Option) *Board {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Board{
		ui:       ui,
		phrases:  phrases,
		speaker:  speaker,
		clock:    clock.Real(),
		log:      log,
		user:     "default",
		locks:    DefaultLocks(),
		debounce: defaultDebounce,
		dwellChoices: []time.Duration{
			500 * time.Millisecond,
			800 * time.Millisecond,
			1200 * time.Millisecond,
			1600 * time.Millisecond,
			2000 * time.Millisecond,
		},
		spawn:      func(f func()) { go f() },
		ctx:        ctx,
		cancel:     cancel,
		screen:     domain.ScreenKeyboard,
		byID:       make(map[string]Button),
		registered: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.voices) > 0 {
		b.voice = b.voices[0]
	}
	if b.eyeTracker.Load() {
		b.ui.SetMode(domain.ModeDwell)
	}
	b.refresh()
	return b
}

// Close cancels background work and unregisters every control.
func (b *Board) Close() {
	b.cancel()

	b.mu.Lock()
	if b.suggestStop != nil {
		b.suggestStop.Stop()
		b.suggestStop = nil
	}
	b.suggestGen++
	ids := make([]string, 0, len(b.registered))
	for id := range b.registered {
		ids = append(ids, id)
	}
	b.registered = make(map[string]bool)
	b.mu.Unlock()

	for _, id := range ids {
		b.ui.Unregister(id)
	}
}

// ── Screens ──────────────────────────────────────────────────────

// SetScreen switches the visible screen.
func (b *Board) SetScreen(s domain.Screen) {
	b.ui.TriggerLock(b.locks.Nav)

	b.mu.Lock()
	changed := b.screen != s
	b.screen = s
	b.mu.Unlock()

	if changed {
		b.log.Info("screen -> %s", s)
	}
	if s == domain.ScreenKeyboard {
		b.scheduleSuggestions()
	}
	b.refresh()
}

// ── Accessors ────────────────────────────────────────────────────

// Screen returns the visible screen.
func (b *Board) Screen() domain.Screen {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.screen
}

// Buffer returns the message being composed.
func (b *Board) Buffer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer
}

// Path returns the ids of the phrase branches entered so far.
func (b *Board) Path() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return pathIDs(b.path)
}

// Heading returns the title of the current phrase level.
func (b *Board) Heading() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.path) == 0 {
		return "Phrases"
	}
	return b.path[len(b.path)-1].Label
}

// History returns a copy of everything spoken so far.
func (b *Board) History() []domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Message(nil), b.history...)
}

// Suggestions returns the current predictions.
func (b *Board) Suggestions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.suggestions...)
}

// Notice returns the last user-facing problem, such as a speech failure.
func (b *Board) Notice() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notice
}

// Voice returns the selected voice preset.
func (b *Board) Voice() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voice
}

// ── Speech and history ───────────────────────────────────────────

// say speaks text in the background and records it in the history.
func (b *Board) say(text string) {
	b.mu.Lock()
	b.notice = ""
	b.history = append(b.history, domain.Message{
		ID:     uuid.NewString(),
		Sender: "user",
		Text:   text,
		At:     b.clock.Now(),
	})
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
	b.mu.Unlock()

	b.log.Info("speaking %q", text)
	b.spawn(func() {
		err := b.speaker.Speak(b.ctx, text)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		b.log.Warn("speech failed: %v", err)
		b.mu.Lock()
		b.notice = "Speech unavailable: " + err.Error()
		b.mu.Unlock()
	})
}

func pathIDs(path []*domain.Phrase) []string {
	ids := make([]string, len(path))
	for i, p := range path {
		ids[i] = p.ID
	}
	return ids
}
