package board

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/clock"
	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/interaction"
	"github.com/hammamikhairi/ottoboard/internal/logger"
	"github.com/hammamikhairi/ottoboard/internal/phrases"
	"github.com/hammamikhairi/ottoboard/internal/storage"
)

type recordingSpeaker struct {
	mu    sync.Mutex
	said  []string
	voice string
	err   error
}

func (s *recordingSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
	return s.err
}

func (s *recordingSpeaker) SetVoice(name string) {
	s.mu.Lock()
	s.voice = name
	s.mu.Unlock()
}

func (s *recordingSpeaker) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.said...)
}

type stubSuggester struct {
	inputs  []string
	replies int
}

func (s *stubSuggester) Suggest(ctx context.Context, input string) ([]string, error) {
	s.inputs = append(s.inputs, input)
	return []string{"want", "water"}, nil
}

func (s *stubSuggester) Reply(ctx context.Context, history []domain.Message) ([]string, error) {
	s.replies++
	return []string{"Yes", "No"}, nil
}

type fixture struct {
	board   *Board
	ui      *interaction.Context
	clk     *clock.Fake
	speaker *recordingSpeaker
	store   *storage.MemoryStore
}

func setup(t *testing.T, mode domain.InteractionMode, opts ...Option) *fixture {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	clk := clock.NewFake(time.Unix(0, 0))
	ui := interaction.New(log, interaction.WithClock(clk), interaction.WithMode(mode))
	speaker := &recordingSpeaker{}
	store := storage.NewMemoryStore(log)

	base := []Option{
		WithClock(clk),
		WithSettingsStore(store),
		WithSpawn(func(f func()) { f() }),
	}
	b := New(ui, phrases.NewMemorySource(log), speaker, log, append(base, opts...)...)
	t.Cleanup(b.Close)
	return &fixture{board: b, ui: ui, clk: clk, speaker: speaker, store: store}
}

func (f *fixture) press(keys ...string) {
	for _, k := range keys {
		f.board.Press(k)
	}
}

func hasButton(b *Board, id string) bool {
	for _, btn := range b.Buttons() {
		if btn.ID == id {
			return true
		}
	}
	return false
}

// ── Keyboard ─────────────────────────────────────────────────────

func TestPress(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"capitalises first letter", []string{"H", "I"}, "Hi"},
		{"lower-cases typed capitals", []string{"h", "E", "Y"}, "Hey"},
		{"lone i promoted", []string{"I", KeySpace}, "I "},
		{"trailing i promoted", []string{"O", "K", KeySpace, "I", KeySpace}, "Ok I "},
		{"capital after full stop", []string{"O", "K", ".", KeySpace, "N", "O"}, "Ok. No"},
		{"capital after question mark", []string{"W", "H", "Y", "?", "S", "O"}, "Why?So"},
		{"backspace", []string{"A", "B", KeyBackspace}, "A"},
		{"delete removes one character", []string{"A", "B", KeyDelete}, "A"},
		{"backspace on empty", []string{KeyBackspace}, ""},
		{"clear", []string{"A", "B", KeyClear}, ""},
		{"capital after clear", []string{"A", KeyClear, "B"}, "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, domain.ModeClick)
			f.press(tt.keys...)
			if got := f.board.Buffer(); got != tt.want {
				t.Fatalf("buffer = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClearLocks(t *testing.T) {
	f := setup(t, domain.ModeClick)
	f.press("A", KeyClear)
	if !f.ui.Locked() {
		t.Fatal("clear should engage the navigation lock")
	}
	f.clk.Advance(500 * time.Millisecond)
	if f.ui.Locked() {
		t.Fatal("lock should expire after the short duration")
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		buffer, text, want string
	}{
		{"", "Hello", "Hello "},
		{"  ", "Hello", "Hello "},
		{"I want ", "water", "I want water "},
		{"I wa", "want", "I want "},
		{"I WA", "want", "I want "},
		{"I want", "water", "I want water "},
	}
	for _, tt := range tests {
		if got := merge(tt.buffer, tt.text); got != tt.want {
			t.Fatalf("merge(%q, %q) = %q, want %q", tt.buffer, tt.text, got, tt.want)
		}
	}
}

func TestSpeak(t *testing.T) {
	f := setup(t, domain.ModeClick)

	f.board.Speak()
	if len(f.speaker.spoken()) != 0 || f.ui.Locked() {
		t.Fatal("blank buffer should not speak or lock")
	}

	f.press("H", "I")
	f.board.Speak()

	if said := f.speaker.spoken(); len(said) != 1 || said[0] != "Hi" {
		t.Fatalf("expected \"Hi\" spoken, got %v", said)
	}
	if f.board.Buffer() != "" {
		t.Fatalf("buffer should be cleared, got %q", f.board.Buffer())
	}
	hist := f.board.History()
	if len(hist) != 1 || hist[0].Text != "Hi" || hist[0].Sender != "user" || hist[0].ID == "" {
		t.Fatalf("unexpected history: %+v", hist)
	}

	f.clk.Advance(1199 * time.Millisecond)
	if !f.ui.Locked() {
		t.Fatal("speaking should hold the long lock")
	}
	f.clk.Advance(time.Millisecond)
	if f.ui.Locked() {
		t.Fatal("long lock should have expired")
	}
}

func TestSpeechFailureSetsNotice(t *testing.T) {
	f := setup(t, domain.ModeClick)
	f.speaker.err = errors.New("no audio device")

	f.press("H", "I")
	f.board.Speak()

	if !strings.Contains(f.board.Notice(), "no audio device") {
		t.Fatalf("expected notice about the failure, got %q", f.board.Notice())
	}
	if len(f.board.History()) != 1 {
		t.Fatal("failed speech is still recorded")
	}
}

func TestSpeakButtonDisabledWhenBlank(t *testing.T) {
	f := setup(t, domain.ModeClick)

	if f.ui.Click("cmd-speak") {
		t.Fatal("speak should be disabled on a blank buffer")
	}
	f.press("O", "K")
	f.clk.Advance(time.Second)
	if !f.ui.Click("cmd-speak") {
		t.Fatal("speak should be enabled once there is text")
	}
	if said := f.speaker.spoken(); len(said) != 1 || said[0] != "Ok" {
		t.Fatalf("unexpected speech %v", said)
	}
}

// ── Phrases ──────────────────────────────────────────────────────

func TestPhraseNavigation(t *testing.T) {
	f := setup(t, domain.ModeClick, WithScreen(domain.ScreenPhrases))
	b := f.board

	if b.Heading() != "Phrases" || hasButton(b, "btn-phrase-back") {
		t.Fatal("root level should have no back button")
	}
	if err := b.SelectPhrase("emergency"); err != nil {
		t.Fatalf("select branch: %v", err)
	}
	if got := b.Path(); len(got) != 1 || got[0] != "emergency" {
		t.Fatalf("path = %v", got)
	}
	if b.Heading() != "EMERGENCY" {
		t.Fatalf("heading = %q", b.Heading())
	}
	if !hasButton(b, "btn-phrase-back") || !hasButton(b, PhraseID("help")) {
		t.Fatal("expected back and emergency buttons")
	}
	if hasButton(b, PhraseID("emergency")) {
		t.Fatal("root buttons should be gone")
	}
	if f.ui.Control(PhraseID("emergency")) != nil {
		t.Fatal("root controls should be unregistered")
	}

	if err := b.SelectPhrase("help"); err != nil {
		t.Fatalf("select leaf: %v", err)
	}
	if said := f.speaker.spoken(); len(said) != 1 || said[0] != "Help! I need help immediately!" {
		t.Fatalf("unexpected speech %v", said)
	}
	if len(b.Path()) != 1 {
		t.Fatal("speaking a leaf should stay on the level")
	}

	b.Back()
	if len(b.Path()) != 0 {
		t.Fatalf("back should return to root, got %v", b.Path())
	}

	if err := b.SelectPhrase("help"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("phrase from another level should not resolve, got %v", err)
	}
}

func TestAddCustomPhrase(t *testing.T) {
	f := setup(t, domain.ModeClick, WithScreen(domain.ScreenPhrases))
	b := f.board

	if err := b.AddCustomPhrase(); !errors.Is(err, domain.ErrEmptyBuffer) {
		t.Fatalf("expected ErrEmptyBuffer, got %v", err)
	}
	if hasButton(b, "btn-add-phrase") {
		t.Fatal("add button should be hidden on a blank buffer")
	}

	if err := b.SelectPhrase("activities"); err != nil {
		t.Fatalf("select: %v", err)
	}
	for _, r := range "play the radio now" {
		b.Press(string(r))
	}
	if !hasButton(b, "btn-add-phrase") {
		t.Fatal("add button should appear with text in the buffer")
	}
	if err := b.AddCustomPhrase(); err != nil {
		t.Fatalf("add: %v", err)
	}
	if b.Buffer() != "" {
		t.Fatal("buffer should be cleared after adding")
	}
	if !f.ui.Locked() {
		t.Fatal("adding should lock")
	}

	var custom Button
	for _, btn := range b.Buttons() {
		if btn.Kind == KindPhrase && btn.Custom {
			custom = btn
		}
	}
	if custom.Label != "Play the rad..." {
		t.Fatalf("custom label = %q", custom.Label)
	}

	f.clk.Advance(2 * time.Second)
	if !f.ui.Click(custom.ID) {
		t.Fatal("custom phrase should be clickable")
	}
	if said := f.speaker.spoken(); len(said) != 1 || said[0] != "Play the radio now" {
		t.Fatalf("custom phrase should speak the full text, got %v", said)
	}
}

// ── Controls ─────────────────────────────────────────────────────

func TestDwellOnNavButton(t *testing.T) {
	f := setup(t, domain.ModeDwell)

	f.ui.Control("nav-PHRASES").PointerEnter()
	f.clk.Advance(799 * time.Millisecond)
	if f.board.Screen() != domain.ScreenKeyboard {
		t.Fatal("switched before the dwell elapsed")
	}
	f.clk.Advance(time.Millisecond)
	if f.board.Screen() != domain.ScreenPhrases {
		t.Fatalf("expected phrases screen, got %s", f.board.Screen())
	}
	if f.ui.Control(KeyID("A")) != nil {
		t.Fatal("keyboard controls should be unregistered")
	}
	if f.ui.Control(PhraseID("quick_res")) == nil {
		t.Fatal("phrase controls should be registered")
	}
}

func TestGazeTypesOnce(t *testing.T) {
	f := setup(t, domain.ModeDwell)

	f.ui.SetGazeTarget(KeyID("H"))
	f.clk.Advance(800 * time.Millisecond)
	if got := f.board.Buffer(); got != "H" {
		t.Fatalf("buffer = %q, want H", got)
	}

	f.clk.Advance(5 * time.Second)
	if got := f.board.Buffer(); got != "H" {
		t.Fatalf("held gaze repeated the key: %q", got)
	}

	f.ui.SetGazeTarget(KeyID("I"))
	f.clk.Advance(800 * time.Millisecond)
	if got := f.board.Buffer(); got != "Hi" {
		t.Fatalf("buffer = %q, want Hi", got)
	}
}

func TestActivateUnknown(t *testing.T) {
	f := setup(t, domain.ModeClick)
	if f.board.Activate("phrase-nope") {
		t.Fatal("unknown id should not activate")
	}
}

// ── Suggestions ──────────────────────────────────────────────────

func TestSuggestionsDebounced(t *testing.T) {
	sug := &stubSuggester{}
	f := setup(t, domain.ModeClick, WithSuggester(sug))

	f.press("I", KeySpace)
	f.clk.Advance(300 * time.Millisecond)
	f.press("W", "A")
	f.clk.Advance(499 * time.Millisecond)
	if len(sug.inputs) != 0 {
		t.Fatalf("suggester called before the buffer settled: %v", sug.inputs)
	}
	f.clk.Advance(time.Millisecond)
	if len(sug.inputs) != 1 || sug.inputs[0] != "I wa" {
		t.Fatalf("expected one call with the settled buffer, got %v", sug.inputs)
	}
	if got := f.board.Suggestions(); len(got) != 2 {
		t.Fatalf("suggestions = %v", got)
	}
	if !hasButton(f.board, "pred-0") {
		t.Fatal("prediction buttons should be shown")
	}

	f.clk.Advance(time.Second)
	if !f.ui.Click("pred-0") {
		t.Fatal("prediction click ignored")
	}
	if got := f.board.Buffer(); got != "I want " {
		t.Fatalf("buffer = %q", got)
	}
}

func TestRepliesAfterSpeaking(t *testing.T) {
	sug := &stubSuggester{}
	f := setup(t, domain.ModeClick, WithSuggester(sug))

	f.press("H", "I")
	f.board.Speak()
	f.clk.Advance(500 * time.Millisecond)

	if sug.replies != 1 {
		t.Fatalf("expected a reply request, got %d", sug.replies)
	}
	if got := f.board.Suggestions(); len(got) != 2 || got[0] != "Yes" {
		t.Fatalf("suggestions = %v", got)
	}
}

func TestNoSuggestionsOffKeyboard(t *testing.T) {
	sug := &stubSuggester{}
	f := setup(t, domain.ModeClick, WithSuggester(sug), WithScreen(domain.ScreenPhrases))

	f.press("H", "I")
	f.clk.Advance(time.Second)
	if len(sug.inputs) != 0 {
		t.Fatalf("suggester called off the keyboard screen: %v", sug.inputs)
	}

	f.board.SetScreen(domain.ScreenKeyboard)
	f.clk.Advance(500 * time.Millisecond)
	if len(sug.inputs) != 1 {
		t.Fatalf("expected a refresh on entering the keyboard, got %v", sug.inputs)
	}
}

// ── Settings ─────────────────────────────────────────────────────

func TestSettingsPersist(t *testing.T) {
	f := setup(t, domain.ModeClick, WithUser("ana"), WithVoices("en-US-Neural2-D", "en-US-Neural2-F"))
	ctx := context.Background()

	f.board.SetMode(domain.ModeDwell)
	f.board.SetDwell(1200 * time.Millisecond)
	f.board.SetVoice("en-US-Neural2-F")

	st, err := f.store.Load(ctx, "ana")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Mode != domain.ModeDwell || st.Dwell != 1200*time.Millisecond || st.Voice != "en-US-Neural2-F" {
		t.Fatalf("unexpected saved settings %+v", st)
	}
	if f.speaker.voice != "en-US-Neural2-F" {
		t.Fatalf("speaker voice = %q", f.speaker.voice)
	}

	log := logger.New(logger.LevelOff, nil)
	ui := interaction.New(log, interaction.WithClock(f.clk))
	other := New(ui, phrases.NewMemorySource(log), &recordingSpeaker{}, log,
		WithClock(f.clk), WithSettingsStore(f.store), WithUser("ana"))
	defer other.Close()

	if err := other.LoadSettings(ctx); err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if ui.Mode() != domain.ModeDwell || ui.Dwell() != 1200*time.Millisecond {
		t.Fatalf("settings not applied: mode=%s dwell=%s", ui.Mode(), ui.Dwell())
	}
	if other.Voice() != "en-US-Neural2-F" {
		t.Fatalf("voice not applied: %q", other.Voice())
	}
}

func TestLoadSettingsUnknownUser(t *testing.T) {
	f := setup(t, domain.ModeClick, WithUser("nobody"))
	if err := f.board.LoadSettings(context.Background()); err != nil {
		t.Fatalf("unknown user should keep defaults, got %v", err)
	}
	if f.ui.Mode() != domain.ModeClick {
		t.Fatal("mode changed for unknown user")
	}
}

func TestSettingsButtons(t *testing.T) {
	f := setup(t, domain.ModeClick, WithScreen(domain.ScreenSettings))

	if !f.ui.Click("set-mode-dwell") {
		t.Fatal("mode button ignored")
	}
	if f.ui.Mode() != domain.ModeDwell {
		t.Fatal("mode not switched")
	}
	f.clk.Advance(time.Second)
	if !f.ui.Click(DwellID(1600 * time.Millisecond)) {
		t.Fatal("dwell button ignored")
	}
	if f.ui.Dwell() != 1600*time.Millisecond {
		t.Fatalf("dwell = %s", f.ui.Dwell())
	}
	for _, btn := range f.board.Buttons() {
		if btn.ID == DwellID(1600*time.Millisecond) && !btn.Active {
			t.Fatal("selected dwell should be marked active")
		}
	}
}

// ── Navigation locks ─────────────────────────────────────────────

func TestNavigationLocks(t *testing.T) {
	tests := []struct {
		name   string
		screen domain.Screen
		prep   func(t *testing.T, f *fixture)
		act    func(t *testing.T, f *fixture)
	}{
		{
			name:   "screen change",
			screen: domain.ScreenKeyboard,
			act:    func(t *testing.T, f *fixture) { f.board.SetScreen(domain.ScreenPhrases) },
		},
		{
			name:   "enter group",
			screen: domain.ScreenPhrases,
			act: func(t *testing.T, f *fixture) {
				if err := f.board.SelectPhrase("emergency"); err != nil {
					t.Fatalf("select: %v", err)
				}
			},
		},
		{
			name:   "back",
			screen: domain.ScreenPhrases,
			prep: func(t *testing.T, f *fixture) {
				if err := f.board.SelectPhrase("emergency"); err != nil {
					t.Fatalf("select: %v", err)
				}
			},
			act: func(t *testing.T, f *fixture) { f.board.Back() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, domain.ModeDwell, WithScreen(tt.screen))
			if tt.prep != nil {
				tt.prep(t, f)
				f.clk.Advance(5 * time.Second)
			}
			if f.ui.Locked() {
				t.Fatal("locked before the action")
			}

			tt.act(t, f)
			f.clk.Advance(1000 * time.Millisecond)
			if !f.ui.Locked() {
				t.Fatal("lock released 1s after navigating")
			}
			f.clk.Advance(200 * time.Millisecond)
			if f.ui.Locked() {
				t.Fatal("lock still held after 1.2s")
			}
		})
	}
}

func TestNewControlUnderPointerWaitsForNavigationLock(t *testing.T) {
	f := setup(t, domain.ModeDwell, WithScreen(domain.ScreenPhrases))

	// The pointer rests where the first child of the group will appear.
	if err := f.board.SelectPhrase("emergency"); err != nil {
		t.Fatalf("select: %v", err)
	}
	ctl := f.ui.Control(PhraseID("help"))
	ctl.PointerEnter()

	f.clk.Advance(1100 * time.Millisecond)
	if ctl.State() != interaction.StateIdle {
		t.Fatalf("state = %s during the lock, want idle", ctl.State())
	}
	f.clk.Advance(100 * time.Millisecond)
	f.clk.Advance(800 * time.Millisecond)
	if said := f.speaker.spoken(); len(said) != 1 {
		t.Fatalf("expected one phrase after the lock and a full dwell, got %v", said)
	}
}

func TestModeChangeLocks(t *testing.T) {
	f := setup(t, domain.ModeClick)

	f.board.SetMode(domain.ModeDwell)
	if !f.ui.Locked() {
		t.Fatal("mode change did not lock")
	}
	f.clk.Advance(499 * time.Millisecond)
	if !f.ui.Locked() {
		t.Fatal("lock released early")
	}
	f.clk.Advance(time.Millisecond)
	if f.ui.Locked() {
		t.Fatal("lock outlived the short duration")
	}
}

// ── Eye tracking ─────────────────────────────────────────────────

func TestEyeTrackerSwitchesToDwell(t *testing.T) {
	f := setup(t, domain.ModeClick, WithEyeTracker())

	if f.ui.Mode() != domain.ModeDwell {
		t.Fatalf("mode = %s, want DWELL with eye tracking on", f.ui.Mode())
	}
	f.board.SetGazeTarget(KeyID("H"))
	f.clk.Advance(800 * time.Millisecond)
	if got := f.board.Buffer(); got != "H" {
		t.Fatalf("buffer = %q, want H", got)
	}
}

func TestEyeTrackerToggle(t *testing.T) {
	f := setup(t, domain.ModeClick, WithEyeTracker(), WithScreen(domain.ScreenSettings))

	if !hasButton(f.board, "set-eye-tracker") {
		t.Fatal("toggle missing with a gaze feed")
	}
	f.board.SetGazeTarget(DwellID(1600 * time.Millisecond))

	f.board.SetEyeTracker(false)
	if f.board.EyeTracker() {
		t.Fatal("eye tracking still on")
	}
	if got := f.ui.Snapshot().Gaze; got != "" {
		t.Fatalf("gaze target %q kept after turning tracking off", got)
	}
	f.board.SetGazeTarget(DwellID(1600 * time.Millisecond))
	if got := f.ui.Snapshot().Gaze; got != "" {
		t.Fatalf("gaze target %q accepted while tracking is off", got)
	}

	f.board.SetMode(domain.ModeClick)
	f.clk.Advance(time.Second)
	if !f.ui.Click("set-eye-tracker") {
		t.Fatal("toggle click ignored")
	}
	if !f.board.EyeTracker() || f.ui.Mode() != domain.ModeDwell {
		t.Fatalf("tracking=%v mode=%s, want on and DWELL", f.board.EyeTracker(), f.ui.Mode())
	}
}

func TestNoEyeTrackerToggleWithoutFeed(t *testing.T) {
	f := setup(t, domain.ModeClick, WithScreen(domain.ScreenSettings))
	if hasButton(f.board, "set-eye-tracker") {
		t.Fatal("toggle shown without a gaze feed")
	}
	f.board.SetGazeTarget(KeyID("H"))
	if got := f.ui.Snapshot().Gaze; got != "" {
		t.Fatalf("gaze target %q accepted without a feed", got)
	}
}

func TestEyeTrackerOverridesSavedClickMode(t *testing.T) {
	f := setup(t, domain.ModeClick, WithUser("ana"), WithEyeTracker())
	ctx := context.Background()
	if err := f.store.Save(ctx, &domain.Settings{UserID: "ana", Mode: domain.ModeClick, Dwell: time.Second}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := f.board.LoadSettings(ctx); err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if f.ui.Mode() != domain.ModeDwell {
		t.Fatalf("mode = %s, want DWELL while eye tracking", f.ui.Mode())
	}
	if f.ui.Dwell() != time.Second {
		t.Fatalf("dwell = %s, saved dwell not applied", f.ui.Dwell())
	}
}
