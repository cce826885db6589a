package display

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/ottoboard/internal/board"
	"github.com/hammamikhairi/ottoboard/internal/clock"
	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/interaction"
	"github.com/hammamikhairi/ottoboard/internal/logger"
	"github.com/hammamikhairi/ottoboard/internal/phrases"
)

type silentSpeaker struct {
	mu   sync.Mutex
	said []string
}

func (s *silentSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
	return nil
}

type fixture struct {
	clock   *clock.Fake
	ui      *interaction.Context
	board   *board.Board
	speaker *silentSpeaker
	m       model
}

func setup(t *testing.T, mode domain.InteractionMode) *fixture {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	clk := clock.NewFake(time.Unix(0, 0))
	ui := interaction.New(log,
		interaction.WithClock(clk),
		interaction.WithMode(mode),
		interaction.WithDwell(800*time.Millisecond),
	)
	spk := &silentSpeaker{}
	b := board.New(ui, phrases.NewMemorySource(log), spk, log,
		board.WithClock(clk),
		board.WithSpawn(func(f func()) { f() }),
	)
	t.Cleanup(b.Close)

	u := New(ui, b, log, WithBanner(false), WithCellWidth(10))
	f := &fixture{clock: clk, ui: ui, board: b, speaker: spk, m: u.model(nil)}
	f.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return f
}

func (f *fixture) send(msg tea.Msg) {
	next, _ := f.m.Update(msg)
	f.m = next.(model)
}

func (f *fixture) cellOf(t *testing.T, id string) cell {
	t.Helper()
	for _, c := range f.m.layout(f.ui.Snapshot()) {
		if c.btn.ID == id {
			return c
		}
	}
	t.Fatalf("button %q not laid out", id)
	return cell{}
}

func (f *fixture) moveTo(x, y int) {
	f.send(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion})
}

func (f *fixture) clickOn(t *testing.T, id string) {
	t.Helper()
	c := f.cellOf(t, id)
	f.send(tea.MouseMsg{X: c.x + 1, Y: c.y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestClickSwitchesScreen(t *testing.T) {
	f := setup(t, domain.ModeClick)

	f.clickOn(t, "nav-PHRASES")
	if got := f.board.Screen(); got != domain.ScreenPhrases {
		t.Fatalf("screen = %s, want PHRASES", got)
	}
	if !strings.Contains(f.m.View(), "Quick Chat") {
		t.Fatal("phrase buttons not rendered after switching screen")
	}
}

func TestHoverDwellTypes(t *testing.T) {
	f := setup(t, domain.ModeDwell)

	c := f.cellOf(t, board.KeyID("H"))
	f.moveTo(c.x, c.y+1)

	ctl := f.ui.Control(board.KeyID("H"))
	if v := ctl.View(); !v.Hovered || v.State != interaction.StateArmed {
		t.Fatalf("view = %+v, want hovered and armed", v)
	}

	f.clock.Advance(800 * time.Millisecond)
	if got := f.board.Buffer(); got != "H" {
		t.Fatalf("buffer = %q, want %q", got, "H")
	}

	f.moveTo(0, 0)
	if ctl.View().Hovered {
		t.Fatal("pointer still on key after leaving it")
	}
}

func TestMovingBetweenCellsLeavesThePrevious(t *testing.T) {
	f := setup(t, domain.ModeDwell)

	a := f.cellOf(t, board.KeyID("A"))
	b := f.cellOf(t, board.KeyID("B"))
	f.moveTo(a.x, a.y)
	f.moveTo(b.x, b.y)

	if f.ui.Control(board.KeyID("A")).View().Hovered {
		t.Fatal("A still hovered")
	}
	if v := f.ui.Control(board.KeyID("B")).View(); v.State != interaction.StateArmed {
		t.Fatalf("B state = %s, want armed", v.State)
	}
}

func TestGapIsNotAButton(t *testing.T) {
	f := setup(t, domain.ModeClick)

	a := f.cellOf(t, board.KeyID("A"))
	if id := f.m.hit(a.x+a.w, a.y); id != "" {
		t.Fatalf("hit in gap = %q, want none", id)
	}
	if id := f.m.hit(a.x, a.y+cellHeight); id != "" {
		t.Fatalf("hit between rows = %q, want none", id)
	}
}

func TestTyping(t *testing.T) {
	f := setup(t, domain.ModeClick)

	f.send(keyRunes("hi"))
	f.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	f.send(keyRunes("theree1"))
	f.send(tea.KeyMsg{Type: tea.KeyBackspace})

	if got := f.board.Buffer(); got != "Hi there" {
		t.Fatalf("buffer = %q, want %q", got, "Hi there")
	}

	f.send(tea.KeyMsg{Type: tea.KeyEnter})
	if len(f.speaker.said) != 1 || f.speaker.said[0] != "Hi there" {
		t.Fatalf("said = %v", f.speaker.said)
	}
	if got := f.board.Buffer(); got != "" {
		t.Fatalf("buffer after speaking = %q", got)
	}
}

func TestEscapeClears(t *testing.T) {
	f := setup(t, domain.ModeClick)

	f.send(keyRunes("abc"))
	f.send(tea.KeyMsg{Type: tea.KeyEsc})
	if got := f.board.Buffer(); got != "" {
		t.Fatalf("buffer = %q, want empty", got)
	}
}

func TestTabAndModeKeys(t *testing.T) {
	f := setup(t, domain.ModeClick)

	f.send(tea.KeyMsg{Type: tea.KeyTab})
	if got := f.board.Screen(); got != domain.ScreenPhrases {
		t.Fatalf("screen = %s, want PHRASES", got)
	}

	f.send(tea.KeyMsg{Type: tea.KeyCtrlT})
	if got := f.ui.Mode(); got != domain.ModeDwell {
		t.Fatalf("mode = %s, want DWELL", got)
	}
	f.send(tea.KeyMsg{Type: tea.KeyCtrlT})
	if got := f.ui.Mode(); got != domain.ModeClick {
		t.Fatalf("mode = %s, want CLICK", got)
	}
}

func TestNarrowTerminalShrinksCells(t *testing.T) {
	f := setup(t, domain.ModeClick)
	f.send(tea.WindowSizeMsg{Width: 50, Height: 40})

	for _, c := range f.m.layout(f.ui.Snapshot()) {
		if c.x+c.w > 50 {
			t.Fatalf("%s ends at column %d, past the terminal", c.btn.ID, c.x+c.w)
		}
	}
}

func TestViewShowsBufferAndLock(t *testing.T) {
	f := setup(t, domain.ModeClick)

	f.send(keyRunes("yes"))
	f.send(tea.KeyMsg{Type: tea.KeyEsc})
	f.send(keyRunes("ok"))

	view := f.m.View()
	if !strings.Contains(view, "Ok") {
		t.Fatalf("buffer missing from view:\n%s", view)
	}
	if !strings.Contains(view, "locked") {
		t.Fatalf("lock missing from view:\n%s", view)
	}
}

func TestHistoryShownAboveButtons(t *testing.T) {
	f := setup(t, domain.ModeClick)

	if !strings.Contains(f.m.View(), "No messages yet") {
		t.Fatal("empty history placeholder missing")
	}
	before := f.cellOf(t, board.KeyID("A"))

	for _, text := range []string{"one", "two", "three", "four"} {
		f.send(keyRunes(text))
		f.send(tea.KeyMsg{Type: tea.KeyEnter})
		f.clock.Advance(2 * time.Second)
	}

	view := f.m.View()
	for _, want := range []string{"Two", "Three", "Four"} {
		if !strings.Contains(view, want) {
			t.Fatalf("%q missing from history:\n%s", want, view)
		}
	}
	if strings.Contains(view, "One") {
		t.Fatalf("history shows more than three messages:\n%s", view)
	}

	history := strings.Index(view, "Four")
	grid := strings.Index(view, "Keyboard")
	if history > grid {
		t.Fatal("history should sit above the buttons")
	}
	if after := f.cellOf(t, board.KeyID("A")); after.y != before.y {
		t.Fatalf("buttons moved from row %d to %d when history filled", before.y, after.y)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		w    int
		want string
	}{
		{"Space", 10, "Space"},
		{"Food & Drink", 6, "Food …"},
		{"abc", 1, "a"},
	}
	for _, tt := range tests {
		if got := clip(tt.in, tt.w); got != tt.want {
			t.Errorf("clip(%q, %d) = %q, want %q", tt.in, tt.w, got, tt.want)
		}
	}
}

func TestRenderBannerFallsBackWhenNarrow(t *testing.T) {
	if got := RenderBanner(10); !strings.Contains(got, "OttoBoard") {
		t.Fatalf("banner = %q", got)
	}
}
