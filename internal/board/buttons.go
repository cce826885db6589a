package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/interaction"
)

// Kind groups buttons for rendering.
type Kind int

const (
	KindNav Kind = iota
	KindCommand
	KindKey
	KindSuggestion
	KindPhrase
	KindSetting
)

// Button describes one visible control. Buttons sharing a Row are laid out
// on the same line.
type Button struct {
	ID       string
	Label    string
	Kind     Kind
	Row      int
	Active   bool // current selection, e.g. the visible screen
	Disabled bool
	Custom   bool

	run func()
}

// Buttons returns the controls of the visible screen in display order.
func (b *Board) Buttons() []Button {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Button(nil), b.buttons...)
}

// Activate runs the handler behind a button id, as if its control fired.
// It reports whether the id is currently visible.
func (b *Board) Activate(id string) bool {
	b.mu.Lock()
	btn, ok := b.byID[id]
	b.mu.Unlock()

	if !ok || btn.Disabled || btn.run == nil {
		return false
	}
	btn.run()
	return true
}

// refresh rebuilds the button list and syncs the registered controls with
// it. Controls only carry the id; the handler is looked up at activation
// time, so a stale registration can never run an outdated action.
func (b *Board) refresh() {
	b.mu.Lock()
	buttons := b.buildLocked()
	b.buttons = buttons
	b.byID = make(map[string]Button, len(buttons))
	for _, btn := range buttons {
		b.byID[btn.ID] = btn
	}

	var gone []string
	for id := range b.registered {
		if _, ok := b.byID[id]; !ok {
			gone = append(gone, id)
			delete(b.registered, id)
		}
	}
	for _, btn := range buttons {
		b.registered[btn.ID] = true
	}
	b.mu.Unlock()

	for _, id := range gone {
		b.ui.Unregister(id)
	}
	for _, btn := range buttons {
		id := btn.ID
		b.ui.Register(id, func() { b.Activate(id) }, interaction.WithDisabled(btn.Disabled))
	}
}

func (b *Board) buildLocked() []Button {
	var out []Button

	for _, s := range []domain.Screen{domain.ScreenKeyboard, domain.ScreenPhrases, domain.ScreenSettings} {
		s := s
		out = append(out, Button{
			ID:     "nav-" + s.String(),
			Label:  screenLabel(s),
			Kind:   KindNav,
			Row:    0,
			Active: b.screen == s,
			run:    func() { b.SetScreen(s) },
		})
	}

	blank := strings.TrimSpace(b.buffer) == ""
	out = append(out,
		Button{ID: "cmd-speak", Label: "Speak", Kind: KindCommand, Row: 1, Disabled: blank, run: b.Speak},
		Button{ID: "cmd-clear", Label: "Clear", Kind: KindCommand, Row: 1, run: func() { b.Press(KeyClear) }},
	)

	switch b.screen {
	case domain.ScreenKeyboard:
		out = append(out, b.keyboardLocked()...)
	case domain.ScreenPhrases:
		out = append(out, b.phraseButtonsLocked()...)
	case domain.ScreenSettings:
		out = append(out, b.settingsLocked()...)
	}
	return out
}

func (b *Board) keyboardLocked() []Button {
	var out []Button
	row := 2
	if len(b.suggestions) > 0 {
		for i, text := range b.suggestions {
			text := text
			out = append(out, Button{
				ID:    fmt.Sprintf("pred-%d", i),
				Label: text,
				Kind:  KindSuggestion,
				Row:   row,
				run:   func() { b.ChooseSuggestion(text) },
			})
		}
		row++
	}
	for _, keys := range Layout {
		for _, key := range keys {
			key := key
			out = append(out, Button{
				ID:    KeyID(key),
				Label: keyLabel(key),
				Kind:  KindKey,
				Row:   row,
				run:   func() { b.Press(key) },
			})
		}
		row++
	}
	return out
}

const phrasesPerRow = 3

func (b *Board) phraseButtonsLocked() []Button {
	level, err := b.phrases.Level(b.ctx, pathIDs(b.path))
	if err != nil {
		b.log.Warn("phrase level %v unavailable, returning to root: %v", pathIDs(b.path), err)
		b.path = nil
		level, err = b.phrases.Level(b.ctx, nil)
		if err != nil {
			b.log.Error("phrase roots unavailable: %v", err)
			return nil
		}
	}

	var cells []Button
	if len(b.path) > 0 {
		cells = append(cells, Button{ID: "btn-phrase-back", Label: "Back", Kind: KindCommand, run: b.Back})
	}
	for _, p := range level {
		id := p.ID
		cells = append(cells, Button{
			ID:     PhraseID(id),
			Label:  p.Label,
			Kind:   KindPhrase,
			Custom: p.Custom,
			run: func() {
				if err := b.SelectPhrase(id); err != nil {
					b.log.Warn("select phrase: %v", err)
				}
			},
		})
	}
	if strings.TrimSpace(b.buffer) != "" {
		cells = append(cells, Button{
			ID:    "btn-add-phrase",
			Label: fmt.Sprintf("Add %q", shorten(b.buffer, 10, 8)),
			Kind:  KindCommand,
			run:   func() { _ = b.AddCustomPhrase() },
		})
	}
	for i := range cells {
		cells[i].Row = 2 + i/phrasesPerRow
	}
	return cells
}

func (b *Board) settingsLocked() []Button {
	mode := b.ui.Mode()
	dwell := b.ui.Dwell()

	out := []Button{
		{ID: "set-mode-dwell", Label: "Eye/Dwell", Kind: KindSetting, Row: 2, Active: mode == domain.ModeDwell,
			run: func() { b.SetMode(domain.ModeDwell) }},
		{ID: "set-mode-click", Label: "Mouse Mode", Kind: KindSetting, Row: 2, Active: mode == domain.ModeClick,
			run: func() { b.SetMode(domain.ModeClick) }},
	}
	if b.gazeFeed {
		on := b.eyeTracker.Load()
		label := "Eye Tracker: Off"
		if on {
			label = "Eye Tracker: On"
		}
		out = append(out, Button{ID: "set-eye-tracker", Label: label, Kind: KindSetting, Row: 2, Active: on,
			run: func() { b.SetEyeTracker(!on) }})
	}
	for _, d := range b.dwellChoices {
		d := d
		out = append(out, Button{
			ID:     DwellID(d),
			Label:  fmt.Sprintf("%.1fs", d.Seconds()),
			Kind:   KindSetting,
			Row:    3,
			Active: dwell == d,
			run:    func() { b.SetDwell(d) },
		})
	}
	for i, name := range b.voices {
		name := name
		out = append(out, Button{
			ID:     fmt.Sprintf("set-voice-%d", i),
			Label:  name,
			Kind:   KindSetting,
			Row:    4,
			Active: b.voice == name,
			run:    func() { b.SetVoice(name) },
		})
	}
	return out
}

// PhraseID returns the control id of a phrase button.
func PhraseID(id string) string { return "phrase-" + id }

// DwellID returns the control id of a dwell choice button.
func DwellID(d time.Duration) string { return fmt.Sprintf("set-dwell-%d", d.Milliseconds()) }

func screenLabel(s domain.Screen) string {
	switch s {
	case domain.ScreenKeyboard:
		return "Keyboard"
	case domain.ScreenPhrases:
		return "Phrases"
	case domain.ScreenSettings:
		return "Settings"
	}
	return s.String()
}

// shorten truncates s to keep runes plus "..." when it is longer than limit
// runes.
func shorten(s string, limit, keep int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:keep]) + "..."
}
