package board

import (
	"context"
	"strings"

	"github.com/hammamikhairi/ottoboard/internal/domain"
)

// scheduleSuggestions restarts the prediction debounce. Only the keyboard
// screen shows predictions; elsewhere a pending refresh is dropped.
func (b *Board) scheduleSuggestions() {
	if b.suggester == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.suggestGen++
	gen := b.suggestGen
	if b.suggestStop != nil {
		b.suggestStop.Stop()
		b.suggestStop = nil
	}
	if b.screen != domain.ScreenKeyboard {
		return
	}
	b.suggestStop = b.clock.AfterFunc(b.debounce, func() { b.refreshSuggestions(gen) })
}

// refreshSuggestions asks for predictions on a non-empty buffer, or for
// replies to the conversation when the buffer is empty.
func (b *Board) refreshSuggestions(gen uint64) {
	b.mu.Lock()
	if gen != b.suggestGen {
		b.mu.Unlock()
		return
	}
	input := b.buffer
	var history []domain.Message
	if n := len(b.history); n > 0 {
		from := n - replyContext
		if from < 0 {
			from = 0
		}
		history = append(history, b.history[from:]...)
	}
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(b.ctx, suggestTimeout)
	defer cancel()

	var (
		got []string
		err error
	)
	switch {
	case strings.TrimSpace(input) != "":
		got, err = b.suggester.Suggest(ctx, input)
	case len(history) > 0:
		if replier, ok := b.suggester.(domain.ReplySuggester); ok {
			got, err = replier.Reply(ctx, history)
		}
	}
	if err != nil {
		b.log.Warn("suggestions unavailable: %v", err)
		got = nil
	}

	b.mu.Lock()
	if gen != b.suggestGen {
		b.mu.Unlock()
		return
	}
	b.suggestions = got
	b.suggestStop = nil
	b.mu.Unlock()

	b.log.Debug("suggestions for %q: %v", input, got)
	b.refresh()
}
