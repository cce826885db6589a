package board

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hammamikhairi/ottoboard/internal/domain"
)

// SelectPhrase opens a branch or speaks a leaf of the current level.
func (b *Board) SelectPhrase(id string) error {
	b.mu.Lock()
	level, err := b.phrases.Level(b.ctx, pathIDs(b.path))
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("loading phrase level: %w", err)
	}

	var phrase *domain.Phrase
	for _, p := range level {
		if p.ID == id {
			phrase = p
			break
		}
	}
	if phrase == nil {
		return fmt.Errorf("phrase %q: %w", id, domain.ErrNotFound)
	}

	if phrase.IsBranch() {
		b.ui.TriggerLock(b.locks.Nav)
		b.mu.Lock()
		b.path = append(b.path, phrase)
		b.mu.Unlock()
		b.log.Debug("entered phrase group %q", phrase.Label)
		b.refresh()
		return nil
	}

	b.ui.TriggerLock(b.locks.Long)
	b.say(phrase.Utterance())
	b.scheduleSuggestions()
	b.refresh()
	return nil
}

// Back leaves the current phrase group. At the root it only locks.
func (b *Board) Back() {
	b.ui.TriggerLock(b.locks.Nav)

	b.mu.Lock()
	if len(b.path) > 0 {
		b.path = b.path[:len(b.path)-1]
	}
	b.mu.Unlock()

	b.refresh()
}

// AddCustomPhrase saves the buffer as a new phrase in the current group and
// clears the buffer.
func (b *Board) AddCustomPhrase() error {
	b.mu.Lock()
	text := b.buffer
	path := pathIDs(b.path)
	b.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyBuffer
	}

	b.ui.TriggerLock(b.locks.Add)

	phrase := &domain.Phrase{
		ID:         uuid.NewString(),
		Label:      shorten(text, 15, 12),
		SpeechText: text,
		Custom:     true,
	}
	if err := b.phrases.Add(b.ctx, path, phrase); err != nil {
		b.log.Warn("adding custom phrase failed: %v", err)
		return fmt.Errorf("adding phrase: %w", err)
	}

	b.mu.Lock()
	b.buffer = ""
	b.mu.Unlock()

	b.bufferChanged()
	return nil
}
