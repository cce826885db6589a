package board

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Special key names accepted by Press.
const (
	KeySpace     = "Space"
	KeyBackspace = "Backspace"
	KeyDelete    = "Del"
	KeyClear     = "Clear"
)

// Layout is the on-screen keyboard, one slice per row.
var Layout = [][]string{
	{"A", "B", "C", "D", "E", "F"},
	{"G", "H", "I", "J", "K", "L"},
	{"M", "N", "O", "P", "Q", "R"},
	{"S", "T", "U", "V", "W", "X"},
	{"Y", "Z", KeySpace, KeyBackspace, ".", "?", KeyClear},
}

// KeyID returns the control id of a keyboard key.
func KeyID(key string) string {
	switch key {
	case ".":
		return "key-period"
	case "?":
		return "key-question"
	case "!":
		return "key-bang"
	case ",":
		return "key-comma"
	}
	return "key-" + strings.ToLower(key)
}

func keyLabel(key string) string {
	switch key {
	case KeySpace:
		return "Space"
	case KeyBackspace:
		return "Del"
	}
	return key
}

// Press applies one key to the message buffer. Letters are capitalised at
// the start of the message and after sentence punctuation; everything else
// is lower-cased.
func (b *Board) Press(key string) {
	if key == KeyClear {
		b.clear()
		return
	}

	b.mu.Lock()
	switch key {
	case KeyBackspace, KeyDelete:
		if _, size := utf8.DecodeLastRuneInString(b.buffer); size > 0 {
			b.buffer = b.buffer[:len(b.buffer)-size]
		}
	case KeySpace:
		if b.buffer == "i" || strings.HasSuffix(b.buffer, " i") {
			b.buffer = b.buffer[:len(b.buffer)-1] + "I "
		} else {
			b.buffer += " "
		}
	default:
		b.buffer += caseFor(b.buffer, key)
	}
	b.mu.Unlock()

	b.bufferChanged()
}

// clear empties the buffer behind a short lock.
func (b *Board) clear() {
	b.ui.TriggerLock(b.locks.Short)

	b.mu.Lock()
	b.buffer = ""
	b.mu.Unlock()

	b.bufferChanged()
}

func caseFor(buffer, key string) string {
	trimmed := strings.TrimRightFunc(buffer, unicode.IsSpace)
	if trimmed == "" {
		return strings.ToUpper(key)
	}
	switch last, _ := utf8.DecodeLastRuneInString(trimmed); last {
	case '.', '!', '?':
		return strings.ToUpper(key)
	}
	return strings.ToLower(key)
}

// Speak says the buffer aloud, records it and clears it. A blank buffer is
// ignored.
func (b *Board) Speak() {
	b.mu.Lock()
	text := b.buffer
	b.mu.Unlock()
	if strings.TrimSpace(text) == "" {
		return
	}

	b.ui.TriggerLock(b.locks.Long)
	b.say(text)

	b.mu.Lock()
	b.buffer = ""
	b.mu.Unlock()

	b.bufferChanged()
}

// ChooseSuggestion merges a prediction into the buffer. A prediction that
// extends the word being typed replaces it; anything else is appended as
// the next word.
func (b *Board) ChooseSuggestion(text string) {
	b.mu.Lock()
	b.buffer = merge(b.buffer, text)
	b.mu.Unlock()

	b.bufferChanged()
}

func merge(buffer, text string) string {
	if strings.TrimSpace(buffer) == "" {
		return text + " "
	}
	if strings.HasSuffix(buffer, " ") {
		return buffer + text + " "
	}

	words := strings.Split(strings.TrimRight(buffer, " "), " ")
	last := words[len(words)-1]
	if strings.HasPrefix(strings.ToLower(text), strings.ToLower(last)) {
		return buffer[:len(buffer)-len(last)] + text + " "
	}
	return buffer + " " + text + " "
}

// bufferChanged refreshes the buttons and restarts the prediction
// debounce.
func (b *Board) bufferChanged() {
	b.scheduleSuggestions()
	b.refresh()
}
