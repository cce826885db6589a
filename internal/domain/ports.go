package domain

import "context"

// Speaker turns text into audible speech. Speak returns once the
// utterance finished or failed; callers that must not block run it in a
// goroutine.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Suggester predicts completions or next words for a partial message.
type Suggester interface {
	Suggest(ctx context.Context, input string) ([]string, error)
}

// ReplySuggester proposes replies from the conversation so far. Suggesters
// may implement it optionally.
type ReplySuggester interface {
	Reply(ctx context.Context, history []Message) ([]string, error)
}

// SettingsStore persists user settings. Implementations can be in-memory,
// file-based, or remote.
type SettingsStore interface {
	Load(ctx context.Context, userID string) (*Settings, error)
	Save(ctx context.Context, settings *Settings) error
}

// PhraseSource provides the phrase tree shown on the phrases screen. A path
// is the list of branch ids walked from the roots.
type PhraseSource interface {
	Roots(ctx context.Context) ([]*Phrase, error)
	Level(ctx context.Context, path []string) ([]*Phrase, error)
	Add(ctx context.Context, path []string, phrase *Phrase) error
}

// VoiceSelector is implemented by speakers that can switch voices at
// runtime.
type VoiceSelector interface {
	SetVoice(name string)
}
