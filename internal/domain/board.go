package domain

import "time"

// Phrase is a node of the phrase tree. Branches hold children; leaves are
// spoken when selected.
type Phrase struct {
	ID         string
	Label      string
	SpeechText string // spoken instead of Label when set
	Children   []*Phrase
	Custom     bool
}

// IsBranch reports whether selecting the phrase navigates instead of speaking.
func (p *Phrase) IsBranch() bool { return p.Children != nil }

// Utterance returns the text spoken for a leaf.
func (p *Phrase) Utterance() string {
	if p.SpeechText != "" {
		return p.SpeechText
	}
	return p.Label
}

// Message is one entry of the conversation history.
type Message struct {
	ID     string
	Sender string // "user" for everything the board speaks
	Text   string
	At     time.Time
}

// Settings are the per-user interaction preferences.
type Settings struct {
	UserID    string
	Mode      InteractionMode
	Dwell     time.Duration
	Voice     string
	UpdatedAt time.Time
}
