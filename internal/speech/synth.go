package speech

import "context"

// Synthesizer turns text into WAV audio in the player's format.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice, text string) ([]byte, error)
}
