package speech

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

var (
	_ domain.Speaker       = (*Voice)(nil)
	_ domain.VoiceSelector = (*Voice)(nil)
)

// VoiceOption configures the Voice.
type VoiceOption func(*Voice)

// WithCache sets the audio cache. Without one every utterance is
// synthesized.
func WithCache(c *AudioCache) VoiceOption {
	return func(v *Voice) {
		v.cache = c
	}
}

// WithVoiceName sets the initial synthesizer voice.
func WithVoiceName(name string) VoiceOption {
	return func(v *Voice) {
		v.name = name
	}
}

// Voice speaks one utterance at a time. A new Speak interrupts the one in
// progress, so the newest selection is always what the listener hears.
type Voice struct {
	synth Synthesizer
	out   Output
	cache *AudioCache
	log   *logger.Logger

	mu      sync.Mutex
	name    string
	cancel  context.CancelFunc
	seq     uint64
	playing sync.Mutex
}

// NewVoice creates a speaker from a synthesizer and an audio output.
func NewVoice(synth Synthesizer, out Output, log *logger.Logger, opts ...VoiceOption) *Voice {
	v := &Voice{synth: synth, out: out, log: log}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetVoice switches the synthesizer voice for later utterances.
func (v *Voice) SetVoice(name string) {
	v.mu.Lock()
	v.name = name
	v.mu.Unlock()
	v.log.Info("voice -> %s", name)
}

// Speak interrupts anything playing, then synthesizes and plays text. It
// returns when playback ends; an utterance cut short by a newer one returns
// context.Canceled.
func (v *Voice) Speak(ctx context.Context, text string) error {
	text = cleanForSpeech(text)
	if text == "" {
		return nil
	}

	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.seq++
	seq := v.seq
	name := v.name
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		if v.seq == seq {
			v.cancel = nil
		}
		v.mu.Unlock()
		cancel()
	}()

	v.out.Stop()

	audio, err := v.audio(ctx, name, text)
	if err != nil {
		return err
	}

	v.playing.Lock()
	defer v.playing.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	v.log.Debug("speaking: %s", truncate(text, 60))
	return v.out.Play(ctx, audio)
}

// Interrupt stops the current utterance.
func (v *Voice) Interrupt() {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.mu.Unlock()
	v.out.Stop()
}

// Prefetch synthesizes texts into the cache without playing them. It stops
// at the first error.
func (v *Voice) Prefetch(ctx context.Context, texts ...string) error {
	if v.cache == nil {
		return nil
	}
	v.mu.Lock()
	name := v.name
	v.mu.Unlock()

	for _, text := range texts {
		if _, err := v.audio(ctx, name, cleanForSpeech(text)); err != nil {
			return err
		}
	}
	v.log.Debug("prefetched %d utterances", len(texts))
	return nil
}

func (v *Voice) audio(ctx context.Context, name, text string) ([]byte, error) {
	if v.cache != nil {
		if data, ok := v.cache.Get(name, text); ok {
			return data, nil
		}
	}
	data, err := v.synth.Synthesize(ctx, name, text)
	if err != nil {
		return nil, fmt.Errorf("synthesizing: %w", err)
	}
	if v.cache != nil {
		v.cache.Put(name, text, data)
	}
	return data, nil
}

var spaces = regexp.MustCompile(`\s+`)

func cleanForSpeech(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
