package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// GoogleOption configures the Google client.
type GoogleOption func(*GoogleClient)

// WithSpeakingRate sets the speaking rate (1.0 is normal).
func WithSpeakingRate(rate float64) GoogleOption {
	return func(c *GoogleClient) {
		c.rate = rate
	}
}

// WithPitch sets the pitch in semitones.
func WithPitch(pitch float64) GoogleOption {
	return func(c *GoogleClient) {
		c.pitch = pitch
	}
}

// GoogleClient synthesizes speech with Cloud Text-to-Speech. Credentials
// come from the environment (GOOGLE_APPLICATION_CREDENTIALS).
type GoogleClient struct {
	client *gctts.Client
	rate   float64
	pitch  float64
	log    *logger.Logger
}

var _ Synthesizer = (*GoogleClient)(nil)

// NewGoogleClient connects to Cloud Text-to-Speech.
func NewGoogleClient(ctx context.Context, log *logger.Logger, opts ...GoogleOption) (*GoogleClient, error) {
	client, err := gctts.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating google tts client: %w", err)
	}
	c := &GoogleClient{client: client, rate: 1.0, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Synthesize returns LINEAR16 WAV audio for text.
func (c *GoogleClient) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	started := time.Now()
	resp, err := c.client.SynthesizeSpeech(ctx, c.request(voice, text))
	if err != nil {
		return nil, fmt.Errorf("google tts: %w", err)
	}
	c.log.Debug("google tts: %d chars in %s", len(text), time.Since(started))
	return resp.GetAudioContent(), nil
}

// Close releases the connection.
func (c *GoogleClient) Close() error {
	return c.client.Close()
}

func (c *GoogleClient) request(voice, text string) *ttspb.SynthesizeSpeechRequest {
	if voice == "" {
		voice = DefaultGoogleVoice
	}
	return &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Text{Text: text}},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: languageOf(voice),
			Name:         voice,
		},
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding:   ttspb.AudioEncoding_LINEAR16,
			SampleRateHertz: SampleRate,
			SpeakingRate:    c.rate,
			Pitch:           c.pitch,
		},
	}
}

// languageOf extracts "en-US" from "en-US-Neural2-F".
func languageOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return DefaultLanguage
	}
	return parts[0] + "-" + parts[1]
}
