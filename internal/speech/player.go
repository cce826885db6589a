package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// ErrBadAudio is returned for audio the player cannot decode.
var ErrBadAudio = errors.New("unsupported audio")

// Output plays synthesized audio.
type Output interface {
	Play(ctx context.Context, wav []byte) error
	Stop()
}

// Player plays 16-bit PCM WAV data through oto.
type Player struct {
	ctx *oto.Context
	log *logger.Logger

	mu     sync.Mutex
	active *oto.Player
}

var _ Output = (*Player)(nil)

// NewPlayer opens the system audio device. It fails when no device is
// available.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play blocks until the audio finished, Stop was called or ctx is done.
func (p *Player) Play(ctx context.Context, wav []byte) error {
	pcm, err := decodeWAV(wav)
	if err != nil {
		return err
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	p.mu.Lock()
	p.active = player
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.active == player {
			p.active = nil
		}
		p.mu.Unlock()
	}()

	player.Play()
	p.log.Debug("audio player: playing %d bytes of PCM", len(pcm))

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			_ = player.Close()
			return ctx.Err()
		case <-tick.C:
		}
	}
	return player.Close()
}

// Stop pauses whatever is playing. Safe to call when idle.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}

// decodeWAV validates the RIFF header and format chunk and returns the PCM
// payload. Only the player's own format is accepted; oto cannot resample.
func decodeWAV(wav []byte) ([]byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a WAV file", ErrBadAudio)
	}

	var sawFormat bool
	pos := 12
	for pos+8 <= len(wav) {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(wav) {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrBadAudio)
			}
			channels := int(binary.LittleEndian.Uint16(wav[body+2:]))
			rate := int(binary.LittleEndian.Uint32(wav[body+4:]))
			bits := int(binary.LittleEndian.Uint16(wav[body+14:]))
			if channels != ChannelCount || rate != SampleRate || bits != BitDepth {
				return nil, fmt.Errorf("%w: %d Hz, %d channel(s), %d bit", ErrBadAudio, rate, channels, bits)
			}
			sawFormat = true
		case "data":
			if !sawFormat {
				return nil, fmt.Errorf("%w: data before fmt chunk", ErrBadAudio)
			}
			end := body + size
			if end > len(wav) || end < body {
				end = len(wav)
			}
			return wav[body:end], nil
		}

		pos = body + size
		if size%2 != 0 {
			pos++
		}
	}
	return nil, fmt.Errorf("%w: data chunk not found", ErrBadAudio)
}
