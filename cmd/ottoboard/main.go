// OttoBoard is a dwell-selection communication board for the terminal.
//
// Usage:
//
//	ottoboard [-mode dwell] [-dwell 1s] [-tts google|azure|none] [-gaze] [-demo]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/board"
	"github.com/hammamikhairi/ottoboard/internal/config"
	"github.com/hammamikhairi/ottoboard/internal/demo"
	"github.com/hammamikhairi/ottoboard/internal/display"
	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/gaze"
	"github.com/hammamikhairi/ottoboard/internal/interaction"
	"github.com/hammamikhairi/ottoboard/internal/logger"
	"github.com/hammamikhairi/ottoboard/internal/phrases"
	"github.com/hammamikhairi/ottoboard/internal/speech"
	"github.com/hammamikhairi/ottoboard/internal/storage"
	"github.com/hammamikhairi/ottoboard/internal/suggest"
)

// demoHoldMargin keeps scripted holds a little longer than the dwell, so
// every demo target fires.
const demoHoldMargin = 200 * time.Millisecond

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	// Logs go to a file by default so the board stays clean.
	logOut, closeLog := openLog(cfg.LogFile)
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)
	log := logger.New(cfg.Level(), logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	_ = log.Sync()
	closeLog()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mode, _ := cfg.InteractionMode()
	screen, _ := cfg.FirstScreen()

	ui := interaction.New(log.Named("interaction"),
		interaction.WithMode(mode),
		interaction.WithDwell(cfg.Dwell),
		interaction.WithActivationLock(cfg.ActivationLock),
	)
	defer ui.Close()

	source := phrases.NewMemorySource(log.Named("phrases"))
	store, closeStore := openStore(ctx, cfg.DB, log.Named("storage"))
	defer closeStore()

	speaker, voice, closeSpeech := buildSpeaker(ctx, cfg, log.Named("speech"))
	defer closeSpeech()

	opts := []board.Option{
		board.WithUser(cfg.User),
		board.WithSettingsStore(store),
		board.WithSuggester(buildSuggester(cfg, log.Named("suggest"))),
		board.WithScreen(screen),
		board.WithVoices(cfg.TTS.Voices...),
	}
	if cfg.Gaze.Enabled {
		// Gaze only selects in dwell mode; the board switches to it.
		opts = append(opts, board.WithEyeTracker())
	}
	b := board.New(ui, source, speaker, log.Named("board"), opts...)
	defer b.Close()

	if err := b.LoadSettings(ctx); err != nil {
		log.Warn("loading settings for %q: %v", cfg.User, err)
	}

	if voice != nil && cfg.TTS.Prefetch {
		go func() {
			texts, err := leafTexts(ctx, source)
			if err != nil {
				log.Warn("collecting phrases to prefetch: %v", err)
				return
			}
			if err := voice.Prefetch(ctx, texts...); err != nil && ctx.Err() == nil {
				log.Warn("prefetch stopped: %v", err)
			}
		}()
	}

	if cfg.Gaze.Enabled {
		srv := gaze.NewServer(cfg.Gaze.Addr, b, log.Named("gaze"),
			gaze.WithAllowedOrigins(cfg.Gaze.Origins...),
		)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting gaze feed: %w", err)
		}
		defer srv.Stop(context.WithoutCancel(ctx))
	}

	if cfg.Demo.Enabled {
		driver, err := buildDemo(ui, speaker, cfg, log.Named("demo"))
		if err != nil {
			return err
		}
		go func() {
			if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("demo stopped: %v", err)
			}
		}()
	}

	disp := display.New(ui, b, log.Named("display"),
		display.WithTick(cfg.Display.Tick),
		display.WithCellWidth(cfg.Display.CellWidth),
		display.WithBanner(cfg.Display.ShowBanner),
		display.WithHistory(cfg.Display.History),
	)
	if err := disp.Run(ctx); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}

// openStore opens the settings database, falling back to memory when path
// is empty or the file cannot be opened.
func openStore(ctx context.Context, path string, log *logger.Logger) (domain.SettingsStore, func()) {
	if path != "" {
		db, err := storage.OpenSQLite(ctx, path, log)
		if err == nil {
			return db, func() { _ = db.Close() }
		}
		log.Warn("settings database unavailable, keeping settings in memory: %v", err)
	}
	return storage.NewMemoryStore(log), func() {}
}

// buildSpeaker returns the configured speaker. voice is nil when speech is
// disabled or unavailable.
func buildSpeaker(ctx context.Context, cfg *config.Config, log *logger.Logger) (speaker domain.Speaker, voice *speech.Voice, closeFn func()) {
	silent := func() (domain.Speaker, *speech.Voice, func()) {
		return speech.NewNoOp(log), nil, func() {}
	}

	var synth speech.Synthesizer
	closeSynth := func() {}

	switch cfg.TTS.Provider {
	case config.TTSNone:
		log.Info("speech disabled")
		return silent()
	case config.TTSAzure:
		synth = speech.NewAzureClient(cfg.Azure.Key, cfg.Azure.Region, log)
	default:
		g, err := speech.NewGoogleClient(ctx, log, speech.WithSpeakingRate(cfg.TTS.SpeakingRate))
		if err != nil {
			log.Error("google text-to-speech unavailable, speech disabled: %v", err)
			return silent()
		}
		synth = g
		closeSynth = func() { _ = g.Close() }
	}

	player, err := speech.NewPlayer(log)
	if err != nil {
		log.Error("audio player init failed, speech disabled: %v", err)
		closeSynth()
		return silent()
	}

	cache := speech.NewAudioCache(cfg.TTS.CacheDir, cfg.TTS.DiskCache, log)
	v := speech.NewVoice(synth, player, log,
		speech.WithCache(cache),
		speech.WithVoiceName(cfg.TTS.Voices[0]),
	)
	log.Info("speech enabled (provider=%s, voice=%s)", cfg.TTS.Provider, cfg.TTS.Voices[0])

	return v, v, func() {
		v.Interrupt()
		closeSynth()
	}
}

func buildSuggester(cfg *config.Config, log *logger.Logger) domain.Suggester {
	if cfg.OpenAI.Key == "" {
		log.Info("OPENAI_API_KEY not set, using the built-in word list")
		return suggest.NewStatic()
	}

	opts := []suggest.OpenAIOption{suggest.WithModel(cfg.OpenAI.Model)}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, suggest.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	model := suggest.NewOpenAI(cfg.OpenAI.Key, log, opts...)

	interval := time.Duration(float64(time.Second) / cfg.OpenAI.Rate)
	log.Info("predictions enabled (model=%s)", cfg.OpenAI.Model)
	return suggest.NewPredictor(model, log,
		suggest.WithLanguage(cfg.OpenAI.Language),
		suggest.WithRate(interval, 2),
	)
}

func buildDemo(ui *interaction.Context, narrator domain.Speaker, cfg *config.Config, log *logger.Logger) (*demo.Driver, error) {
	script := demo.Tour()
	if cfg.Demo.Script != "" {
		s, err := demo.LoadFile(cfg.Demo.Script)
		if err != nil {
			return nil, fmt.Errorf("loading demo script: %w", err)
		}
		script = s
	}

	// Holds only fire targets in dwell mode.
	ui.SetMode(domain.ModeDwell)

	opts := []demo.Option{
		demo.WithKeyID(board.KeyID),
		demo.WithMinHold(func() time.Duration { return ui.Dwell() + demoHoldMargin }),
	}
	if cfg.Demo.Narrate {
		opts = append(opts, demo.WithNarrator(narrator))
	}
	log.Info("demo %q starting (%d steps)", script.Name, len(script.Steps))
	return demo.NewDriver(ui, script, log, opts...), nil
}

// leafTexts returns the utterance of every leaf in the phrase tree.
func leafTexts(ctx context.Context, src domain.PhraseSource) ([]string, error) {
	var out []string
	var walk func(path []string) error
	walk = func(path []string) error {
		level, err := src.Level(ctx, path)
		if err != nil {
			return err
		}
		for _, p := range level {
			if p.IsBranch() {
				if err := walk(append(path[:len(path):len(path)], p.ID)); err != nil {
					return err
				}
				continue
			}
			out = append(out, p.Utterance())
		}
		return nil
	}
	err := walk(nil)
	return out, err
}

// openLog opens the log file, falling back to stderr. "stderr" or an empty
// path logs to the console.
func openLog(path string) (io.Writer, func()) {
	if path == "" || path == "stderr" {
		return os.Stderr, func() {}
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		return os.Stderr, func() {}
	}
	return f, func() { _ = f.Close() }
}
