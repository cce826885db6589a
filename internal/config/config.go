// Package config loads the board's settings. Values start from Defaults,
// are overridden by a .env file and the process environment, and finally by
// command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// TTS providers.
const (
	TTSGoogle = "google"
	TTSAzure  = "azure"
	TTSNone   = "none"
)

// Voice presets offered when none are configured.
var (
	googleVoices = []string{"en-US-Neural2-F", "en-US-Neural2-D", "en-GB-Neural2-A"}
	azureVoices  = []string{"en-US-AvaNeural", "en-US-AndrewNeural", "en-GB-SoniaNeural"}
)

// Config is the full application configuration.
type Config struct {
	LogLevel string `env:"OTTO_LOG_LEVEL"`
	LogFile  string `env:"OTTO_LOG_FILE"` // "stderr" logs to the console

	User           string        `env:"OTTO_USER"`
	Mode           string        `env:"OTTO_MODE"` // click|dwell
	Dwell          time.Duration `env:"OTTO_DWELL"`
	ActivationLock time.Duration `env:"OTTO_ACTIVATION_LOCK"`
	Screen         string        `env:"OTTO_SCREEN"` // keyboard|phrases|settings
	DB             string        `env:"OTTO_DB"`     // empty keeps settings in memory

	TTS     TTSConfig
	Azure   AzureConfig
	OpenAI  OpenAIConfig
	Gaze    GazeConfig
	Demo    DemoConfig
	Display DisplayConfig
}

// TTSConfig selects and tunes speech synthesis.
type TTSConfig struct {
	Provider     string   `env:"OTTO_TTS"` // google|azure|none
	Voices       []string `env:"OTTO_TTS_VOICES" envSeparator:";"`
	SpeakingRate float64  `env:"OTTO_TTS_RATE"`
	CacheDir     string   `env:"OTTO_TTS_CACHE_DIR"`
	DiskCache    bool     `env:"OTTO_TTS_DISK_CACHE"`
	Prefetch     bool     `env:"OTTO_TTS_PREFETCH"`
}

// AzureConfig holds the Azure Speech credentials.
type AzureConfig struct {
	Key    string `env:"AZURE_SPEECH_KEY"`
	Region string `env:"AZURE_SPEECH_REGION"`
}

// OpenAIConfig enables language-model suggestions when Key is set.
type OpenAIConfig struct {
	Key      string  `env:"OPENAI_API_KEY"`
	Model    string  `env:"OTTO_OPENAI_MODEL"`
	BaseURL  string  `env:"OTTO_OPENAI_BASE_URL"`
	Language string  `env:"OTTO_SUGGEST_LANGUAGE"`
	Rate     float64 `env:"OTTO_SUGGEST_RATE"` // requests per second
}

// GazeConfig controls the eye-tracker websocket feed.
type GazeConfig struct {
	Enabled bool     `env:"OTTO_GAZE_ENABLED"`
	Addr    string   `env:"OTTO_GAZE_ADDR"`
	Origins []string `env:"OTTO_GAZE_ORIGINS" envSeparator:";"`
}

// DemoConfig controls the scripted walkthrough.
type DemoConfig struct {
	Enabled bool   `env:"OTTO_DEMO"`
	Script  string `env:"OTTO_DEMO_SCRIPT"` // empty uses the built-in tour
	Narrate bool   `env:"OTTO_DEMO_NARRATE"`
}

// DisplayConfig tunes the terminal UI.
type DisplayConfig struct {
	Tick       time.Duration `env:"OTTO_DISPLAY_TICK"`
	CellWidth  int           `env:"OTTO_DISPLAY_CELL_WIDTH"`
	ShowBanner bool          `env:"OTTO_DISPLAY_BANNER"`
	History    int           `env:"OTTO_DISPLAY_HISTORY"` // recent messages shown, 0 hides them
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		LogLevel:       logger.LevelNormal.String(),
		LogFile:        ".otto-logs/otto.log",
		User:           "default",
		Mode:           "click",
		Dwell:          800 * time.Millisecond,
		ActivationLock: 500 * time.Millisecond,
		Screen:         "keyboard",
		DB:             ".otto-data/settings.db",
		TTS: TTSConfig{
			Provider:     TTSGoogle,
			Voices:       slices.Clone(googleVoices),
			SpeakingRate: 1.0,
			CacheDir:     ".otto-cache",
			DiskCache:    true,
			Prefetch:     true,
		},
		OpenAI: OpenAIConfig{
			Model:    "gpt-4o-mini",
			Language: "English",
			Rate:     2,
		},
		Gaze: GazeConfig{
			Addr: "127.0.0.1:7070",
		},
		Display: DisplayConfig{
			Tick:       50 * time.Millisecond,
			CellWidth:  12,
			ShowBanner: true,
			History:    3,
		},
	}
}

// Load builds the configuration from defaults, the given .env files (".env"
// when none are named), the environment and args. Missing .env files are
// ignored.
func Load(args []string, envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	fs := flag.NewFlagSet("ottoboard", flag.ContinueOnError)
	cfg.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: off|normal|verbose")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "file to write logs to (use \"stderr\" to log to console)")
	fs.StringVar(&c.User, "user", c.User, "user whose settings are loaded")
	fs.StringVar(&c.Mode, "mode", c.Mode, "interaction mode: click|dwell")
	fs.DurationVar(&c.Dwell, "dwell", c.Dwell, "dwell time before a targeted button fires")
	fs.DurationVar(&c.ActivationLock, "activation-lock", c.ActivationLock, "navigation lock after every activation")
	fs.StringVar(&c.Screen, "screen", c.Screen, "first screen: keyboard|phrases|settings")
	fs.StringVar(&c.DB, "db", c.DB, "SQLite file for user settings (empty keeps them in memory)")

	fs.StringVar(&c.TTS.Provider, "tts", c.TTS.Provider, "speech provider: google|azure|none")
	voices := strings.Join(c.TTS.Voices, ";")
	fs.Func("voices", "voice presets separated by ';' (default \""+voices+"\")", func(s string) error {
		c.TTS.Voices = splitList(s)
		return nil
	})
	fs.Float64Var(&c.TTS.SpeakingRate, "speaking-rate", c.TTS.SpeakingRate, "speech rate multiplier")
	fs.StringVar(&c.TTS.CacheDir, "cache-dir", c.TTS.CacheDir, "directory for persistent TTS audio cache")
	fs.BoolVar(&c.TTS.DiskCache, "disk-cache", c.TTS.DiskCache, "persist TTS audio cache to disk")
	fs.BoolVar(&c.TTS.Prefetch, "prefetch", c.TTS.Prefetch, "synthesize phrase audio in the background at startup")

	fs.StringVar(&c.OpenAI.Model, "model", c.OpenAI.Model, "model used for word predictions")
	fs.StringVar(&c.OpenAI.Language, "language", c.OpenAI.Language, "language of predictions")

	fs.BoolVar(&c.Gaze.Enabled, "gaze", c.Gaze.Enabled, "accept eye-tracker targets over websocket")
	fs.StringVar(&c.Gaze.Addr, "gaze-addr", c.Gaze.Addr, "listen address of the gaze feed")

	fs.BoolVar(&c.Demo.Enabled, "demo", c.Demo.Enabled, "run the scripted walkthrough")
	fs.StringVar(&c.Demo.Script, "demo-script", c.Demo.Script, "YAML walkthrough to run instead of the built-in tour")
	fs.BoolVar(&c.Demo.Narrate, "narrate", c.Demo.Narrate, "speak demo narration")

	fs.DurationVar(&c.Display.Tick, "tick", c.Display.Tick, "redraw interval")
	fs.BoolVar(&c.Display.ShowBanner, "banner", c.Display.ShowBanner, "show the title banner")
	fs.IntVar(&c.Display.History, "history", c.Display.History, "recent messages shown above the buttons (0 hides them)")
}

// Validate normalizes values and rejects the ones that cannot work.
// A non-positive dwell is kept: targeted buttons then fire immediately.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.TTS.Provider = strings.ToLower(strings.TrimSpace(c.TTS.Provider))
	c.Screen = strings.ToLower(strings.TrimSpace(c.Screen))

	if _, err := c.InteractionMode(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := c.FirstScreen(); err != nil {
		return err
	}
	if c.User == "" {
		return fmt.Errorf("%w: user must not be empty", ErrInvalid)
	}
	if c.ActivationLock < 0 {
		c.ActivationLock = 0
	}

	switch c.TTS.Provider {
	case TTSGoogle, TTSNone:
	case TTSAzure:
		if c.Azure.Key == "" || c.Azure.Region == "" {
			return fmt.Errorf("%w: azure speech needs AZURE_SPEECH_KEY and AZURE_SPEECH_REGION", ErrInvalid)
		}
		if slices.Equal(c.TTS.Voices, googleVoices) {
			c.TTS.Voices = slices.Clone(azureVoices)
		}
	default:
		return fmt.Errorf("%w: unknown tts provider %q", ErrInvalid, c.TTS.Provider)
	}
	if len(c.TTS.Voices) == 0 {
		return fmt.Errorf("%w: at least one voice is required", ErrInvalid)
	}
	if c.TTS.SpeakingRate <= 0 {
		c.TTS.SpeakingRate = 1.0
	}
	if c.OpenAI.Rate <= 0 {
		c.OpenAI.Rate = 2
	}

	if c.Gaze.Enabled && c.Gaze.Addr == "" {
		return fmt.Errorf("%w: gaze feed needs an address", ErrInvalid)
	}
	if c.Display.Tick <= 0 {
		c.Display.Tick = 50 * time.Millisecond
	}
	if c.Display.CellWidth < 6 {
		c.Display.CellWidth = 6
	}
	if c.Display.History < 0 {
		c.Display.History = 0
	}
	return nil
}

// InteractionMode returns the parsed Mode.
func (c *Config) InteractionMode() (domain.InteractionMode, error) {
	return domain.ParseMode(c.Mode)
}

// FirstScreen returns the parsed Screen.
func (c *Config) FirstScreen() (domain.Screen, error) {
	switch c.Screen {
	case "keyboard":
		return domain.ScreenKeyboard, nil
	case "phrases":
		return domain.ScreenPhrases, nil
	case "settings":
		return domain.ScreenSettings, nil
	}
	return domain.ScreenKeyboard, fmt.Errorf("%w: unknown screen %q", ErrInvalid, c.Screen)
}

// Level returns the parsed LogLevel.
func (c *Config) Level() logger.Level {
	return logger.ParseLevel(c.LogLevel)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
