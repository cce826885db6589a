// Package suggest produces word predictions and quick replies for the
// keyboard screen.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// MaxSuggestions caps every list returned to the board.
const MaxSuggestions = 4

// ErrBadReply is returned when the model output is not a JSON string array.
var ErrBadReply = errors.New("model reply is not a list of strings")

// DefaultReplies are offered when replies cannot be generated.
var DefaultReplies = []string{"Yes", "No", "Thank you", "Wait"}

var (
	_ domain.Suggester      = (*Predictor)(nil)
	_ domain.ReplySuggester = (*Predictor)(nil)
)

// Option configures the Predictor.
type Option func(*Predictor)

// WithLanguage sets the language named in the prompts.
func WithLanguage(lang string) Option {
	return func(p *Predictor) {
		p.language = lang
	}
}

// WithRate limits model requests to one per interval with the given burst.
func WithRate(interval time.Duration, burst int) Option {
	return func(p *Predictor) {
		p.limiter = rate.NewLimiter(rate.Every(interval), burst)
	}
}

// WithLimiter sets the limiter directly.
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Predictor) {
		p.limiter = l
	}
}

// Predictor asks a language model for completions and replies.
type Predictor struct {
	model    Completer
	limiter  *rate.Limiter
	language string
	log      *logger.Logger
}

// NewPredictor creates a predictor over model, limited to two requests per
// second by default.
func NewPredictor(model Completer, log *logger.Logger, opts ...Option) *Predictor {
	p := &Predictor{
		model:    model,
		limiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		language: "English",
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Suggest predicts the next words or completions for input.
func (p *Predictor) Suggest(ctx context.Context, input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	instructions := fmt.Sprintf(
		`You are an assistive text prediction engine. Language: %s. Output: a JSON array of strings only. Example: ["hello", "how", "are"]`,
		p.language)
	prompt := fmt.Sprintf("Current input: %q\nTask: predict the next 3 most likely words or completions.", input)

	out, err := p.ask(ctx, instructions, prompt)
	if err != nil {
		return nil, err
	}
	return parseList(out)
}

// Reply proposes short answers to the last few messages. Failures fall
// back to DefaultReplies.
func (p *Predictor) Reply(ctx context.Context, history []domain.Message) ([]string, error) {
	if len(history) == 0 {
		return append([]string(nil), DefaultReplies...), nil
	}
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = m.Sender + ": " + m.Text
	}

	instructions := fmt.Sprintf(
		"You are an assistive communication aid for a person who cannot speak. Language: %s. Output: a JSON array of strings only.",
		p.language)
	prompt := "Conversation history:\n" + strings.Join(lines, "\n") +
		"\n\nTask: suggest 4 short, relevant, quick responses for the user to say next."

	out, err := p.ask(ctx, instructions, prompt)
	if err == nil {
		var replies []string
		if replies, err = parseList(out); err == nil && len(replies) > 0 {
			return replies, nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p.log.Warn("smart replies unavailable, using defaults: %v", err)
	return append([]string(nil), DefaultReplies...), nil
}

func (p *Predictor) ask(ctx context.Context, instructions, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return p.model.Complete(ctx, instructions, prompt)
}

// parseList extracts a JSON string array from model output, tolerating
// code fences and surrounding prose.
func parseList(out string) ([]string, error) {
	start := strings.Index(out, "[")
	end := strings.LastIndex(out, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: %q", ErrBadReply, truncate(out, 80))
	}

	var raw []string
	if err := json.Unmarshal([]byte(out[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReply, err)
	}

	list := make([]string, 0, MaxSuggestions)
	seen := make(map[string]bool)
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		list = append(list, s)
		if len(list) == MaxSuggestions {
			break
		}
	}
	return list, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
