package suggest

import (
	"context"
	"strings"

	"github.com/hammamikhairi/ottoboard/internal/domain"
)

var (
	_ domain.Suggester      = (*Static)(nil)
	_ domain.ReplySuggester = (*Static)(nil)
)

// Static predicts from a fixed vocabulary. It is used when no model is
// configured and needs no network.
type Static struct {
	words []string
	next  []string
}

// NewStatic creates a static predictor with the built-in vocabulary.
func NewStatic() *Static {
	return &Static{words: vocabulary, next: starters}
}

// Suggest completes the word being typed, or proposes common next words
// after a space.
func (s *Static) Suggest(ctx context.Context, input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	if strings.HasSuffix(input, " ") {
		return first(s.next, MaxSuggestions), nil
	}

	fields := strings.Fields(input)
	prefix := strings.ToLower(fields[len(fields)-1])
	var out []string
	for _, w := range s.words {
		if len(w) > len(prefix) && strings.HasPrefix(w, prefix) {
			out = append(out, w)
			if len(out) == MaxSuggestions {
				break
			}
		}
	}
	return out, nil
}

// Reply returns DefaultReplies.
func (s *Static) Reply(ctx context.Context, history []domain.Message) ([]string, error) {
	return append([]string(nil), DefaultReplies...), nil
}

func first(list []string, n int) []string {
	if len(list) > n {
		list = list[:n]
	}
	return append([]string(nil), list...)
}

// Ordered by how often they come up on the board.
var vocabulary = []string{
	"i", "you", "yes", "no", "please", "thank", "thanks", "want", "need",
	"help", "water", "hungry", "thirsty", "tired", "pain", "bathroom", "bed",
	"cold", "hot", "doctor", "nurse", "family", "wait", "stop", "more",
	"medicine", "music", "television", "outside", "sleep", "sit", "move",
	"turn", "light", "phone", "call", "love", "happy", "sad", "okay",
	"good", "bad", "today", "tomorrow", "now", "later", "what", "where",
	"when", "who", "how", "why", "can", "could", "would", "feel", "like",
	"am", "is", "are", "the", "to", "my", "me", "it", "that", "this",
}

var starters = []string{"want", "need", "am", "feel", "please", "to", "the", "my"}
