// Package phrases provides phrase tree sources.
package phrases

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// Compile-time interface check.
var _ domain.PhraseSource = (*MemorySource)(nil)

// MemorySource holds the phrase tree in memory. Safe for concurrent use.
type MemorySource struct {
	mu    sync.RWMutex
	roots []*domain.Phrase
	log   *logger.Logger
}

// NewMemorySource creates a source preloaded with the built-in phrases.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := &MemorySource{log: log}
	src.seed()
	return src
}

// Roots returns the top level of the tree.
func (s *MemorySource) Roots(ctx context.Context) ([]*domain.Phrase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Phrase(nil), s.roots...), nil
}

// Level returns the children reached by following path (a list of branch
// ids) from the roots.
func (s *MemorySource) Level(ctx context.Context, path []string) ([]*domain.Phrase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	level, err := s.walkLocked(path)
	if err != nil {
		return nil, err
	}
	return append([]*domain.Phrase(nil), level...), nil
}

// Find returns the phrase with the given id anywhere in the tree.
func (s *MemorySource) Find(ctx context.Context, id string) (*domain.Phrase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p := find(s.roots, id); p != nil {
		return p, nil
	}
	s.log.Debug("phrase not found: %s", id)
	return nil, fmt.Errorf("phrase %q: %w", id, domain.ErrNotFound)
}

// Add appends phrase to the level reached by path.
func (s *MemorySource) Add(ctx context.Context, path []string, phrase *domain.Phrase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if find(s.roots, phrase.ID) != nil {
		return fmt.Errorf("phrase %q: %w", phrase.ID, domain.ErrAlreadyExists)
	}

	if len(path) == 0 {
		s.roots = append(s.roots, phrase)
	} else {
		parent := find(s.roots, path[len(path)-1])
		if parent == nil {
			return fmt.Errorf("phrase path %s: %w", strings.Join(path, "/"), domain.ErrNotFound)
		}
		if !parent.IsBranch() {
			return fmt.Errorf("phrase %q: %w", parent.ID, domain.ErrNotBranch)
		}
		parent.Children = append(parent.Children, phrase)
	}

	s.log.Info("added phrase %q under /%s", phrase.Label, strings.Join(path, "/"))
	return nil
}

func (s *MemorySource) walkLocked(path []string) ([]*domain.Phrase, error) {
	level := s.roots
	for _, id := range path {
		var next *domain.Phrase
		for _, p := range level {
			if p.ID == id {
				next = p
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("phrase path %s: %w", strings.Join(path, "/"), domain.ErrNotFound)
		}
		if !next.IsBranch() {
			return nil, fmt.Errorf("phrase %q: %w", id, domain.ErrNotBranch)
		}
		level = next.Children
	}
	return level, nil
}

func find(level []*domain.Phrase, id string) *domain.Phrase {
	for _, p := range level {
		if p.ID == id {
			return p
		}
		if hit := find(p.Children, id); hit != nil {
			return hit
		}
	}
	return nil
}

// ── Built-in phrases ─────────────────────────────────────────────

func leaf(id, label, speech string) *domain.Phrase {
	return &domain.Phrase{ID: id, Label: label, SpeechText: speech}
}

func branch(id, label string, children ...*domain.Phrase) *domain.Phrase {
	return &domain.Phrase{ID: id, Label: label, Children: children}
}

func (s *MemorySource) seed() {
	s.roots = []*domain.Phrase{
		branch("quick_res", "Quick Chat",
			leaf("yes", "Yes", "Yes."),
			leaf("no", "No", "No."),
			leaf("thanks", "Thanks", "Thank you."),
			leaf("wait", "Wait", "Please wait a moment."),
			leaf("stop", "Stop", "Please stop."),
			leaf("dont_know", "Don't Know", "I do not know."),
		),
		branch("food_drink", "Food & Drink",
			leaf("water", "Water", "I would like some water."),
			leaf("coffee", "Coffee", "I would like some coffee."),
			leaf("hungry", "Hungry", "I am hungry."),
			leaf("thirsty", "Thirsty", "I am thirsty."),
		),
		branch("emergency", "EMERGENCY",
			leaf("help", "HELP ME", "Help! I need help immediately!"),
			leaf("breath", "Can't Breathe", "I cannot breathe properly."),
			leaf("choke", "Choking", "I am choking."),
			leaf("pain_sev", "Severe Pain", "I am in severe pain."),
			leaf("fall", "Falling", "I feel like I am falling."),
		),
		branch("comfort", "Comfort",
			leaf("lights", "Lights", "Please change the lights."),
			leaf("hot", "Too Hot", "I am too hot."),
			leaf("cold", "Too Cold", "I am too cold."),
			leaf("position", "Position", "I need to change my position."),
			leaf("shower", "Shower", "I would like a shower."),
		),
		branch("emotions", "Emotions",
			leaf("happy", "Happy", "I am happy."),
			leaf("sad", "Sad", "I feel sad."),
			leaf("love", "I Love You", "I love you."),
		),
		branch("activities", "Activities",
			leaf("tv", "TV", "I want to watch TV."),
			leaf("music", "Music", "I want to listen to music."),
			leaf("read", "Read", "I want to read."),
		),
		branch("people", "People",
			leaf("doc", "Doctor", "I need a doctor."),
			leaf("nurse", "Nurse", "I need a nurse."),
			leaf("family", "Family", "Call my family."),
			leaf("phone", "Phone", "Can I use the phone?"),
		),
	}
}
