package demo

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScript is returned for scripts that fail validation.
var ErrInvalidScript = errors.New("invalid demo script")

//go:embed tour.yaml
var tourYAML []byte

// Duration is a time.Duration written as "800ms" or "1.5s" in scripts.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Step is one scripted action. Exactly one of Target, Type, Narrate or
// Wait is set.
type Step struct {
	// Target points the demo cursor at a control id for Hold, then clears
	// it. With Click set the control is clicked at the end of the hold.
	Target string   `yaml:"target"`
	Hold   Duration `yaml:"hold"`
	Click  bool     `yaml:"click"`

	// Type dwells on each key needed to spell the text.
	Type string `yaml:"type"`

	// Narrate speaks a line of commentary and waits for it to finish.
	Narrate string `yaml:"narrate"`

	Wait Duration `yaml:"wait"`

	// Pause is waited after the step.
	Pause Duration `yaml:"pause"`
}

// Script is a named list of steps.
type Script struct {
	Name      string   `yaml:"name"`
	Loop      bool     `yaml:"loop"`
	TypeHold  Duration `yaml:"type_hold"`
	TypePause Duration `yaml:"type_pause"`
	Steps     []Step   `yaml:"steps"`
}

// Parse decodes and validates a YAML script. Unknown keys are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads a script from disk.
func LoadFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening demo script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Tour returns the built-in walkthrough of the board.
func Tour() *Script {
	s, err := Parse(bytes.NewReader(tourYAML))
	if err != nil {
		panic(fmt.Sprintf("built-in tour: %v", err))
	}
	return s
}

// Validate checks that every step does exactly one thing.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScript)
	}
	for i, st := range s.Steps {
		n := 0
		for _, set := range []bool{st.Target != "", st.Type != "", st.Narrate != "", st.Wait > 0} {
			if set {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("%w: step %d must set exactly one of target, type, narrate, wait", ErrInvalidScript, i+1)
		}
		if st.Hold < 0 || st.Pause < 0 {
			return fmt.Errorf("%w: step %d has a negative duration", ErrInvalidScript, i+1)
		}
		if st.Target == "" && (st.Click || st.Hold > 0) {
			return fmt.Errorf("%w: step %d sets hold or click without a target", ErrInvalidScript, i+1)
		}
	}
	return nil
}
