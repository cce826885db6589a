// Package domain defines the core types and interfaces for the board.
// All other packages depend on domain; domain depends on nothing.
package domain

import (
	"fmt"
	"strings"
)

// InteractionMode selects how controls are activated.
type InteractionMode int

const (
	// ModeClick activates controls on a direct pointer click only.
	ModeClick InteractionMode = iota
	// ModeDwell additionally activates a control once it has been
	// targeted for the dwell duration.
	ModeDwell
)

// String returns the mode name as stored in settings.
func (m InteractionMode) String() string {
	switch m {
	case ModeClick:
		return "CLICK"
	case ModeDwell:
		return "DWELL"
	default:
		return "unknown"
	}
}

// ParseMode converts "click" or "dwell" (any case) to an InteractionMode.
func ParseMode(s string) (InteractionMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CLICK":
		return ModeClick, nil
	case "DWELL":
		return ModeDwell, nil
	}
	return ModeClick, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Screen is one of the board's top-level views.
type Screen int

const (
	ScreenPhrases Screen = iota
	ScreenKeyboard
	ScreenSettings
)

// String returns the screen name used in control ids.
func (s Screen) String() string {
	switch s {
	case ScreenPhrases:
		return "PHRASES"
	case ScreenKeyboard:
		return "KEYBOARD"
	case ScreenSettings:
		return "SETTINGS"
	default:
		return "unknown"
	}
}
