package interaction

import "github.com/hammamikhairi/ottoboard/internal/domain"

// Source names the input that is targeting a control.
type Source int

const (
	SourceNone Source = iota
	SourcePointer
	SourceDemo
	SourceGaze
)

// String returns a human-readable source.
func (s Source) String() string {
	switch s {
	case SourcePointer:
		return "pointer"
	case SourceDemo:
		return "demo"
	case SourceGaze:
		return "gaze"
	default:
		return "none"
	}
}

// Signals is everything the resolver looks at for one control: the
// process-wide mode and external targets plus the control's own pointer
// hover flag.
type Signals struct {
	Mode    domain.InteractionMode
	Demo    string
	Gaze    string
	Pointer bool
}

// External reports whether a demo driver or gaze tracker is targeting
// anything at all.
func (s Signals) External() bool {
	return s.Demo != "" || s.Gaze != ""
}

// Resolve decides which source, if any, targets the control with the
// given id.
//
// An external target naming the id always wins. While an external target
// points anywhere else, pointer hover is ignored, so a resting mouse
// cannot fight the demo driver or the eye tracker. Otherwise pointer
// hover targets the control in dwell mode only. An empty id is never
// externally targeted.
func Resolve(s Signals, id string) Source {
	if id != "" {
		if s.Demo == id {
			return SourceDemo
		}
		if s.Gaze == id {
			return SourceGaze
		}
	}
	if s.External() {
		return SourceNone
	}
	if s.Pointer && s.Mode == domain.ModeDwell {
		return SourcePointer
	}
	return SourceNone
}
