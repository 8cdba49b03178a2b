package flash

import (
	"fmt"
	"strings"
)

// Mode is the operating mode of the flash LED.
type Mode int

const (
	Off   Mode = iota // LED forced off
	On                // photographic flash mode
	Torch             // continuous torch mode
)

func (m Mode) String() string {
	switch m {
	case Off:
		return "off"
	case On:
		return "on"
	case Torch:
		return "torch"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "off", "on" or "torch" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return Off, nil
	case "on":
		return On, nil
	case "torch":
		return Torch, nil
	default:
		return Off, fmt.Errorf("unknown flash mode: %q", s)
	}
}

// ModeSet is a set of light-emitting modes. Off is implicit and never stored.
type ModeSet uint8

// NewModeSet builds a set from modes, ignoring Off.
func NewModeSet(modes ...Mode) ModeSet {
	var s ModeSet
	for _, m := range modes {
		s = s.With(m)
	}
	return s
}

// With returns s plus m.
func (s ModeSet) With(m Mode) ModeSet {
	if m != On && m != Torch {
		return s
	}
	return s | 1<<uint(m)
}

// Has reports whether m is in the set.
func (s ModeSet) Has(m Mode) bool {
	if m != On && m != Torch {
		return false
	}
	return s&(1<<uint(m)) != 0
}

// Empty reports whether no light-emitting mode is supported.
func (s ModeSet) Empty() bool { return s == 0 }

// Modes lists the members, Torch first.
func (s ModeSet) Modes() []Mode {
	var out []Mode
	for _, m := range []Mode{Torch, On} {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s ModeSet) String() string {
	parts := make([]string, 0, 2)
	for _, m := range s.Modes() {
		parts = append(parts, m.String())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// ResolveMode picks the mode used to light the LED: Torch if supported,
// else On. ok is false when neither is available.
func ResolveMode(s ModeSet) (m Mode, ok bool) {
	switch {
	case s.Has(Torch):
		return Torch, true
	case s.Has(On):
		return On, true
	default:
		return Off, false
	}
}
