// Package flashtest provides a recording flash backend for tests.
package flashtest

import (
	"sync"

	"github.com/cjeanneret/TorchGo/internal/hw/flash"
)

// Call is one operation observed on the recording unit.
type Call struct {
	Op   string // "apply", "activate", "deactivate", "close"
	Mode flash.Mode
}

// Backend records every unit operation. The zero value reports flash
// present with no supported modes.
type Backend struct {
	Modes  flash.ModeSet
	Absent bool

	mu          sync.Mutex
	openErr     error
	applyErr    map[flash.Mode]error
	activateErr error
	held        bool
	opens       int
	calls       []Call
}

// New returns a backend supporting modes.
func New(modes ...flash.Mode) *Backend {
	return &Backend{Modes: flash.NewModeSet(modes...)}
}

func (b *Backend) Name() string { return "recorder" }

func (b *Backend) HasFlash() bool { return !b.Absent }

// FailOpen makes the next opens fail with err (nil clears it).
func (b *Backend) FailOpen(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openErr = err
}

// FailApply makes Apply(m) fail with err (nil clears it).
func (b *Backend) FailApply(m flash.Mode, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.applyErr == nil {
		b.applyErr = make(map[flash.Mode]error)
	}
	b.applyErr[m] = err
}

// FailActivate makes Activate fail with err (nil clears it).
func (b *Backend) FailActivate(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activateErr = err
}

func (b *Backend) Open() (flash.Unit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	if b.held {
		return nil, flash.ErrUnavailable
	}
	b.held = true
	b.opens++
	return &unit{b: b}, nil
}

// Held reports whether a unit is currently open.
func (b *Backend) Held() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.held
}

// Opens returns how many units were opened.
func (b *Backend) Opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens
}

// Calls returns a copy of the recorded operations.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Applied returns the sequence of modes passed to Apply.
func (b *Backend) Applied() []flash.Mode {
	var out []flash.Mode
	for _, c := range b.Calls() {
		if c.Op == "apply" {
			out = append(out, c.Mode)
		}
	}
	return out
}

// Count returns how many times op was recorded.
func (b *Backend) Count(op string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

func (b *Backend) record(c Call) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, c)
}

type unit struct {
	b *Backend
}

func (u *unit) SupportedModes() flash.ModeSet { return u.b.Modes }

func (u *unit) Apply(m flash.Mode) error {
	u.b.mu.Lock()
	err := u.b.applyErr[m]
	u.b.mu.Unlock()
	if err != nil {
		return err
	}
	u.b.record(Call{Op: "apply", Mode: m})
	return nil
}

func (u *unit) Activate() error {
	u.b.mu.Lock()
	err := u.b.activateErr
	u.b.mu.Unlock()
	if err != nil {
		return err
	}
	u.b.record(Call{Op: "activate"})
	return nil
}

func (u *unit) Deactivate() error {
	u.b.record(Call{Op: "deactivate"})
	return nil
}

func (u *unit) Close() error {
	u.b.record(Call{Op: "close"})
	u.b.mu.Lock()
	u.b.held = false
	u.b.mu.Unlock()
	return nil
}
