package flash

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/cjeanneret/TorchGo/internal/debug"
	"github.com/cjeanneret/TorchGo/internal/hw/gpio"
)

// GPIOBackend drives a flash LED wired to a single GPIO line, typically
// through a MOSFET or a flash driver's enable input. There is no separate
// torch/flash distinction in hardware: every configured mode lights the line.
type GPIOBackend struct {
	drv       gpio.Driver
	pin       int
	activeLow bool
	modes     ModeSet

	mu   sync.Mutex
	held bool
}

// NewGPIOBackend creates a backend for pin on drv. modes lists what the
// wiring is declared to support (usually Torch).
func NewGPIOBackend(drv gpio.Driver, pin int, activeLow bool, modes ModeSet) *GPIOBackend {
	return &GPIOBackend{
		drv:       drv,
		pin:       pin,
		activeLow: activeLow,
		modes:     modes,
	}
}

func (b *GPIOBackend) Name() string { return "gpio" }

func (b *GPIOBackend) HasFlash() bool {
	return b.drv != nil && b.pin >= 0
}

func (b *GPIOBackend) Open() (Unit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.held {
		return nil, fmt.Errorf("gpio pin %d already held: %w", b.pin, ErrUnavailable)
	}
	if err := b.drv.SetupPin(b.pin, gpio.Output); err != nil {
		return nil, classifyOpenErr(fmt.Sprintf("setup gpio pin %d", b.pin), err)
	}
	u := &gpioUnit{b: b, mode: Off}
	if err := u.drive(); err != nil {
		return nil, classifyOpenErr(fmt.Sprintf("drive gpio pin %d", b.pin), err)
	}
	b.held = true
	return u, nil
}

type gpioUnit struct {
	b      *GPIOBackend
	mode   Mode
	active bool
}

func (u *gpioUnit) SupportedModes() ModeSet { return u.b.modes }

func (u *gpioUnit) Apply(m Mode) error {
	u.mode = m
	return u.drive()
}

func (u *gpioUnit) Activate() error {
	u.active = true
	return u.drive()
}

func (u *gpioUnit) Deactivate() error {
	u.active = false
	return u.drive()
}

// drive sets the line from the current mode and activation.
func (u *gpioUnit) drive() error {
	lit := u.active && u.mode != Off
	level := gpio.Level(lit != u.b.activeLow)
	debug.Trace("GPIO flash: mode=%v active=%v lit=%v", u.mode, u.active, lit)
	return u.b.drv.WritePin(u.b.pin, level)
}

func (u *gpioUnit) Close() error {
	u.active = false
	u.mode = Off
	err := u.drive()

	u.b.mu.Lock()
	u.b.held = false
	u.b.mu.Unlock()
	return err
}

// classifyOpenErr maps OS failures onto the flash error kinds.
func classifyOpenErr(what string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%s: %v: %w", what, err, ErrPermissionDenied)
	}
	return fmt.Errorf("%s: %v: %w", what, err, ErrUnavailable)
}
