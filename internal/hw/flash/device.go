package flash

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/TorchGo/internal/debug"
	"github.com/google/uuid"
)

// Device is one acquisition of a flash unit. It is created by Acquire and
// becomes unusable after Release. Methods are safe for concurrent use by the
// controller and its strobe worker.
type Device struct {
	mu        sync.Mutex
	unit      Unit
	backend   string
	session   string
	supported ModeSet
	current   Mode
	available bool
	released  bool
}

// Acquire opens the backend's flash exclusively and queries its modes.
func Acquire(b Backend) (*Device, error) {
	if !b.HasFlash() {
		return nil, fmt.Errorf("acquire %s: %w", b.Name(), ErrUnavailable)
	}
	u, err := b.Open()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", b.Name(), err)
	}

	d := &Device{
		unit:      u,
		backend:   b.Name(),
		session:   uuid.NewString(),
		supported: u.SupportedModes(),
		current:   Off,
		available: true,
	}
	debug.Info("Flash %s acquired on %s, modes %v", d.session, d.backend, d.supported)
	return d, nil
}

// Session returns the random id of this acquisition.
func (d *Device) Session() string { return d.session }

// Backend returns the name of the backend the device was acquired from.
func (d *Device) Backend() string { return d.backend }

// SupportedModes returns the modes queried at acquisition. May be empty.
func (d *Device) SupportedModes() ModeSet { return d.supported }

// CurrentMode returns the last mode applied.
func (d *Device) CurrentMode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Available reports whether the device can still be lit in this session.
func (d *Device) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available && !d.released
}

// ResolveMode applies the selection policy to the supported modes. When no
// usable mode exists the device is marked unavailable until the next
// acquisition and ErrUnsupported is returned.
func (d *Device) ResolveMode() (Mode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := ResolveMode(d.supported)
	if !ok {
		d.available = false
		return Off, fmt.Errorf("resolve mode from %v: %w", d.supported, ErrUnsupported)
	}
	debug.Verbose("Flash %s: resolved mode %v from %v", d.session, m, d.supported)
	return m, nil
}

// SetMode applies m. Off is always accepted; other modes must be supported.
func (d *Device) SetMode(m Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return fmt.Errorf("set mode %v: %w", m, ErrUnavailable)
	}
	if m != Off && (!d.supported.Has(m) || !d.available) {
		return fmt.Errorf("set mode %v: %w", m, ErrUnsupported)
	}
	if err := d.unit.Apply(m); err != nil {
		return fmt.Errorf("set mode %v: %w", m, err)
	}
	d.current = m
	debug.Mode(d.session, m)
	return nil
}

// StartActive engages the activation side-channel.
func (d *Device) StartActive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return fmt.Errorf("start active: %w", ErrUnavailable)
	}
	if err := d.unit.Activate(); err != nil {
		return fmt.Errorf("start active: %w", err)
	}
	return nil
}

// StopActive disengages the activation side-channel.
func (d *Device) StopActive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return fmt.Errorf("stop active: %w", ErrUnavailable)
	}
	if err := d.unit.Deactivate(); err != nil {
		return fmt.Errorf("stop active: %w", err)
	}
	return nil
}

// Release closes the unit. Calling it again is a no-op.
func (d *Device) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil
	}
	d.released = true
	d.available = false
	d.current = Off
	_ = d.unit.Deactivate()
	if err := d.unit.Close(); err != nil {
		return fmt.Errorf("release %s: %w", d.backend, err)
	}
	debug.Info("Flash %s released", d.session)
	return nil
}
