package flash

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/cjeanneret/TorchGo/internal/hw/gpio"
)

// failingDriver fails SetupPin with a fixed error.
type failingDriver struct {
	gpio.MockDriver
	err error
}

func (d *failingDriver) SetupPin(pin int, mode gpio.PinMode) error { return d.err }

func TestGPIOBackend_LitOnlyWhenActiveAndModeSet(t *testing.T) {
	drv := gpio.NewMockDriver()
	b := NewGPIOBackend(drv, 17, false, NewModeSet(Torch))

	u, err := b.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	level := func() gpio.Level {
		l, _ := drv.ReadPin(17)
		return l
	}

	steps := []struct {
		desc string
		do   func() error
		want gpio.Level
	}{
		{"apply torch (inactive)", func() error { return u.Apply(Torch) }, gpio.Low},
		{"activate", u.Activate, gpio.High},
		{"apply off while active", func() error { return u.Apply(Off) }, gpio.Low},
		{"apply torch while active", func() error { return u.Apply(Torch) }, gpio.High},
		{"deactivate", u.Deactivate, gpio.Low},
	}
	for _, s := range steps {
		if err := s.do(); err != nil {
			t.Fatalf("%s: %v", s.desc, err)
		}
		if got := level(); got != s.want {
			t.Errorf("%s: level = %v, want %v", s.desc, got, s.want)
		}
	}
}

func TestGPIOBackend_ActiveLow(t *testing.T) {
	drv := gpio.NewMockDriver()
	b := NewGPIOBackend(drv, 5, true, NewModeSet(Torch))
	u, err := b.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if l, _ := drv.ReadPin(5); l != gpio.High {
		t.Errorf("idle level = %v, want High for active-low wiring", l)
	}
	_ = u.Apply(Torch)
	_ = u.Activate()
	if l, _ := drv.ReadPin(5); l != gpio.Low {
		t.Errorf("lit level = %v, want Low for active-low wiring", l)
	}
	if err := u.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l, _ := drv.ReadPin(5); l != gpio.High {
		t.Errorf("level after close = %v, want High (off)", l)
	}
}

func TestGPIOBackend_ExclusiveHold(t *testing.T) {
	b := NewGPIOBackend(gpio.NewMockDriver(), 17, false, NewModeSet(Torch))
	u, err := b.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := b.Open(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("second Open err = %v, want ErrUnavailable", err)
	}
	_ = u.Close()
	if _, err := b.Open(); err != nil {
		t.Errorf("Open after Close: %v", err)
	}
}

func TestGPIOBackend_PermissionError(t *testing.T) {
	drv := &failingDriver{err: &fs.PathError{Op: "open", Path: "/dev/gpiochip0", Err: fs.ErrPermission}}
	b := NewGPIOBackend(drv, 17, false, NewModeSet(Torch))
	if _, err := b.Open(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}

	drv.err = errors.New("device busy")
	if _, err := b.Open(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestGPIOBackend_HasFlash(t *testing.T) {
	if NewGPIOBackend(nil, 17, false, 0).HasFlash() {
		t.Error("backend without driver should report no flash")
	}
	if !NewGPIOBackend(gpio.NewMockDriver(), 0, false, 0).HasFlash() {
		t.Error("line offset 0 is valid on a character device")
	}
}
