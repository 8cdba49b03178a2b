package torch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/TorchGo/internal/debug"
	"github.com/cjeanneret/TorchGo/internal/hw/flash"
)

// StrobePeriod is the fixed time the LED stays lit in each strobe cycle.
const StrobePeriod = 100 * time.Millisecond

// State is the controller state.
type State int32

const (
	Off State = iota
	OnSteady
	OnStrobing
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case OnSteady:
		return "on-steady"
	case OnStrobing:
		return "on-strobing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// IsOn reports whether the light is in an on state.
func (s State) IsOn() bool { return s != Off }

// Device is the part of a flash device the controller drives.
// *flash.Device implements it.
type Device interface {
	ResolveMode() (flash.Mode, error)
	SetMode(m flash.Mode) error
	StartActive() error
	StopActive() error
}

// Options configures a Controller.
type Options struct {
	// StrobeEnabled is the initial strobe switch position.
	StrobeEnabled bool
	// OnChange is called after every state change, possibly from the
	// strobe goroutine. It must not call back into the controller.
	OnChange func(State)
	// OnError receives failures of the strobe goroutine, after the
	// controller has already fallen back to Off.
	OnError func(error)
}

// Controller is the on/off/strobe state machine for one acquired device.
// Transitions are serialized; the strobe loop runs in its own goroutine and
// polls the atomic state every half-cycle.
type Controller struct {
	dev Device

	mu       sync.Mutex // serializes transitions
	state    atomic.Int32
	strobe   atomic.Bool
	resolved flash.Mode
	stop     chan struct{}
	done     chan struct{}

	period   time.Duration
	onChange func(State)
	onError  func(error)
}

// NewController creates a controller in the Off state.
func NewController(dev Device, opts Options) *Controller {
	c := &Controller{
		dev:      dev,
		period:   StrobePeriod,
		onChange: opts.OnChange,
		onError:  opts.OnError,
	}
	c.strobe.Store(opts.StrobeEnabled)
	return c
}

// State returns the current state.
func (c *Controller) State() State { return State(c.state.Load()) }

// StrobeEnabled returns the strobe switch position.
func (c *Controller) StrobeEnabled() bool { return c.strobe.Load() }

// Mode returns the mode used for the current on-session, Off when off.
func (c *Controller) Mode() flash.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == Off {
		return flash.Off
	}
	return c.resolved
}

// Toggle turns the light on (steady or strobing, depending on the switch)
// when Off, and off otherwise. A device without a usable mode stays Off
// and no mode is ever applied to it.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == Off {
		return c.turnOn()
	}
	return c.turnOff()
}

// SetStrobeEnabled updates the strobe switch. Flipping it while the light
// is on always turns the light off; the new position applies to the next
// Toggle.
func (c *Controller) SetStrobeEnabled(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.strobe.Swap(enabled) == enabled {
		return nil
	}
	debug.Live("Torch: strobe switch -> %v", enabled)
	if c.State().IsOn() {
		return c.turnOff()
	}
	return nil
}

// ForceOff turns the light off if it is on and waits for the strobe
// goroutine to exit.
func (c *Controller) ForceOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == Off {
		c.stopWorker()
		return nil
	}
	return c.turnOff()
}

func (c *Controller) turnOn() error {
	// A worker that failed on its own may still be resetting the device.
	c.stopWorker()

	mode, err := c.dev.ResolveMode()
	if errors.Is(err, flash.ErrUnsupported) {
		debug.Live("Torch: no usable flash mode, toggle disabled until next acquisition")
		return nil
	}
	if err != nil {
		return fmt.Errorf("turn on: %w", err)
	}

	if err := c.dev.SetMode(mode); err != nil {
		c.resetDevice()
		return fmt.Errorf("turn on: %w", err)
	}
	if err := c.dev.StartActive(); err != nil {
		c.resetDevice()
		return fmt.Errorf("turn on: %w", err)
	}
	c.resolved = mode

	if c.strobe.Load() {
		c.setState(OnStrobing)
		c.startWorker(mode)
		return nil
	}
	c.setState(OnSteady)
	return nil
}

func (c *Controller) turnOff() error {
	c.setState(Off)
	c.stopWorker()

	var errs []error
	if err := c.dev.StopActive(); err != nil {
		errs = append(errs, err)
	}
	if err := c.dev.SetMode(flash.Off); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("turn off: %w", err)
	}
	return nil
}

// resetDevice makes a best-effort attempt to leave the LED dark.
func (c *Controller) resetDevice() {
	_ = c.dev.StopActive()
	_ = c.dev.SetMode(flash.Off)
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev == s {
		return
	}
	debug.Transition(prev.String(), s.String())
	if c.onChange != nil {
		c.onChange(s)
	}
}

func (c *Controller) startWorker(mode flash.Mode) {
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.strobeLoop(mode, c.stop, c.done)
}

// stopWorker wakes the strobe goroutine, if any, and waits for it to exit.
// The state must already have left OnStrobing.
func (c *Controller) stopWorker() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}

// strobeLoop keeps the LED lit for one period, then forces it off and
// relights it, until the state leaves OnStrobing. The first lit half-cycle
// is started by turnOn.
func (c *Controller) strobeLoop(mode flash.Mode, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	debug.Verbose("Torch: strobe started (mode=%v, period=%v)", mode, c.period)

	timer := time.NewTimer(c.period)
	defer timer.Stop()
	cycles := 0
	for {
		select {
		case <-stop:
			debug.Verbose("Torch: strobe stopped after %d cycles", cycles)
			return
		case <-timer.C:
		}

		if c.State() != OnStrobing {
			return
		}
		if err := c.pulse(flash.Off); err != nil {
			c.fail(err)
			return
		}
		if c.State() != OnStrobing {
			return
		}
		if err := c.pulse(mode); err != nil {
			c.fail(err)
			return
		}
		cycles++
		timer.Reset(c.period)
	}
}

// pulse applies m and keeps the activation side-channel engaged, so Off
// here means "still active, flash forced off".
func (c *Controller) pulse(m flash.Mode) error {
	if err := c.dev.SetMode(m); err != nil {
		return err
	}
	return c.dev.StartActive()
}

// fail moves a strobing controller to Off from the strobe goroutine. If the
// foreground already turned the light off there is nothing to report.
func (c *Controller) fail(err error) {
	if !c.state.CompareAndSwap(int32(OnStrobing), int32(Off)) {
		return
	}
	debug.Transition(OnStrobing.String(), Off.String())
	c.resetDevice()
	if c.onChange != nil {
		c.onChange(Off)
	}
	err = fmt.Errorf("strobe: %w", err)
	debug.Error(err)
	if c.onError != nil {
		c.onError(err)
	}
}
