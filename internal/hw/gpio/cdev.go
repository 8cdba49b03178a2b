package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cjeanneret/TorchGo/internal/debug"
	"github.com/warthog618/go-gpiocdev"
)

// CdevDriver drives lines through the Linux GPIO character device
// (/dev/gpiochipN). Pins are line offsets on the chip.
type CdevDriver struct {
	chip  string
	mu    sync.Mutex
	lines map[int]*gpiocdev.Line
}

// NewCdevDriver creates a driver for the named chip, "gpiochip0" if empty.
// Lines are requested lazily on first use.
func NewCdevDriver(chip string) (*CdevDriver, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	debug.Info("Initializing GPIO character device driver (%s)", chip)
	return &CdevDriver{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

func (c *CdevDriver) SetupPin(pin int, mode PinMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setup(pin, mode)
}

func (c *CdevDriver) setup(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	if l, ok := c.lines[pin]; ok {
		switch mode {
		case Input:
			return l.Reconfigure(gpiocdev.AsInput)
		case Output:
			return l.Reconfigure(gpiocdev.AsOutput(0))
		default:
			return fmt.Errorf("unknown pin mode: %d", mode)
		}
	}

	var opt gpiocdev.LineReqOption
	switch mode {
	case Input:
		opt = gpiocdev.AsInput
	case Output:
		opt = gpiocdev.AsOutput(0)
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	l, err := gpiocdev.RequestLine(c.chip, pin, opt, gpiocdev.WithConsumer("torchgo"))
	if err != nil {
		return fmt.Errorf("request line %s:%d: %w", c.chip, pin, err)
	}
	c.lines[pin] = l
	return nil
}

func (c *CdevDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lines[pin]
	if !ok {
		if err := c.setup(pin, Output); err != nil {
			return err
		}
		l = c.lines[pin]
	}
	v := 0
	if level == High {
		v = 1
	}
	return l.SetValue(v)
}

func (c *CdevDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lines[pin]
	if !ok {
		if err := c.setup(pin, Input); err != nil {
			return Low, err
		}
		l = c.lines[pin]
	}
	v, err := l.Value()
	if err != nil {
		return Low, err
	}
	return Level(v != 0), nil
}

// Close reverts every requested line to input and releases it.
func (c *CdevDriver) Close() error {
	debug.Trace("GPIO Close (cdev %s)", c.chip)

	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for pin, l := range c.lines {
		debug.Verbose("Releasing line %s:%d", c.chip, pin)
		_ = l.Reconfigure(gpiocdev.AsInput)
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.lines = make(map[int]*gpiocdev.Line)
	return errors.Join(errs...)
}
