package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cjeanneret/TorchGo/internal/debug"
	"github.com/cjeanneret/TorchGo/internal/hw/flash"
	"github.com/cjeanneret/TorchGo/internal/logic/torch"
	"github.com/cjeanneret/TorchGo/internal/messages"
)

// EventType distinguishes events sent to the Sink.
type EventType string

const (
	EventState  EventType = "state"
	EventDialog EventType = "dialog"
)

// Event is emitted on every state change and every user-facing failure.
type Event struct {
	Type    EventType `json:"type"`
	State   string    `json:"state,omitempty"`
	Session string    `json:"session,omitempty"`
	Dialog  *Dialog   `json:"dialog,omitempty"`
}

// Sink receives events. It may be called from the strobe goroutine and
// must not block or call back into the Binder.
type Sink func(Event)

// Options configures a Binder.
type Options struct {
	StrobeEnabled bool
	Messages      *messages.Catalog
	Sink          Sink
}

// Snapshot is a point-in-time view of the binder.
type Snapshot struct {
	Held          bool   `json:"held"`
	Session       string `json:"session,omitempty"`
	Backend       string `json:"backend"`
	State         string `json:"state"`
	Mode          string `json:"mode"`
	StrobeEnabled bool   `json:"strobe_enabled"`
	Usable        bool   `json:"usable"`
	LastError     string `json:"last_error,omitempty"`
}

// session is one acquisition: the device and the controller built on it.
type session struct {
	dev  *flash.Device
	ctrl *torch.Controller
}

// Binder ties a flash controller to foreground/background transitions.
// The controller only exists while a device is held.
type Binder struct {
	backend flash.Backend
	gate    PermissionGate
	msgs    *messages.Catalog
	sink    Sink

	mu     sync.Mutex
	strobe bool
	sess   *session // nil while no device is held

	errMu   sync.Mutex
	lastErr error
}

// New runs the capability check and builds a binder. It fails with
// flash.ErrHardwareAbsent when the backend has no flash; the caller then
// shows IncompatibleDialog.
func New(backend flash.Backend, gate PermissionGate, opts Options) (*Binder, error) {
	if !backend.HasFlash() {
		return nil, fmt.Errorf("%s backend: %w", backend.Name(), flash.ErrHardwareAbsent)
	}
	if gate == nil {
		gate = AllowAll{}
	}
	msgs := opts.Messages
	if msgs == nil {
		msgs = messages.New("")
	}
	return &Binder{
		backend: backend,
		gate:    gate,
		msgs:    msgs,
		sink:    opts.Sink,
		strobe:  opts.StrobeEnabled,
	}, nil
}

// OnForeground acquires the device if none is held. Permission is checked
// first and requested once if missing. Failures are reported as dialogs and
// returned; the binder stays without a device.
func (b *Binder) OnForeground(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess != nil {
		return nil
	}

	if err := b.gate.Check(); err != nil {
		if !errors.Is(err, flash.ErrPermissionDenied) {
			return b.report(err)
		}
		if err := b.gate.Request(ctx); err != nil {
			return b.report(err)
		}
	}

	dev, err := flash.Acquire(b.backend)
	if err != nil {
		return b.report(err)
	}
	sessID := dev.Session()
	ctrl := torch.NewController(dev, torch.Options{
		StrobeEnabled: b.strobe,
		OnChange: func(s torch.State) {
			b.emit(Event{Type: EventState, State: s.String(), Session: sessID})
		},
		OnError: func(err error) {
			b.report(err)
		},
	})
	b.sess = &session{dev: dev, ctrl: ctrl}
	b.setLastErr(nil)

	debug.Live("Foreground: device %s held", sessID)
	b.emit(Event{Type: EventState, State: torch.Off.String(), Session: sessID})
	return nil
}

// OnBackground turns the light off, releases the device and drops the
// controller. It is safe to call any number of times.
func (b *Binder) OnBackground() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return nil
	}
	sess := b.sess
	b.sess = nil

	offErr := sess.ctrl.ForceOff()
	relErr := sess.dev.Release()
	debug.Live("Background: device %s released", sess.dev.Session())
	b.emit(Event{Type: EventState, State: torch.Off.String()})
	return errors.Join(offErr, relErr)
}

// Toggle flips the light. Without a held device it does nothing.
func (b *Binder) Toggle() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		debug.Live("Toggle ignored: no flash device held")
		return nil
	}
	if err := b.sess.ctrl.Toggle(); err != nil {
		return b.report(err)
	}
	return nil
}

// SetStrobeEnabled records the strobe switch and forwards it to the
// controller if one exists.
func (b *Binder) SetStrobeEnabled(enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.strobe = enabled
	if b.sess == nil {
		return nil
	}
	if err := b.sess.ctrl.SetStrobeEnabled(enabled); err != nil {
		return b.report(err)
	}
	return nil
}

// Snapshot returns the current view.
func (b *Binder) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{
		Backend:       b.backend.Name(),
		State:         torch.Off.String(),
		Mode:          flash.Off.String(),
		StrobeEnabled: b.strobe,
	}
	if b.sess != nil {
		s.Held = true
		s.Session = b.sess.dev.Session()
		s.State = b.sess.ctrl.State().String()
		s.Mode = b.sess.ctrl.Mode().String()
		s.Usable = b.sess.dev.Available()
	}
	if err := b.LastError(); err != nil {
		s.LastError = err.Error()
	}
	return s
}

// LastError returns the most recent reported failure, cleared on a
// successful acquisition.
func (b *Binder) LastError() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.lastErr
}

// Close is OnBackground for shutdown.
func (b *Binder) Close() error {
	return b.OnBackground()
}

// report records err, emits its dialog and returns it unchanged.
// It must not take b.mu: the strobe goroutine calls it while a foreground
// transition may hold b.mu and wait for that goroutine.
func (b *Binder) report(err error) error {
	if err == nil {
		return nil
	}
	b.setLastErr(err)
	debug.Error(err)
	if d, ok := dialogFor(b.msgs, err); ok {
		b.emit(Event{Type: EventDialog, Dialog: &d})
	}
	return err
}

func (b *Binder) setLastErr(err error) {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	b.lastErr = err
}

func (b *Binder) emit(e Event) {
	if b.sink != nil {
		b.sink(e)
	}
}
