// Package power maps system suspend/resume, announced by systemd-logind on
// the system D-Bus, to background/foreground transitions.
package power

import (
	"context"
	"fmt"

	"github.com/cjeanneret/TorchGo/internal/debug"
	"github.com/godbus/dbus/v5"
)

const (
	login1Path   = "/org/freedesktop/login1"
	managerIface = "org.freedesktop.login1.Manager"
	sleepMember  = "PrepareForSleep"
	sleepSignal  = managerIface + "." + sleepMember
)

// Lifecycle receives the transitions. *lifecycle.Binder implements it.
type Lifecycle interface {
	OnForeground(ctx context.Context) error
	OnBackground() error
}

// Watcher listens for logind PrepareForSleep signals.
type Watcher struct {
	conn *dbus.Conn
	lc   Lifecycle
}

// NewWatcher connects to the system bus and subscribes to sleep signals.
func NewWatcher(lc Lifecycle) (*Watcher, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(login1Path),
		dbus.WithMatchInterface(managerIface),
		dbus.WithMatchMember(sleepMember),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", sleepSignal, err)
	}
	return &Watcher{conn: conn, lc: lc}, nil
}

// Run dispatches signals until ctx is done or the connection closes.
func (w *Watcher) Run(ctx context.Context) error {
	ch := make(chan *dbus.Signal, 8)
	w.conn.Signal(ch)
	defer w.conn.RemoveSignal(ch)

	debug.Info("Watching %s on the system bus", sleepSignal)
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			w.handleSignal(ctx, sig)
		}
	}
}

// handleSignal: PrepareForSleep(true) precedes suspend, (false) follows resume.
func (w *Watcher) handleSignal(ctx context.Context, sig *dbus.Signal) {
	if sig == nil || sig.Name != sleepSignal || len(sig.Body) < 1 {
		return
	}
	start, ok := sig.Body[0].(bool)
	if !ok {
		return
	}
	if start {
		debug.Live("System going to sleep, releasing flash")
		if err := w.lc.OnBackground(); err != nil {
			debug.Error(err)
		}
		return
	}
	debug.Live("System resumed, acquiring flash")
	if err := w.lc.OnForeground(ctx); err != nil {
		debug.Error(err)
	}
}

// Close closes the bus connection.
func (w *Watcher) Close() error {
	return w.conn.Close()
}
