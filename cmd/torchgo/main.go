package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/cjeanneret/TorchGo/internal/config"
	"github.com/cjeanneret/TorchGo/internal/console"
	"github.com/cjeanneret/TorchGo/internal/debug"
	"github.com/cjeanneret/TorchGo/internal/discovery"
	"github.com/cjeanneret/TorchGo/internal/hw/flash"
	"github.com/cjeanneret/TorchGo/internal/hw/gpio"
	"github.com/cjeanneret/TorchGo/internal/lifecycle"
	"github.com/cjeanneret/TorchGo/internal/messages"
	"github.com/cjeanneret/TorchGo/internal/power"
	"github.com/cjeanneret/TorchGo/internal/web"
)

// errIncompatible ends the program after the incompatibility dialog.
var errIncompatible = errors.New("device has no flash")

// options holds the parsed command line.
type options struct {
	cfgPath string
	webPort int
	console bool
	strobe  bool
	locale  string
}

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	consoleMode := flag.Bool("console", false, "start the interactive console (default when the web UI is off)")
	strobe := flag.Bool("strobe", false, "start with the strobe switch enabled")
	locale := flag.String("locale", "", "dialog language, e.g. en or ru (default: config, then $LANG)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, cancel, options{
		cfgPath: *cfgPath,
		webPort: webPort.port(),
		console: *consoleMode,
		strobe:  *strobe,
		locale:  *locale,
	})
	if errors.Is(err, errIncompatible) {
		cancel()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, opts options) error {
	if err := config.ValidateConfigPath(opts.cfgPath); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	applyOverrides(cfg, opts)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", opts.cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	msgs := messages.New(resolveLocale(cfg.Defaults.Locale, os.Getenv("LC_ALL"), os.Getenv("LANG")))
	debug.Value("Locale", msgs.Tag())

	debug.Step(1, "Opening flash backend")
	hw, err := newHardware(cfg)
	if err != nil {
		return err
	}
	defer hw.close()
	debug.PrintStruct("Flash config", cfg.Flash)

	port := cfg.Web.Port
	if !opts.console && port == 0 {
		opts.console = true
	}

	hub := &eventHub{}
	hub.add(logEvent)
	var broadcaster *web.StatusBroadcaster
	if port > 0 {
		broadcaster = web.NewStatusBroadcaster()
		hub.add(broadcaster.Publish)
	}

	debug.Step(2, "Checking flash capability")
	binder, err := lifecycle.New(hw.backend, hw.gate, lifecycle.Options{
		StrobeEnabled: cfg.Defaults.StrobeEnabled,
		Messages:      msgs,
		Sink:          hub.publish,
	})
	if errors.Is(err, flash.ErrHardwareAbsent) {
		d := lifecycle.IncompatibleDialog(msgs)
		printDialog(os.Stderr, d)
		if port > 0 {
			// Serve the dialog until the user closes the app.
			srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, nil, &d)
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("web server: %w", err)
			}
		}
		return errIncompatible
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := binder.Close(); err != nil {
			log.Printf("releasing flash failed: %v", err)
		}
	}()

	debug.Step(3, "Acquiring flash")
	if err := binder.OnForeground(ctx); err != nil {
		// Already shown as a dialog; the user may retry with fg.
		log.Printf("acquire flash: %v", err)
	}

	if cfg.Defaults.WatchSleep {
		w, err := power.NewWatcher(binder)
		if err != nil {
			log.Printf("sleep watcher disabled: %v", err)
		} else {
			defer w.Close()
			go w.Run(ctx)
		}
	}

	var out io.Writer = os.Stdout
	if opts.console {
		con, err := console.New(binder)
		if err != nil {
			return err
		}
		hub.add(con.ShowEvent)
		out = con.Stdout()
		go con.Run(ctx, cancel)
	}

	if port == 0 {
		debug.SetOutput(out)
		<-ctx.Done()
		return nil
	}

	debug.SetOutput(io.MultiWriter(out, web.BroadcastWriter(broadcaster)))
	if cfg.Web.MDNS {
		adv := discovery.NewAdvertiser()
		snap := binder.Snapshot()
		if err := adv.Advertise(discovery.Info{
			Instance: cfg.Web.Instance,
			Port:     port,
			Backend:  snap.Backend,
			Modes:    hw.modes.String(),
		}); err != nil {
			log.Printf("mDNS advertisement disabled: %v", err)
		}
		defer adv.Stop()
	}

	srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, binder, nil)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// applyOverrides mutates cfg with the command line. Only set values apply.
func applyOverrides(cfg *config.Config, opts options) {
	if opts.webPort > 0 {
		cfg.Web.Port = opts.webPort
	}
	if opts.strobe {
		cfg.Defaults.StrobeEnabled = true
	}
	if opts.locale != "" {
		cfg.Defaults.Locale = opts.locale
	}
}

// resolveLocale returns the first non-empty candidate.
func resolveLocale(candidates ...string) string {
	for _, c := range candidates {
		if c != "" && c != "C" && c != "POSIX" {
			return c
		}
	}
	return ""
}

// hardware bundles the flash backend with what it needs torn down.
type hardware struct {
	backend flash.Backend
	gate    lifecycle.PermissionGate
	modes   flash.ModeSet
	drv     gpio.Driver
}

func (h *hardware) close() {
	if h.drv == nil {
		return
	}
	if err := h.drv.Close(); err != nil {
		log.Printf("closing GPIO driver failed: %v", err)
	}
}

// newHardware builds the backend selected by cfg. A GPIO driver that cannot
// be opened yields a backend without flash, so the capability check fails
// with the incompatibility dialog instead of a crash.
func newHardware(cfg *config.Config) (*hardware, error) {
	switch cfg.Flash.Backend {
	case config.BackendSysfs:
		b := flash.NewSysfsBackend(cfg.Flash.SysfsRoot, cfg.Flash.LEDName)
		debug.Value("LED directory", b.Dir())
		return &hardware{
			backend: b,
			gate:    lifecycle.FileAccessGate{Paths: b.Paths()},
			modes:   flash.NewModeSet(flash.Torch),
		}, nil

	case config.BackendGPIO:
		modes, err := cfg.ModeSet()
		if err != nil {
			return nil, err
		}
		h := &hardware{modes: modes, gate: gateFor(cfg.Flash.Driver, cfg.Flash.Chip)}
		drv, err := gpio.NewDriver(cfg.Flash.Driver, cfg.Flash.Chip)
		if err != nil {
			debug.Error(fmt.Errorf("init GPIO failed: %w", err))
			h.backend = flash.NewGPIOBackend(nil, cfg.Flash.Pin, cfg.Flash.ActiveLow, modes)
			return h, nil
		}
		h.drv = drv
		h.backend = flash.NewGPIOBackend(drv, cfg.Flash.Pin, cfg.Flash.ActiveLow, modes)
		return h, nil

	default:
		return nil, fmt.Errorf("unsupported flash backend: %s", cfg.Flash.Backend)
	}
}

// gateFor returns the permission gate guarding the device node of a driver.
func gateFor(driver, chip string) lifecycle.PermissionGate {
	switch driver {
	case gpio.DriverRPi:
		return lifecycle.FileAccessGate{Paths: []string{"/dev/gpiomem"}}
	case gpio.DriverCdev:
		if chip == "" {
			chip = "gpiochip0"
		}
		if !filepath.IsAbs(chip) {
			chip = filepath.Join("/dev", chip)
		}
		return lifecycle.FileAccessGate{Paths: []string{chip}}
	default:
		return lifecycle.AllowAll{}
	}
}

// eventHub fans binder events out to every registered sink.
type eventHub struct {
	mu    sync.RWMutex
	sinks []lifecycle.Sink
}

func (h *eventHub) add(s lifecycle.Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, s)
}

func (h *eventHub) publish(e lifecycle.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sinks {
		s(e)
	}
}

func logEvent(e lifecycle.Event) {
	if e.Type == lifecycle.EventDialog && e.Dialog != nil {
		debug.Live("Dialog %s: %s", e.Dialog.Kind, e.Dialog.Message)
	}
}

func printDialog(w io.Writer, d lifecycle.Dialog) {
	fmt.Fprintf(w, "%s\n%s\n[%s]\n", d.Title, d.Message, d.Action)
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
