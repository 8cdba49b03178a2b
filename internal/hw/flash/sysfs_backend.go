package flash

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cjeanneret/TorchGo/internal/debug"
	"golang.org/x/sys/unix"
)

// DefaultLEDRoot is where the kernel exposes LED class devices.
const DefaultLEDRoot = "/sys/class/leds"

// SysfsBackend drives a kernel LED class device such as
// /sys/class/leds/white:flash. Torch writes max_brightness to brightness.
// On (flash) is offered when the device exposes flash_strobe.
// The hold is an exclusive flock(2) on the brightness attribute, so a second
// TorchGo process (or any cooperating tool) cannot take the same LED.
type SysfsBackend struct {
	dir string

	mu   sync.Mutex
	held bool
}

// NewSysfsBackend creates a backend for LED name under root
// (DefaultLEDRoot when empty).
func NewSysfsBackend(root, name string) *SysfsBackend {
	if root == "" {
		root = DefaultLEDRoot
	}
	return &SysfsBackend{dir: filepath.Join(root, name)}
}

func (b *SysfsBackend) Name() string { return "sysfs" }

// Dir returns the LED class directory.
func (b *SysfsBackend) Dir() string { return b.dir }

// Paths returns the attribute files a writer needs access to.
func (b *SysfsBackend) Paths() []string {
	paths := []string{filepath.Join(b.dir, "brightness")}
	if fileExists(filepath.Join(b.dir, "flash_strobe")) {
		paths = append(paths, filepath.Join(b.dir, "flash_strobe"))
	}
	return paths
}

func (b *SysfsBackend) HasFlash() bool {
	return fileExists(filepath.Join(b.dir, "brightness"))
}

func (b *SysfsBackend) Open() (Unit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.held {
		return nil, fmt.Errorf("led %s already held: %w", b.dir, ErrUnavailable)
	}

	path := filepath.Join(b.dir, "brightness")
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, classifyOpenErr("open "+path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("led %s locked by another process: %w", b.dir, ErrUnavailable)
		}
		return nil, classifyOpenErr("lock "+path, err)
	}

	u := &sysfsUnit{
		b:          b,
		brightness: f,
		max:        readMaxBrightness(b.dir),
		modes:      NewModeSet(Torch),
		mode:       Off,
	}
	if fileExists(filepath.Join(b.dir, "flash_strobe")) {
		u.modes = u.modes.With(On)
	}
	if err := u.drive(); err != nil {
		u.unlock()
		return nil, classifyOpenErr("write "+path, err)
	}
	b.held = true
	return u, nil
}

type sysfsUnit struct {
	b          *SysfsBackend
	brightness *os.File // held open for the lock
	max        int
	modes      ModeSet
	mode       Mode
	active     bool
}

func (u *sysfsUnit) SupportedModes() ModeSet { return u.modes }

func (u *sysfsUnit) Apply(m Mode) error {
	u.mode = m
	return u.drive()
}

func (u *sysfsUnit) Activate() error {
	u.active = true
	if err := u.drive(); err != nil {
		return err
	}
	if u.mode == On {
		return writeAttr(filepath.Join(u.b.dir, "flash_strobe"), "1")
	}
	return nil
}

func (u *sysfsUnit) Deactivate() error {
	u.active = false
	return u.drive()
}

func (u *sysfsUnit) drive() error {
	v := 0
	if u.active && u.mode != Off {
		v = u.max
	}
	return writeAttr(u.brightness.Name(), strconv.Itoa(v))
}

func (u *sysfsUnit) Close() error {
	u.active = false
	u.mode = Off
	err := u.drive()
	if cerr := u.unlock(); err == nil {
		err = cerr
	}
	u.b.mu.Lock()
	u.b.held = false
	u.b.mu.Unlock()
	return err
}

func (u *sysfsUnit) unlock() error {
	_ = unix.Flock(int(u.brightness.Fd()), unix.LOCK_UN)
	return u.brightness.Close()
}

func readMaxBrightness(dir string) int {
	data, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return 1
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || v <= 0 {
		return 1
	}
	return v
}

func writeAttr(path, value string) error {
	debug.LED(path, value)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
