package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cjeanneret/TorchGo/internal/config"
	"github.com/cjeanneret/TorchGo/internal/hw/flash"
	"github.com/cjeanneret/TorchGo/internal/lifecycle"
	"github.com/cjeanneret/TorchGo/internal/messages"
)

// ---------- webPortFlag ----------

func TestWebPortFlag_EmptyString(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if err := w.Set(""); err != nil {
		t.Fatalf("Set(\"\") error: %v", err)
	}
	if w.port() != 8080 {
		t.Errorf("expected default port 8080, got %d", w.port())
	}
}

func TestWebPortFlag_ValidPorts(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"8080", 8080},
		{"1", 1},
		{"65535", 65535},
		{"3000", 3000},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(tc.input); err != nil {
				t.Fatalf("Set(%q) error: %v", tc.input, err)
			}
			if w.port() != tc.want {
				t.Errorf("port() = %d, want %d", w.port(), tc.want)
			}
		})
	}
}

func TestWebPortFlag_InvalidPorts(t *testing.T) {
	cases := []string{"0", "65536", "-1", "abc", "8080.5"}
	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(input); err == nil {
				t.Errorf("Set(%q) should fail, got nil", input)
			}
		})
	}
}

func TestWebPortFlag_String(t *testing.T) {
	w := &webPortFlag{val: 0}
	if s := w.String(); s != "0" {
		t.Errorf("String() = %q, want \"0\"", s)
	}
	w.val = 9090
	if s := w.String(); s != "9090" {
		t.Errorf("String() = %q, want \"9090\"", s)
	}
}

// ---------- applyOverrides ----------

func newTestConfig() *config.Config {
	return &config.Config{
		Flash: config.FlashConfig{
			Backend: config.BackendGPIO,
			Driver:  "mock",
			Pin:     17,
			Modes:   []string{"torch"},
		},
		Web:      config.WebConfig{Port: 8080},
		Defaults: config.DefaultsConfig{Locale: "en", DebugLevel: 2},
	}
}

func TestApplyOverrides_NonZero(t *testing.T) {
	cfg := newTestConfig()
	applyOverrides(cfg, options{webPort: 9090, strobe: true, locale: "ru"})

	if cfg.Web.Port != 9090 {
		t.Errorf("web.port = %d, want 9090", cfg.Web.Port)
	}
	if !cfg.Defaults.StrobeEnabled {
		t.Error("strobe_enabled should be set")
	}
	if cfg.Defaults.Locale != "ru" {
		t.Errorf("locale = %q, want ru", cfg.Defaults.Locale)
	}
}

func TestApplyOverrides_ZeroLeavesUnchanged(t *testing.T) {
	cfg := newTestConfig()
	cfg.Defaults.StrobeEnabled = true
	applyOverrides(cfg, options{})

	if cfg.Web.Port != 8080 {
		t.Errorf("web.port = %d, want 8080", cfg.Web.Port)
	}
	if !cfg.Defaults.StrobeEnabled {
		t.Error("strobe_enabled from config must not be cleared")
	}
	if cfg.Defaults.Locale != "en" {
		t.Errorf("locale = %q, want en", cfg.Defaults.Locale)
	}
}

// ---------- resolveLocale ----------

func TestResolveLocale(t *testing.T) {
	cases := []struct {
		name       string
		candidates []string
		want       string
	}{
		{"config_wins", []string{"ru", "", "en_US.UTF-8"}, "ru"},
		{"lc_all", []string{"", "ru_RU.UTF-8", "en_US.UTF-8"}, "ru_RU.UTF-8"},
		{"lang", []string{"", "", "en_GB.UTF-8"}, "en_GB.UTF-8"},
		{"posix_skipped", []string{"", "C", "POSIX"}, ""},
		{"none", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveLocale(tc.candidates...); got != tc.want {
				t.Errorf("resolveLocale(%v) = %q, want %q", tc.candidates, got, tc.want)
			}
		})
	}
}

// ---------- newHardware ----------

func TestNewHardware_MockGPIO(t *testing.T) {
	hw, err := newHardware(newTestConfig())
	if err != nil {
		t.Fatalf("newHardware: %v", err)
	}
	defer hw.close()

	if !hw.backend.HasFlash() {
		t.Error("mock GPIO backend should report a flash")
	}
	if _, ok := hw.gate.(lifecycle.AllowAll); !ok {
		t.Errorf("gate = %T, want AllowAll", hw.gate)
	}
	if !hw.modes.Has(flash.Torch) {
		t.Errorf("modes = %v, want torch", hw.modes)
	}
}

func TestNewHardware_UnknownDriverHasNoFlash(t *testing.T) {
	cfg := newTestConfig()
	cfg.Flash.Driver = "spi"

	hw, err := newHardware(cfg)
	if err != nil {
		t.Fatalf("newHardware: %v", err)
	}
	defer hw.close()
	if hw.backend.HasFlash() {
		t.Error("backend without a driver must not report a flash")
	}

	_, err = lifecycle.New(hw.backend, hw.gate, lifecycle.Options{})
	if err == nil {
		t.Error("capability check should fail")
	}
}

func TestNewHardware_Sysfs(t *testing.T) {
	root := t.TempDir()
	led := filepath.Join(root, "flash0")
	if err := os.Mkdir(led, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(led, "brightness"), []byte("0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := newTestConfig()
	cfg.Flash.Backend = config.BackendSysfs
	cfg.Flash.SysfsRoot = root
	cfg.Flash.LEDName = "flash0"

	hw, err := newHardware(cfg)
	if err != nil {
		t.Fatalf("newHardware: %v", err)
	}
	if !hw.backend.HasFlash() {
		t.Error("sysfs backend should report a flash")
	}
	gate, ok := hw.gate.(lifecycle.FileAccessGate)
	if !ok || len(gate.Paths) == 0 {
		t.Errorf("gate = %#v, want FileAccessGate over LED attributes", hw.gate)
	}
}

func TestGateFor(t *testing.T) {
	if g, ok := gateFor("cdev", "gpiochip2").(lifecycle.FileAccessGate); !ok || g.Paths[0] != "/dev/gpiochip2" {
		t.Errorf("cdev gate = %#v", g)
	}
	if g, ok := gateFor("rpio", "").(lifecycle.FileAccessGate); !ok || g.Paths[0] != "/dev/gpiomem" {
		t.Errorf("rpio gate = %#v", g)
	}
	if _, ok := gateFor("mock", "").(lifecycle.AllowAll); !ok {
		t.Error("mock gate should allow all")
	}
}

// ---------- eventHub ----------

func TestEventHub_FansOut(t *testing.T) {
	hub := &eventHub{}
	var a, b []lifecycle.EventType
	hub.add(func(e lifecycle.Event) { a = append(a, e.Type) })
	hub.add(func(e lifecycle.Event) { b = append(b, e.Type) })

	hub.publish(lifecycle.Event{Type: lifecycle.EventState, State: "off"})
	hub.publish(lifecycle.Event{Type: lifecycle.EventDialog})

	if len(a) != 2 || len(b) != 2 {
		t.Errorf("sinks received %d and %d events, want 2 each", len(a), len(b))
	}
}

func TestPrintDialog(t *testing.T) {
	var buf bytes.Buffer
	d := lifecycle.IncompatibleDialog(messages.New("en"))
	printDialog(&buf, d)

	out := buf.String()
	for _, want := range []string{d.Title, d.Message, d.Action} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

// ---------- run ----------

func TestRun_RejectsConfigOutsideConfigsDir(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := run(ctx, cancel, options{cfgPath: "/etc/passwd"}); err == nil {
		t.Error("expected error for invalid config path")
	}
}
