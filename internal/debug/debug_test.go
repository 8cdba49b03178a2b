package debug

import (
	"bytes"
	"strings"
	"testing"
)

func withOutput(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(lvl)
	t.Cleanup(func() {
		Init(LevelOff)
	})
	return &buf
}

func TestInit_OffPrintsNothing(t *testing.T) {
	buf := withOutput(t, LevelOff)
	Info("hidden %d", 1)
	Error(nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output at level 0, got %q", buf.String())
	}
}

func TestLevels_Filtering(t *testing.T) {
	buf := withOutput(t, LevelLive)
	Info("info line")
	Transition("off", "on-steady")
	Verbose("verbose line")
	GPIO("WritePin", 17, true)

	got := buf.String()
	for _, want := range []string{"[INFO] info line", "Torch: off -> on-steady"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
	for _, notWant := range []string{"verbose line", "[GPIO]"} {
		if strings.Contains(got, notWant) {
			t.Errorf("output should not contain %q at level 2", notWant)
		}
	}
}

func TestTrace_LEDAndGPIO(t *testing.T) {
	buf := withOutput(t, LevelTrace)
	LED("brightness", "255")
	GPIO("WritePin", 4, false)
	got := buf.String()
	if !strings.Contains(got, "[LED] brightness <- 255") {
		t.Errorf("missing LED trace: %q", got)
	}
	if !strings.Contains(got, "[GPIO] WritePin pin=4 value=false") {
		t.Errorf("missing GPIO trace: %q", got)
	}
}

func TestPrefix(t *testing.T) {
	buf := withOutput(t, LevelInfo)
	Value("Backend", "gpio")
	if !strings.HasPrefix(buf.String(), "[TorchGo] ") {
		t.Errorf("expected [TorchGo] prefix, got %q", buf.String())
	}
}

func TestFmt_EmptyWhenOff(t *testing.T) {
	withOutput(t, LevelOff)
	if s := Fmt("x=%d", 1); s != "" {
		t.Errorf("Fmt = %q, want empty", s)
	}
	Init(LevelInfo)
	if s := Fmt("x=%d", 1); s != "x=1" {
		t.Errorf("Fmt = %q, want x=1", s)
	}
}
