// Package console provides the interactive command-line interface for TorchGo.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/cjeanneret/TorchGo/internal/lifecycle"
)

// Controls is what the console drives. *lifecycle.Binder implements it.
type Controls interface {
	Toggle() error
	SetStrobeEnabled(enabled bool) error
	OnForeground(ctx context.Context) error
	OnBackground() error
	Snapshot() lifecycle.Snapshot
}

// Console handles interactive mode.
type Console struct {
	ctl Controls
	rl  *readline.Instance
	out io.Writer
}

// New creates a console bound to the terminal.
func New(ctl Controls) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "torch> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{ctl: ctl, rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// ShowEvent prints dialogs raised by the lifecycle binder.
func (c *Console) ShowEvent(e lifecycle.Event) {
	if e.Type != lifecycle.EventDialog || e.Dialog == nil {
		return
	}
	fmt.Fprintf(c.out, "\n[%s] %s\n  %s\n", e.Dialog.Title, e.Dialog.Message, e.Dialog.Action)
}

// Run reads commands until quit, EOF or ctx is done. cancel is called on exit
// so the rest of the program shuts down with the console.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
		if c.execute(ctx, line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// execute runs one command line and reports whether the console should quit.
func (c *Console) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "toggle", "t":
		c.report(c.ctl.Toggle())
	case "strobe", "s":
		c.cmdStrobe(args)
	case "fg", "foreground":
		fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		c.report(c.ctl.OnForeground(fctx))
	case "bg", "background":
		c.report(c.ctl.OnBackground())
	case "status":
		c.printStatus()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) cmdStrobe(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: strobe on|off")
		return
	}
	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on", "1", "true":
		enabled = true
	case "off", "0", "false":
	default:
		fmt.Fprintf(c.out, "Invalid strobe value: %s (want on or off)\n", args[0])
		return
	}
	c.report(c.ctl.SetStrobeEnabled(enabled))
}

func (c *Console) report(err error) {
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.printStatus()
}

func (c *Console) printStatus() {
	s := c.ctl.Snapshot()
	strobe := "off"
	if s.StrobeEnabled {
		strobe = "on"
	}
	if !s.Held {
		fmt.Fprintf(c.out, "Torch: %s (flash released) strobe: %s\n", s.State, strobe)
		return
	}
	fmt.Fprintf(c.out, "Torch: %s mode: %s strobe: %s backend: %s\n", s.State, s.Mode, strobe, s.Backend)
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
TorchGo Commands:
  toggle, t          - Switch the light on or off
  strobe on|off      - Enable or disable strobe (turns the light off if on)
  fg                 - Acquire the flash (foreground)
  bg                 - Release the flash (background)
  status             - Show torch status
  help               - Show this help
  quit               - Exit`)
}
