// Package monitor is a line-oriented command interpreter fed by keyboard
// events, used to poke at a running kernel.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tickos/hal"

	"github.com/google/shlex"
)

// ErrQuit is returned by Run after the quit command.
var ErrQuit = errors.New("monitor: quit")

// Output receives monitor output lines.
type Output interface {
	WriteLineString(s string)
}

const (
	prompt     = "> "
	maxLine    = 120
	maxHistory = 16
)

// Monitor collects keystrokes into lines and executes them as commands.
type Monitor struct {
	out Output
	reg *registry

	line    []rune
	history []string
	hpos    int
}

// New returns a monitor with the built-in help and quit commands.
func New(out Output) *Monitor {
	m := &Monitor{out: out, reg: newRegistry()}
	_ = m.reg.register(Command{
		Name:    "help",
		Aliases: []string{"?"},
		Usage:   "help [command]",
		Desc:    "list commands",
		Run:     m.help,
	})
	_ = m.reg.register(Command{
		Name:    "quit",
		Aliases: []string{"q", "exit"},
		Usage:   "quit",
		Desc:    "stop the kernel and exit",
		Run:     func(context.Context, []string) error { return ErrQuit },
	})
	return m
}

// Register adds a command.
func (m *Monitor) Register(cmd Command) error {
	return m.reg.register(cmd)
}

// Printf writes one formatted output line.
func (m *Monitor) Printf(format string, args ...any) {
	m.out.WriteLineString(fmt.Sprintf(format, args...))
}

// Exec runs one command line. Command errors are printed; only ErrQuit and
// context errors are returned.
func (m *Monitor) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		m.Printf("parse: %v", err)
		return nil
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := m.reg.resolve(args[0])
	if !ok {
		m.Printf("%s: unknown command (try help)", args[0])
		return nil
	}
	err = cmd.Run(ctx, args[1:])
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQuit), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	m.Printf("%s: %v", cmd.Name, err)
	return nil
}

// Run reads key events until ctx is done, the event channel closes or a
// quit command runs.
func (m *Monitor) Run(ctx context.Context, events <-chan hal.KeyEvent) error {
	m.Printf("monitor ready, type help")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := m.Key(ctx, ev); err != nil {
				return err
			}
		}
	}
}

// Key feeds one key event to the line editor.
func (m *Monitor) Key(ctx context.Context, ev hal.KeyEvent) error {
	if !ev.Press {
		return nil
	}
	switch ev.Code {
	case hal.KeyEnter:
		line := strings.TrimSpace(string(m.line))
		m.line = m.line[:0]
		if line == "" {
			return nil
		}
		m.Printf("%s%s", prompt, line)
		m.remember(line)
		return m.Exec(ctx, line)
	case hal.KeyBackspace:
		if len(m.line) > 0 {
			m.line = m.line[:len(m.line)-1]
		}
	case hal.KeyEscape:
		m.line = m.line[:0]
	case hal.KeyUp:
		m.recall(-1)
	case hal.KeyDown:
		m.recall(+1)
	case hal.KeyUnknown:
		if ev.Rune >= 0x20 && ev.Rune != 0x7f && len(m.line) < maxLine {
			m.line = append(m.line, ev.Rune)
		}
	}
	return nil
}

// Pending returns the partially typed line.
func (m *Monitor) Pending() string { return string(m.line) }

func (m *Monitor) remember(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
		if len(m.history) > maxHistory {
			m.history = m.history[1:]
		}
	}
	m.hpos = len(m.history)
}

func (m *Monitor) recall(dir int) {
	if len(m.history) == 0 {
		return
	}
	m.hpos = min(max(m.hpos+dir, 0), len(m.history))
	if m.hpos == len(m.history) {
		m.line = m.line[:0]
		return
	}
	m.line = append(m.line[:0], []rune(m.history[m.hpos])...)
}

func (m *Monitor) help(_ context.Context, args []string) error {
	if len(args) > 0 {
		cmd, ok := m.reg.resolve(args[0])
		if !ok {
			return fmt.Errorf("%s: unknown command", args[0])
		}
		m.Printf("%s - %s", cmd.Usage, cmd.Desc)
		if len(cmd.Aliases) > 0 {
			m.Printf("  aliases: %s", strings.Join(cmd.Aliases, ", "))
		}
		return nil
	}
	for _, name := range m.reg.names() {
		cmd, _ := m.reg.resolve(name)
		m.Printf("  %-8s %s", name, cmd.Desc)
	}
	return nil
}
