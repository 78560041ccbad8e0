// Package console shows log lines on a framebuffer region through a
// tinyterm terminal.
package console

import (
	"strings"
	"sync"

	"tickos/display"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyterm"
)

const (
	sgrRed    = "\x1b[31m"
	sgrYellow = "\x1b[33m"
	sgrReset  = "\x1b[0m"
)

// Console is a scrolling text view. WriteLineString may be called from any
// goroutine, including the kernel CPU; Flush copies pending output to the
// framebuffer and belongs to the frame loop.
type Console struct {
	mu    sync.Mutex
	view  *display.Region
	term  *tinyterm.Terminal
	dirty bool
	lines uint64
}

// New configures a terminal over view using the TomThumb font.
func New(view *display.Region) *Console {
	term := tinyterm.NewTerminal(view)
	term.Configure(&tinyterm.Config{
		Font:       &tinyfont.TomThumb,
		FontHeight: 6,
		FontOffset: 5,
	})
	return &Console{view: view, term: term, dirty: true}
}

// WriteLineString appends one line. klog error and warning lines are
// coloured.
func (c *Console) WriteLineString(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	color := ""
	switch {
	case strings.HasPrefix(s, "E "):
		color = sgrRed
	case strings.HasPrefix(s, "W "):
		color = sgrYellow
	}
	b.WriteString(color)
	b.WriteString(strings.Map(printable, s))
	if color != "" {
		b.WriteString(sgrReset)
	}
	b.WriteString("\r\n")

	_, _ = c.term.Write([]byte(b.String()))
	c.dirty = true
	c.lines++
}

// Lines returns the number of lines written.
func (c *Console) Lines() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines
}

// Flush copies the terminal to the framebuffer if anything changed. It
// reports whether it drew.
func (c *Console) Flush() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return false, nil
	}
	c.dirty = false
	return true, c.view.Display()
}

// printable drops control bytes so log text cannot drive the terminal's
// escape parser.
func printable(r rune) rune {
	if r < 0x20 || r == 0x7f {
		return -1
	}
	return r
}
