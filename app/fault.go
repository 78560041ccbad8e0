package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"tickos/display"
	"tickos/kernel"

	"tinygo.org/x/tinyfont"
)

const (
	faultLineH   = 7
	faultOffset  = 5
	faultGlyphW  = 4
	faultMaxRows = 64
)

var (
	colorFaultBG = color.RGBA{R: 0x60, G: 0x00, B: 0x00, A: 0xff}
	colorFaultFG = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// drawFault paints the fault report over the whole framebuffer once.
func (s *system) drawFault(f *kernel.Fault) {
	if s.drawn || s.fb == nil {
		return
	}
	s.drawn = true

	view := display.NewRegion(s.fb, 0, 0, s.fb.Width(), s.fb.Height())
	view.Clear(colorFaultBG)
	w, h := view.Size()
	cols := w / faultGlyphW
	if cols <= 0 {
		cols = 1
	}

	y := int16(0)
	for _, line := range faultLines(f) {
		for len(line) > 0 && y+faultLineH <= h {
			chunk, rest := takeRunes(line, cols)
			tinyfont.WriteLine(view, &tinyfont.TomThumb, 0, y+faultOffset, chunk, colorFaultFG)
			y += faultLineH
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = view.Display()
	_ = s.fb.Present()
}

func faultLines(f *kernel.Fault) []string {
	lines := []string{
		"KERNEL FAULT",
		fmt.Sprintf("thread: %v", f.Thread),
		fmt.Sprintf("tick: %d", f.Tick),
		fmt.Sprintf("reason: %s", f.Reason),
	}
	if len(f.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(f.Stack), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
		if len(lines) >= faultMaxRows {
			break
		}
	}
	return lines
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
