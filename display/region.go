// Package display adapts a rectangle of a hal.Framebuffer to the TinyGo
// drivers.Displayer interface, so tinyfont and tinyterm can draw into it.
package display

import (
	"image/color"

	"tickos/hal"

	"tinygo.org/x/drivers"
)

// Region is an off-screen RGB565 canvas mapped onto part of a framebuffer.
// Drawing touches only the canvas; Display copies it to the framebuffer,
// applying the hardware-style vertical scroll offset set by SetScroll.
type Region struct {
	fb     hal.Framebuffer
	x0, y0 int
	w, h   int
	pix    []uint16
	scroll int
}

// NewRegion returns a w×h region whose top-left corner is at (x, y) on fb.
// The rectangle is clipped to the framebuffer.
func NewRegion(fb hal.Framebuffer, x, y, w, h int) *Region {
	r := &Region{fb: fb}
	if fb == nil {
		return r
	}
	x0 := clampInt(x, 0, fb.Width())
	y0 := clampInt(y, 0, fb.Height())
	x1 := clampInt(x+w, 0, fb.Width())
	y1 := clampInt(y+h, 0, fb.Height())
	r.x0, r.y0 = x0, y0
	r.w, r.h = x1-x0, y1-y0
	r.pix = make([]uint16, r.w*r.h)
	return r
}

func (r *Region) Size() (x, y int16) {
	return int16(r.w), int16(r.h)
}

func (r *Region) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= r.w || iy < 0 || iy >= r.h {
		return
	}
	r.pix[iy*r.w+ix] = hal.RGB565(c.R, c.G, c.B)
}

// Pixel returns the RGB565 value at (x, y) in canvas coordinates.
func (r *Region) Pixel(x, y int) uint16 {
	if x < 0 || x >= r.w || y < 0 || y >= r.h {
		return 0
	}
	return r.pix[y*r.w+x]
}

func (r *Region) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	x0 := clampInt(int(x), 0, r.w)
	y0 := clampInt(int(y), 0, r.h)
	x1 := clampInt(int(x)+int(width), 0, r.w)
	y1 := clampInt(int(y)+int(height), 0, r.h)
	pixel := hal.RGB565(c.R, c.G, c.B)
	for py := y0; py < y1; py++ {
		row := r.pix[py*r.w : (py+1)*r.w]
		for px := x0; px < x1; px++ {
			row[px] = pixel
		}
	}
	return nil
}

// Clear fills the whole canvas and resets the scroll offset.
func (r *Region) Clear(c color.RGBA) {
	r.scroll = 0
	_ = r.FillRectangle(0, 0, int16(r.w), int16(r.h), c)
}

// SetScroll makes canvas row line the top row on screen.
func (r *Region) SetScroll(line int16) {
	if r.h == 0 {
		return
	}
	r.scroll = ((int(line) % r.h) + r.h) % r.h
}

func (r *Region) SetRotation(rotation drivers.Rotation) error {
	if rotation != drivers.Rotation0 {
		return hal.ErrNotImplemented
	}
	return nil
}

// Display copies the canvas into the framebuffer. It does not call
// Present; the owner of the framebuffer presents once per frame.
func (r *Region) Display() error {
	if r.fb == nil || r.fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	buf := r.fb.Buffer()
	if buf == nil {
		return nil
	}
	stride := r.fb.StrideBytes()
	for sy := 0; sy < r.h; sy++ {
		src := r.pix[((sy+r.scroll)%r.h)*r.w:]
		off := (r.y0+sy)*stride + r.x0*2
		for sx := 0; sx < r.w; sx++ {
			if off+1 >= len(buf) {
				return nil
			}
			buf[off] = byte(src[sx])
			buf[off+1] = byte(src[sx] >> 8)
			off += 2
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
