package display

import (
	"image/color"
	"testing"

	"tickos/hal"
)

type memFB struct {
	w, h int
	buf  []byte
}

func newMemFB(w, h int) *memFB { return &memFB{w: w, h: h, buf: make([]byte, w*h*2)} }

func (f *memFB) Width() int              { return f.w }
func (f *memFB) Height() int             { return f.h }
func (f *memFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *memFB) StrideBytes() int        { return f.w * 2 }
func (f *memFB) Buffer() []byte          { return f.buf }
func (f *memFB) ClearRGB(r, g, b uint8)  {}
func (f *memFB) Present() error          { return nil }

func (f *memFB) at(x, y int) uint16 {
	off := y*f.w*2 + x*2
	return uint16(f.buf[off]) | uint16(f.buf[off+1])<<8
}

var white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

func TestRegionClipsAndOffsets(t *testing.T) {
	fb := newMemFB(8, 8)
	r := NewRegion(fb, 6, 2, 4, 4)
	if w, h := r.Size(); w != 2 || h != 4 {
		t.Fatalf("Size() = %d,%d, want 2,4", w, h)
	}

	r.SetPixel(1, 0, white)
	r.SetPixel(2, 0, white) // outside the clipped canvas
	if err := r.Display(); err != nil {
		t.Fatalf("Display() error = %v", err)
	}
	if got := fb.at(7, 2); got != 0xffff {
		t.Fatalf("fb(7,2) = %#04x, want white", got)
	}
	if got := fb.at(6, 2); got != 0 {
		t.Fatalf("fb(6,2) = %#04x, want black", got)
	}
}

func TestRegionScrollRotatesRows(t *testing.T) {
	fb := newMemFB(2, 3)
	r := NewRegion(fb, 0, 0, 2, 3)
	_ = r.FillRectangle(0, 1, 2, 1, white)

	r.SetScroll(1)
	_ = r.Display()
	if fb.at(0, 0) != 0xffff || fb.at(0, 1) != 0 {
		t.Fatal("scroll 1 did not bring canvas row 1 to the top")
	}

	r.SetScroll(-1) // same as 2
	_ = r.Display()
	if fb.at(0, 2) != 0xffff {
		t.Fatal("scroll -1 did not wrap")
	}
}
