package trace

import (
	"fmt"
	"image/color"

	"tickos/display"

	"tinygo.org/x/tinyfont"
)

var (
	colorBG       = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	colorFG       = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorDim      = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	colorHeaderBG = color.RGBA{R: 0x18, G: 0x18, B: 0x18, A: 0xff}

	colorWaveHi = color.RGBA{R: 0x4a, G: 0xdf, B: 0x6a, A: 0xff}
	colorWaveLo = color.RGBA{R: 0x24, G: 0x24, B: 0x24, A: 0xff}
)

const (
	headerH = 10
	laneH   = 12
	labelW  = 48
	// TomThumb glyphs sit on a baseline 5 px below the top of the cell.
	baseline = 6
)

// Renderer draws the most recent samples of a Recorder as one lane per
// thread: a bright bar for every tick the thread held the CPU.
type Renderer struct {
	rec  *Recorder
	view *display.Region
	font *tinyfont.Font
}

func NewRenderer(rec *Recorder, view *display.Region) *Renderer {
	return &Renderer{rec: rec, view: view, font: &tinyfont.TomThumb}
}

// Draw redraws the whole view and copies it to the framebuffer.
func (r *Renderer) Draw() error {
	w, h := r.view.Size()
	r.view.Clear(colorBG)

	sum := r.rec.Summary()
	_ = r.view.FillRectangle(0, 0, w, headerH, colorHeaderBG)
	header := fmt.Sprintf("run %.8s  tick %d  sw %d", sum.RunID, lastTick(r.rec), sum.Switches)
	tinyfont.WriteLine(r.view, r.font, 2, baseline, header, colorFG)

	cols := int(w) - labelW
	if cols <= 0 {
		return r.view.Display()
	}
	samples := r.rec.Samples()
	if len(samples) > cols {
		samples = samples[len(samples)-cols:]
	}

	for id, name := range r.rec.Names() {
		y := int16(headerH + 2 + id*laneH)
		if y+laneH > h {
			break
		}
		label := fmt.Sprintf("%d %s", id, name)
		tinyfont.WriteLine(r.view, r.font, 2, y+baseline+2, label, colorDim)
		_ = r.view.FillRectangle(labelW, y+laneH-3, int16(cols), 1, colorWaveLo)
		for i, s := range samples {
			if int(s.Thread) == id {
				_ = r.view.FillRectangle(int16(labelW+i), y+1, 1, laneH-3, colorWaveHi)
			}
		}
	}
	return r.view.Display()
}

func lastTick(rec *Recorder) uint64 {
	s := rec.Samples()
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Tick
}
