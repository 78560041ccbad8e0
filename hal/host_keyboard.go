//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// buttonKey holds the BTN pin low while pressed.
const buttonKey = ebiten.KeyF1

type hostKeyboard struct {
	ch chan KeyEvent
}

func newHostKeyboard() *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent, 64)}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

var keyMap = []struct {
	key  ebiten.Key
	code KeyCode
}{
	{ebiten.KeyArrowUp, KeyUp},
	{ebiten.KeyArrowDown, KeyDown},
	{ebiten.KeyEnter, KeyEnter},
	{ebiten.KeyEscape, KeyEscape},
	{ebiten.KeyBackspace, KeyBackspace},
	{ebiten.KeyTab, KeyTab},
}

func (k *hostKeyboard) send(ev KeyEvent) {
	select {
	case k.ch <- ev:
	default:
	}
}

// poll runs on the window's update loop.
func (k *hostKeyboard) poll(btn GPIOInjector) {
	if btn != nil {
		btn.Inject(!ebiten.IsKeyPressed(buttonKey))
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		k.send(KeyEvent{Press: true, Rune: r})
	}
	for _, m := range keyMap {
		if inpututil.IsKeyJustPressed(m.key) {
			k.send(KeyEvent{Code: m.code, Press: true})
		}
		if inpututil.IsKeyJustReleased(m.key) {
			k.send(KeyEvent{Code: m.code, Press: false})
		}
	}
}
