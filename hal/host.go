//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	gpio   GPIO
	btn    *simPin
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	t      *hostTime
}

// New returns a host HAL implementation.
//
// Pins: LED, PROF0..PROF7 profiling outputs, BTN (active-low push button,
// F1 in the window) and SIGPULSE (1 Hz, 50 ms pulse).
func New() HAL {
	return newHost()
}

func newHost() *hostHAL {
	logger := &hostLogger{w: os.Stdout}
	led := &hostLED{logger: logger}
	btn := newSimPin(PinButton, GPIOCapInput|GPIOCapPullUp)

	pins := []GPIOPin{newLEDPin(PinLED, led)}
	for i := 0; i < 8; i++ {
		pins = append(pins, newSimPin(ProfilePinName(i), GPIOCapOutput))
	}
	pins = append(pins, btn, newSignalPin(PinPulse, time.Second, 50*time.Millisecond))

	return &hostHAL{
		logger: logger,
		led:    led,
		gpio:   newPinBank(pins...),
		btn:    btn,
		fb:     newHostFramebuffer(320, 240),
		kbd:    newHostKeyboard(),
		t:      newHostTime(time.Millisecond),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) GPIO() GPIO       { return h.gpio }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

// hostLED logs transitions only.
type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on == on {
		return
	}
	l.on = on
	if on {
		l.logger.WriteLineString("led: HIGH")
	} else {
		l.logger.WriteLineString("led: LOW")
	}
}

func (l *hostLED) High() { l.set(true) }
func (l *hostLED) Low()  { l.set(false) }
