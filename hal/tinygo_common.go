//go:build tinygo && baremetal

package hal

import (
	"fmt"
	"machine"
	"time"
)

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type tinyGoInput struct {
	kbd Keyboard
}

func (in tinyGoInput) Keyboard() Keyboard { return in.kbd }

type tinyGoTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoTime() *tinyGoTime {
	t := &tinyGoTime{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tinyGoTime) Ticks() <-chan uint64 { return t.ch }

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

// machinePin adapts a board pin.
type machinePin struct {
	name string
	pin  machine.Pin
	caps GPIOCaps
}

func (p *machinePin) Name() string   { return p.name }
func (p *machinePin) Caps() GPIOCaps { return p.caps }

func (p *machinePin) Configure(mode GPIOMode, pull GPIOPull) error {
	switch {
	case mode == GPIOModeOutput && p.caps&GPIOCapOutput != 0:
		p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	case mode == GPIOModeInput && pull == GPIOPullUp && p.caps&GPIOCapPullUp != 0:
		p.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	case mode == GPIOModeInput && p.caps&GPIOCapInput != 0:
		p.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	default:
		return fmt.Errorf("gpio: pin %s: mode %d pull %d unsupported", p.name, mode, pull)
	}
	return nil
}

func (p *machinePin) Read() (bool, error) { return p.pin.Get(), nil }

func (p *machinePin) Write(level bool) error {
	p.pin.Set(level)
	return nil
}

// uartKeyboard turns UART receive bytes into key events.
type uartKeyboard struct {
	ch chan KeyEvent
}

func newUARTKeyboard(uart *machine.UART) *uartKeyboard {
	k := &uartKeyboard{ch: make(chan KeyEvent, 16)}
	go func() {
		for {
			if uart.Buffered() == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			b, err := uart.ReadByte()
			if err != nil {
				continue
			}
			var ev KeyEvent
			switch b {
			case '\r', '\n':
				ev = KeyEvent{Code: KeyEnter, Press: true}
			case 0x7f, 0x08:
				ev = KeyEvent{Code: KeyBackspace, Press: true}
			default:
				ev = KeyEvent{Press: true, Rune: rune(b)}
			}
			select {
			case k.ch <- ev:
			default:
			}
		}
	}()
	return k
}

func (k *uartKeyboard) Events() <-chan KeyEvent { return k.ch }
