//go:build tinygo && baremetal

package hal

import "machine"

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	gpio   GPIO
	fb     Framebuffer
	kbd    *uartKeyboard
	t      *tinyGoTime
}

// profilePins are wired to a logic analyzer, one per thread slot.
var profilePins = [8]machine.Pin{
	machine.GP2, machine.GP3, machine.GP4, machine.GP5,
	machine.GP6, machine.GP7, machine.GP8, machine.GP9,
}

// New returns a Pico (RP2040/RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1, also used as keyboard.
// GP2..GP9: PROF0..PROF7. GP15: BTN to ground with pull-up.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led := &pinLED{pin: ledPin}

	pins := []GPIOPin{newLEDPin(PinLED, led)}
	for i, p := range profilePins {
		pins = append(pins, &machinePin{name: ProfilePinName(i), pin: p, caps: GPIOCapOutput})
	}
	pins = append(pins, &machinePin{name: PinButton, pin: machine.GP15, caps: GPIOCapInput | GPIOCapPullUp})

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    led,
		gpio:   newPinBank(pins...),
		fb:     &stubFramebuffer{w: 320, h: 240, format: PixelFormatRGB565},
		kbd:    newUARTKeyboard(uart),
		t:      newTinyGoTime(),
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) GPIO() GPIO       { return h.gpio }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Input() Input     { return tinyGoInput{kbd: h.kbd} }
func (h *tinyGoHAL) Time() Time       { return h.t }
