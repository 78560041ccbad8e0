package hal

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPull selects the pull resistor configuration.
type GPIOPull uint8

const (
	GPIOPullNone GPIOPull = iota
	GPIOPullUp
	GPIOPullDown
)

// GPIOCaps declares what operations a pin supports.
type GPIOCaps uint8

const (
	GPIOCapInput GPIOCaps = 1 << iota
	GPIOCapOutput
	GPIOCapPullUp
	GPIOCapPullDown
)

// GPIO provides access to general-purpose IO pins.
type GPIO interface {
	PinCount() int
	Pin(id int) GPIOPin
}

// GPIOPin is a single digital IO pin.
type GPIOPin interface {
	Name() string
	Caps() GPIOCaps
	Configure(mode GPIOMode, pull GPIOPull) error
	Read() (level bool, err error)
	Write(level bool) error
}

// GPIOInjector is implemented by simulated input pins whose level can be
// driven from outside, e.g. a push button bound to a host key.
type GPIOInjector interface {
	Inject(level bool)
}

// FindPin returns the pin called name (case-insensitive), or nil.
func FindPin(g GPIO, name string) GPIOPin {
	if g == nil {
		return nil
	}
	for i := 0; i < g.PinCount(); i++ {
		if p := g.Pin(i); p != nil && strings.EqualFold(p.Name(), name) {
			return p
		}
	}
	return nil
}

// PinNames lists the pin names of g in id order.
func PinNames(g GPIO) []string {
	if g == nil {
		return nil
	}
	names := make([]string, 0, g.PinCount())
	for i := 0; i < g.PinCount(); i++ {
		if p := g.Pin(i); p != nil {
			names = append(names, p.Name())
		}
	}
	return names
}

type nullGPIO struct{}

func (nullGPIO) PinCount() int      { return 0 }
func (nullGPIO) Pin(id int) GPIOPin { return nil }

type pinBank struct {
	pins []GPIOPin
}

func newPinBank(pins ...GPIOPin) GPIO {
	var kept []GPIOPin
	for _, p := range pins {
		if p != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nullGPIO{}
	}
	return &pinBank{pins: kept}
}

func (g *pinBank) PinCount() int { return len(g.pins) }

func (g *pinBank) Pin(id int) GPIOPin {
	if id < 0 || id >= len(g.pins) {
		return nil
	}
	return g.pins[id]
}

// simPin is a general-purpose pin held in memory. In input mode its level
// follows Inject and the configured pull; in output mode it follows Write.
type simPin struct {
	mu       sync.Mutex
	name     string
	caps     GPIOCaps
	mode     GPIOMode
	pull     GPIOPull
	driven   bool
	injected bool
	level    bool
}

func newSimPin(name string, caps GPIOCaps) *simPin {
	return &simPin{name: name, caps: caps, mode: GPIOModeInput}
}

func (p *simPin) Name() string   { return p.name }
func (p *simPin) Caps() GPIOCaps { return p.caps }

func (p *simPin) Configure(mode GPIOMode, pull GPIOPull) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch mode {
	case GPIOModeInput:
		if p.caps&GPIOCapInput == 0 {
			return fmt.Errorf("gpio: pin %s: input unsupported", p.name)
		}
	case GPIOModeOutput:
		if p.caps&GPIOCapOutput == 0 {
			return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid mode", p.name)
	}

	switch pull {
	case GPIOPullNone:
	case GPIOPullUp:
		if p.caps&GPIOCapPullUp == 0 {
			return fmt.Errorf("gpio: pin %s: pull-up unsupported", p.name)
		}
	case GPIOPullDown:
		if p.caps&GPIOCapPullDown == 0 {
			return fmt.Errorf("gpio: pin %s: pull-down unsupported", p.name)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid pull", p.name)
	}

	p.mode = mode
	p.pull = pull
	return nil
}

func (p *simPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == GPIOModeOutput {
		return p.level, nil
	}
	if p.driven {
		return p.injected, nil
	}
	return p.pull == GPIOPullUp, nil
}

func (p *simPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
	}
	p.level = level
	return nil
}

func (p *simPin) Inject(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.driven = true
	p.injected = level
}

// signalPin is a read-only square wave, useful as a free-running edge source.
type signalPin struct {
	mu   sync.Mutex
	name string
	mode GPIOMode

	t0     time.Time
	now    func() time.Time
	period time.Duration
	high   time.Duration
}

func newSignalPin(name string, period, high time.Duration) GPIOPin {
	return newSignalPinWithClock(name, period, high, time.Now)
}

func newSignalPinWithClock(name string, period, high time.Duration, now func() time.Time) GPIOPin {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	if period <= 0 {
		period = time.Second
	}
	high = min(max(high, 0), period)
	return &signalPin{
		name:   name,
		mode:   GPIOModeInput,
		t0:     now(),
		now:    now,
		period: period,
		high:   high,
	}
}

func (p *signalPin) Name() string   { return p.name }
func (p *signalPin) Caps() GPIOCaps { return GPIOCapInput }

func (p *signalPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeInput {
		return fmt.Errorf("gpio: pin %s: only input supported", p.name)
	}
	if pull != GPIOPullNone {
		return fmt.Errorf("gpio: pin %s: pull unsupported", p.name)
	}
	return nil
}

func (p *signalPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := p.now().Sub(p.t0)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	return elapsed%p.period < p.high, nil
}

func (p *signalPin) Write(bool) error {
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}

// ledPin exposes the board LED as an output pin.
type ledPin struct {
	mu    sync.Mutex
	led   LED
	name  string
	level bool
}

func newLEDPin(name string, led LED) GPIOPin {
	if led == nil {
		return nil
	}
	return &ledPin{led: led, name: name}
}

func (p *ledPin) Name() string   { return p.name }
func (p *ledPin) Caps() GPIOCaps { return GPIOCapOutput }

func (p *ledPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: only output supported", p.name)
	}
	if pull != GPIOPullNone {
		return fmt.Errorf("gpio: pin %s: pull unsupported", p.name)
	}
	return nil
}

func (p *ledPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

func (p *ledPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	if level {
		p.led.High()
	} else {
		p.led.Low()
	}
	return nil
}

// ProfilePinName is the name of the profiling output for a thread slot.
func ProfilePinName(slot int) string {
	return fmt.Sprintf("PROF%d", slot)
}

// Standard pin names shared by every board.
const (
	PinLED    = "LED"
	PinButton = "BTN"
	PinPulse  = "SIGPULSE"
)
