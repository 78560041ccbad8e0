package hal

import (
	"testing"
	"time"
)

func TestSignalPinRead(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }

	pin := newSignalPinWithClock("SIG", 10*time.Second, 2*time.Second, clock)
	if pin == nil {
		t.Fatal("expected pin")
	}

	steps := []struct {
		advance time.Duration
		want    bool
	}{
		{0, true},
		{3 * time.Second, false},
		{8 * time.Second, true}, // t=11s, phase 1s
	}
	for _, s := range steps {
		now = now.Add(s.advance)
		level, err := pin.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if level != s.want {
			t.Fatalf("Read() at %v = %v, want %v", now.Sub(time.Unix(0, 0)), level, s.want)
		}
	}
}

func TestSimPinInjectAndPull(t *testing.T) {
	p := newSimPin(PinButton, GPIOCapInput|GPIOCapPullUp)
	if err := p.Configure(GPIOModeInput, GPIOPullUp); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if level, _ := p.Read(); !level {
		t.Fatal("pulled-up input reads low")
	}

	p.Inject(false)
	if level, _ := p.Read(); level {
		t.Fatal("injected low reads high")
	}
	if err := p.Write(true); err == nil {
		t.Fatal("Write on input pin succeeded")
	}
	if err := p.Configure(GPIOModeOutput, GPIOPullNone); err == nil {
		t.Fatal("Configure output on input-only pin succeeded")
	}
}

func TestFindPin(t *testing.T) {
	prof := newSimPin(ProfilePinName(3), GPIOCapOutput)
	g := newPinBank(nil, newSimPin(PinButton, GPIOCapInput), prof)

	if got := FindPin(g, "prof3"); got != prof {
		t.Fatalf("FindPin(prof3) = %v, want PROF3", got)
	}
	if FindPin(g, "nope") != nil {
		t.Fatal("FindPin(nope) != nil")
	}
	if names := PinNames(g); len(names) != 2 || names[0] != PinButton {
		t.Fatalf("PinNames() = %v", names)
	}
}
