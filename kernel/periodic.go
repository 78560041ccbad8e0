package kernel

import (
	"fmt"
	"math"
)

// PeriodicBinding fires every Period dispatcher base ticks. Event runs
// first, then Sem is signalled; either may be nil but not both. Both run in
// interrupt context and must not block.
type PeriodicBinding struct {
	Period uint32
	Sem    *Semaphore
	Event  func()
}

type dispatcher struct {
	bindings [MaxPeriodic]PeriodicBinding
	n        int

	// wrap is the least common multiple of all periods.
	wrap    uint32
	counter uint32
	warmup  uint32
	fired   uint64
}

// RegisterPeriodicBindings adds bindings to the dispatcher table. It may be
// called repeatedly before Launch, up to MaxPeriodic bindings in total.
func (k *Kernel) RegisterPeriodicBindings(bindings []PeriodicBinding) error {
	if k.started.Load() {
		return ErrLaunched
	}
	mask := k.Disable()
	defer k.Restore(mask)

	if k.state != StateNotLaunched {
		return ErrLaunched
	}
	if len(bindings) == 0 {
		return fmt.Errorf("%w: no bindings", ErrPeriodic)
	}
	if k.disp.n+len(bindings) > MaxPeriodic {
		return fmt.Errorf("%w: %d bindings exceed %d", ErrPeriodic, k.disp.n+len(bindings), MaxPeriodic)
	}

	wrap := k.disp.wrap
	if wrap == 0 {
		wrap = 1
	}
	for i, b := range bindings {
		if b.Period == 0 {
			return fmt.Errorf("%w: binding %d has period 0", ErrPeriodic, i)
		}
		if b.Sem == nil && b.Event == nil {
			return fmt.Errorf("%w: binding %d has no action", ErrPeriodic, i)
		}
		w, ok := lcm(wrap, b.Period)
		if !ok {
			return fmt.Errorf("%w: wrap period overflows with period %d", ErrPeriodic, b.Period)
		}
		wrap = w
	}

	copy(k.disp.bindings[k.disp.n:], bindings)
	k.disp.n += len(bindings)
	k.disp.wrap = wrap
	k.log.Infof("periodic: %d bindings, wrap %d", k.disp.n, wrap)
	return nil
}

// tick evaluates DispatchPerTick base ticks. A period-P binding first fires
// on the P-th base tick after warm-up.
func (d *dispatcher) tick(k *Kernel) {
	if d.n == 0 {
		return
	}
	fired := false
	for i := uint32(0); i < k.cfg.DispatchPerTick; i++ {
		if d.warmup > 0 {
			d.warmup--
			continue
		}
		d.counter = (d.counter + 1) % d.wrap
		for j := 0; j < d.n; j++ {
			b := &d.bindings[j]
			if d.counter%b.Period != 0 {
				continue
			}
			if b.Event != nil {
				b.Event()
			}
			if b.Sem != nil {
				k.Signal(b.Sem)
			}
			d.fired++
			fired = true
		}
	}
	if fired {
		k.RequestReschedule()
	}
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b uint32) (uint32, bool) {
	l := uint64(a/gcd(a, b)) * uint64(b)
	if l > math.MaxUint32 {
		return 0, false
	}
	return uint32(l), true
}
