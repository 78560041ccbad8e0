package kernel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"tickos/internal/klog"
)

const (
	// MaxThreads is the size of the thread pool.
	MaxThreads = 8
	// MaxPriority is the lowest priority a thread may run at.
	MaxPriority = 254
	// MaxPeriodic bounds the number of periodic bindings.
	MaxPeriodic = 8
	// MaxTickPeriod is the largest tick period accepted by Launch, in clock
	// cycles (a 24-bit down counter).
	MaxTickPeriod = 1<<24 - 1

	// DefaultClockHz is the bus clock used to turn a tick period into time.
	DefaultClockHz = 80_000_000

	noPriority = math.MaxUint8
)

var (
	ErrAlreadyRegistered = errors.New("kernel: threads already registered")
	ErrNotRegistered     = errors.New("kernel: no threads registered")
	ErrLaunched          = errors.New("kernel: already launched")
	ErrNotLaunched       = errors.New("kernel: not launched")
	ErrHalted            = errors.New("kernel: halted")
	ErrThreadCount       = errors.New("kernel: bad thread count")
	ErrNilEntry          = errors.New("kernel: nil thread entry")
	ErrPriority          = errors.New("kernel: bad priority")
	ErrTickPeriod        = errors.New("kernel: tick period out of range")
	ErrPeriodic          = errors.New("kernel: bad periodic binding")
	ErrFIFOSize          = errors.New("kernel: bad fifo size")
)

// TickSource delivers the periodic tick interrupt. hal.Time satisfies it.
type TickSource interface {
	Ticks() <-chan uint64
}

// Probe observes every scheduler pass. It runs on the CPU and must not block.
type Probe interface {
	Scheduled(tick uint64, prev, next ThreadID, preempt bool)
}

// Config configures a Kernel. Zero values select defaults.
type Config struct {
	// ClockHz converts the Launch tick period into a tick duration when no
	// TickSource is set.
	ClockHz uint32

	// DispatchPerTick is the number of dispatcher base ticks evaluated per
	// scheduling tick.
	DispatchPerTick uint32

	// DispatchWarmup delays the first dispatcher base tick.
	DispatchWarmup uint32

	// TickSource overrides the clock-derived ticker.
	TickSource TickSource

	Log   *klog.Logger
	Probe Probe
}

// State is the kernel lifecycle state.
type State uint8

const (
	StateNotLaunched State = iota
	StateRunning
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateNotLaunched:
		return "not-launched"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Kernel owns the thread pool, scheduler state and dispatcher table.
//
// After Launch, kernel state is only touched by the goroutine holding the
// CPU: the running thread and the interrupt handlers it serves.
type Kernel struct {
	cfg   Config
	log   *klog.Logger
	probe Probe

	threads [MaxThreads]tcb
	n       int
	current ThreadID
	state   State

	// hosted is set once thread goroutines exist.
	hosted  bool
	mask    Mask
	isr     int
	pending bool
	ticks   uint64

	disp dispatcher

	started  atomic.Bool
	irq      chan irq
	halt     chan struct{}
	haltOnce sync.Once
	err      error
	wg       sync.WaitGroup

	faultOnce sync.Once
	faulted   atomic.Bool
	onFault   func(*Fault)
}

// New returns an empty kernel (no threads, not launched).
func New(cfg Config) *Kernel {
	if cfg.ClockHz == 0 {
		cfg.ClockHz = DefaultClockHz
	}
	if cfg.DispatchPerTick == 0 {
		cfg.DispatchPerTick = 1
	}
	k := &Kernel{
		cfg:   cfg,
		log:   cfg.Log.With("kernel"),
		probe: cfg.Probe,
		irq:   make(chan irq),
		halt:  make(chan struct{}),
	}
	k.disp.warmup = cfg.DispatchWarmup
	return k
}

// State reports the lifecycle state. Safe on the CPU or before Launch.
func (k *Kernel) State() State { return k.state }

// RegisterThreads installs the fixed thread pool and links the ring in
// registration order. It may be called once, before Launch.
func (k *Kernel) RegisterThreads(entries []Entry, priorities []uint8) error {
	if k.started.Load() {
		return ErrLaunched
	}
	mask := k.Disable()
	defer k.Restore(mask)

	if k.state != StateNotLaunched {
		return ErrLaunched
	}
	if k.n != 0 {
		return ErrAlreadyRegistered
	}
	if len(entries) == 0 || len(entries) > MaxThreads {
		return fmt.Errorf("%w: %d (1..%d)", ErrThreadCount, len(entries), MaxThreads)
	}
	if len(priorities) != len(entries) {
		return fmt.Errorf("%w: %d entries, %d priorities", ErrThreadCount, len(entries), len(priorities))
	}
	for i, e := range entries {
		if e == nil {
			return fmt.Errorf("%w: thread %d", ErrNilEntry, i)
		}
		if priorities[i] > MaxPriority {
			return fmt.Errorf("%w: thread %d priority %d", ErrPriority, i, priorities[i])
		}
	}

	n := len(entries)
	for i := 0; i < n; i++ {
		t := &k.threads[i]
		*t = tcb{
			id:       ThreadID(i),
			next:     ThreadID((i + 1) % n),
			priority: priorities[i],
			entry:    entries[i],
			run:      make(chan struct{}),
		}
		t.handle = &Thread{k: k, id: ThreadID(i)}
	}
	k.n = n
	k.current = 0
	k.log.Infof("registered %d threads", n)
	return nil
}

// Launch starts the thread pool on thread 0 and serves tick interrupts
// until ctx is cancelled or a fault halts the CPU. It returns ctx.Err() on
// cancellation and the *Fault on a fault; it never returns nil.
//
// tickPeriod is the tick interval in clock cycles (1..MaxTickPeriod).
func (k *Kernel) Launch(ctx context.Context, tickPeriod uint32) error {
	if tickPeriod == 0 || tickPeriod > MaxTickPeriod {
		return fmt.Errorf("%w: %d", ErrTickPeriod, tickPeriod)
	}
	if k.started.Load() || k.state != StateNotLaunched {
		return ErrLaunched
	}
	if k.n == 0 {
		return ErrNotRegistered
	}

	var ticks <-chan uint64
	if k.cfg.TickSource != nil {
		ticks = k.cfg.TickSource.Ticks()
	} else {
		d := time.Duration(uint64(tickPeriod) * uint64(time.Second) / uint64(k.cfg.ClockHz))
		if d <= 0 {
			d = time.Microsecond
		}
		t := time.NewTicker(d)
		defer t.Stop()
		ticks = tickerChan(ctx, t)
	}

	k.state = StateRunning
	k.hosted = true
	k.started.Store(true)
	for i := 0; i < k.n; i++ {
		k.wg.Add(1)
		go k.threadMain(&k.threads[i])
	}
	k.log.Infof("launch: %d threads, tick period %d cycles", k.n, tickPeriod)
	k.threads[k.current].run <- struct{}{}

	for {
		select {
		case <-ctx.Done():
			k.stop(nil)
			k.wg.Wait()
			k.state = StateHalted
			k.log.Infof("halted: %v", ctx.Err())
			return ctx.Err()
		case <-k.halt:
			k.wg.Wait()
			k.state = StateHalted
			return k.err
		case _, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			// Errors mean ctx or the CPU is done; the next select reports it.
			_ = k.Interrupt(ctx, k.Tick)
		}
	}
}

// tickerChan adapts a time.Ticker to the uint64 sequence of a TickSource.
func tickerChan(ctx context.Context, t *time.Ticker) <-chan uint64 {
	ch := make(chan uint64)
	go func() {
		var seq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				seq++
				select {
				case ch <- seq:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}

// stop halts the CPU once. err is reported by Launch.
func (k *Kernel) stop(err error) {
	k.haltOnce.Do(func() {
		k.err = err
		close(k.halt)
	})
}

// Stats snapshots the kernel. Call it before Launch or on the CPU (from a
// thread or an interrupt handler); use Inspect from other goroutines.
func (k *Kernel) Stats() Stats {
	st := Stats{
		State:      k.state,
		Ticks:      k.ticks,
		Current:    k.current,
		Dispatch:   k.disp.counter,
		Fired:      k.disp.fired,
		Threads:    make([]ThreadInfo, k.n),
		Periodic:   k.disp.n,
		WrapPeriod: k.disp.wrap,
	}
	for i := 0; i < k.n; i++ {
		st.Threads[i] = k.threads[i].info()
	}
	return st
}

// Inspect runs Stats on the CPU as an interrupt.
func (k *Kernel) Inspect(ctx context.Context) (Stats, error) {
	var st Stats
	err := k.Interrupt(ctx, func() { st = k.Stats() })
	return st, err
}

// Stats is a point-in-time view of the kernel.
type Stats struct {
	State      State
	Ticks      uint64
	Current    ThreadID
	Threads    []ThreadInfo
	Periodic   int
	WrapPeriod uint32
	Dispatch   uint32
	Fired      uint64
}
