// Package trace records scheduler decisions and renders them as timelines,
// the way a logic analyzer shows one profiling pin per thread.
package trace

import (
	"sync"

	"tickos/hal"
	"tickos/kernel"

	"github.com/google/uuid"
)

// Sample is the thread selected by the scheduler pass of one tick.
type Sample struct {
	Tick   uint64
	Thread kernel.ThreadID
}

// Summary aggregates a recording.
type Summary struct {
	RunID    string
	Passes   uint64
	Switches uint64
	Ticks    uint64
	// Runs counts, per thread, the ticks whose scheduler pass selected it.
	Runs []uint64
}

// Recorder implements kernel.Probe. Scheduled runs on the kernel CPU; the
// accessors may be called from any goroutine.
type Recorder struct {
	mu    sync.Mutex
	runID uuid.UUID
	names []string

	ring  []Sample
	head  int
	count int

	runs     []uint64
	passes   uint64
	switches uint64
	ticks    uint64

	pins []hal.GPIOPin
}

// NewRecorder keeps the last depth tick samples for the named threads.
func NewRecorder(names []string, depth int) *Recorder {
	if depth <= 0 {
		depth = 256
	}
	return &Recorder{
		runID: uuid.New(),
		names: append([]string(nil), names...),
		ring:  make([]Sample, depth),
		runs:  make([]uint64, len(names)),
	}
}

// AttachPins drives the PROF<i> output of g high while thread i holds the
// CPU. Missing pins are skipped; it returns how many were attached.
func (r *Recorder) AttachPins(g hal.GPIO) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pins = make([]hal.GPIOPin, len(r.names))
	n := 0
	for i := range r.names {
		p := hal.FindPin(g, hal.ProfilePinName(i))
		if p == nil || p.Configure(hal.GPIOModeOutput, hal.GPIOPullNone) != nil {
			continue
		}
		_ = p.Write(i == 0)
		r.pins[i] = p
		n++
	}
	return n
}

func (r *Recorder) Scheduled(tick uint64, prev, next kernel.ThreadID, preempt bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.passes++
	if prev != next {
		r.switches++
		r.setPin(prev, false)
		r.setPin(next, true)
	}
	if !preempt {
		return
	}
	r.ticks++
	if int(next) < len(r.runs) {
		r.runs[next]++
	}
	r.ring[r.head] = Sample{Tick: tick, Thread: next}
	r.head = (r.head + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
}

func (r *Recorder) setPin(id kernel.ThreadID, level bool) {
	if int(id) < len(r.pins) && r.pins[id] != nil {
		_ = r.pins[id].Write(level)
	}
}

// RunID identifies this recording.
func (r *Recorder) RunID() string { return r.runID.String() }

// Names returns the thread names in id order.
func (r *Recorder) Names() []string { return append([]string(nil), r.names...) }

// Samples returns the retained samples, oldest first.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Sample, 0, r.count)
	start := (r.head - r.count + len(r.ring)) % len(r.ring)
	for i := 0; i < r.count; i++ {
		out = append(out, r.ring[(start+i)%len(r.ring)])
	}
	return out
}

func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		RunID:    r.runID.String(),
		Passes:   r.passes,
		Switches: r.switches,
		Ticks:    r.ticks,
		Runs:     append([]uint64(nil), r.runs...),
	}
}
