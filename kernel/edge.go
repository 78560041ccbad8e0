package kernel

// EdgeTrigger turns an edge interrupt into a semaphore signal. It disarms
// itself on every accepted edge; the consumer thread re-arms it with
// Restart once it has handled the event (typically after a debounce sleep).
type EdgeTrigger struct {
	k      *Kernel
	sem    *Semaphore
	armed  bool
	fired  uint64
	missed uint64
}

// NewEdgeTrigger returns an armed trigger that signals sem.
func (k *Kernel) NewEdgeTrigger(sem *Semaphore) *EdgeTrigger {
	return &EdgeTrigger{k: k, sem: sem, armed: true}
}

// Fire is the edge interrupt handler. It reports whether the edge was
// accepted.
func (e *EdgeTrigger) Fire() bool {
	mask := e.k.Disable()
	defer e.k.Restore(mask)

	if !e.armed {
		e.missed++
		return false
	}
	e.armed = false
	e.fired++
	e.k.Signal(e.sem)
	e.k.RequestReschedule()
	return true
}

// Restart re-arms the trigger.
func (e *EdgeTrigger) Restart() {
	mask := e.k.Disable()
	defer e.k.Restore(mask)
	e.armed = true
}

func (e *EdgeTrigger) Armed() bool    { return e.armed }
func (e *EdgeTrigger) Fired() uint64  { return e.fired }
func (e *EdgeTrigger) Missed() uint64 { return e.missed }
