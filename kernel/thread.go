package kernel

import "fmt"

// ThreadID indexes the thread pool.
type ThreadID uint8

func (id ThreadID) String() string { return fmt.Sprintf("T%d", uint8(id)) }

// Entry is a thread body. It must never return.
type Entry func(th *Thread)

// tcb is a thread control record.
type tcb struct {
	id       ThreadID
	next     ThreadID
	blocked  *Semaphore
	sleep    uint32
	priority uint8

	entry  Entry
	handle *Thread
	// run carries the CPU token to this thread's goroutine.
	run chan struct{}

	runs uint64
}

func (t *tcb) runnable() bool {
	return t.blocked == nil && t.sleep == 0
}

func (t *tcb) info() ThreadInfo {
	return ThreadInfo{
		ID:       t.id,
		Next:     t.next,
		Priority: t.priority,
		Sleep:    t.sleep,
		Blocked:  t.blocked != nil,
		Runs:     t.runs,
	}
}

// ThreadInfo describes one thread record.
type ThreadInfo struct {
	ID       ThreadID
	Next     ThreadID
	Priority uint8
	Sleep    uint32
	Blocked  bool
	Runs     uint64
}

// Thread is the handle passed to an Entry. Its blocking methods must be
// called by that thread, from thread context.
type Thread struct {
	k  *Kernel
	id ThreadID
}

func (th *Thread) ID() ThreadID        { return th.id }
func (th *Thread) Kernel() *Kernel     { return th.k }
func (th *Thread) Signal(s *Semaphore) { th.k.Signal(s) }

// Thread returns the handle for id, or nil if id is not registered.
func (k *Kernel) Thread(id ThreadID) *Thread {
	if int(id) >= k.n {
		return nil
	}
	return k.threads[id].handle
}

// Current returns the id of the thread holding the CPU.
func (k *Kernel) Current() ThreadID { return k.current }

// mustThread faults unless th is the running thread in thread context with
// interrupts enabled.
func (k *Kernel) mustThread(th *Thread, op string) *tcb {
	switch {
	case k.state != StateRunning:
		k.fault(th.id, op+" before launch")
	case k.isr > 0:
		k.fault(th.id, op+" from interrupt context")
	case k.mask > 0:
		k.fault(th.id, op+" inside a critical section")
	case th.id != k.current:
		k.fault(th.id, fmt.Sprintf("%s by %v while %v holds the CPU", op, th.id, k.current))
	}
	return &k.threads[th.id]
}
