package kernel

import (
	"context"
	"fmt"
	"runtime"
)

// The CPU is a token passed between thread goroutines over their run
// channels. Only the holder touches kernel state. Interrupts are requests
// on k.irq that the holder accepts at a preemption point and runs on its
// own goroutine, the way a core borrows the running thread's stack.

type irq struct {
	fn   func()
	done chan struct{}
}

// Interrupt runs fn in interrupt context on the CPU at the next preemption
// point and waits for it to finish. fn must not block. Interrupt must not
// be called from a thread or an interrupt handler.
func (k *Kernel) Interrupt(ctx context.Context, fn func()) error {
	if !k.started.Load() {
		return ErrNotLaunched
	}
	req := irq{fn: fn, done: make(chan struct{})}
	select {
	case k.irq <- req:
	case <-k.halt:
		return ErrHalted
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-k.halt:
		return ErrHalted
	}
}

// Checkpoint is a preemption point: a pending interrupt is taken here and
// may switch to another thread before Checkpoint returns.
func (th *Thread) Checkpoint() {
	t := th.k.mustThread(th, "Checkpoint")
	th.k.poll(t)
}

// Idle waits for the next interrupt and serves it, like a wait-for-interrupt
// instruction. It is the body of an idle thread's loop.
func (th *Thread) Idle() {
	k := th.k
	t := k.mustThread(th, "Idle")
	select {
	case req := <-k.irq:
		k.serve(t, req)
	case <-k.halt:
		runtime.Goexit()
	}
}

func (k *Kernel) poll(t *tcb) {
	if k.mask > 0 || k.isr > 0 {
		return
	}
	select {
	case req := <-k.irq:
		k.serve(t, req)
	case <-k.halt:
		runtime.Goexit()
	default:
	}
}

func (k *Kernel) serve(t *tcb, req irq) {
	k.isr++
	req.fn()
	if k.pending {
		k.schedule(true)
	}
	k.isr--
	close(req.done)
	k.switchFrom(t)
}

// switchFrom hands the CPU to the current thread if the scheduler picked
// another one, then parks t until it is resumed.
func (k *Kernel) switchFrom(t *tcb) {
	if !k.hosted || k.current == t.id {
		return
	}
	next := &k.threads[k.current]
	select {
	case next.run <- struct{}{}:
	case <-k.halt:
		runtime.Goexit()
	}
	select {
	case <-t.run:
	case <-k.halt:
		runtime.Goexit()
	}
}

func (k *Kernel) threadMain(t *tcb) {
	defer k.wg.Done()
	defer k.recoverThread(t.id)

	select {
	case <-t.run:
	case <-k.halt:
		return
	}
	t.entry(t.handle)
	k.fault(t.id, "thread entry returned")
}

func (k *Kernel) recoverThread(id ThreadID) {
	r := recover()
	if r == nil {
		return
	}
	f, ok := r.(*Fault)
	if !ok {
		f = &Fault{Thread: id, Tick: k.ticks, Reason: fmt.Sprintf("panic: %v", r), Stack: captureStack()}
		k.report(f)
	}
	k.stop(f)
}
