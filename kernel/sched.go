package kernel

// schedule runs one scheduler pass and makes the winner current.
//
// The ring is scanned once starting after the current thread and ending on
// it. The first runnable thread with the lowest priority value wins, so
// equal priorities rotate and the current thread is chosen again only when
// nothing ahead of it ties or beats it.
func (k *Kernel) schedule(preempt bool) {
	k.pending = false
	if k.n == 0 {
		return
	}

	prev := k.current
	best := prev
	bestPri := uint8(noPriority)

	id := k.threads[prev].next
	for i := 0; i < k.n; i++ {
		t := &k.threads[id]
		if t.runnable() && t.priority < bestPri {
			best = id
			bestPri = t.priority
		}
		id = t.next
	}
	if bestPri == noPriority {
		k.fault(prev, "no runnable thread")
	}

	k.current = best
	k.threads[best].runs++
	if k.probe != nil {
		k.probe.Scheduled(k.ticks, prev, best, preempt)
	}
	if best != prev {
		k.log.Debugf("tick %d: %v -> %v", k.ticks, prev, best)
	}
}

// RequestReschedule asks for a scheduler pass when the current interrupt
// handler returns. Tick always runs one.
func (k *Kernel) RequestReschedule() {
	k.pending = true
}

// Suspend gives up the rest of the time slice. It runs a scheduler pass and
// returns when the calling thread is selected again.
func (th *Thread) Suspend() {
	t := th.k.mustThread(th, "Suspend")
	th.k.suspend(t)
}

func (k *Kernel) suspend(t *tcb) {
	k.schedule(false)
	k.switchFrom(t)
	k.poll(t)
}
