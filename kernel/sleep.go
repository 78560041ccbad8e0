package kernel

// Sleep makes the calling thread ineligible for the next ticks scheduler
// ticks and yields. Sleep(0) is a plain yield.
func (th *Thread) Sleep(ticks uint32) {
	k := th.k
	t := k.mustThread(th, "Sleep")
	t.sleep = ticks
	k.suspend(t)
}

func (k *Kernel) decrementSleep() {
	for i := 0; i < k.n; i++ {
		if t := &k.threads[i]; t.sleep > 0 {
			t.sleep--
		}
	}
}

// Tick is the tick interrupt handler: age sleep counters, run due periodic
// bindings, then run a scheduler pass. After Launch it must run in
// interrupt context (see Interrupt).
func (k *Kernel) Tick() {
	if k.hosted && k.isr == 0 {
		k.fault(k.current, "Tick outside interrupt context")
	}
	k.ticks++
	k.decrementSleep()
	k.disp.tick(k)
	k.schedule(true)
}

// Ticks returns the number of ticks handled so far.
func (k *Kernel) Ticks() uint64 { return k.ticks }
