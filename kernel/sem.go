package kernel

// Semaphore is a counting semaphore. A negative count is the number of
// blocked waiters. The zero value has count 0.
type Semaphore struct {
	count int32
}

// Value returns the current count.
func (s *Semaphore) Value() int32 { return s.count }

// InitSemaphore sets the count of s to v.
func (k *Kernel) InitSemaphore(s *Semaphore, v int32) {
	mask := k.Disable()
	defer k.Restore(mask)
	s.count = v
}

// Wait decrements s and blocks the calling thread while the count is
// negative.
func (th *Thread) Wait(s *Semaphore) {
	k := th.k
	t := k.mustThread(th, "Wait")

	mask := k.Disable()
	s.count--
	if s.count >= 0 {
		k.Restore(mask)
		return
	}
	t.blocked = s
	k.Restore(mask)
	k.suspend(t)
}

// Signal increments s and, if a thread was waiting, unblocks the first
// waiter found after the current thread in ring order. It never switches
// threads; the woken thread runs at the next scheduler pass. Signal may be
// called from threads and interrupt handlers.
func (k *Kernel) Signal(s *Semaphore) {
	mask := k.Disable()
	defer k.Restore(mask)

	s.count++
	if s.count > 0 {
		return
	}
	if k.n > 0 {
		id := k.threads[k.current].next
		for i := 0; i < k.n; i++ {
			t := &k.threads[id]
			if t.blocked == s {
				t.blocked = nil
				return
			}
			id = t.next
		}
	}
	k.fault(k.current, "signal: no thread blocked on semaphore")
}
