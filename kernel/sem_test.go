package kernel

import "testing"

func blockedOn(k *Kernel, s *Semaphore) int {
	n := 0
	for i := 0; i < k.n; i++ {
		if k.threads[i].blocked == s {
			n++
		}
	}
	return n
}

func checkSem(t *testing.T, k *Kernel, s *Semaphore, want int32) {
	t.Helper()
	if s.Value() != want {
		t.Fatalf("count = %d, want %d", s.Value(), want)
	}
	wantBlocked := 0
	if want < 0 {
		wantBlocked = int(-want)
	}
	if got := blockedOn(k, s); got != wantBlocked {
		t.Fatalf("blocked = %d, want %d", got, wantBlocked)
	}
}

func TestSemaphoreArithmetic(t *testing.T) {
	k, ths := boot(t, 1, 1, 1, 3)
	var s Semaphore
	k.InitSemaphore(&s, 1)

	ths[0].Wait(&s) // takes the unit
	checkSem(t, k, &s, 0)
	if k.Current() != 0 {
		t.Fatalf("Wait with units available switched to %v", k.Current())
	}

	ths[0].Wait(&s)
	checkSem(t, k, &s, -1)
	if k.Current() != 1 {
		t.Fatalf("current = %v, want T1", k.Current())
	}

	ths[1].Wait(&s)
	checkSem(t, k, &s, -2)
	if k.Current() != 2 {
		t.Fatalf("current = %v, want T2", k.Current())
	}

	k.Signal(&s)
	checkSem(t, k, &s, -1)
	if k.threads[0].blocked != nil {
		t.Fatal("Signal woke T1, want T0 (first after current in ring order)")
	}
	if k.Current() != 2 {
		t.Fatal("Signal switched threads")
	}

	k.Signal(&s)
	k.Signal(&s)
	checkSem(t, k, &s, 1)
}

func TestSignalWakesFirstWaiterAfterCurrent(t *testing.T) {
	k, ths := boot(t, 1, 1, 1, 1)
	var s Semaphore

	ths[0].Wait(&s)
	ths[1].Wait(&s)
	ths[2].Wait(&s)
	if k.Current() != 3 {
		t.Fatalf("current = %v, want T3", k.Current())
	}

	k.Signal(&s)
	if k.threads[0].blocked != nil || k.threads[1].blocked == nil || k.threads[2].blocked == nil {
		t.Fatal("Signal did not wake exactly T0")
	}

	k.current = 0
	k.Signal(&s)
	if k.threads[1].blocked != nil || k.threads[2].blocked == nil {
		t.Fatal("Signal did not wake T1 next")
	}
}

func TestBlockedThreadSkippedUntilSignalled(t *testing.T) {
	k, ths := boot(t, 0, 1)
	var s Semaphore

	ths[0].Wait(&s)
	for i, id := range ticks(k, 3) {
		if id != 1 {
			t.Fatalf("tick %d: current = %v, want T1", i+1, id)
		}
	}

	k.Signal(&s)
	if got := ticks(k, 1); got[0] != 0 {
		t.Fatalf("after Signal current = %v, want T0", got[0])
	}
}

func TestSignalWithoutWaiterFaults(t *testing.T) {
	k, _ := boot(t, 1, 1)
	var s Semaphore
	k.InitSemaphore(&s, -1)

	f := mustFault(t, func() { k.Signal(&s) })
	if f.Reason != "signal: no thread blocked on semaphore" {
		t.Fatalf("fault reason = %q", f.Reason)
	}
}

func TestWaitFromInterruptFaults(t *testing.T) {
	k, ths := boot(t, 1)
	var s Semaphore
	k.InitSemaphore(&s, 1)

	k.isr = 1
	mustFault(t, func() { ths[0].Wait(&s) })
}
