package kernel

import (
	"errors"
	"testing"
)

func TestMailboxDropsSecondSend(t *testing.T) {
	k, ths := boot(t, 1)
	mb := k.NewMailbox()

	if ok := mb.Send(7); !ok {
		t.Fatal("Send(7) = false, want true")
	}
	if ok := mb.Send(8); ok {
		t.Fatal("Send(8) into occupied mailbox = true, want false")
	}
	if mb.Lost() != 1 {
		t.Fatalf("Lost() = %d, want 1", mb.Lost())
	}
	if got := mb.Recv(ths[0]); got != 7 {
		t.Fatalf("Recv() = %d, want 7", got)
	}
	if mb.Pending() {
		t.Fatal("Pending() = true after Recv")
	}
	if ok := mb.Send(9); !ok {
		t.Fatal("Send(9) after Recv = false, want true")
	}
	if got := mb.Recv(ths[0]); got != 9 {
		t.Fatalf("Recv() = %d, want 9", got)
	}
}

func TestMailboxSendWakesReceiver(t *testing.T) {
	k, ths := boot(t, 0, 1)
	mb := k.NewMailbox()

	// Blocks T0; without goroutines Recv returns immediately.
	mb.Recv(ths[0])
	if k.threads[0].blocked == nil {
		t.Fatal("receiver not blocked on empty mailbox")
	}
	if ok := mb.Send(3); !ok {
		t.Fatal("Send() to waiting receiver = false, want true")
	}
	if k.threads[0].blocked != nil {
		t.Fatal("Send() did not wake the receiver")
	}
	if !mb.Pending() {
		t.Fatal("Pending() = false before the woken receiver read")
	}
	if got := mb.take(); got != 3 {
		t.Fatalf("woken receiver read %d, want 3", got)
	}
}

func TestMailboxDropsSendBeforeWokenReceiverReads(t *testing.T) {
	k, ths := boot(t, 0, 1)
	mb := k.NewMailbox()

	// T0 is parked inside Recv, waiting on the slot.
	ths[0].Wait(&mb.sent)
	if ok := mb.Send(7); !ok {
		t.Fatal("Send(7) = false, want true")
	}
	if ok := mb.Send(8); ok {
		t.Fatal("Send(8) before the receiver read = true, want false")
	}
	if mb.Lost() != 1 {
		t.Fatalf("Lost() = %d, want 1", mb.Lost())
	}
	if mb.sent.Value() != 0 {
		t.Fatalf("sent count = %d, want 0", mb.sent.Value())
	}

	// The receiver resumes and reads.
	if got := mb.take(); got != 7 {
		t.Fatalf("receiver read %d, want 7", got)
	}
	if mb.Pending() {
		t.Fatal("Pending() = true after read")
	}
	if ok := mb.Send(9); !ok {
		t.Fatal("Send(9) after read = false, want true")
	}
	if got := ticks(k, 1); got[0] != 0 {
		t.Fatalf("tick selected %v, want T0", got[0])
	}
	if got := mb.Recv(ths[0]); got != 9 {
		t.Fatalf("Recv() = %d, want 9", got)
	}
}

func TestFIFOCapacityAndOrder(t *testing.T) {
	k, ths := boot(t, 1)
	f, err := k.NewFIFO(3)
	if err != nil {
		t.Fatalf("NewFIFO() error = %v", err)
	}

	for i := uint32(1); i <= 3; i++ {
		if ok := f.Put(i); !ok {
			t.Fatalf("Put(%d) = false, want true", i)
		}
	}
	if ok := f.Put(4); ok {
		t.Fatal("Put() into full FIFO = true, want false")
	}
	if f.Lost() != 1 || f.Len() != 3 {
		t.Fatalf("Lost() = %d Len() = %d, want 1 and 3", f.Lost(), f.Len())
	}

	for want := uint32(1); want <= 2; want++ {
		if got := f.Get(ths[0]); got != want {
			t.Fatalf("Get() = %d, want %d", got, want)
		}
	}

	// Wrap the cursors.
	for _, v := range []uint32{5, 6} {
		if ok := f.Put(v); !ok {
			t.Fatalf("Put(%d) = false, want true", v)
		}
	}
	for _, want := range []uint32{3, 5, 6} {
		if got := f.Get(ths[0]); got != want {
			t.Fatalf("Get() = %d, want %d", got, want)
		}
	}
	if f.Len() != 0 || f.Cap() != 3 {
		t.Fatalf("Len() = %d Cap() = %d, want 0 and 3", f.Len(), f.Cap())
	}
}

func TestFIFOFullCountsUnreadItems(t *testing.T) {
	k, ths := boot(t, 0, 1)
	f, err := k.NewFIFO(1)
	if err != nil {
		t.Fatalf("NewFIFO() error = %v", err)
	}

	ths[0].Wait(&f.cur) // getter parked on an empty FIFO
	if ok := f.Put(1); !ok {
		t.Fatal("Put(1) = false, want true")
	}
	// The woken getter has not read yet; the slot is still taken.
	if ok := f.Put(2); ok {
		t.Fatal("Put(2) overwrote an unread item")
	}
	if f.Lost() != 1 {
		t.Fatalf("Lost() = %d, want 1", f.Lost())
	}
}

func TestNewFIFOSize(t *testing.T) {
	k := New(Config{})
	for _, size := range []int{0, -1, MaxFIFOSize + 1} {
		if _, err := k.NewFIFO(size); !errors.Is(err, ErrFIFOSize) {
			t.Fatalf("NewFIFO(%d) error = %v, want ErrFIFOSize", size, err)
		}
	}
}

func TestEdgeTriggerDisarms(t *testing.T) {
	k, ths := boot(t, 0, 1)
	var s Semaphore
	e := k.NewEdgeTrigger(&s)

	ths[0].Wait(&s)
	if !e.Fire() {
		t.Fatal("Fire() on armed trigger = false")
	}
	if k.threads[0].blocked != nil {
		t.Fatal("Fire() did not wake the waiter")
	}
	if !k.pending {
		t.Fatal("Fire() did not request a reschedule")
	}
	if e.Fire() {
		t.Fatal("Fire() on disarmed trigger = true")
	}
	if e.Missed() != 1 || e.Fired() != 1 {
		t.Fatalf("Fired() = %d Missed() = %d, want 1 and 1", e.Fired(), e.Missed())
	}

	e.Restart()
	if !e.Armed() || !e.Fire() {
		t.Fatal("Restart() did not re-arm")
	}
	if s.Value() != 1 {
		t.Fatalf("count = %d, want 1", s.Value())
	}
}
