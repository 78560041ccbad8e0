package kernel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func idle(th *Thread) {
	for {
		th.Idle()
	}
}

func TestRegisterThreadsErrors(t *testing.T) {
	nop := func(*Thread) {}
	tests := []struct {
		name    string
		entries []Entry
		prios   []uint8
		want    error
	}{
		{name: "none", want: ErrThreadCount},
		{name: "too many", entries: make([]Entry, MaxThreads+1), prios: make([]uint8, MaxThreads+1), want: ErrThreadCount},
		{name: "count mismatch", entries: []Entry{nop, nop}, prios: []uint8{1}, want: ErrThreadCount},
		{name: "nil entry", entries: []Entry{nop, nil}, prios: []uint8{1, 1}, want: ErrNilEntry},
		{name: "sentinel priority", entries: []Entry{nop}, prios: []uint8{255}, want: ErrPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := New(Config{})
			if err := k.RegisterThreads(tt.entries, tt.prios); !errors.Is(err, tt.want) {
				t.Fatalf("RegisterThreads() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegisterThreadsTwice(t *testing.T) {
	k := New(Config{})
	entries := []Entry{idle, idle}
	if err := k.RegisterThreads(entries, []uint8{0, 254}); err != nil {
		t.Fatalf("RegisterThreads() error = %v", err)
	}
	if err := k.RegisterThreads(entries, []uint8{0, 0}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second RegisterThreads() error = %v, want ErrAlreadyRegistered", err)
	}

	st := k.Stats()
	if st.State != StateNotLaunched || st.Current != 0 || len(st.Threads) != 2 {
		t.Fatalf("Stats() = %+v", st)
	}
	if st.Threads[0].Next != 1 || st.Threads[1].Next != 0 {
		t.Fatalf("ring = %v -> %v, %v -> %v, want a two-element cycle",
			st.Threads[0].ID, st.Threads[0].Next, st.Threads[1].ID, st.Threads[1].Next)
	}
}

func TestLaunchErrors(t *testing.T) {
	ctx := context.Background()

	k := New(Config{TickSource: silentTicks{}})
	if err := k.Launch(ctx, 1000); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Launch() without threads error = %v, want ErrNotRegistered", err)
	}
	for _, period := range []uint32{0, MaxTickPeriod + 1} {
		if err := k.Launch(ctx, period); !errors.Is(err, ErrTickPeriod) {
			t.Fatalf("Launch(%d) error = %v, want ErrTickPeriod", period, err)
		}
	}
	if err := k.Interrupt(ctx, func() {}); !errors.Is(err, ErrNotLaunched) {
		t.Fatalf("Interrupt() before launch error = %v, want ErrNotLaunched", err)
	}
}

func TestLaunchRunsTicksEndToEnd(t *testing.T) {
	probe := &passRecorder{}
	k := New(Config{TickSource: silentTicks{}, Probe: probe})
	if err := k.RegisterThreads([]Entry{idle, idle, idle, idle}, []uint8{1, 1, 2, 2}); err != nil {
		t.Fatalf("RegisterThreads() error = %v", err)
	}

	ctx, stop := launch(t, k)
	for i := 0; i < 4; i++ {
		interrupt(t, ctx, k, k.Tick)
	}
	st, err := k.Inspect(ctx)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if err := stop(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Launch() error = %v, want context.Canceled", err)
	}

	want := []ThreadID{1, 0, 1, 0}
	if !equalIDs(probe.ticks, want) {
		t.Fatalf("tick schedule = %v, want %v", probe.ticks, want)
	}
	if st.Ticks != 4 || st.State != StateRunning {
		t.Fatalf("Inspect() ticks = %d state = %v", st.Ticks, st.State)
	}
	if st.Threads[0].Runs != 2 || st.Threads[1].Runs != 2 || st.Threads[2].Runs != 0 || st.Threads[3].Runs != 0 {
		t.Fatalf("runs = %+v", st.Threads)
	}
	if k.State() != StateHalted {
		t.Fatalf("State() = %v, want halted", k.State())
	}
}

func TestRegisterAfterLaunchRejected(t *testing.T) {
	k := New(Config{TickSource: silentTicks{}})
	if err := k.RegisterThreads([]Entry{idle}, []uint8{0}); err != nil {
		t.Fatalf("RegisterThreads() error = %v", err)
	}
	ctx, stop := launch(t, k)
	defer stop()

	var s Semaphore
	if err := k.RegisterThreads([]Entry{idle}, []uint8{0}); !errors.Is(err, ErrLaunched) {
		t.Fatalf("RegisterThreads() after launch error = %v, want ErrLaunched", err)
	}
	if err := k.RegisterPeriodicBindings([]PeriodicBinding{{Period: 1, Sem: &s}}); !errors.Is(err, ErrLaunched) {
		t.Fatalf("RegisterPeriodicBindings() after launch error = %v, want ErrLaunched", err)
	}
	if err := k.Launch(ctx, 1000); !errors.Is(err, ErrLaunched) {
		t.Fatalf("second Launch() error = %v, want ErrLaunched", err)
	}
	st, err := k.Inspect(ctx)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if st.Periodic != 0 || len(st.Threads) != 1 {
		t.Fatalf("Inspect() = %+v, want the original single thread and no bindings", st)
	}
}

func TestLaunchWakesWaiterOnSignal(t *testing.T) {
	var s Semaphore
	woke := make(chan uint64, 4)
	waiter := func(th *Thread) {
		for {
			th.Wait(&s)
			woke <- th.Kernel().Ticks()
		}
	}

	k := New(Config{TickSource: silentTicks{}})
	if err := k.RegisterThreads([]Entry{idle, waiter}, []uint8{2, 1}); err != nil {
		t.Fatalf("RegisterThreads() error = %v", err)
	}
	ctx, stop := launch(t, k)
	defer stop()

	interrupt(t, ctx, k, k.Tick) // waiter starts and blocks
	interrupt(t, ctx, k, func() { k.Signal(&s) })
	select {
	case <-woke:
		t.Fatal("waiter ran before a scheduler pass")
	case <-time.After(20 * time.Millisecond):
	}

	interrupt(t, ctx, k, k.Tick)
	select {
	case tick := <-woke:
		if tick != 2 {
			t.Fatalf("waiter woke at tick %d, want 2", tick)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter did not wake")
	}
}

func TestLaunchSleepAndFIFOPipeline(t *testing.T) {
	k := New(Config{TickSource: silentTicks{}})
	f, err := k.NewFIFO(4)
	if err != nil {
		t.Fatalf("NewFIFO() error = %v", err)
	}
	mb := k.NewMailbox()
	out := make(chan uint32, 8)

	producer := func(th *Thread) {
		for v := uint32(1); ; v++ {
			f.Put(v)
			th.Sleep(2)
		}
	}
	consumer := func(th *Thread) {
		for {
			mb.Send(f.Get(th) * 10)
		}
	}
	sink := func(th *Thread) {
		for {
			out <- mb.Recv(th)
		}
	}
	if err := k.RegisterThreads([]Entry{idle, producer, consumer, sink}, []uint8{254, 1, 1, 2}); err != nil {
		t.Fatalf("RegisterThreads() error = %v", err)
	}
	ctx, stop := launch(t, k)
	defer stop()

	for i := 0; i < 6; i++ {
		interrupt(t, ctx, k, k.Tick)
	}
	for _, want := range []uint32{10, 20, 30} {
		select {
		case got := <-out:
			if got != want {
				t.Fatalf("sink got %d, want %d", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("sink did not receive %d", want)
		}
	}
}

func TestEntryReturnHaltsWithFault(t *testing.T) {
	var handled []*Fault
	k := New(Config{TickSource: silentTicks{}})
	k.SetFaultHandler(func(f *Fault) { handled = append(handled, f) })
	if err := k.RegisterThreads([]Entry{func(*Thread) {}, idle}, []uint8{1, 1}); err != nil {
		t.Fatalf("RegisterThreads() error = %v", err)
	}

	err := k.Launch(context.Background(), 1000)
	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("Launch() error = %v, want *Fault", err)
	}
	if f.Thread != 0 || f.Reason != "thread entry returned" {
		t.Fatalf("fault = %v", f)
	}
	if len(handled) != 1 || handled[0] != f {
		t.Fatalf("fault handler calls = %d, want 1", len(handled))
	}
}

func TestThreadPanicHaltsWithFault(t *testing.T) {
	k := New(Config{TickSource: silentTicks{}})
	boom := func(th *Thread) { panic("boom") }
	if err := k.RegisterThreads([]Entry{boom}, []uint8{0}); err != nil {
		t.Fatalf("RegisterThreads() error = %v", err)
	}

	err := k.Launch(context.Background(), 1000)
	var f *Fault
	if !errors.As(err, &f) || f.Reason != "panic: boom" {
		t.Fatalf("Launch() error = %v, want panic fault", err)
	}
	if len(f.Stack) == 0 {
		t.Fatal("fault has no stack")
	}
}

func TestLaunchWithClockTicker(t *testing.T) {
	k := New(Config{ClockHz: 1_000_000})
	if err := k.RegisterThreads([]Entry{idle, idle}, []uint8{3, 3}); err != nil {
		t.Fatalf("RegisterThreads() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- k.Launch(ctx, 1000) }() // 1ms ticks

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := k.Inspect(ctx)
		if err == nil && st.Ticks >= 5 {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("ticks did not advance (err %v)", err)
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Launch() error = %v, want context.Canceled", err)
	}
}
