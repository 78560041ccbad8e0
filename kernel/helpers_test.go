package kernel

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

// boot registers busy threads and marks the kernel running without starting
// goroutines, so scheduler passes only move k.current.
func boot(t *testing.T, prios ...uint8) (*Kernel, []*Thread) {
	t.Helper()
	k, ths := register(t, Config{}, prios...)
	k.state = StateRunning
	return k, ths
}

// register is boot without the state change, for tests that add periodic
// bindings before marking the kernel running.
func register(t *testing.T, cfg Config, prios ...uint8) (*Kernel, []*Thread) {
	t.Helper()
	k := New(cfg)
	entries := make([]Entry, len(prios))
	for i := range entries {
		entries[i] = func(*Thread) {}
	}
	if err := k.RegisterThreads(entries, prios); err != nil {
		t.Fatalf("RegisterThreads() error = %v", err)
	}
	ths := make([]*Thread, len(prios))
	for i := range ths {
		ths[i] = k.Thread(ThreadID(i))
	}
	return k, ths
}

func ticks(k *Kernel, n int) []ThreadID {
	var got []ThreadID
	for i := 0; i < n; i++ {
		k.Tick()
		got = append(got, k.Current())
	}
	return got
}

func mustFault(t *testing.T, fn func()) *Fault {
	t.Helper()
	var f *Fault
	func() {
		defer func() {
			r := recover()
			var ok bool
			if f, ok = r.(*Fault); !ok {
				t.Fatalf("recovered %v (%T), want *Fault", r, r)
			}
		}()
		fn()
	}()
	return f
}

func equalIDs(a, b []ThreadID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type silentTicks struct{}

func (silentTicks) Ticks() <-chan uint64 { return nil }

type passRecorder struct {
	ticks []ThreadID
	all   int
}

func (p *passRecorder) Scheduled(tick uint64, prev, next ThreadID, preempt bool) {
	p.all++
	if preempt {
		p.ticks = append(p.ticks, next)
	}
}

// launch starts k in the background and returns a stop func reporting the
// Launch error.
func launch(t *testing.T, k *Kernel) (context.Context, func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- k.Launch(ctx, 80_000) }()

	deadline := time.Now().Add(2 * time.Second)
	for !k.started.Load() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("kernel did not launch")
		}
		runtime.Gosched()
	}
	return ctx, func() error {
		cancel()
		select {
		case err := <-errc:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("Launch did not return after cancel")
			return nil
		}
	}
}

func interrupt(t *testing.T, ctx context.Context, k *Kernel, fn func()) {
	t.Helper()
	if err := k.Interrupt(ctx, fn); err != nil && !errors.Is(err, ErrHalted) {
		t.Fatalf("Interrupt() error = %v", err)
	}
}
