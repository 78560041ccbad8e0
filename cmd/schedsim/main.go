// Command schedsim runs a thread set through the kernel scheduler for a
// fixed number of ticks and prints which thread held the CPU on each tick.
//
//	schedsim -prio 1,1,2,2 -ticks 20
//	schedsim -prio 0,1 -sleep 3,0 -ticks 30 -idle=false
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"tickos/internal/klog"
	"tickos/kernel"
	"tickos/trace"
)

type simConfig struct {
	prios  []uint8
	sleeps []uint32
	ticks  int
	idle   bool
	log    *klog.Logger
}

type result struct {
	names   []string
	samples []trace.Sample
	summary trace.Summary
	stats   kernel.Stats
}

func main() {
	var (
		prio    = flag.String("prio", "1,1,2,2", "Comma-separated thread priorities (0 = highest).")
		sleep   = flag.String("sleep", "", "Comma-separated per-thread sleep after each tick it runs (default 0).")
		ticks   = flag.Int("ticks", 20, "Number of ticks to simulate.")
		idle    = flag.Bool("idle", true, "Append an idle thread at the lowest priority.")
		verbose = flag.Bool("v", false, "Log scheduler decisions.")
	)
	flag.Parse()

	cfg := simConfig{ticks: *ticks, idle: *idle}
	p, err := parseList(*prio, 8, kernel.MaxPriority)
	if err != nil {
		fatalf("prio: %v", err)
	}
	for _, v := range p {
		cfg.prios = append(cfg.prios, uint8(v))
	}
	if *sleep != "" {
		s, err := parseList(*sleep, 32, 1<<32-1)
		if err != nil {
			fatalf("sleep: %v", err)
		}
		for _, v := range s {
			cfg.sleeps = append(cfg.sleeps, uint32(v))
		}
	}
	if *verbose {
		cfg.log = klog.New(klog.LevelDebug, stderrSink{})
	}

	res, err := simulate(cfg)
	if res != nil {
		_ = trace.WriteTimeline(os.Stdout, res.names, res.samples)
		fmt.Println()
		_ = trace.WriteSummary(os.Stdout, res.names, res.summary)
	}
	if err != nil {
		fatalf("%v", err)
	}
}

// parseList parses comma-separated unsigned values no larger than max.
func parseList(s string, bits int, max uint64) ([]uint64, error) {
	var out []uint64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, fmt.Errorf("empty value in %q", s)
		}
		v, err := strconv.ParseUint(f, 10, bits)
		if err != nil {
			return nil, err
		}
		if v > max {
			return nil, fmt.Errorf("%d exceeds %d", v, max)
		}
		out = append(out, v)
	}
	return out, nil
}

// simulate launches the thread set and drives cfg.ticks tick interrupts
// from this goroutine. A kernel fault is returned with the partial result.
func simulate(cfg simConfig) (*result, error) {
	n := len(cfg.prios)
	if cfg.idle {
		n++
	}
	names := make([]string, 0, n)
	entries := make([]kernel.Entry, 0, n)
	prios := make([]uint8, 0, n)
	for i, p := range cfg.prios {
		var d uint32
		if i < len(cfg.sleeps) {
			d = cfg.sleeps[i]
		}
		names = append(names, kernel.ThreadID(i).String())
		entries = append(entries, worker(d))
		prios = append(prios, p)
	}
	if cfg.idle {
		names = append(names, "idle")
		entries = append(entries, worker(0))
		prios = append(prios, kernel.MaxPriority)
	}

	rec := trace.NewRecorder(names, max(cfg.ticks, 1))
	k := kernel.New(kernel.Config{TickSource: silent{}, Probe: rec, Log: cfg.log})
	if err := k.RegisterThreads(entries, prios); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- k.Launch(ctx, kernel.DefaultClockHz/1000) }()

	res := &result{names: names}
	var runErr error
	for i := 0; i < cfg.ticks; i++ {
		err := k.Interrupt(ctx, k.Tick)
		for errors.Is(err, kernel.ErrNotLaunched) {
			runtime.Gosched()
			err = k.Interrupt(ctx, k.Tick)
		}
		if err != nil {
			runErr = err
			break
		}
	}
	if runErr == nil {
		res.stats, runErr = k.Inspect(ctx)
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		runErr = err
	}
	res.samples = rec.Samples()
	res.summary = rec.Summary()
	return res, runErr
}

// worker holds the CPU for one interrupt at a time, sleeping d ticks
// between turns when d > 0.
func worker(d uint32) kernel.Entry {
	return func(th *kernel.Thread) {
		for {
			th.Idle()
			if d > 0 {
				th.Sleep(d)
			}
		}
	}
}

type silent struct{}

func (silent) Ticks() <-chan uint64 { return nil }

type stderrSink struct{}

func (stderrSink) WriteLineString(s string) { fmt.Fprintln(os.Stderr, s) }

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
