package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tickos/hal"
	"tickos/internal/klog"
	"tickos/kernel"
	"tickos/monitor"
	"tickos/trace"
)

const defaultPress = 30 * time.Millisecond

func (s *system) registerCommands() error {
	cmds := []monitor.Command{
		{
			Name:    "press",
			Aliases: []string{"b"},
			Usage:   "press [ms]",
			Desc:    "pull the edge pin low for ms (default 30)",
			Run:     s.cmdPress,
		},
		{
			Name:    "stats",
			Aliases: []string{"s", "ps"},
			Usage:   "stats",
			Desc:    "show kernel and thread state",
			Run:     s.cmdStats,
		},
		{
			Name:    "trace",
			Aliases: []string{"t"},
			Usage:   "trace [ticks]",
			Desc:    "print the scheduler timeline",
			Run:     s.cmdTrace,
		},
		{
			Name:  "log",
			Usage: "log error|warn|info|debug",
			Desc:  "set the log level",
			Run:   s.cmdLog,
		},
	}
	for _, cmd := range cmds {
		if err := s.mon.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (s *system) cmdPress(ctx context.Context, args []string) error {
	d := defaultPress
	if len(args) > 0 {
		ms, err := strconv.Atoi(args[0])
		if err != nil || ms <= 0 {
			return fmt.Errorf("bad duration %q", args[0])
		}
		d = time.Duration(ms) * time.Millisecond
	}
	inj, ok := s.edgePin.(hal.GPIOInjector)
	if s.edgePin == nil || !ok {
		return fmt.Errorf("pin %q cannot be driven", s.cfg.EdgePin)
	}
	inj.Inject(false)
	defer inj.Inject(true)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return nil
}

type appStats struct {
	presses  uint64
	fired    uint64
	missed   uint64
	fifoLen  int
	fifoLost uint32
	mboxLost uint32
}

func (s *system) cmdStats(ctx context.Context, _ []string) error {
	var st kernel.Stats
	var as appStats
	err := s.k.Interrupt(ctx, func() {
		st = s.k.Stats()
		as = appStats{
			presses:  s.presses,
			fired:    s.edge.Fired(),
			missed:   s.edge.Missed(),
			fifoLen:  s.fifo.Len(),
			fifoLost: s.fifo.Lost(),
			mboxLost: s.mbox.Lost(),
		}
	})
	if err != nil {
		return err
	}

	m := s.mon
	m.Printf("%s tick=%d current=%v", st.State, st.Ticks, st.Current)
	m.Printf("periodic=%d wrap=%d counter=%d fired=%d", st.Periodic, st.WrapPeriod, st.Dispatch, st.Fired)
	for _, ti := range st.Threads {
		m.Printf("  %v %-7s prio=%-3d %s runs=%d", ti.ID, threadNames[ti.ID], ti.Priority, threadState(ti), ti.Runs)
	}
	m.Printf("fifo %d/%d lost=%d  mbox lost=%d", as.fifoLen, s.fifo.Cap(), as.fifoLost, as.mboxLost)
	m.Printf("edge fired=%d missed=%d presses=%d", as.fired, as.missed, as.presses)
	return nil
}

func threadState(ti kernel.ThreadInfo) string {
	switch {
	case ti.Blocked:
		return "blocked"
	case ti.Sleep > 0:
		return fmt.Sprintf("sleep(%d)", ti.Sleep)
	}
	return "ready"
}

func (s *system) cmdTrace(_ context.Context, args []string) error {
	if s.rec == nil {
		return fmt.Errorf("tracing disabled")
	}
	n := 60
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("bad tick count %q", args[0])
		}
		n = v
	}
	samples := s.rec.Samples()
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}

	var b strings.Builder
	names := s.rec.Names()
	if err := trace.WriteTimeline(&b, names, samples); err != nil {
		return err
	}
	if err := trace.WriteSummary(&b, names, s.rec.Summary()); err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
		s.mon.Printf("%s", line)
	}
	return nil
}

func (s *system) cmdLog(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: log error|warn|info|debug")
	}
	level, err := klog.ParseLevel(args[0])
	if err != nil {
		return err
	}
	s.log.SetLevel(level)
	s.mon.Printf("log level %s", level)
	return nil
}
