// Package app is the demo system: a sensor pipeline, a debounced button
// and a heartbeat running on the kernel, with a trace view, a log console
// and a command monitor on the host.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tickos/console"
	"tickos/display"
	"tickos/hal"
	"tickos/internal/buildinfo"
	"tickos/internal/klog"
	"tickos/kernel"
	"tickos/monitor"
	"tickos/trace"

	"golang.org/x/sync/errgroup"
)

const (
	// traceH is the height of the trace view; the console gets the rest.
	traceH = 96
	// traceEvery redraws the trace every n frames.
	traceEvery = 4
	// faultHold keeps the fault screen up for n frames before the step
	// func reports the fault.
	faultHold = 180
	edgePoll  = time.Millisecond
)

type system struct {
	cfg Config
	h   hal.HAL
	log *klog.Logger
	k   *kernel.Kernel

	fifo    *kernel.FIFO
	mbox    *kernel.Mailbox
	edge    *kernel.EdgeTrigger
	edgeSem kernel.Semaphore
	beatSem kernel.Semaphore

	led     hal.LED
	pulse   hal.GPIOPin
	edgePin hal.GPIOPin

	// CPU-owned.
	phase   uint32
	presses uint64

	fb       hal.Framebuffer
	rec      *trace.Recorder
	renderer *trace.Renderer
	con      *console.Console
	mon      *monitor.Monitor

	cancel context.CancelFunc
	done   chan struct{}
	err    error

	faultMu sync.Mutex
	fault   *kernel.Fault
	drawn   bool
	frame   uint64
	hold    int
}

// New starts the demo with DefaultConfig and returns its frame step func.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, DefaultConfig())
}

// NewWithConfig starts the demo. The returned step func draws one frame and
// returns non-nil once the system has stopped: monitor.ErrQuit after the
// quit command, or the kernel's error.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := newSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	s.start(context.Background())
	return s.step
}

// Run starts the demo and drives its frames forever (TinyGo entrypoint).
func Run(h hal.HAL) {
	step := New(h)
	for {
		if err := step(); err != nil {
			if l := h.Logger(); l != nil {
				l.WriteLineString(fmt.Sprintf("tickos: stopped: %v", err))
			}
			select {}
		}
		time.Sleep(16 * time.Millisecond)
	}
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &system{cfg: cfg, h: h, led: h.LED(), done: make(chan struct{})}

	var sinks []klog.Sink
	if l := h.Logger(); l != nil {
		sinks = append(sinks, l)
	}
	s.log = klog.New(cfg.LogLevel, sinks...)
	s.log.Infof("tickos %s", buildinfo.Short())

	if d := h.Display(); d != nil {
		s.fb = d.Framebuffer()
	}
	if s.fb != nil {
		w, fh := s.fb.Width(), s.fb.Height()
		s.fb.ClearRGB(0, 0, 0)
		if cfg.Trace {
			s.rec = trace.NewRecorder(threadNames[:], cfg.TraceDepth)
			s.renderer = trace.NewRenderer(s.rec, display.NewRegion(s.fb, 0, 0, w, traceH))
		}
		if cfg.Console {
			s.con = console.New(display.NewRegion(s.fb, 0, traceH, w, fh-traceH))
			s.log.AddSink(s.con)
		}
	} else if cfg.Trace {
		s.rec = trace.NewRecorder(threadNames[:], cfg.TraceDepth)
	}

	kcfg := kernel.Config{ClockHz: cfg.ClockHz, Log: s.log}
	if cfg.ClockHz == 0 {
		if t := h.Time(); t != nil {
			kcfg.TickSource = t
		}
	}
	if s.rec != nil {
		kcfg.Probe = s.rec
	}
	s.k = kernel.New(kcfg)
	s.k.SetFaultHandler(s.onFault)

	if g := h.GPIO(); g != nil {
		s.pulse = hal.FindPin(g, hal.PinPulse)
		if s.pulse != nil {
			_ = s.pulse.Configure(hal.GPIOModeInput, hal.GPIOPullNone)
		}
		if cfg.EdgePin != "" {
			s.edgePin = hal.FindPin(g, cfg.EdgePin)
			if s.edgePin != nil {
				_ = s.edgePin.Configure(hal.GPIOModeInput, hal.GPIOPullUp)
			}
		}
		if s.rec != nil {
			s.log.Debugf("trace: %d profile pins", s.rec.AttachPins(g))
		}
	}

	var err error
	if s.fifo, err = s.k.NewFIFO(cfg.FIFOSize); err != nil {
		return nil, err
	}
	s.mbox = s.k.NewMailbox()
	s.edge = s.k.NewEdgeTrigger(&s.edgeSem)

	prios := threadPriorities
	if err := s.k.RegisterThreads(s.entries(), prios[:]); err != nil {
		return nil, err
	}
	bindings := []kernel.PeriodicBinding{{Period: cfg.SensorPeriod, Event: s.sample}}
	if cfg.Heartbeat > 0 {
		bindings = append(bindings, kernel.PeriodicBinding{Period: cfg.Heartbeat, Sem: &s.beatSem})
	}
	if err := s.k.RegisterPeriodicBindings(bindings); err != nil {
		return nil, err
	}

	if cfg.Monitor {
		s.mon = monitor.New(monitorOutput{s})
		if err := s.registerCommands(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// start launches the kernel and its helpers under one errgroup. The first
// to fail cancels the rest.
func (s *system) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.k.Launch(ctx, s.cfg.TickPeriod)
	})
	if s.edgePin != nil {
		g.Go(func() error { return s.watchPin(ctx, s.edgePin) })
	}
	if s.mon != nil {
		if in := s.h.Input(); in != nil {
			if kbd := in.Keyboard(); kbd != nil {
				g.Go(func() error { return s.mon.Run(ctx, kbd.Events()) })
			}
		}
	}

	go func() {
		s.err = g.Wait()
		cancel()
		close(s.done)
	}()
}

// watchPin raises the edge interrupt on each falling edge of pin.
func (s *system) watchPin(ctx context.Context, pin hal.GPIOPin) error {
	t := time.NewTicker(edgePoll)
	defer t.Stop()

	last, _ := pin.Read()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		level, err := pin.Read()
		if err != nil {
			continue
		}
		if last && !level {
			if err := s.k.Interrupt(ctx, func() { s.edge.Fire() }); err != nil {
				return err
			}
		}
		last = level
	}
}

// step draws one frame and reports whether the system is still running.
func (s *system) step() error {
	s.frame++

	select {
	case <-s.done:
		if f := s.takeFault(); f != nil {
			s.drawFault(f)
			if s.hold < faultHold {
				s.hold++
				return nil
			}
		}
		return s.stopErr()
	default:
	}

	if s.fb == nil {
		return nil
	}
	drew := false
	if s.renderer != nil && s.frame%traceEvery == 1 {
		if err := s.renderer.Draw(); err != nil {
			return err
		}
		drew = true
	}
	if s.con != nil {
		ok, err := s.con.Flush()
		if err != nil {
			return err
		}
		drew = drew || ok
	}
	if !drew {
		return nil
	}
	if err := s.fb.Present(); err != nil && !errors.Is(err, hal.ErrNotImplemented) {
		return err
	}
	return nil
}

// stopErr maps the group result to the step error. Cancellation after a
// quit is reported as the quit.
func (s *system) stopErr() error {
	switch {
	case s.err == nil:
		return monitor.ErrQuit
	case errors.Is(s.err, context.Canceled):
		return monitor.ErrQuit
	}
	return s.err
}

// Stop cancels the system and waits for the kernel to halt.
func (s *system) Stop() error {
	s.cancel()
	<-s.done
	return s.err
}

func (s *system) onFault(f *kernel.Fault) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if s.fault == nil {
		s.fault = f
	}
}

func (s *system) takeFault() *kernel.Fault {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.fault
}

// monitorOutput sends monitor lines to the console and the HAL logger
// without a level tag.
type monitorOutput struct{ s *system }

func (o monitorOutput) WriteLineString(line string) {
	if l := o.s.h.Logger(); l != nil {
		l.WriteLineString(line)
	}
	if o.s.con != nil {
		o.s.con.WriteLineString(line)
	}
}
