//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"tickos/app"
	"tickos/hal"
	"tickos/internal/klog"
	"tickos/monitor"
)

func main() {
	var hcfg hal.HeadlessConfig
	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Frame rate in headless mode.")
	flag.Uint64Var(&hcfg.Frames, "frames", 0, "Stop after N frames in headless mode (0 = run forever).")
	flag.BoolVar(&hcfg.TTY, "tty", false, "Read monitor commands from the terminal in headless mode.")

	cfg := app.DefaultConfig()
	var clock, period, sensor, report uint
	var level string
	flag.UintVar(&clock, "clock", 0, "Bus clock in Hz for the tick timer (0 = 1 ms host time base).")
	flag.UintVar(&period, "period", uint(cfg.TickPeriod), "Tick period in clock cycles.")
	flag.UintVar(&sensor, "sensor", uint(cfg.SensorPeriod), "Sensor sampling period in ticks.")
	flag.UintVar(&report, "report", uint(cfg.ReportPeriod), "Report period in ticks.")
	flag.IntVar(&cfg.FIFOSize, "fifo", cfg.FIFOSize, "Sample FIFO capacity.")
	flag.StringVar(&cfg.EdgePin, "edge", cfg.EdgePin, "GPIO whose falling edges fire the button trigger.")
	flag.BoolVar(&cfg.Trace, "trace", cfg.Trace, "Record and draw the scheduler timeline.")
	flag.StringVar(&level, "log", cfg.LogLevel.String(), "Log level: error, warn, info or debug.")
	flag.Parse()

	lv, err := klog.ParseLevel(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.LogLevel = lv
	cfg.ClockHz = uint32(clock)
	cfg.TickPeriod = uint32(period)
	cfg.SensorPeriod = uint32(sensor)
	cfg.ReportPeriod = uint32(report)
	newApp := func(h hal.HAL) func() error {
		return app.NewWithConfig(h, cfg)
	}

	if hcfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		exit(hal.RunHeadless(ctx, newApp, hcfg))
		return
	}
	exit(hal.RunWindow(newApp))
}

func exit(err error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, monitor.ErrQuit) {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
