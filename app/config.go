package app

import (
	"fmt"

	"tickos/hal"
	"tickos/internal/klog"
	"tickos/kernel"
)

// Config selects the demo's timing and outputs. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// ClockHz drives the tick from a ticker of TickPeriod/ClockHz seconds.
	// Zero uses the HAL time base, one tick per base tick.
	ClockHz    uint32
	TickPeriod uint32

	// SensorPeriod and ReportPeriod are dispatcher periods in ticks.
	SensorPeriod uint32
	ReportPeriod uint32
	// Heartbeat is the LED half-period in ticks.
	Heartbeat uint32
	// Debounce is how long the button thread sleeps before re-arming.
	Debounce uint32

	FIFOSize int
	// EdgePin names the GPIO whose falling edges fire the edge trigger.
	EdgePin string

	// Trace draws the scheduler timeline; TraceDepth is the sample ring size.
	Trace      bool
	TraceDepth int
	// Console shows log lines on the framebuffer.
	Console bool
	// Monitor reads commands from the HAL keyboard.
	Monitor bool

	LogLevel klog.Level
}

// DefaultConfig is a 1 ms tick on an 80 MHz clock.
func DefaultConfig() Config {
	return Config{
		TickPeriod:   kernel.DefaultClockHz / 1000,
		SensorPeriod: 10,
		ReportPeriod: 250,
		Heartbeat:    500,
		Debounce:     50,
		FIFOSize:     16,
		EdgePin:      hal.PinButton,
		Trace:        true,
		TraceDepth:   512,
		Console:      true,
		Monitor:      true,
		LogLevel:     klog.LevelInfo,
	}
}

func (c Config) validate() error {
	if c.TickPeriod == 0 || c.TickPeriod > kernel.MaxTickPeriod {
		return fmt.Errorf("app: tick period %d out of range", c.TickPeriod)
	}
	if c.SensorPeriod == 0 || c.ReportPeriod == 0 {
		return fmt.Errorf("app: periods must be non-zero")
	}
	if c.FIFOSize < 1 || c.FIFOSize > kernel.MaxFIFOSize {
		return fmt.Errorf("app: fifo size %d out of range", c.FIFOSize)
	}
	return nil
}
