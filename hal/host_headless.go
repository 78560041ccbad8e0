//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	// Hz is the host loop rate; each iteration advances the tick stream by
	// the wall time elapsed and calls the app step func.
	Hz int
	// Frames stops the runner after this many iterations (0 = run until ctx
	// is done).
	Frames uint64
	// TTY reads keyboard input from the controlling terminal.
	TTY bool
}

// RunHeadless runs the app without opening a window.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	h := newHost()
	if cfg.TTY {
		closeTTY, err := attachTTY(ctx, h.kbd.ch)
		if err != nil {
			h.logger.WriteLineString(fmt.Sprintf("tty: %v (keyboard disabled)", err))
		} else {
			defer closeTTY()
		}
	}
	step := newApp(h)

	t := time.NewTicker(d)
	defer t.Stop()

	var frames uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			h.t.advance(now)
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			frames++
			if cfg.Frames > 0 && frames >= cfg.Frames {
				return nil
			}
		}
	}
}
