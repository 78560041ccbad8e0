//go:build !tinygo

package hal

import "time"

// hostTime converts wall-clock progress, sampled by the host loop, into a
// stream of fixed-length ticks.
type hostTime struct {
	ch     chan uint64
	seq    uint64
	period time.Duration

	last time.Time
	acc  time.Duration
}

func newHostTime(period time.Duration) *hostTime {
	if period <= 0 {
		period = time.Millisecond
	}
	return &hostTime{ch: make(chan uint64, 1024), period: period}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

// advance emits the ticks elapsed since the previous call. The first call
// emits one tick.
func (t *hostTime) advance(now time.Time) {
	if t.last.IsZero() {
		t.last = now
		t.emit(1)
		return
	}
	t.acc += now.Sub(t.last)
	t.last = now

	n := uint64(t.acc / t.period)
	if n == 0 {
		return
	}
	t.acc %= t.period
	t.emit(n)
}

// emit drops ticks the consumer has not kept up with, like a missed timer
// interrupt.
func (t *hostTime) emit(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
