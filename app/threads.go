package app

import "tickos/kernel"

// Thread slots, in ring order. The filter runs first after launch.
const (
	threadFilter = iota
	threadReport
	threadButton
	threadHeartbeat
	threadIdle
	threadCount
)

var threadNames = [threadCount]string{"filter", "report", "button", "beat", "idle"}

var threadPriorities = [threadCount]uint8{
	threadFilter:    1,
	threadReport:    2,
	threadButton:    0,
	threadHeartbeat: 3,
	threadIdle:      kernel.MaxPriority,
}

func (s *system) entries() []kernel.Entry {
	return []kernel.Entry{
		threadFilter:    s.filter,
		threadReport:    s.report,
		threadButton:    s.button,
		threadHeartbeat: s.heartbeat,
		threadIdle:      idle,
	}
}

// sample is the sensor interrupt: a triangle wave with the pulse input
// added on top, pushed into the FIFO.
func (s *system) sample() {
	s.phase = (s.phase + 1) % 64
	v := s.phase
	if v >= 32 {
		v = 63 - v
	}
	v *= 8
	if s.pulse != nil {
		if hi, err := s.pulse.Read(); err == nil && hi {
			v += 256
		}
	}
	if !s.fifo.Put(v) {
		s.log.Debugf("sensor: fifo full")
	}
}

// filter averages blocks of samples and posts each average to the mailbox.
func (s *system) filter(th *kernel.Thread) {
	block := s.cfg.ReportPeriod / s.cfg.SensorPeriod
	if block == 0 {
		block = 1
	}
	var sum, n uint32
	for {
		sum += s.fifo.Get(th)
		n++
		if n < block {
			continue
		}
		if !s.mbox.Send(sum / n) {
			s.log.Debugf("filter: mailbox busy")
		}
		sum, n = 0, 0
	}
}

func (s *system) report(th *kernel.Thread) {
	log := s.log.With("report")
	for {
		avg := s.mbox.Recv(th)
		log.Infof("avg=%d tick=%d fifo.lost=%d mbox.lost=%d", avg, s.k.Ticks(), s.fifo.Lost(), s.mbox.Lost())
	}
}

// button handles one edge, sleeps through the bounce and re-arms.
func (s *system) button(th *kernel.Thread) {
	log := s.log.With("button")
	for {
		th.Wait(&s.edgeSem)
		s.presses++
		log.Infof("press %d at tick %d", s.presses, s.k.Ticks())
		th.Sleep(s.cfg.Debounce)
		s.edge.Restart()
	}
}

func (s *system) heartbeat(th *kernel.Thread) {
	on := false
	for {
		th.Wait(&s.beatSem)
		on = !on
		if s.led == nil {
			continue
		}
		if on {
			s.led.High()
		} else {
			s.led.Low()
		}
	}
}

func idle(th *kernel.Thread) {
	for {
		th.Idle()
	}
}
