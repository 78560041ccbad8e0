package kernel

// Mailbox is a single-slot channel. A send while the slot is occupied is
// dropped and counted.
type Mailbox struct {
	k *Kernel
	// sent wakes the receiver; full marks the slot occupied until the
	// receiver has read it.
	sent Semaphore
	full bool
	data uint32
	lost uint32
}

// NewMailbox returns an empty mailbox.
func (k *Kernel) NewMailbox() *Mailbox {
	return &Mailbox{k: k}
}

// Send stores v and wakes a receiver. It never blocks and may be called
// from interrupt context. It returns false if the slot was occupied.
func (m *Mailbox) Send(v uint32) bool {
	mask := m.k.Disable()
	defer m.k.Restore(mask)

	if m.full {
		m.lost++
		return false
	}
	m.data = v
	m.full = true
	m.k.Signal(&m.sent)
	return true
}

// Recv blocks th until a value is available and returns it.
func (m *Mailbox) Recv(th *Thread) uint32 {
	th.Wait(&m.sent)
	return m.take()
}

// take reads and frees the slot.
func (m *Mailbox) take() uint32 {
	mask := m.k.Disable()
	defer m.k.Restore(mask)
	m.full = false
	return m.data
}

// Pending reports whether a value is waiting in the slot.
func (m *Mailbox) Pending() bool { return m.full }

// Lost returns the number of dropped sends.
func (m *Mailbox) Lost() uint32 { return m.lost }
