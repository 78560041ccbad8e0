package kernel

import (
	"fmt"
	"strings"
)

// Fault describes a kernel invariant violation or a thread panic. The CPU
// halts after a fault.
type Fault struct {
	Thread ThreadID
	Tick   uint64
	Reason string
	Stack  []byte
}

func (f *Fault) Error() string {
	return fmt.Sprintf("kernel fault: %v at tick %d: %s", f.Thread, f.Tick, f.Reason)
}

// SetFaultHandler installs the handler invoked on the first fault. Call it
// before Launch. The handler must not panic.
func (k *Kernel) SetFaultHandler(fn func(*Fault)) {
	k.onFault = fn
}

// Faulted reports whether a fault has been raised.
func (k *Kernel) Faulted() bool { return k.faulted.Load() }

// fault reports an invariant violation and panics with the *Fault.
func (k *Kernel) fault(id ThreadID, reason string) {
	f := &Fault{Thread: id, Tick: k.ticks, Reason: reason, Stack: captureStack()}
	k.report(f)
	panic(f)
}

func (k *Kernel) report(f *Fault) {
	k.faultOnce.Do(func() {
		k.faulted.Store(true)
		k.log.Errorf("%s", f.Error())
		for _, line := range strings.Split(strings.TrimSpace(string(f.Stack)), "\n") {
			k.log.Debugf("  %s", line)
		}
		if k.onFault != nil {
			k.onFault(f)
		}
	})
}
