package kernel

import "fmt"

// MaxFIFOSize bounds FIFO capacity.
const MaxFIFOSize = 1024

// FIFO is a bounded multi-slot channel. Puts never block; a put into a full
// FIFO is dropped and counted. Gets block while the FIFO is empty.
type FIFO struct {
	k        *Kernel
	buf      []uint32
	put, get int
	// n counts stored items, including ones a woken getter has not read yet.
	n    int
	cur  Semaphore
	lost uint32
}

// NewFIFO returns an empty FIFO holding up to size items.
func (k *Kernel) NewFIFO(size int) (*FIFO, error) {
	if size < 1 || size > MaxFIFOSize {
		return nil, fmt.Errorf("%w: %d (1..%d)", ErrFIFOSize, size, MaxFIFOSize)
	}
	return &FIFO{k: k, buf: make([]uint32, size)}, nil
}

// Put appends v and wakes a getter. It may be called from interrupt
// context. It returns false if the FIFO was full.
func (f *FIFO) Put(v uint32) bool {
	mask := f.k.Disable()
	defer f.k.Restore(mask)

	if f.n == len(f.buf) {
		f.lost++
		return false
	}
	f.buf[f.put] = v
	f.put = (f.put + 1) % len(f.buf)
	f.n++
	f.k.Signal(&f.cur)
	return true
}

// Get blocks th until an item is available and returns the oldest one.
func (f *FIFO) Get(th *Thread) uint32 {
	th.Wait(&f.cur)

	mask := f.k.Disable()
	defer f.k.Restore(mask)
	v := f.buf[f.get]
	f.get = (f.get + 1) % len(f.buf)
	f.n--
	return v
}

func (f *FIFO) Len() int     { return f.n }
func (f *FIFO) Cap() int     { return len(f.buf) }
func (f *FIFO) Lost() uint32 { return f.lost }
