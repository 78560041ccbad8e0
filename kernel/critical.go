package kernel

// Mask is the interrupt mask saved by Disable.
type Mask uint32

// Disable masks interrupt delivery and returns the previous mask. Sections
// nest; pair every call with Restore:
//
//	mask := k.Disable()
//	defer k.Restore(mask)
func (k *Kernel) Disable() Mask {
	m := k.mask
	k.mask++
	return m
}

// Restore reinstates a mask returned by Disable.
func (k *Kernel) Restore(m Mask) {
	k.mask = m
}
