package reconcile

import "sync/atomic"

// Latch lets exactly one caller through, once. It is never reset.
type Latch struct {
	fired atomic.Bool
}

// Acquire reports whether the caller is the first one.
func (l *Latch) Acquire() bool {
	return l.fired.CompareAndSwap(false, true)
}

// Fired reports whether Acquire already succeeded.
func (l *Latch) Fired() bool {
	return l.fired.Load()
}
