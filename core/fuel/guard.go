package fuel

import "sync/atomic"

// Guard is a single-slot gate. The zero value is open.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire takes the slot. It returns false if the slot is already held.
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the slot.
func (g *Guard) Release() {
	g.busy.Store(false)
}

// Busy reports whether the slot is held.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}
