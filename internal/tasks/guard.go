package tasks

import "sync/atomic"

// Guard is a non-blocking busy flag. A trigger that cannot acquire it is refused instead of queued.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire marks the guard busy, reporting false if it already was.
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release clears the busy flag.
func (g *Guard) Release() {
	g.busy.Store(false)
}

// Busy reports whether an operation holds the guard.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}
