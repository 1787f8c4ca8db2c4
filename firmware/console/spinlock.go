package console

import "sync/atomic"

// SpinLock is a mutual exclusion lock for code that runs with interrupts
// off on several harts. TinyGo lowers the compare-and-swap to an AMO
// instruction, so no lr/sc pair is involved.
type SpinLock struct {
	state atomic.Uint32
}

func (l *SpinLock) Lock() {
	// Try to replace 0 with 1. Once we succeed, the lock has been acquired.
	for !l.state.CompareAndSwap(0, 1) {
		spinLoopHint()
	}
}

// TryLock makes at most spins attempts to take the lock and reports whether
// it succeeded.
func (l *SpinLock) TryLock(spins int) bool {
	for i := 0; i < spins; i++ {
		if l.state.CompareAndSwap(0, 1) {
			return true
		}
		spinLoopHint()
	}
	return false
}

func (l *SpinLock) Unlock() {
	// Unlock the lock. Simply write 0, because we already know it is locked.
	l.state.Store(0)
}
