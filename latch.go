package stackalloc

import (
	"runtime"
	"sync/atomic"
)

// spinLatch is a single-bit mutual-exclusion lock built on a CAS loop rather
// than sync.Mutex. The allocator's own critical sections are short (no
// syscalls; Go-heap allocation is limited to small values such as new
// nodes and stacks, errors, and log field maps),
// so a spin lock avoids the cost of parking a goroutine for what is
// expected to be a handful of instructions.
type spinLatch struct {
	held atomic.Bool
}

func (l *spinLatch) Lock() {
	for !l.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *spinLatch) Unlock() {
	l.held.Store(false)
}
