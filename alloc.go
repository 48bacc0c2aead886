package stackalloc

import "unsafe"

// Allocator is the top-level, concurrency-safe entry point. It serializes
// access to a router behind a spinLatch.
type Allocator struct {
	latch  spinLatch
	router *router
}

// NewAllocator builds an Allocator that draws its backing blocks from
// source, using cfg to decide chunk sizes and category boundaries. A nil
// logger is replaced with NoopLogger.
func NewAllocator(source BlockSource, cfg Config, logger Logger) *Allocator {
	if logger == nil {
		logger = NoopLogger()
	}
	return &Allocator{router: newRouter(source, cfg, logger)}
}

// Allocate reserves size bytes aligned to align. align must be a power of
// two. It returns ErrOutOfCategory if size is zero or exceeds the
// very-large ceiling, and ErrOutOfMemory if every chain that could serve
// the request, and the backing BlockSource, are exhausted.
func (a *Allocator) Allocate(size, align uintptr) (unsafe.Pointer, error) {
	a.latch.Lock()
	defer a.latch.Unlock()
	return a.router.allocate(size, align)
}

// Deallocate returns memory previously returned by Allocate or Reallocate.
// size and align must exactly match the values used to obtain ptr. Passing
// a pointer no chain owns is an invariant violation and panics.
func (a *Allocator) Deallocate(ptr unsafe.Pointer, size, align uintptr) {
	_ = align
	a.latch.Lock()
	defer a.latch.Unlock()
	a.router.deallocate(ptr, size)
}

// Reallocate resizes an existing allocation, growing or shrinking in place
// when possible and falling back to allocate-copy-free otherwise. oldSize
// and align must match the values used to obtain ptr.
func (a *Allocator) Reallocate(ptr unsafe.Pointer, oldSize, newSize, align uintptr) (unsafe.Pointer, error) {
	a.latch.Lock()
	defer a.latch.Unlock()
	return a.router.reallocate(ptr, oldSize, newSize, align)
}
