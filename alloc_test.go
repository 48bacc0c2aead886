package stackalloc

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func newTestAllocator() *Allocator {
	cfg := DefaultConfig()
	return NewAllocator(newSimMemorySource(cfg.blockSize()), cfg, nil)
}

func TestAllocatorBasicLifecycle(t *testing.T) {
	a := newTestAllocator()
	ptr, err := a.Allocate(32, 8)
	require.NoError(t, err)
	require.NotNil(t, ptr)
	a.Deallocate(ptr, 32, 8)
}

func TestAllocatorRejectsZeroSize(t *testing.T) {
	a := newTestAllocator()
	_, err := a.Allocate(0, 8)
	require.ErrorIs(t, err, ErrOutOfCategory)
}

func TestAllocatorReallocateShrinksInPlace(t *testing.T) {
	a := newTestAllocator()
	ptr, err := a.Allocate(32, 8)
	require.NoError(t, err)
	shrunk, err := a.Reallocate(ptr, 32, 8, 8)
	require.NoError(t, err)
	require.Equal(t, ptr, shrunk)
}

func TestAllocatorConcurrentAllocations(t *testing.T) {
	a := newTestAllocator()
	const goroutines = 16
	const perGoroutine = 32

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			ptrs := make([]unsafe.Pointer, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				p, err := a.Allocate(16, 8)
				if err != nil {
					t.Errorf("allocate: %v", err)
					return
				}
				ptrs = append(ptrs, p)
			}
			for _, p := range ptrs {
				a.Deallocate(p, 16, 8)
			}
		}()
	}
	wg.Wait()
}
