package stackalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRouter() *router {
	cfg := DefaultConfig()
	return newRouter(newSimMemorySource(cfg.blockSize()), cfg, NoopLogger())
}

func TestRouterClassifiesOutOfCategory(t *testing.T) {
	r := newTestRouter()
	_, err := r.allocate(0, 1)
	require.ErrorIs(t, err, ErrOutOfCategory)

	_, err = r.allocate(300000, 1)
	require.ErrorIs(t, err, ErrOutOfCategory)
}

func TestRouterBootstrapsMetadataOnFirstAllocation(t *testing.T) {
	r := newTestRouter()
	require.Nil(t, r.buckets.metadata)

	ptr, err := r.allocate(4, 1)
	require.NoError(t, err)
	require.NotNil(t, ptr)
	require.NotNil(t, r.buckets.metadata, "first allocation of any size should bootstrap the metadata chain")
	require.NotNil(t, r.buckets.verySmall)
}

func TestRouterAllocateAndDeallocateRoundTrip(t *testing.T) {
	r := newTestRouter()
	ptr, err := r.allocate(100, 8)
	require.NoError(t, err)
	require.NotPanics(t, func() { r.deallocate(ptr, 100) })
}

func TestRouterExtendsChainWhenHeadFull(t *testing.T) {
	r := newTestRouter()
	// very-small chunk size is 1 byte, 64 chunks per stack: the 65th
	// 1-byte allocation must extend the chain.
	var ptrs []uintptr
	for i := 0; i < chunksPerStack; i++ {
		p, err := r.allocate(1, 1)
		require.NoError(t, err)
		ptrs = append(ptrs, uintptr(p))
	}
	firstHead := r.buckets.verySmall
	_, err := r.allocate(1, 1)
	require.NoError(t, err)
	require.NotEqual(t, firstHead, r.buckets.verySmall, "chain should have a new head")
	require.Equal(t, firstHead, r.buckets.verySmall.backup, "old head should now be the backup")
}

func TestRouterCollapseReturnsStackToParent(t *testing.T) {
	r := newTestRouter()
	ptr, err := r.allocate(100, 8)
	require.NoError(t, err)
	require.NotNil(t, r.buckets.medium)

	r.deallocate(ptr, 100)
	require.Nil(t, r.buckets.medium, "the only medium node emptying out should collapse the chain head")
}

func TestRouterOutOfMemoryWhenSourceExhausted(t *testing.T) {
	cfg := DefaultConfig()
	r := newRouter(newExhaustedMemorySource(cfg.blockSize(), 0), cfg, NoopLogger())
	_, err := r.allocate(4, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestRouterReallocateGrowsInPlace(t *testing.T) {
	r := newTestRouter()
	ptr, err := r.allocate(8, 8)
	require.NoError(t, err)
	grown, err := r.reallocate(ptr, 8, 16, 8)
	require.NoError(t, err)
	require.Equal(t, ptr, grown)
}

func TestRouterReallocateCrossesCategoryByMoving(t *testing.T) {
	r := newTestRouter()
	ptr, err := r.allocate(4, 1) // very-small
	require.NoError(t, err)
	moved, err := r.reallocate(ptr, 4, 100, 1) // medium
	require.NoError(t, err)
	require.NotEqual(t, ptr, moved)
}
