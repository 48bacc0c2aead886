package stackalloc

import "unsafe"

// This file implements the self-hosted metadata bucket described in the
// component design: the chain that stores every other chain's node headers,
// bootstrapped the first time anything needs a header stored at all.
//
// storeMetadata is the entry point every other category's extend path uses.
// extendMetadata and allocVeryLargeNoMetadata exist to break the circular
// dependency a naive implementation would have: storing a header requires
// metadata capacity, and producing more metadata capacity requires a
// very-large stack chunk, whose own header would normally be stored via...
// the metadata chain. allocVeryLargeNoMetadata obtains very-large memory
// without trying to store a header for it, so extendMetadata can build a
// fresh metadata stack and then immediately use that very stack to record
// both its own header and, if one was produced as a side effect, the
// header of the very-large node it borrowed memory from.

// storeMetadata reserves space for n's header in the metadata chain,
// extending it if necessary, and records the reservation on n. It never
// mutates n in any way other than setting headerSlot.
func (r *router) storeMetadata(n *node) error {
	slot, err := r.allocCategory(categoryMetadata, r.cfg.MetadataChunkSize, r.cfg.MetadataChunkSize)
	if err != nil {
		return err
	}
	n.headerSlot = slot
	return nil
}

// allocVeryLargeNoMetadata behaves like allocating from the very-large
// chain, except that if extending the chain is necessary, the new node's
// own header is not stored anywhere; it is returned to the caller instead,
// which is expected to store it once it is safe to do so.
func (r *router) allocVeryLargeNoMetadata(size, align uintptr) (ptr unsafe.Pointer, fresh *node, err error) {
	if head := r.buckets.veryLarge; head != nil {
		if p, err := head.allocate(size, align); err == nil {
			return p, nil, nil
		}
	}

	block, ok := r.source.AcquireBlock()
	if !ok {
		return nil, nil, &AllocError{Op: "allocVeryLargeNoMetadata", Size: size, Err: ErrOutOfMemory}
	}
	newVeryLarge := newNode(newStack(unsafe.Pointer(&block[0]), r.cfg.VeryLargeChunkSize), r.buckets.veryLarge)
	p, err := newVeryLarge.allocate(size, align)
	if err != nil {
		// FIXME (unimportant): the freshly acquired block is leaked here
		// (the very-large chain head is left unchanged); this
		// should only happen if blockSize is misconfigured below
		// chunksPerStack*VeryLargeChunkSize.
		return nil, nil, &AllocError{Op: "allocVeryLargeNoMetadata", Size: size, Err: ErrOutOfMemory}
	}
	return p, newVeryLarge, nil
}

// extendMetadata pushes a new node onto the front of the metadata chain.
func (r *router) extendMetadata() (*node, error) {
	stackBytes := uintptr(chunksPerStack) * r.cfg.MetadataChunkSize
	mem, extra, err := r.allocVeryLargeNoMetadata(stackBytes, r.cfg.MetadataChunkSize)
	if err != nil {
		return nil, err
	}

	oldMetadata := r.buckets.metadata
	newMeta := newNode(newStack(mem, r.cfg.MetadataChunkSize), oldMetadata)

	if extra != nil {
		slot, err := newMeta.allocate(r.cfg.MetadataChunkSize, r.cfg.MetadataChunkSize)
		if err != nil {
			panic("stackalloc: fresh metadata stack cannot hold the pending very-large header")
		}
		extra.headerSlot = slot
		r.buckets.veryLarge = extra
	}

	selfSlot, err := newMeta.allocate(r.cfg.MetadataChunkSize, r.cfg.MetadataChunkSize)
	if err != nil {
		panic("stackalloc: fresh metadata stack cannot hold its own header")
	}
	newMeta.headerSlot = selfSlot

	r.buckets.metadata = newMeta
	return newMeta, nil
}

// freeHeader releases the metadata slot a collapsed node had reserved. Any
// resulting collapse of the metadata chain itself is deliberately ignored:
// doing otherwise would require the metadata chain to be able to free its
// own chain links, reintroducing the bootstrap problem extendMetadata
// exists to avoid. A degenerate, empty metadata node is left in place
// rather than torn down.
func (r *router) freeHeader(slot unsafe.Pointer) {
	head := r.buckets.metadata
	if head == nil {
		return
	}
	_ = head.deallocate(slot, r.cfg.MetadataChunkSize)
}
