package stackalloc

import "unsafe"

// router classifies a request by size and dispatches it to the chain for
// that category, extending chains on demand and wiring up the self-hosted
// metadata bucket behind the scenes. It is not safe for concurrent use;
// Allocator provides that.
type router struct {
	cfg     Config
	source  BlockSource
	buckets buckets
	log     Logger
}

func newRouter(source BlockSource, cfg Config, log Logger) *router {
	return &router{cfg: cfg, source: source, log: log}
}

func (r *router) allocate(size, align uintptr) (unsafe.Pointer, error) {
	cat := r.cfg.classify(size)
	if cat == categoryNone {
		return nil, &AllocError{Op: "Allocate", Size: size, Err: ErrOutOfCategory}
	}
	ptr, err := r.allocCategory(cat, size, align)
	if err != nil {
		r.log.Warn("allocate failed", map[string]any{"size": size, "align": align, "category": cat.String()})
		return nil, err
	}
	r.log.Debug("allocate", map[string]any{"size": size, "align": align, "category": cat.String()})
	return ptr, nil
}

func (r *router) allocCategory(cat sizeCategory, size, align uintptr) (unsafe.Pointer, error) {
	if head := r.buckets.headFor(cat); head != nil {
		if ptr, err := head.allocate(size, align); err == nil {
			return ptr, nil
		}
	}
	newHead, err := r.extend(cat)
	if err != nil {
		return nil, err
	}
	ptr, err := newHead.allocate(size, align)
	if err != nil {
		return nil, &AllocError{Op: "allocate " + cat.String(), Size: size, Err: ErrOutOfMemory}
	}
	return ptr, nil
}

func (r *router) extend(cat sizeCategory) (*node, error) {
	switch cat {
	case categoryVeryLarge:
		return r.extendVeryLarge()
	case categoryMetadata:
		return r.extendMetadata()
	default:
		return r.extendGeneric(cat)
	}
}

// extendGeneric handles very-small, small, medium and large: it borrows a
// fresh stack's worth of memory from the parent category and stores the
// new node's header via the ordinary metadata path.
func (r *router) extendGeneric(cat sizeCategory) (*node, error) {
	chunkSize := r.cfg.chunkSize(cat)
	stackBytes := uintptr(chunksPerStack) * chunkSize
	parent := r.cfg.parent(cat)

	mem, err := r.allocCategory(parent, stackBytes, chunkSize)
	if err != nil {
		return nil, &AllocError{Op: "extend " + cat.String(), Size: stackBytes, Err: ErrOutOfMemory}
	}

	newHead := newNode(newStack(mem, chunkSize), r.buckets.headFor(cat))
	if err := r.storeMetadata(newHead); err != nil {
		// Best-effort: leak the freshly acquired stack chunk rather than
		// mutate the chain head on a partial failure.
		return nil, err
	}
	r.buckets.setHead(cat, newHead)
	return newHead, nil
}

// extendVeryLarge borrows a whole block directly from the BlockSource. If
// the metadata chain already has room for one more header, the new node's
// header is stored there directly. Otherwise a metadata stack is
// bootstrapped out of spare capacity in the very-large block just
// acquired, rather than requesting a second block purely to host it.
func (r *router) extendVeryLarge() (*node, error) {
	block, ok := r.source.AcquireBlock()
	if !ok {
		return nil, &AllocError{Op: "extend very-large", Err: ErrOutOfMemory}
	}
	newAlloc := newNode(newStack(unsafe.Pointer(&block[0]), r.cfg.VeryLargeChunkSize), r.buckets.veryLarge)

	if r.buckets.metadata != nil {
		if slot, err := r.buckets.metadata.allocate(r.cfg.MetadataChunkSize, r.cfg.MetadataChunkSize); err == nil {
			newAlloc.headerSlot = slot
			r.buckets.veryLarge = newAlloc
			return newAlloc, nil
		}
	}

	metaStackBytes := uintptr(chunksPerStack) * r.cfg.MetadataChunkSize
	metaMem, err := newAlloc.allocate(metaStackBytes, r.cfg.MetadataChunkSize)
	if err != nil {
		return nil, &AllocError{Op: "extend very-large", Size: metaStackBytes, Err: ErrOutOfMemory}
	}
	metaNode := newNode(newStack(metaMem, r.cfg.MetadataChunkSize), r.buckets.metadata)

	selfSlot, err := metaNode.allocate(r.cfg.MetadataChunkSize, r.cfg.MetadataChunkSize)
	if err != nil {
		panic("stackalloc: fresh metadata stack cannot hold its own header")
	}
	metaNode.headerSlot = selfSlot

	newAllocSlot, err := metaNode.allocate(r.cfg.MetadataChunkSize, r.cfg.MetadataChunkSize)
	if err != nil {
		panic("stackalloc: fresh metadata stack cannot hold the very-large header it was built for")
	}
	newAlloc.headerSlot = newAllocSlot

	r.buckets.metadata = metaNode
	r.buckets.veryLarge = newAlloc
	return newAlloc, nil
}

func (r *router) deallocate(ptr unsafe.Pointer, size uintptr) {
	cat := r.cfg.classify(size)
	if cat == categoryNone {
		return
	}
	head := r.buckets.headFor(cat)
	if head == nil {
		panicInvariant("deallocate")
	}
	result := head.deallocate(ptr, size)
	r.handleDeallocResult(cat, result)
	r.log.Debug("deallocate", map[string]any{"size": size, "category": cat.String()})
}

func (r *router) handleDeallocResult(cat sizeCategory, result deallocResult) {
	switch result.token {
	case tokenCollapse:
		collapsed := r.buckets.headFor(cat)
		r.buckets.setHead(cat, collapsed.backup)
		r.freeCollapsedNode(collapsed)
	case tokenFreeNode:
		r.freeCollapsedNode(result.freed)
	}
}

// freeCollapsedNode returns a fully emptied node's resources: its stack
// memory (unless it is a very-large node - that memory is a whole block
// and, per the backing block ownership model, is never returned to the
// provider) and its metadata header.
func (r *router) freeCollapsedNode(n *node) {
	if n.chunkSize() != r.cfg.VeryLargeChunkSize {
		stackSize := uintptr(chunksPerStack) * n.chunkSize()
		r.deallocate(n.st.base, stackSize)
	}
	if n.headerSlot != nil {
		r.freeHeader(n.headerSlot)
	}
}

func (r *router) reallocate(ptr unsafe.Pointer, oldSize, newSize, align uintptr) (unsafe.Pointer, error) {
	if ptr == nil {
		return r.allocate(newSize, align)
	}
	oldCat := r.cfg.classify(oldSize)
	newCat := r.cfg.classify(newSize)

	if oldCat == newCat && oldCat != categoryNone {
		head := r.buckets.headFor(oldCat)
		if head == nil {
			panicInvariant("reallocate")
		}
		if newSize <= oldSize {
			head.shrinkInPlace(ptr, oldSize, newSize)
			return ptr, nil
		}
		if err := head.growInPlace(ptr, oldSize, newSize); err == nil {
			return ptr, nil
		}
	}

	newPtr, err := r.allocate(newSize, align)
	if err != nil {
		return nil, err
	}
	copySize := oldSize
	if newSize < copySize {
		copySize = newSize
	}
	copyMemory(newPtr, ptr, copySize)
	r.deallocate(ptr, oldSize)
	return newPtr, nil
}

func copyMemory(dst, src unsafe.Pointer, size uintptr) {
	dstSlice := unsafe.Slice((*byte)(dst), size)
	srcSlice := unsafe.Slice((*byte)(src), size)
	copy(dstSlice, srcSlice)
}
