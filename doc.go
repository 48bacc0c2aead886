// Package stackalloc implements a general-purpose heap allocator built from
// fixed-capacity bitmapped chunk stacks, chained together by size category.
//
// Every allocation is classified into a size category (very small, small,
// medium, large, very large). Each category owns a singly-linked chain of
// 64-chunk stacks; when the head of a chain runs out of room a new stack is
// pushed onto the front of the chain, itself carved out of the next larger
// category. The chain that backs the large end of the hierarchy is, in turn,
// backed by whole blocks drawn from a BlockSource.
//
// A dedicated metadata category stores the bookkeeping headers for every
// stack in every other category, including its own, bootstrapped the first
// time it is needed.
//
// None of this is safe for concurrent use on its own; Allocator wraps a
// router with a spin latch to serialize access.
package stackalloc
