// Package arena provides a fixed buffer memory resource: a bounded arena that
// carves allocations out of one pre-allocated buffer and reuses released
// blocks.
//
// # Allocation Strategy
//
// Allocate first scans the free list in insertion order and takes the first
// block that can hold the request once its start is aligned (first-fit). The
// aligned allocation is cut from the block; the tail behind it goes back to the
// end of the free list and the alignment prefix in front of it is dropped for
// good. When no free block fits, the request is bump-allocated from the
// untouched tail of the buffer.
//
//	r, err := arena.New(64 << 10)
//	if err != nil { ... }
//	defer r.Close()
//
//	p, err := r.Allocate(48, 16)
//	if errors.Is(err, arena.ErrOutOfMemory) { ... }
//	r.Deallocate(p, 48, 16)
//
// Released blocks are never merged with their neighbours, and the bump cursor
// never moves backwards. A long-running workload with mixed sizes fragments
// the arena permanently; size the arena for the workload.
//
// # Backing Memory
//
// By default the buffer is a Go heap byte slice starting on a 64-byte
// boundary. WithOffHeap maps anonymous memory instead, which keeps large
// arenas out of the garbage collector's view and guarantees a page-aligned
// base. WithMemoryBudget charges the capacity against a shared
// resource.Controller.
//
// # Lifetime
//
// A Resource must outlive every allocator, container and pointer derived from
// it. Nothing detects a violation: after Close, off-heap memory is unmapped and
// touching an old pointer faults.
//
// # Thread Safety
//
// A Resource is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
package arena
