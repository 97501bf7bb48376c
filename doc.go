// Package fixedarena provides a bounded memory arena with block reuse and
// containers that draw their storage from it.
//
// The arena (package arena) owns one contiguous buffer of fixed capacity.
// Requests are served first-fit from a list of released blocks and otherwise
// bump-allocated from the untouched tail. Released blocks are never merged and
// alignment padding is never reclaimed, so the arena reports exhaustion once
// the workload fragments it enough: size it for the workload.
//
// # Quick Start
//
//	res, _ := arena.New(64 * 1024)
//	defer res.Close()
//
//	s := stack.New(alloc.New[int](res))
//	defer s.Close()
//
//	_ = s.Push(10)
//	_ = s.Push(20)
//	fmt.Println(*s.Top()) // 20
//
// # Allocators
//
// Containers never reach for a global heap. They take an alloc.Allocator, a
// copyable value binding an element type to a memory resource, and use it for
// every node they create. Any type implementing alloc.MemoryResource works,
// including internal auditing wrappers used in tests.
//
// # Off-Heap Buffers
//
// arena.WithOffHeap backs the arena with an anonymous memory mapping instead of
// a Go byte slice. Combined with arena.WithMemoryBudget, several arenas can
// share one process-wide limit from package resource.
//
// # Snapshots
//
// An arena can be written to any io.Writer and restored later with the same
// free list and bump cursor, optionally compressed with LZ4 or zstd and
// throttled through a resource.Controller:
//
//	var buf bytes.Buffer
//	_ = res.WriteSnapshot(&buf, arena.WithCodec(arena.CodecZstd))
//	restored, _ := arena.Restore(&buf)
//
// # Thread Safety
//
// Arenas, allocators and stacks are not safe for concurrent use. Guard them
// with a mutex when shared. resource.Controller is safe for concurrent use.
package fixedarena
