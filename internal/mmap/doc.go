// Package mmap provides anonymous memory mappings used as off-heap backing
// storage for fixed buffer arenas.
//
// # Overview
//
// A Mapping is a read-write, private, anonymous region obtained directly from
// the operating system. Its bytes are invisible to the Go garbage collector:
// the collector neither scans them nor moves them, so addresses handed out of a
// mapping stay stable until the mapping is closed.
//
// # Usage
//
//	m, err := mmap.MapAnon(1 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	buf := m.Bytes()
//	_ = m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) for hints
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (advice is a no-op)
//
// # Safety
//
// Close is idempotent. Any slice or pointer derived from Bytes() must not be
// used after Close returns.
package mmap
