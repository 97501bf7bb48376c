package arena

import (
	"context"
	"fmt"
	"slices"
	"unsafe"

	"github.com/hupe1980/fixedarena/alloc"
	"github.com/hupe1980/fixedarena/internal/logging"
	"github.com/hupe1980/fixedarena/internal/mem"
	"github.com/hupe1980/fixedarena/internal/mmap"
	"github.com/hupe1980/fixedarena/resource"
)

const (
	// DefaultCapacity is the capacity used when New is called with capacity <= 0 (1MiB).
	DefaultCapacity = 1024 * 1024
	// DefaultAlignment is the alignment used when Allocate is called with alignment 0.
	DefaultAlignment = 8
)

var _ alloc.MemoryResource = (*Resource)(nil)

// block is a released region, as an offset into the buffer.
type block struct {
	off  int
	size int
}

type counters struct {
	allocs     uint64
	reuses     uint64
	deallocs   uint64
	failures   uint64
	bumpWaste  int
	reuseWaste int
}

// Resource is a fixed buffer memory resource.
type Resource struct {
	buf  []byte
	base uintptr
	used int
	free []block

	mapping  *mmap.Mapping
	budget   *resource.Controller
	reserved int64

	alignment uintptr
	name      string
	logger    *logging.Logger
	stats     counters
}

// New creates a Resource owning a buffer of capacity bytes.
// If capacity <= 0, DefaultCapacity is used.
//
// The buffer starts on a 64-byte boundary (a page boundary with WithOffHeap),
// so two arenas given the same requests place them at the same offsets.
func New(capacity int, opts ...Option) (*Resource, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.alignment == 0 {
		o.alignment = DefaultAlignment
	}
	mustPowerOfTwo(o.alignment)

	logger := o.logger
	if o.name != "" {
		logger = logger.WithArena(o.name)
	}

	r := &Resource{
		alignment: o.alignment,
		name:      o.name,
		logger:    logger,
	}

	ctx := context.Background()

	if err := o.budget.TryAcquireMemory(int64(capacity)); err != nil {
		r.logger.LogAcquire(ctx, capacity, o.offHeap, err)
		return nil, fmt.Errorf("%w: reserve %d bytes: %w", ErrOutOfMemory, capacity, err)
	}
	r.budget = o.budget
	r.reserved = int64(capacity)

	if o.offHeap {
		m, err := mmap.MapAnon(capacity)
		if err != nil {
			r.budget.ReleaseMemory(r.reserved)
			r.logger.LogAcquire(ctx, capacity, true, err)
			return nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
		}
		// Allocation order does not follow address order once blocks are reused.
		_ = m.Advise(mmap.AccessRandom)
		r.mapping = m
		r.buf = m.Bytes()
	} else {
		r.buf = mem.AlignedBytes(capacity, mem.CacheLine)
	}
	r.base = uintptr(unsafe.Pointer(unsafe.SliceData(r.buf)))

	r.logger.LogAcquire(ctx, capacity, o.offHeap, nil)
	return r, nil
}

// Allocate returns bytes of storage aligned to alignment.
//
// Alignment 0 selects the resource default; any other value must be a power of
// two. A zero-byte request returns a nil pointer and consumes nothing.
// Allocate fails with an *AllocError matching ErrOutOfMemory when neither a
// free block nor the buffer tail can hold the aligned request.
func (r *Resource) Allocate(bytes, alignment uintptr) (unsafe.Pointer, error) {
	if alignment == 0 {
		alignment = r.alignment
		if alignment == 0 {
			alignment = DefaultAlignment
		}
	}
	mustPowerOfTwo(alignment)

	if bytes == 0 {
		return nil, nil
	}

	for i, b := range r.free {
		wasted, ok := r.fit(b.off, b.size, bytes, alignment)
		if !ok {
			continue
		}

		r.free = slices.Delete(r.free, i, i+1)

		start := b.off + wasted
		if remaining := b.size - wasted - int(bytes); remaining > 0 {
			// The alignment prefix [b.off, start) is not given back.
			r.free = append(r.free, block{off: start + int(bytes), size: remaining})
		}

		r.stats.allocs++
		r.stats.reuses++
		r.stats.reuseWaste += wasted
		return r.pointer(start), nil
	}

	wasted, ok := r.fit(r.used, len(r.buf)-r.used, bytes, alignment)
	if !ok {
		r.stats.failures++
		r.logger.LogExhausted(context.Background(), bytes, alignment, r.used, len(r.buf), len(r.free))
		return nil, &AllocError{
			Bytes:      bytes,
			Alignment:  alignment,
			Used:       r.used,
			Capacity:   len(r.buf),
			FreeBlocks: len(r.free),
		}
	}

	start := r.used + wasted
	r.used = start + int(bytes)

	r.stats.allocs++
	r.stats.bumpWaste += wasted
	return r.pointer(start), nil
}

// Deallocate hands a region back to the free list.
//
// The region is appended as-is: there is no double-free detection and no
// merging with adjacent free blocks. A nil pointer, a zero size, or a region
// that does not lie entirely inside the buffer is ignored. alignment is
// accepted for symmetry with Allocate and not used.
func (r *Resource) Deallocate(p unsafe.Pointer, bytes, alignment uintptr) {
	_ = alignment
	if p == nil || bytes == 0 {
		return
	}
	off, ok := r.offsetOf(p, bytes)
	if !ok {
		return
	}
	r.free = append(r.free, block{off: off, size: int(bytes)})
	r.stats.deallocs++
}

// IsEqual reports whether other is this very resource.
func (r *Resource) IsEqual(other alloc.MemoryResource) bool {
	o, ok := other.(*Resource)
	return ok && o == r
}

// Move transfers the buffer, the free list and the budget reservation to a new
// Resource and leaves r empty: zero capacity, nothing used, no free blocks.
// Closing the emptied r is a no-op and allocating from it fails.
func (r *Resource) Move() *Resource {
	moved := &Resource{
		buf:       r.buf,
		base:      r.base,
		used:      r.used,
		free:      r.free,
		mapping:   r.mapping,
		budget:    r.budget,
		reserved:  r.reserved,
		alignment: r.alignment,
		name:      r.name,
		logger:    r.logger,
		stats:     r.stats,
	}
	r.reset()
	return moved
}

// Close releases the backing buffer and the budget reservation. It is idempotent.
//
// Every pointer obtained from the resource becomes invalid.
func (r *Resource) Close() error {
	if r.buf == nil {
		return nil
	}

	capacity, used, freeBlocks := len(r.buf), r.used, len(r.free)

	var err error
	if r.mapping != nil {
		err = r.mapping.Close()
	}
	r.budget.ReleaseMemory(r.reserved)
	r.reset()

	r.logger.LogRelease(context.Background(), capacity, used, freeBlocks, err)
	return err
}

func (r *Resource) reset() {
	r.buf = nil
	r.base = 0
	r.used = 0
	r.free = nil
	r.mapping = nil
	r.budget = nil
	r.reserved = 0
	r.stats = counters{}
}

// Capacity returns the size of the backing buffer in bytes.
func (r *Resource) Capacity() int {
	return len(r.buf)
}

// Used returns the bump cursor: bytes consumed from the start of the buffer,
// including alignment padding. It never decreases.
func (r *Resource) Used() int {
	return r.used
}

// Remaining returns the untouched tail of the buffer in bytes.
func (r *Resource) Remaining() int {
	return len(r.buf) - r.used
}

// FreeBlocks returns the number of entries in the free list.
func (r *Resource) FreeBlocks() int {
	return len(r.free)
}

// FreeBytes returns the total size of all free list entries.
func (r *Resource) FreeBytes() int {
	n := 0
	for _, b := range r.free {
		n += b.size
	}
	return n
}

// Block is a free list entry, as an offset into the buffer.
type Block struct {
	Offset int
	Size   int
}

// FreeList returns a copy of the free list in scan order.
func (r *Resource) FreeList() []Block {
	out := make([]Block, len(r.free))
	for i, b := range r.free {
		out[i] = Block{Offset: b.off, Size: b.size}
	}
	return out
}

// Contains reports whether p points into the backing buffer.
func (r *Resource) Contains(p unsafe.Pointer) bool {
	_, ok := r.offsetOf(p, 1)
	return ok
}

// Offset returns the distance of p from the start of the buffer.
// ok is false when p does not point into the buffer.
func (r *Resource) Offset(p unsafe.Pointer) (off int, ok bool) {
	return r.offsetOf(p, 1)
}

// fit computes the alignment padding needed to place bytes inside the region
// [off, off+size) and whether the aligned request still fits.
func (r *Resource) fit(off, size int, bytes, alignment uintptr) (int, bool) {
	addr := r.base + uintptr(off)
	wasted := alignUp(addr, alignment) - addr
	if wasted > uintptr(size) || bytes > uintptr(size)-wasted {
		return 0, false
	}
	return int(wasted), true
}

func (r *Resource) offsetOf(p unsafe.Pointer, n uintptr) (int, bool) {
	addr := uintptr(p)
	if r.buf == nil || addr < r.base {
		return 0, false
	}
	off := addr - r.base
	capacity := uintptr(len(r.buf))
	if off >= capacity || n > capacity-off {
		return 0, false
	}
	return int(off), true
}

func (r *Resource) pointer(off int) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(r.buf)), off)
}

func alignUp(addr, alignment uintptr) uintptr {
	return (addr + alignment - 1) &^ (alignment - 1)
}

func mustPowerOfTwo(alignment uintptr) {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		panic(fmt.Sprintf("arena: alignment %d is not a power of two", alignment))
	}
}
