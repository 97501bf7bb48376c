// Package audit wraps an arena with bookkeeping that the arena itself skips:
// it records every live byte in a roaring bitmap and reports allocations that
// overlap live memory, fall outside the buffer or miss their alignment, and
// releases of memory that is not live.
//
// The wrapper forwards every call unchanged, so placement decisions are the
// same as on the bare arena. It is meant for tests and debugging sessions.
package audit

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/fixedarena/alloc"
	"github.com/hupe1980/fixedarena/arena"
)

var (
	// ErrAliased reports an allocation overlapping live memory.
	ErrAliased = errors.New("audit: allocation overlaps live memory")
	// ErrMisaligned reports an allocation that misses the requested alignment.
	ErrMisaligned = errors.New("audit: allocation misaligned")
	// ErrOutOfBounds reports an allocation outside the backing buffer.
	ErrOutOfBounds = errors.New("audit: allocation outside buffer")
	// ErrNotLive reports a release of memory that is not fully live (double free
	// or wrong size).
	ErrNotLive = errors.New("audit: release of memory that is not live")
	// ErrForeign reports a release of memory outside the backing buffer.
	ErrForeign = errors.New("audit: release of foreign memory")
	// ErrFreeListCorrupt reports free list entries overlapping live memory or each other.
	ErrFreeListCorrupt = errors.New("audit: free list overlaps")
)

var _ alloc.MemoryResource = (*Resource)(nil)

// Resource is an auditing wrapper around an *arena.Resource.
type Resource struct {
	r          *arena.Resource
	live       *roaring.Bitmap
	violations []error
}

// Wrap audits r. The arena must not exceed 4GiB.
func Wrap(r *arena.Resource) *Resource {
	if uint64(r.Capacity()) > math.MaxUint32 {
		panic("audit: arena larger than 4GiB")
	}
	return &Resource{r: r, live: roaring.New()}
}

// Arena returns the wrapped arena.
func (a *Resource) Arena() *arena.Resource {
	return a.r
}

func (a *Resource) Allocate(bytes, alignment uintptr) (unsafe.Pointer, error) {
	p, err := a.r.Allocate(bytes, alignment)
	if err != nil || p == nil {
		return p, err
	}

	off, ok := a.r.Offset(p)
	if !ok || uint64(off)+uint64(bytes) > uint64(a.r.Capacity()) {
		a.record(fmt.Errorf("%w: %d bytes at %p", ErrOutOfBounds, bytes, p))
		return p, nil
	}
	if alignment != 0 && uintptr(p)%alignment != 0 {
		a.record(fmt.Errorf("%w: offset %d, alignment %d", ErrMisaligned, off, alignment))
	}

	start, end := uint64(off), uint64(off)+uint64(bytes)
	if a.live.Intersects(span(start, end)) {
		a.record(fmt.Errorf("%w: [%d, %d)", ErrAliased, start, end))
	}
	a.live.AddRange(start, end)
	return p, nil
}

func (a *Resource) Deallocate(p unsafe.Pointer, bytes, alignment uintptr) {
	if p != nil && bytes > 0 {
		if off, ok := a.r.Offset(p); !ok {
			a.record(fmt.Errorf("%w: %p", ErrForeign, p))
		} else {
			start, end := uint64(off), uint64(off)+uint64(bytes)
			if a.live.AndCardinality(span(start, end)) != uint64(bytes) {
				a.record(fmt.Errorf("%w: [%d, %d)", ErrNotLive, start, end))
			}
			a.live.RemoveRange(start, end)
		}
	}
	a.r.Deallocate(p, bytes, alignment)
}

// IsEqual compares the wrapped arenas.
func (a *Resource) IsEqual(other alloc.MemoryResource) bool {
	if o, ok := other.(*Resource); ok {
		return o.r == a.r
	}
	return a.r.IsEqual(other)
}

// LiveBytes returns the number of bytes currently handed out.
func (a *Resource) LiveBytes() int {
	return int(a.live.GetCardinality())
}

// LostBytes returns bytes below the bump cursor that are neither live nor in
// the free list: alignment padding that can never be handed out again.
func (a *Resource) LostBytes() int {
	return a.r.Used() - a.LiveBytes() - a.r.FreeBytes()
}

// Check verifies that free list entries are disjoint from live memory and
// from each other.
func (a *Resource) Check() error {
	seen := a.live.Clone()
	for _, b := range a.r.FreeList() {
		s := span(uint64(b.Offset), uint64(b.Offset+b.Size))
		if seen.Intersects(s) {
			return fmt.Errorf("%w: entry [%d, %d)", ErrFreeListCorrupt, b.Offset, b.Offset+b.Size)
		}
		seen.Or(s)
	}
	return nil
}

// Violations returns every problem observed so far.
func (a *Resource) Violations() []error {
	return a.violations
}

// Err joins all violations, or returns nil.
func (a *Resource) Err() error {
	return errors.Join(a.violations...)
}

func (a *Resource) record(err error) {
	a.violations = append(a.violations, err)
}

func span(start, end uint64) *roaring.Bitmap {
	b := roaring.New()
	b.AddRange(start, end)
	return b
}
