package mem

import (
	"fmt"
	"unsafe"
)

// CacheLine is the default buffer alignment (64 bytes).
const CacheLine = 64

// AlignedBytes allocates a zeroed byte slice of the given size starting at an
// address divisible by alignment, which must be a power of two. It returns nil
// for size <= 0.
//
// Note: This function allocates alignment-1 extra bytes. The underlying array
// is kept alive by the returned slice, whose capacity equals its length.
func AlignedBytes(size int, alignment uintptr) []byte {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		panic(fmt.Sprintf("mem: alignment %d is not a power of two", alignment))
	}
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+int(alignment)-1)

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf))) //nolint:gosec // unsafe is required for memory alignment
	offset := int((alignment - (addr & (alignment - 1))) & (alignment - 1))

	return buf[offset : offset+size : offset+size]
}

// IsAligned reports whether b starts at an address divisible by alignment.
func IsAligned(b []byte, alignment uintptr) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))&(alignment-1) == 0 //nolint:gosec // address arithmetic only
}
