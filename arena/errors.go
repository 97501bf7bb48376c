package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned when neither the free list nor the buffer tail
	// can satisfy a request, or when the backing buffer cannot be obtained.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrInvalidSnapshot is returned when a snapshot header or layout is malformed.
	ErrInvalidSnapshot = errors.New("arena: invalid snapshot")
	// ErrChecksumMismatch is returned when snapshot content fails verification.
	ErrChecksumMismatch = errors.New("arena: snapshot checksum mismatch")
	// ErrUnsupportedCodec is returned for an unknown snapshot codec.
	ErrUnsupportedCodec = errors.New("arena: unsupported snapshot codec")
)

// AllocError describes a failed allocation request.
//
// It matches ErrOutOfMemory via errors.Is.
type AllocError struct {
	Bytes      uintptr
	Alignment  uintptr
	Used       int
	Capacity   int
	FreeBlocks int
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("arena: out of memory: %d bytes at alignment %d (used %d of %d, %d free blocks)",
		e.Bytes, e.Alignment, e.Used, e.Capacity, e.FreeBlocks)
}

func (e *AllocError) Unwrap() error { return ErrOutOfMemory }
