// Package mem provides aligned Go heap buffers.
//
// # Aligned Allocation
//
// Go only guarantees 8-byte alignment for a []byte; the actual start depends
// on the size class. Buffers from AlignedBytes start at a fixed boundary, so
// offsets computed inside them do not depend on where the runtime placed the
// array.
package mem
