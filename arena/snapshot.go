package arena

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/hupe1980/fixedarena/resource"
)

// Snapshot layout (little endian):
//
//	magic "FBR1" | version u8 | codec u8 | reserved u16
//	capacity u64 | used u64 | free entries u64
//	free entries: (offset u64, size u64) in free list order
//	payload length u64 | payload
//	crc32 (IEEE) of everything above
const (
	snapshotMagic      = "FBR1"
	snapshotVersion    = 1
	snapshotHeaderSize = 32
	freeEntrySize      = 16

	// maxSnapshotCapacity keeps the aligned backing allocation within int range.
	maxSnapshotCapacity = math.MaxInt / 2
	maxPreallocEntries  = 4096
)

type snapshotOptions struct {
	codec Codec
	ctx   context.Context
	rc    *resource.Controller
}

// SnapshotOption configures WriteSnapshot.
type SnapshotOption func(*snapshotOptions)

// WithCodec selects the payload codec. The default is CodecLZ4.
func WithCodec(c Codec) SnapshotOption {
	return func(o *snapshotOptions) {
		o.codec = c
	}
}

// WithIOLimit throttles the snapshot write through rc's IO limiter.
func WithIOLimit(ctx context.Context, rc *resource.Controller) SnapshotOption {
	return func(o *snapshotOptions) {
		o.ctx = ctx
		o.rc = rc
	}
}

// WriteSnapshot writes the arena layout to w: capacity, bump cursor, the free
// list in order, and the used part of the buffer.
//
// Pointers stored inside the arena are written as raw bytes and are not
// relocated by Restore.
func (r *Resource) WriteSnapshot(w io.Writer, opts ...SnapshotOption) (err error) {
	o := snapshotOptions{codec: CodecLZ4, ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	defer func() {
		r.logger.LogSnapshot(o.ctx, "write", o.codec.String(), r.used, err)
	}()

	if o.rc != nil {
		w = resource.NewRateLimitedWriter(o.ctx, w, o.rc)
	}

	payload, codec, err := encodePayload(o.codec, r.buf[:r.used])
	if err != nil {
		return fmt.Errorf("arena: encode snapshot: %w", err)
	}

	meta := make([]byte, 0, snapshotHeaderSize+freeEntrySize*len(r.free)+8)
	meta = append(meta, snapshotMagic...)
	meta = append(meta, snapshotVersion, byte(codec), 0, 0)
	meta = binary.LittleEndian.AppendUint64(meta, uint64(len(r.buf)))
	meta = binary.LittleEndian.AppendUint64(meta, uint64(r.used))
	meta = binary.LittleEndian.AppendUint64(meta, uint64(len(r.free)))
	for _, b := range r.free {
		meta = binary.LittleEndian.AppendUint64(meta, uint64(b.off))
		meta = binary.LittleEndian.AppendUint64(meta, uint64(b.size))
	}
	meta = binary.LittleEndian.AppendUint64(meta, uint64(len(payload)))

	h := crc32.NewIEEE()
	mw := io.MultiWriter(w, h)
	if _, err := mw.Write(meta); err != nil {
		return fmt.Errorf("arena: write snapshot header: %w", err)
	}
	if _, err := mw.Write(payload); err != nil {
		return fmt.Errorf("arena: write snapshot payload: %w", err)
	}
	if _, err := w.Write(binary.LittleEndian.AppendUint32(nil, h.Sum32())); err != nil {
		return fmt.Errorf("arena: write snapshot checksum: %w", err)
	}
	return nil
}

// Restore reads a snapshot written by WriteSnapshot into a new Resource built
// with opts. The free list keeps its order, so later placement decisions are
// the same as in the original arena for alignments up to 64 bytes, and for any
// alignment up to the page size when both arenas use WithOffHeap. Statistics
// counters start at zero.
func Restore(rd io.Reader, opts ...Option) (*Resource, error) {
	h := crc32.NewIEEE()
	tr := io.TeeReader(rd, h)

	var hdr [snapshotHeaderSize]byte
	if _, err := io.ReadFull(tr, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidSnapshot, err)
	}
	if string(hdr[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidSnapshot, hdr[:4])
	}
	if hdr[4] != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, hdr[4])
	}
	codec := Codec(hdr[5])
	if codec > CodecZstd {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCodec, codec)
	}

	capacity := binary.LittleEndian.Uint64(hdr[8:])
	used := binary.LittleEndian.Uint64(hdr[16:])
	nfree := binary.LittleEndian.Uint64(hdr[24:])
	if capacity == 0 || capacity > maxSnapshotCapacity || used > capacity || nfree > used {
		return nil, fmt.Errorf("%w: capacity %d, used %d, %d free entries", ErrInvalidSnapshot, capacity, used, nfree)
	}

	// Counts come from an unverified header: memory grows only as entries arrive.
	free := make([]block, 0, min(nfree, maxPreallocEntries))
	var entry [freeEntrySize]byte
	for i := uint64(0); i < nfree; i++ {
		if _, err := io.ReadFull(tr, entry[:]); err != nil {
			return nil, fmt.Errorf("%w: free list: %w", ErrInvalidSnapshot, err)
		}
		off := binary.LittleEndian.Uint64(entry[:8])
		size := binary.LittleEndian.Uint64(entry[8:])
		if size == 0 || off > used || size > used-off {
			return nil, fmt.Errorf("%w: free entry %d out of range", ErrInvalidSnapshot, i)
		}
		free = append(free, block{off: int(off), size: int(size)})
	}

	var lenBuf [8]byte
	if _, err := io.ReadFull(tr, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: payload length: %w", ErrInvalidSnapshot, err)
	}
	payloadLen := binary.LittleEndian.Uint64(lenBuf[:])
	if payloadLen > used+used/2+1024 || (codec == CodecNone && payloadLen != used) {
		return nil, fmt.Errorf("%w: payload length %d for %d used bytes", ErrInvalidSnapshot, payloadLen, used)
	}
	payload, err := io.ReadAll(io.LimitReader(tr, int64(payloadLen)))
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrInvalidSnapshot, err)
	}
	if uint64(len(payload)) != payloadLen {
		return nil, fmt.Errorf("%w: payload: %w", ErrInvalidSnapshot, io.ErrUnexpectedEOF)
	}

	var sum [4]byte
	if _, err := io.ReadFull(rd, sum[:]); err != nil {
		return nil, fmt.Errorf("%w: checksum: %w", ErrInvalidSnapshot, err)
	}
	if binary.LittleEndian.Uint32(sum[:]) != h.Sum32() {
		return nil, ErrChecksumMismatch
	}

	r, err := New(int(capacity), opts...)
	if err != nil {
		return nil, err
	}

	if used > 0 {
		if err := decodePayload(codec, payload, r.buf[:used]); err != nil {
			_ = r.Close()
			err = fmt.Errorf("%w: decode: %w", ErrInvalidSnapshot, err)
			r.logger.LogSnapshot(context.Background(), "restore", codec.String(), 0, err)
			return nil, err
		}
	}
	r.used = int(used)
	r.free = free

	r.logger.LogSnapshot(context.Background(), "restore", codec.String(), r.used, nil)
	return r, nil
}
