package arena

import (
	"bytes"
	"log/slog"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fixedarena/resource"
)

func newTestArena(t *testing.T, capacity int, opts ...Option) *Resource {
	t.Helper()
	r, err := New(capacity, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func mustAllocate(t *testing.T, r *Resource, bytes, alignment uintptr) unsafe.Pointer {
	t.Helper()
	p, err := r.Allocate(bytes, alignment)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func offset(t *testing.T, r *Resource, p unsafe.Pointer) int {
	t.Helper()
	off, ok := r.Offset(p)
	require.True(t, ok)
	return off
}

func TestNew(t *testing.T) {
	t.Run("default capacity", func(t *testing.T) {
		r := newTestArena(t, 0)
		assert.Equal(t, DefaultCapacity, r.Capacity())
		assert.Zero(t, r.Used())
		assert.Equal(t, DefaultCapacity, r.Remaining())
	})

	t.Run("custom capacity", func(t *testing.T) {
		r := newTestArena(t, 4096)
		assert.Equal(t, 4096, r.Capacity())
	})

	t.Run("off heap", func(t *testing.T) {
		r := newTestArena(t, 8192, WithOffHeap())
		assert.Equal(t, 8192, r.Capacity())

		p := mustAllocate(t, r, 64, 64)
		assert.Zero(t, uintptr(p)%64)
		clear(unsafe.Slice((*byte)(p), 64))
	})

	t.Run("budget", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1000})

		r, err := New(600, WithMemoryBudget(rc))
		require.NoError(t, err)
		assert.Equal(t, int64(600), rc.MemoryUsage())

		_, err = New(600, WithMemoryBudget(rc))
		require.ErrorIs(t, err, ErrOutOfMemory)
		require.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)

		require.NoError(t, r.Close())
		assert.Zero(t, rc.MemoryUsage())
	})

	t.Run("bad default alignment", func(t *testing.T) {
		assert.Panics(t, func() { _, _ = New(64, WithDefaultAlignment(3)) })
	})
}

func TestAllocate(t *testing.T) {
	t.Run("pointers in buffer and aligned", func(t *testing.T) {
		r := newTestArena(t, 4096)

		for _, align := range []uintptr{1, 2, 4, 8, 16, 32, 64, 128} {
			for _, size := range []uintptr{1, 3, 8, 17, 100} {
				p := mustAllocate(t, r, size, align)
				assert.True(t, r.Contains(p))
				assert.Zero(t, uintptr(p)%align, "size %d align %d", size, align)

				off := offset(t, r, p)
				assert.LessOrEqual(t, off+int(size), r.Used())
			}
		}
		assert.LessOrEqual(t, r.Used(), r.Capacity())
	})

	t.Run("default alignment", func(t *testing.T) {
		r := newTestArena(t, 256)
		mustAllocate(t, r, 1, 1)
		p := mustAllocate(t, r, 8, 0)
		assert.Zero(t, uintptr(p)%DefaultAlignment)
	})

	t.Run("custom default alignment", func(t *testing.T) {
		r := newTestArena(t, 256, WithDefaultAlignment(32))
		mustAllocate(t, r, 1, 1)
		p := mustAllocate(t, r, 8, 0)
		assert.Zero(t, uintptr(p)%32)
	})

	t.Run("zero bytes", func(t *testing.T) {
		r := newTestArena(t, 64)
		p, err := r.Allocate(0, 8)
		require.NoError(t, err)
		assert.Nil(t, p)
		assert.Zero(t, r.Used())
	})

	t.Run("alignment not power of two", func(t *testing.T) {
		r := newTestArena(t, 64)
		assert.Panics(t, func() { _, _ = r.Allocate(8, 12) })
	})

	t.Run("bump cursor only grows", func(t *testing.T) {
		r := newTestArena(t, 1024)
		prev := 0
		var ptrs []unsafe.Pointer
		for i := 0; i < 20; i++ {
			p := mustAllocate(t, r, 24, 8)
			ptrs = append(ptrs, p)
			if i%3 == 0 {
				r.Deallocate(ptrs[i/2], 24, 8)
			}
			assert.GreaterOrEqual(t, r.Used(), prev)
			prev = r.Used()
		}
	})
}

func TestAllocate_Exhaustion(t *testing.T) {
	r := newTestArena(t, 128)

	p := mustAllocate(t, r, 64, 8)
	mustAllocate(t, r, 64, 8)

	_, err := r.Allocate(8, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)

	var allocErr *AllocError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, uintptr(8), allocErr.Bytes)
	assert.Equal(t, 128, allocErr.Used)
	assert.Equal(t, 128, allocErr.Capacity)

	r.Deallocate(p, 64, 8)

	_, err = r.Allocate(100, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)

	q := mustAllocate(t, r, 32, 8)
	assert.Equal(t, p, q)

	s := r.Stats()
	assert.Equal(t, uint64(2), s.Failures)
	assert.Equal(t, uint64(1), s.Reuses)
}

func TestFreeList(t *testing.T) {
	t.Run("same shape reuses address", func(t *testing.T) {
		r := newTestArena(t, 256)
		p := mustAllocate(t, r, 32, 8)
		r.Deallocate(p, 32, 8)

		q := mustAllocate(t, r, 32, 8)
		assert.Equal(t, p, q)
		assert.Zero(t, r.FreeBlocks())
		assert.Equal(t, 32, r.Used())
	})

	t.Run("first fit in insertion order", func(t *testing.T) {
		r := newTestArena(t, 1024)
		a := mustAllocate(t, r, 64, 8)
		mustAllocate(t, r, 8, 8)
		b := mustAllocate(t, r, 128, 8)
		mustAllocate(t, r, 8, 8)
		c := mustAllocate(t, r, 64, 8)

		r.Deallocate(b, 128, 8)
		r.Deallocate(a, 64, 8)
		r.Deallocate(c, 64, 8)

		// b was released first and is large enough.
		p := mustAllocate(t, r, 48, 8)
		assert.Equal(t, b, p)

		assert.Equal(t, []Block{
			{Offset: offset(t, r, a), Size: 64},
			{Offset: offset(t, r, c), Size: 64},
			{Offset: offset(t, r, b) + 48, Size: 80},
		}, r.FreeList())
	})

	t.Run("too small blocks are skipped", func(t *testing.T) {
		r := newTestArena(t, 1024)
		small := mustAllocate(t, r, 16, 8)
		mustAllocate(t, r, 8, 8)
		big := mustAllocate(t, r, 64, 8)
		mustAllocate(t, r, 8, 8)

		r.Deallocate(small, 16, 8)
		r.Deallocate(big, 64, 8)

		p := mustAllocate(t, r, 32, 8)
		assert.Equal(t, big, p)
		assert.Equal(t, []Block{
			{Offset: offset(t, r, small), Size: 16},
			{Offset: offset(t, r, big) + 32, Size: 32},
		}, r.FreeList())
	})

	t.Run("exact fit leaves no remainder", func(t *testing.T) {
		r := newTestArena(t, 256)
		p := mustAllocate(t, r, 40, 8)
		r.Deallocate(p, 40, 8)
		mustAllocate(t, r, 40, 8)
		assert.Empty(t, r.FreeList())
	})

	t.Run("alignment prefix is lost", func(t *testing.T) {
		r := newTestArena(t, 1024, WithOffHeap())
		mustAllocate(t, r, 8, 8)
		p := mustAllocate(t, r, 120, 8)
		require.Equal(t, 8, offset(t, r, p))

		r.Deallocate(p, 120, 8)
		before := r.Stats().Reclaimable

		// Offset 8 is not 64-aligned: the block loses 56 bytes of prefix.
		q := mustAllocate(t, r, 16, 64)
		assert.Equal(t, 64, offset(t, r, q))
		assert.Equal(t, []Block{{Offset: 80, Size: 48}}, r.FreeList())

		s := r.Stats()
		assert.Equal(t, 56, s.ReuseWaste)
		assert.LessOrEqual(t, s.Reclaimable, before-16-56)

		// The prefix [8, 64) is never handed out again.
		for range 10 {
			x, err := r.Allocate(8, 8)
			require.NoError(t, err)
			off := offset(t, r, x)
			assert.False(t, off >= 8 && off < 64, "prefix handed out at %d", off)
		}
	})

	t.Run("block too small once aligned", func(t *testing.T) {
		r := newTestArena(t, 1024, WithOffHeap())
		mustAllocate(t, r, 8, 8)
		p := mustAllocate(t, r, 64, 8)
		r.Deallocate(p, 64, 8)

		// [8, 72) cannot hold 32 bytes at a 64-aligned address.
		q := mustAllocate(t, r, 32, 64)
		assert.Equal(t, 128, offset(t, r, q))
		assert.Equal(t, []Block{{Offset: 8, Size: 64}}, r.FreeList())
	})
}

func TestDeallocate_Ignored(t *testing.T) {
	r := newTestArena(t, 128)
	var local [16]byte

	r.Deallocate(nil, 16, 8)
	r.Deallocate(unsafe.Pointer(&local[0]), 16, 8)

	p := mustAllocate(t, r, 64, 8)
	r.Deallocate(p, 0, 8)
	r.Deallocate(p, 1024, 8)

	assert.Zero(t, r.FreeBlocks())
	assert.Zero(t, r.Stats().Deallocs)
}

func TestIsEqual(t *testing.T) {
	r1 := newTestArena(t, 64)
	r2 := newTestArena(t, 64)

	assert.True(t, r1.IsEqual(r1))
	assert.False(t, r1.IsEqual(r2))
}

func TestMove(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	r, err := New(512, WithMemoryBudget(rc))
	require.NoError(t, err)

	p := mustAllocate(t, r, 64, 8)
	mustAllocate(t, r, 32, 8)
	r.Deallocate(p, 64, 8)

	moved := r.Move()
	defer moved.Close()

	assert.Zero(t, r.Capacity())
	assert.Zero(t, r.Used())
	assert.Zero(t, r.FreeBlocks())
	_, err = r.Allocate(8, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.NoError(t, r.Close())
	assert.Equal(t, int64(512), rc.MemoryUsage())

	assert.Equal(t, 512, moved.Capacity())
	assert.Equal(t, 96, moved.Used())
	assert.Equal(t, 1, moved.FreeBlocks())
	assert.Equal(t, p, mustAllocate(t, moved, 64, 8))

	require.NoError(t, moved.Close())
	assert.Zero(t, rc.MemoryUsage())
}

func TestClose(t *testing.T) {
	r, err := New(128, WithOffHeap())
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Allocate(8, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r, err := New(64, WithLogger(logger), WithName("nodes"))
	require.NoError(t, err)

	_, err = r.Allocate(128, 8)
	require.Error(t, err)
	require.NoError(t, r.Close())

	out := buf.String()
	assert.Contains(t, out, "backing buffer acquired")
	assert.Contains(t, out, "arena exhausted")
	assert.Contains(t, out, "backing buffer released")
	assert.Contains(t, out, "arena=nodes")
}

func TestStats(t *testing.T) {
	r := newTestArena(t, 1024, WithName("stats"))

	mustAllocate(t, r, 1, 1)
	p := mustAllocate(t, r, 16, 16)
	r.Deallocate(p, 16, 16)
	mustAllocate(t, r, 8, 8)

	s := r.Stats()
	assert.Equal(t, 1024, s.Capacity)
	assert.Equal(t, 32, s.Used)
	assert.Equal(t, 15, s.BumpWaste)
	assert.Equal(t, uint64(3), s.Allocs)
	assert.Equal(t, uint64(1), s.Reuses)
	assert.Equal(t, uint64(1), s.Deallocs)
	assert.Equal(t, 1, s.FreeBlocks)
	assert.Equal(t, 8, s.FreeBytes)
	assert.Equal(t, 1024-32+8, s.Reclaimable)
	assert.InDelta(t, 32.0/1024, s.Utilization, 1e-9)

	assert.Contains(t, r.String(), "name: stats")
	assert.Contains(t, r.String(), "1.0 KiB")
}

func BenchmarkAllocate(b *testing.B) {
	r, err := New(1 << 20)
	require.NoError(b, err)
	defer r.Close()

	b.ReportAllocs()
	for b.Loop() {
		p, err := r.Allocate(64, 8)
		if err != nil {
			b.Fatal(err)
		}
		r.Deallocate(p, 64, 8)
	}
}
