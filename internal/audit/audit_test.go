package audit

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fixedarena/alloc"
	"github.com/hupe1980/fixedarena/arena"
)

func newResource(t *testing.T, capacity int) *Resource {
	t.Helper()
	r, err := arena.New(capacity, arena.WithOffHeap())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return Wrap(r)
}

func TestResource_Clean(t *testing.T) {
	a := newResource(t, 1024)

	var ptrs []unsafe.Pointer
	for range 8 {
		p, err := a.Allocate(40, 8)
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	assert.Equal(t, 320, a.LiveBytes())

	a.Deallocate(ptrs[2], 40, 8)
	a.Deallocate(ptrs[5], 40, 8)
	_, err := a.Allocate(16, 32)
	require.NoError(t, err)

	assert.NoError(t, a.Err())
	assert.NoError(t, a.Check())
	assert.Empty(t, a.Violations())
	assert.Equal(t, 240+16, a.LiveBytes())
}

func TestResource_DoubleFree(t *testing.T) {
	a := newResource(t, 256)

	p, err := a.Allocate(32, 8)
	require.NoError(t, err)
	a.Deallocate(p, 32, 8)
	a.Deallocate(p, 32, 8)

	require.ErrorIs(t, a.Err(), ErrNotLive)
	assert.Len(t, a.Violations(), 1)

	// The arena now holds the block twice, so two requests alias.
	require.ErrorIs(t, a.Check(), ErrFreeListCorrupt)

	_, err = a.Allocate(32, 8)
	require.NoError(t, err)
	_, err = a.Allocate(32, 8)
	require.NoError(t, err)
	require.ErrorIs(t, a.Err(), ErrAliased)
}

func TestResource_Foreign(t *testing.T) {
	a := newResource(t, 256)

	var local [8]byte
	a.Deallocate(unsafe.Pointer(&local[0]), 8, 8)
	require.ErrorIs(t, a.Err(), ErrForeign)
	assert.Zero(t, a.Arena().FreeBlocks())
}

func TestResource_WrongSize(t *testing.T) {
	a := newResource(t, 256)

	p, err := a.Allocate(16, 8)
	require.NoError(t, err)
	a.Deallocate(p, 64, 8)

	require.ErrorIs(t, a.Err(), ErrNotLive)
}

func TestResource_LostBytes(t *testing.T) {
	a := newResource(t, 1024)

	_, err := a.Allocate(8, 8)
	require.NoError(t, err)
	p, err := a.Allocate(120, 8)
	require.NoError(t, err)
	a.Deallocate(p, 120, 8)
	assert.Zero(t, a.LostBytes())

	_, err = a.Allocate(16, 64)
	require.NoError(t, err)
	assert.Equal(t, 56, a.LostBytes())
	assert.NoError(t, a.Check())
}

func TestResource_IsEqual(t *testing.T) {
	a := newResource(t, 64)
	b := newResource(t, 64)

	assert.True(t, a.IsEqual(a))
	assert.True(t, a.IsEqual(a.Arena()))
	assert.True(t, a.IsEqual(Wrap(a.Arena())))
	assert.False(t, a.IsEqual(b))

	assert.True(t, alloc.Same(alloc.New[int](a), alloc.New[byte](a)))
}
