package blink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk(t *testing.T, capacity uintptr, prev *chunk) *chunk {
	t.Helper()
	l := Layout{Size: capacity + uintptr(HeaderSize), Align: chunkAlign}
	block, err := Heap{}.Allocate(l)
	require.NoError(t, err)
	return newChunk(block, l, prev)
}

func TestChunkCapacity(t *testing.T) {
	skipUnless64(t)

	root32 := &chunk{}
	root32.end = 32

	tests := []struct {
		name     string
		minSize  uintptr
		root     *chunk
		layout   Layout
		expected uintptr
	}{
		{"first chunk at min size", 32, nil, Layout{3, 1}, 32},
		{"second chunk grows past root", 32, root32, Layout{3, 1}, 96},
		{"zero min size", 0, nil, Layout{3, 1}, 32},
		{"zero min size after root", 0, root32, Layout{3, 1}, 96},
		{"min size not power friendly", 512, nil, Layout{64, 8}, 992},
		{"request above min size", 0, nil, Layout{1000, 1}, 2016},
		{"alignment slack counted", 0, nil, Layout{1, 64}, 96},
		{"exact power of two block", 96, nil, Layout{1, 1}, 96},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chunkCapacity(tt.minSize, tt.root, tt.layout)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, nextPowerOfTwo(uint(got)+uint(HeaderSize)), uint(got)+uint(HeaderSize),
				"block size should be a power of two")
		})
	}
}

func TestChunkCapacityOverflow(t *testing.T) {
	_, err := chunkCapacity(0, nil, Layout{Size: ^uintptr(0) >> 1, Align: 1})
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = chunkCapacity(0, nil, Layout{Size: ^uintptr(0), Align: 2})
	require.ErrorIs(t, err, ErrTooLarge)

	root := &chunk{}
	root.end = ^uintptr(0) - 8
	_, err = chunkCapacity(0, root, Layout{Size: 16, Align: 1})
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, out uint }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {35, 64}, {64, 64}, {67, 128}, {544, 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, nextPowerOfTwo(tt.in), "nextPowerOfTwo(%d)", tt.in)
	}
}

func TestChunkAlloc(t *testing.T) {
	c := testChunk(t, 64, nil)

	b := c.alloc(Layout{Size: 1, Align: 1})
	require.Len(t, b, 1)
	require.Equal(t, uintptr(1), c.cursor.Load())

	b = c.alloc(Layout{Size: 8, Align: 8})
	require.Len(t, b, 8)
	require.Zero(t, addr(b)%8)
	require.Equal(t, addr(b)-uintptr(c.base)+8, c.cursor.Load())

	// What is left cannot hold a request larger than the remainder.
	rest := c.capacity() - c.cursor.Load()
	require.Nil(t, c.alloc(Layout{Size: rest + 1, Align: 1}))
	require.Len(t, c.alloc(Layout{Size: rest, Align: 1}), int(rest))
	require.Equal(t, c.capacity(), c.cursor.Load())
	require.Nil(t, c.alloc(Layout{Size: 1, Align: 1}))
}

func TestChunkAllocShared(t *testing.T) {
	c := testChunk(t, 32, nil)

	a := c.allocShared(Layout{Size: 16, Align: 8})
	b := c.allocShared(Layout{Size: 16, Align: 8})
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.Equal(t, addr(a)+16, addr(b))
	require.Nil(t, c.allocShared(Layout{Size: 1, Align: 1}))
}

func TestChunkResize(t *testing.T) {
	c := testChunk(t, 64, nil)
	l8 := Layout{Size: 8, Align: 1}

	first := c.alloc(l8)
	tail := c.alloc(l8)
	require.Equal(t, uintptr(16), c.cursor.Load())

	t.Run("tail grows in place", func(t *testing.T) {
		grown := c.resize(tail, l8, Layout{Size: 24, Align: 1})
		require.Len(t, grown, 24)
		require.Equal(t, addr(tail), addr(grown))
		require.Equal(t, uintptr(32), c.cursor.Load())
		tail = grown
	})

	t.Run("tail shrinks and gives space back", func(t *testing.T) {
		shrunk := c.resize(tail, Layout{Size: 24, Align: 1}, Layout{Size: 4, Align: 1})
		require.Len(t, shrunk, 4)
		require.Equal(t, uintptr(12), c.cursor.Load())
		tail = shrunk
	})

	t.Run("tail cannot grow past chunk end", func(t *testing.T) {
		require.Nil(t, c.resize(tail, Layout{Size: 4, Align: 1}, Layout{Size: 100, Align: 1}))
		require.Equal(t, uintptr(12), c.cursor.Load())
	})

	t.Run("older block cannot grow", func(t *testing.T) {
		require.Nil(t, c.resize(first, l8, Layout{Size: 9, Align: 1}))
	})

	t.Run("older block shrinks without reclaiming", func(t *testing.T) {
		shrunk := c.resize(first, l8, Layout{Size: 2, Align: 1})
		require.Len(t, shrunk, 2)
		require.Equal(t, uintptr(12), c.cursor.Load())
	})

	t.Run("foreign block is rejected", func(t *testing.T) {
		other := make([]byte, 8)
		require.Nil(t, c.resize(other, l8, Layout{Size: 4, Align: 1}))
	})
}

func TestChunkDealloc(t *testing.T) {
	c := testChunk(t, 64, nil)
	l := Layout{Size: 10, Align: 1}

	a := c.alloc(l)
	b := c.alloc(l)

	c.dealloc(a, l.Size)
	require.Equal(t, uintptr(20), c.cursor.Load(), "non-tail free is ignored")

	c.dealloc(b, l.Size)
	require.Equal(t, uintptr(10), c.cursor.Load())

	c.dealloc(a, l.Size)
	require.Equal(t, uintptr(0), c.cursor.Load(), "frees in LIFO order reclaim everything")
}

func TestNewChunkCumulative(t *testing.T) {
	first := testChunk(t, 32, nil)
	second := testChunk(t, 96, first)
	third := testChunk(t, 224, second)

	assert.Zero(t, first.cumulative)
	assert.Equal(t, uintptr(32), second.cumulative)
	assert.Equal(t, uintptr(128), third.cumulative)
	assert.Equal(t, 352, chainCapacity(third))
	assert.Equal(t, 3, chainLen(third))
}

func TestReleaseChain(t *testing.T) {
	log := buildOptions(0, nil).logger
	rec := &recordingAllocator{}

	var root *chunk
	for _, capacity := range []uintptr{32, 96, 224} {
		c, err := grow(log, root, capacity, Layout{Size: 1, Align: 1}, rec)
		require.NoError(t, err)
		root = c
	}
	root.cursor.Store(5)

	kept := releaseChain(log, root, true, rec)
	require.Same(t, root, kept)
	require.Nil(t, kept.prev)
	require.Zero(t, kept.cumulative)
	require.Zero(t, kept.cursor.Load())

	allocs, frees := rec.counts()
	require.Equal(t, 3, allocs)
	require.Equal(t, 2, frees)
	require.Equal(t, rec.allocated[1], rec.freed[0], "newest released chunk goes first")
	require.Equal(t, rec.allocated[0], rec.freed[1])

	require.Nil(t, releaseChain(log, kept, false, rec))
	_, frees = rec.counts()
	require.Equal(t, 3, frees)

	require.Nil(t, releaseChain(log, nil, true, rec))
}

func TestGrowRejectsShortBlock(t *testing.T) {
	log := buildOptions(0, nil).logger
	short := shortAllocator{}
	_, err := grow(log, nil, 32, Layout{Size: 1, Align: 1}, short)
	require.ErrorIs(t, err, ErrAllocFailed)
}

type shortAllocator struct{}

func (shortAllocator) Allocate(l Layout) ([]byte, error) {
	return make([]byte, l.Size/2), nil
}

func (shortAllocator) Deallocate([]byte, Layout) {}
